package i18n

var labels = map[string]Text{
	"nav.home":             {EN: "Home", AR: "الرئيسية"},
	"nav.services":         {EN: "Services", AR: "الخدمات"},
	"nav.industries":       {EN: "Industries", AR: "القطاعات"},
	"nav.about":            {EN: "About", AR: "من نحن"},
	"nav.blog":             {EN: "Insights", AR: "المدونة"},
	"nav.contact":          {EN: "Contact", AR: "اتصل بنا"},
	"blog.all":             {EN: "All insights", AR: "جميع المقالات"},
	"blog.all_categories":  {EN: "All", AR: "الكل"},
	"blog.read_more":       {EN: "Read more", AR: "اقرأ المزيد"},
	"blog.related":         {EN: "Related insights", AR: "مقالات ذات صلة"},
	"blog.min_read":        {EN: "min read", AR: "دقائق للقراءة"},
	"blog.latest":          {EN: "Latest insights", AR: "أحدث المقالات"},
	"blog.empty":           {EN: "No articles yet.", AR: "لا توجد مقالات بعد."},
	"blog.back":            {EN: "Back to insights", AR: "العودة إلى المدونة"},
	"page.prev":            {EN: "Previous", AR: "السابق"},
	"page.next":            {EN: "Next", AR: "التالي"},
	"contact.name":         {EN: "Full name", AR: "الاسم الكامل"},
	"contact.email":        {EN: "Email", AR: "البريد الإلكتروني"},
	"contact.phone":        {EN: "Phone", AR: "الهاتف"},
	"contact.company":      {EN: "Company", AR: "الشركة"},
	"contact.subject":      {EN: "Subject", AR: "الموضوع"},
	"contact.message":      {EN: "Message", AR: "الرسالة"},
	"contact.submit":       {EN: "Send message", AR: "إرسال"},
	"contact.sent":         {EN: "Thank you. We will be in touch shortly.", AR: "شكراً لتواصلكم. سنعود إليكم قريباً."},
	"contact.failed":       {EN: "Your message could not be sent. Please check the form and try again.", AR: "تعذر إرسال رسالتك. يرجى التحقق من النموذج والمحاولة مرة أخرى."},
	"contact.limited":      {EN: "Too many messages. Please try again later.", AR: "عدد كبير من الرسائل. يرجى المحاولة لاحقاً."},
	"error.not_found":      {EN: "Page not found", AR: "الصفحة غير موجودة"},
	"error.not_found_body": {EN: "The page you are looking for does not exist or has moved.", AR: "الصفحة التي تبحث عنها غير موجودة أو تم نقلها."},
	"error.server":         {EN: "Something went wrong", AR: "حدث خطأ ما"},
	"error.server_body":    {EN: "Please try again in a moment.", AR: "يرجى المحاولة بعد قليل."},
	"lang.switch":          {EN: "العربية", AR: "English"},
	"footer.rights":        {EN: "All rights reserved.", AR: "جميع الحقوق محفوظة."},
}

// T returns the interface label for key in l. Unknown keys are returned as-is.
func T(l Lang, key string) string {
	if t, ok := labels[key]; ok {
		return t.In(l)
	}
	return key
}
