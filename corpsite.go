// Package corpsite is a bilingual (English/Arabic) corporate website with an
// admin content API, built with Go, Echo, and templ.
//
// Public pages are rendered from page documents, blog posts and hero slides
// stored in SQLite. The admin API under /api/admin edits all of them and is
// consumed by the client served at /admin/. Views are supplied through
// ViewFuncs, so a site can replace any template while corpsite handles the
// handlers, middleware and storage.
package corpsite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eringen/corpsite/assist"
	"github.com/eringen/corpsite/cdn"
	"github.com/eringen/corpsite/contact"
	"github.com/eringen/corpsite/content"
	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/notify"
	"github.com/eringen/corpsite/seed"
	"github.com/eringen/corpsite/views"
)

const (
	loginMaxAttempts    = 5
	loginWindow         = time.Minute
	cleanupInterval     = 24 * time.Hour
	uploadsURLPrefix    = "/public/uploads"
	shutdownGracePeriod = 10 * time.Second
)

// ViewFuncs holds the templ components the framework calls when rendering
// pages. DefaultViews returns the built-in set from the views package.
type ViewFuncs struct {
	Home        func(site views.Site, page views.Page, slides []HeroSlide, posts []BlogPost) templ.Component
	ContentPage func(site views.Site, name string, page views.Page) templ.Component
	Blog        func(site views.Site, page views.Page, posts []BlogPost, categories []Category, active string, pg views.Pagination) templ.Component
	Post        func(site views.Site, post BlogPost, related []BlogPost) templ.Component
	Contact     func(site views.Site, page views.Page, status string) templ.Component
	NotFound    func(site views.Site) templ.Component
	ServerError func(site views.Site) templ.Component
}

// DefaultViews returns the components shipped in the views package.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		ContentPage: views.ContentPage,
		Blog:        views.Blog,
		Post:        views.Post,
		Contact:     views.Contact,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// App is the central corpsite application. It wires together the stores,
// cache, handlers, middleware and views.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *SiteCache
	Content  *content.Store
	Contacts *contact.Store
	Views    ViewFuncs

	contacts        *contact.Handler
	loginLimiter    *LoginLimiter
	registry        *prometheus.Registry
	uploader        cdn.Uploader
	assistant       *assist.Client
	notifier        notify.Notifier
	logger          *slog.Logger
	contentDefaults fs.FS
	customRoutes    []func(*App)
	staticDir       string
	watchContent    bool

	initialized bool
	stopCleanup func()
	cancel      context.CancelFunc
}

// New creates an App with the given configuration. Nothing is opened until
// Init or Start.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:          cfg,
		Echo:            echo.New(),
		Views:           DefaultViews(),
		registry:        prometheus.NewRegistry(),
		contentDefaults: seed.Defaults(),
		staticDir:       "public",
		watchContent:    true,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}
	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(echoLevel(cfg.SlogLevel()))
	return a
}

func echoLevel(l slog.Level) glog.Lvl {
	switch {
	case l <= slog.LevelDebug:
		return glog.DEBUG
	case l <= slog.LevelInfo:
		return glog.INFO
	case l <= slog.LevelWarn:
		return glog.WARN
	default:
		return glog.ERROR
	}
}

// Init opens the database and wires every component, middleware and route.
// Start calls it; tests call it directly and drive a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if a.Config.SessionSecret == "" {
		return errors.New("corpsite: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("corpsite: init store: %w", err)
	}
	a.Store = store

	contentOpts := []content.Option{content.WithLogger(a.logger), content.WithDir(a.Config.ContentDir)}
	if a.contentDefaults != nil {
		contentOpts = append(contentOpts, content.WithDefaults(a.contentDefaults))
	}
	if a.Content, err = content.NewStore(store.DB(), contentOpts...); err != nil {
		return fmt.Errorf("corpsite: init content: %w", err)
	}
	a.Cache = NewSiteCache(a.Store, a.Content, a.Config.CacheTTL)

	if a.Contacts, err = contact.NewStore(store.DB()); err != nil {
		return fmt.Errorf("corpsite: init contacts: %w", err)
	}
	salt, err := contact.LoadSalt(a.Contacts)
	if err != nil {
		return fmt.Errorf("corpsite: init contact salt: %w", err)
	}

	a.setupNotifier()
	a.contacts = contact.NewHandler(a.Contacts,
		contact.WithSalt(salt),
		contact.WithNotifier(a.notifier),
		contact.WithLogger(a.logger),
	)
	if err := a.setupUploader(); err != nil {
		return err
	}
	if err := a.setupAssistant(); err != nil {
		return err
	}
	if err := a.registry.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("corpsite: register go collector: %w", err)
	}

	a.loginLimiter = NewLoginLimiter(loginMaxAttempts, loginWindow)
	if err := a.ensureBootstrapAdmin(ctx); err != nil {
		return fmt.Errorf("corpsite: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if a.watchContent && a.Config.ContentDir != "" {
		err := a.Content.Watch(watchCtx, func(page string, lang i18n.Lang) {
			a.logger.Info("content file changed", "page", page, "lang", lang)
			a.Cache.Invalidate()
		})
		if err != nil {
			a.logger.Warn("content watcher disabled", "dir", a.Config.ContentDir, "err", err)
		}
	}
	a.stopCleanup = a.Contacts.StartCleanupScheduler(a.Config.ContactRetentionDays, cleanupInterval, a.logger)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// setupNotifier connects to NATS when configured. A broker that cannot be
// reached at startup only disables notifications.
func (a *App) setupNotifier() {
	if a.notifier != nil {
		return
	}
	a.notifier = notify.Nop{}
	if a.Config.NATS.URL == "" {
		return
	}
	n, err := notify.NewNATS(a.Config.NATS.URL, a.Config.NATS.Subject, a.logger)
	if err != nil {
		a.logger.Warn("contact notifications disabled", "url", a.Config.NATS.URL, "err", err)
		return
	}
	a.notifier = n
}

// setupUploader picks Cloudinary when credentials are present and local
// disk storage otherwise.
func (a *App) setupUploader() error {
	if a.uploader != nil {
		return nil
	}
	cc := a.Config.Cloudinary
	switch {
	case cc.URL != "":
		u, err := cdn.NewCloudinary(cc.URL, cc.Folder)
		if err != nil {
			return fmt.Errorf("corpsite: init cloudinary: %w", err)
		}
		a.uploader = u
	case cc.Configured():
		u, err := cdn.NewCloudinaryFromParams(cc.CloudName, cc.APIKey, cc.APISecret, cc.Folder)
		if err != nil {
			return fmt.Errorf("corpsite: init cloudinary: %w", err)
		}
		a.uploader = u
	default:
		a.uploader = cdn.NewLocal(a.Config.UploadDir, uploadsURLPrefix)
		a.logger.Info("media stored on local disk", "dir", a.Config.UploadDir)
	}
	return nil
}

func (a *App) setupAssistant() error {
	if a.assistant != nil || a.Config.OpenAI.APIKey == "" {
		return nil
	}
	opts := []assist.Option{assist.WithLogger(a.logger), assist.WithRegisterer(a.registry)}
	if a.Config.OpenAI.Model != "" {
		opts = append(opts, assist.WithModel(a.Config.OpenAI.Model))
	}
	if a.Config.OpenAI.BaseURL != "" {
		opts = append(opts, assist.WithBaseURL(a.Config.OpenAI.BaseURL))
	}
	c, err := assist.New(a.Config.OpenAI.APIKey, opts...)
	if err != nil {
		return fmt.Errorf("corpsite: init assist: %w", err)
	}
	a.assistant = c
	return nil
}

// Start initializes the app and serves until ctx is cancelled, then shuts
// the server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.Config.Addr, "url", a.Config.URL)
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets, then the user's static dir and local uploads.
	assets := http.FileServer(http.FS(embeddedFS()))
	for _, name := range []string{"site.css", "site.js"} {
		e.GET("/public/"+name, echo.WrapHandler(http.StripPrefix("/public/", assets)))
	}
	e.Static(uploadsURLPrefix, a.Config.UploadDir)
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.registry}))

	// Public site
	e.GET("/", a.handleRoot)
	site := e.Group("/:lang", a.langMiddleware)
	site.GET("/", a.handleHome)
	for _, name := range []string{"services", "industries", "about"} {
		site.GET("/"+name+"/", a.contentPage(name))
	}
	site.GET("/blog/", a.handleBlog)
	site.GET("/blog/:slug/", a.handlePost)
	site.GET("/contact/", a.handleContactPage)
	site.POST("/contact/", a.handleContactForm)
	site.GET("/feed.xml", a.handleFeed)

	// Public JSON API
	api := e.Group("/api")
	api.GET("/content/:page", a.handleContent)
	api.GET("/posts", a.handlePublicPosts)
	api.GET("/posts/:slug", a.handlePublicPost)
	api.GET("/categories", a.handlePublicCategories)
	api.GET("/slides", a.handlePublicSlides)

	// Auth
	auth := e.Group("/api/auth")
	auth.POST("/login", a.handleLogin)
	auth.POST("/logout", a.handleLogout)
	auth.GET("/me", a.handleMe, a.requireAdmin)

	// Admin API
	admin := e.Group("/api/admin", a.requireAdmin)
	admin.GET("/posts", a.handleAdminListPosts)
	admin.POST("/posts", a.handleAdminCreatePost)
	admin.GET("/posts/:id", a.handleAdminGetPost)
	admin.PUT("/posts/:id", a.handleAdminUpdatePost)
	admin.DELETE("/posts/:id", a.handleAdminDeletePost)
	admin.GET("/posts/:id/markdown", a.handleAdminPostMarkdown)

	admin.GET("/categories", a.handleAdminListCategories)
	admin.POST("/categories", a.handleAdminCreateCategory)
	admin.PUT("/categories/:id", a.handleAdminUpdateCategory)
	admin.DELETE("/categories/:id", a.handleAdminDeleteCategory)

	admin.GET("/slides", a.handleAdminListSlides)
	admin.POST("/slides", a.handleAdminCreateSlide)
	admin.PUT("/slides/order", a.handleAdminReorderSlides)
	admin.PUT("/slides/:id", a.handleAdminUpdateSlide)
	admin.DELETE("/slides/:id", a.handleAdminDeleteSlide)

	admin.GET("/media", a.handleMediaList)
	admin.POST("/media", a.handleMediaUpload)
	admin.PATCH("/media/:id", a.handleMediaUpdate)
	admin.DELETE("/media/:id", a.handleMediaDelete)

	admin.GET("/content", a.handleAdminListContent)
	admin.POST("/content/export", a.handleAdminExportContent)
	admin.GET("/content/:page/:lang", a.handleAdminGetContent)
	admin.PUT("/content/:page/:lang", a.handleAdminSaveContent)
	admin.DELETE("/content/:page/:lang", a.handleAdminDeleteContent)

	assist.NewHandler(a.assistant).RegisterRoutes(admin.Group("/ai"))

	// Contact form API and inbox
	a.contacts.RegisterRoutes(e, e.Group(""), a.requireAdmin)

	// Admin client
	e.GET("/admin", handleAdminRedirect)
	e.GET("/admin/", a.handleAdminShell)
	e.GET("/admin/*", a.handleAdminShell)
}

// Close stops background work and releases resources. Call this when the
// app is shutting down.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.contacts != nil {
		a.contacts.Close()
	}
	var errs []error
	if a.notifier != nil {
		errs = append(errs, a.notifier.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("corpsite: required environment variable %s is not set", key)
	}
	return v
}
