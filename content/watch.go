package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eringen/corpsite/i18n"
)

const watchDebounce = 200 * time.Millisecond

// Watch calls onChange whenever a fallback file is written, created or
// removed. Bursts of events for the same file are coalesced. It returns
// once the watcher is running; the watcher stops when ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(page string, lang i18n.Lang)) error {
	if s.dir == "" {
		return errors.New("content: no fallback directory to watch")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return err
	}

	go s.runWatcher(ctx, watcher, onChange)

	s.logger.Info("content watcher started", "dir", s.dir)
	return nil
}

func (s *Store) runWatcher(ctx context.Context, watcher *fsnotify.Watcher, onChange func(string, i18n.Lang)) {
	defer watcher.Close()

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	trigger := func(name, page string, lang i18n.Lang) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[name]; ok {
			t.Stop()
		}
		pending[name] = time.AfterFunc(watchDebounce, func() {
			mu.Lock()
			delete(pending, name)
			mu.Unlock()
			s.logger.Debug("content file changed", "page", page, "lang", lang)
			if onChange != nil {
				onChange(page, lang)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			page, lang, ok := ParseFileName(name)
			if !ok {
				continue
			}
			trigger(name, page, lang)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("content watcher error", "err", err)
		}
	}
}
