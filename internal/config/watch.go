package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/logger"
)

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	w    *fsnotify.Watcher
	path string
	fn   func(*Config)
	done chan struct{}
	once sync.Once
}

// Watch starts watching path and calls fn with the freshly loaded config
// after every write. Invalid files are logged and skipped. fn runs on the
// watcher goroutine.
func Watch(path string, fn func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Editors and SaveTo replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	cw := &Watcher{w: w, path: abs, fn: fn, done: make(chan struct{})}
	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	defer close(cw.done)
	log := logger.Named("config")

	for {
		select {
		case event, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadFile(cw.path)
			if err != nil {
				log.Warn("config reload skipped", zap.Error(err))
				continue
			}
			log.Info("config reloaded", zap.String("path", cw.path))
			cw.fn(cfg)
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (cw *Watcher) Close() error {
	var err error
	cw.once.Do(func() {
		err = cw.w.Close()
		<-cw.done
	})
	return err
}
