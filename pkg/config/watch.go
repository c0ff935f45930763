package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/rankly/internal/logger"
)

// Watcher reloads a configuration file when it changes.
type Watcher struct {
	fw   *fsnotify.Watcher
	path string
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Watch calls onChange with the reloaded configuration every time path is
// written or replaced. Invalid edits are logged and skipped. The directory
// is watched so editors that save by rename are seen too.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{fw: fw, path: abs, done: make(chan struct{})}
	w.wg.Add(1)
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func(*Config)) {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				logger.Warn("Ignoring invalid configuration change", "path", w.path, logger.Err(err))
				continue
			}
			logger.Info("Configuration reloaded", "path", w.path)
			onChange(cfg)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("Configuration watcher error", logger.Err(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fw.Close()
		w.wg.Wait()
	})
	return err
}
