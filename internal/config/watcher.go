// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// reloadDebounce collapses the burst of events editors emit for a single save.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads the config file when it changes and hands the result to onChange.
type Watcher struct {
	path     string
	onChange func(*Config)

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for configFile. Call Start to begin watching.
func NewWatcher(configFile string, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     configFile,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
}

// Start watches the directory of the config file so atomic renames are seen.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher

	target := filepath.Clean(w.path)
	go func() {
		var timer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, w.reload)
			case errWatch, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("Config watcher error: %v", errWatch)
			case <-w.stop:
				if timer != nil {
					timer.Stop()
				}
				return
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	cfg, err := LoadConfigOptional(w.path, true)
	if err != nil {
		log.Errorf("Failed to reload config %s: %v", w.path, err)
		return
	}
	log.Infof("Config file %s changed, reloaded", filepath.Base(w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}
