// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package config loads severity threshold overrides from a YAML file and
// republishes them on change.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
)

// ThresholdsLoader watches a YAML file mapping reading names to severity
// thresholds and pushes updates to a subscriber whenever the file changes.
// The built-in defaults stay in effect for any reading the file omits, and
// an unparseable rewrite keeps the last good set rather than clearing it.
type ThresholdsLoader struct {
	mu sync.RWMutex

	path    string
	watcher *fsnotify.Watcher
	logger  logr.Logger
	done    chan struct{}
	wg      sync.WaitGroup

	onUpdate func(map[string]telemetry.Thresholds)
	current  map[string]telemetry.Thresholds
}

// NewThresholdsLoader loads path immediately and then watches its directory
// for rewrites. Watching the directory rather than the file keeps the watch
// alive across the rename-and-replace dance editors and config management
// tools do on save. onUpdate is invoked with the merged threshold set, first
// synchronously from the constructor and then from the watch goroutine.
func NewThresholdsLoader(path string, logger logr.Logger, onUpdate func(map[string]telemetry.Thresholds)) (*ThresholdsLoader, error) {
	tlLogger := logger.WithName("config.thresholds")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	closeWatcher := func() {
		if err := watcher.Close(); err != nil {
			tlLogger.Error(err, "failed to close fs watcher")
		}
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		defer closeWatcher()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	tl := &ThresholdsLoader{
		path:     path,
		watcher:  watcher,
		logger:   tlLogger,
		done:     make(chan struct{}),
		onUpdate: onUpdate,
		current:  telemetry.DefaultThresholds(),
	}

	// The file is optional: defaults apply until it appears.
	if err := tl.reload(); err != nil {
		if !os.IsNotExist(err) {
			defer closeWatcher()
			return nil, fmt.Errorf("failed to load thresholds: %w", err)
		}
		tlLogger.V(1).Info("thresholds file absent, using defaults", "path", path)
	}
	tl.publish()

	tl.wg.Add(1)
	go tl.processEvents()

	return tl, nil
}

// Current returns a copy of the active threshold set.
func (tl *ThresholdsLoader) Current() map[string]telemetry.Thresholds {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	out := make(map[string]telemetry.Thresholds, len(tl.current))
	for name, t := range tl.current {
		out[name] = t
	}
	return out
}

func (tl *ThresholdsLoader) Close() error {
	close(tl.done)
	tl.wg.Wait()
	return tl.watcher.Close()
}

func (tl *ThresholdsLoader) processEvents() {
	defer tl.wg.Done()
	for {
		select {
		case <-tl.done:
			return
		case event, ok := <-tl.watcher.Events:
			if !ok {
				return
			}
			tl.handleEvent(event)
		case err, ok := <-tl.watcher.Errors:
			if !ok {
				return
			}
			tl.logger.Error(err, "filesystem watcher error")
		}
	}
}

func (tl *ThresholdsLoader) handleEvent(event fsnotify.Event) {
	if event.Name != tl.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	tl.logger.V(1).Info("received file event", "file", event.Name, "op", event.Op)

	if err := tl.reload(); err != nil {
		tl.logger.Error(err, "failed to reload thresholds, keeping previous set", "path", tl.path)
		return
	}
	tl.publish()
}

// reload merges the file's overrides over the built-in defaults.
func (tl *ThresholdsLoader) reload() error {
	data, err := os.ReadFile(tl.path)
	if err != nil {
		return err
	}

	var overrides map[string]telemetry.Thresholds
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", tl.path, err)
	}

	merged := telemetry.DefaultThresholds()
	for name, t := range overrides {
		if _, known := merged[name]; !known {
			tl.logger.Info("ignoring threshold for unknown reading", "reading", name)
			continue
		}
		if t.Low > t.High {
			return fmt.Errorf("thresholds for %s invalid: low %v > high %v", name, t.Low, t.High)
		}
		merged[name] = t
	}

	tl.mu.Lock()
	tl.current = merged
	tl.mu.Unlock()
	return nil
}

func (tl *ThresholdsLoader) publish() {
	if tl.onUpdate == nil {
		return
	}
	tl.onUpdate(tl.Current())
}
