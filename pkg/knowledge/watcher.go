// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

// Watcher reindexes bundled knowledge documents when they change on
// disk. Optional: personas without a knowledge dir are ignored.
type Watcher struct {
	manager *Manager
	watcher *fsnotify.Watcher

	// dirs maps a watched directory to its persona.
	dirs map[string]*config.PersonaConfig

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

func NewWatcher(manager *Manager) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		manager: manager,
		watcher: fsw,
		dirs:    make(map[string]*config.PersonaConfig),
		done:    make(chan struct{}),
	}

	for _, persona := range manager.personas {
		if persona.KnowledgeDir == "" {
			continue
		}
		if err := w.addTree(persona.KnowledgeDir, persona); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// addTree watches root and every directory beneath it on behalf of
// persona. Bootstrap indexes nested category directories, so the
// watcher must cover them too.
func (w *Watcher) addTree(root string, persona *config.PersonaConfig) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.dirs[filepath.Clean(path)] = persona
		return nil
	})
}

// Start begins processing events until ctx ends or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	supported := make(map[string]bool)
	for _, ext := range w.manager.parsers.SupportedExtensions() {
		supported[ext] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					persona, ok := w.dirs[filepath.Dir(event.Name)]
					if !ok {
						continue
					}
					if err := w.addTree(event.Name, persona); err != nil {
						slog.Warn("Failed to watch new directory",
							"path", event.Name, "error", err)
					}
					continue
				}
			}
			if !supported[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}

			persona, ok := w.dirs[filepath.Dir(event.Name)]
			if !ok {
				continue
			}

			count, err := w.manager.Reindex(ctx, persona, event.Name)
			if err != nil {
				slog.Warn("Failed to reindex changed document",
					"path", event.Name, "error", err)
				continue
			}
			slog.Info("Reindexed changed document",
				"persona", persona.ID,
				"path", event.Name,
				"chunks", count)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

// Close stops watching and waits for the event loop to drain.
func (w *Watcher) Close() error {
	err := w.watcher.Close()

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
	return err
}
