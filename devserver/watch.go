// Copyright 2021 Artificial Intelligence Redefined <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package devserver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
)

const DefaultDebounce = 100 * time.Millisecond

// Watcher rebuilds the server's project when files under its root change.
type Watcher struct {
	server   *Server
	root     string
	ignored  []string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *zap.SugaredLogger
}

// NewWatcher watches every directory under root, except the ignored directory names.
func NewWatcher(server *Server, root string, ignored []string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		server:   server,
		root:     root,
		ignored:  ignored,
		debounce: DefaultDebounce,
		watcher:  watcher,
		logger:   helper.GetSugarLogger([]string{"devserver", "watch"}),
	}
	if err := w.add(root); err != nil {
		watcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) skip(dirname string) bool {
	name := filepath.Base(dirname)
	if dirname != w.root && strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignored := range w.ignored {
		if name == ignored {
			return true
		}
	}
	return false
}

func (w *Watcher) add(dirname string) error {
	return filepath.Walk(dirname, func(filename string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.skip(filename) {
			return filepath.SkipDir
		}
		return w.watcher.Add(filename)
	})
}

// Run dispatches the file events until the context is done, changes closer than the debounce
// delay are coalesced in a single rebuild.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	changed := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("watch error: %v", err)
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						w.logger.Warnf("unable to watch %q: %v", event.Name, err)
					}
				}
			}
			relative, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}
			changed[filepath.ToSlash(relative)] = true
			timer.Reset(w.debounce)
		case <-timer.C:
			paths := make([]string, 0, len(changed))
			for changedPath := range changed {
				paths = append(paths, changedPath)
			}
			sort.Strings(paths)
			changed = map[string]bool{}
			w.Flush(ctx, paths)
		}
	}
}

// Flush rebuilds after the given project relative paths changed.
func (w *Watcher) Flush(ctx context.Context, changed []string) {
	w.logger.Debugf("changed: %v", changed)
	for _, changedPath := range changed {
		if w.server.isConfigFile(changedPath) {
			if err := w.server.Reload(); err != nil {
				return
			}
			break
		}
	}
	if !inGraph(w.server.Current(), changed) {
		// Files outside of the graph, sass partials for instance, can change the outputs of
		// cached modules.
		w.server.Orchestrator().Cache.Purge()
	}
	_, _ = w.server.Rebuild(ctx)
}

func inGraph(build *pipeline.Build, changed []string) bool {
	if build == nil {
		return false
	}
	for _, changedPath := range changed {
		if _, found := build.Modules[changedPath]; !found {
			return false
		}
	}
	return true
}
