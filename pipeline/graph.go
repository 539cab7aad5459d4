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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/cogment/cogment-pack/helper"
)

// walker discovers the module graph from the entries, one task per module.
type walker struct {
	o     *Orchestrator
	group *errgroup.Group
	slots chan struct{}

	mu        sync.Mutex
	scheduled map[string]bool
	modules   map[string]*Module
	virtual   map[string][]byte
}

func (o *Orchestrator) walk(ctx context.Context, entries []string) (map[string]*Module, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	w := &walker{
		o:         o,
		group:     group,
		slots:     make(chan struct{}, o.concurrency()),
		scheduled: map[string]bool{},
		modules:   map[string]*Module{},
		virtual:   map[string][]byte{},
	}
	for _, entry := range entries {
		w.schedule(groupCtx, entry, "")
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return w.modules, nil
}

func (w *walker) schedule(ctx context.Context, modulePath string, importer string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scheduled[modulePath] {
		return
	}
	w.scheduled[modulePath] = true
	w.group.Go(func() error {
		return w.process(ctx, modulePath, importer)
	})
}

// process runs in its own goroutine, the slots bound how many chains run at the same time.
func (w *walker) process(ctx context.Context, modulePath string, importer string) error {
	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	module, err := w.load(ctx, modulePath, importer)
	<-w.slots
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.modules[modulePath] = module
	w.mu.Unlock()

	for _, dependency := range module.Imports {
		w.schedule(ctx, dependency, modulePath)
	}
	return nil
}

func (w *walker) load(ctx context.Context, modulePath string, importer string) (*Module, error) {
	rule, err := w.o.Rules.Classify(modulePath)
	if err != nil {
		var unclassified *UnclassifiedAssetError
		if errors.As(err, &unclassified) {
			unclassified.Importer = importer
		}
		return nil, err
	}

	content, err := w.read(modulePath)
	if err != nil {
		if importer == "" {
			return nil, fmt.Errorf("unable to read entry %q: %w", modulePath, err)
		}
		return nil, fmt.Errorf("unable to read %q imported by %q: %w", modulePath, importer, err)
	}

	source := Source{Path: modulePath, Bytes: content, Kind: KindScript}
	output, cached := w.o.Cache.Get(rule, source)
	if !cached {
		output, err = Resolve(ctx, rule, source)
		if err != nil {
			return nil, err
		}
		w.o.Cache.Add(rule, source, output)
	}
	w.o.logger.Debugw("module resolved", "path", modulePath, "rule", rule.Name, "kind", output.Kind, "cached", cached)

	w.mu.Lock()
	for _, fragment := range output.Fragments {
		w.virtual[fragment.Path] = fragment.Bytes
	}
	w.mu.Unlock()

	module := &Module{
		Path:   modulePath,
		ID:     ModuleID(modulePath),
		Rule:   rule.Name,
		Output: output,
		Deps:   make(map[string]string, len(output.Dependencies)),
	}
	for _, specifier := range output.Dependencies {
		resolved, err := w.resolve(specifier, modulePath)
		if err != nil {
			return nil, err
		}
		module.Deps[specifier] = resolved
		module.Imports = appendUnique(module.Imports, resolved)
	}
	return module, nil
}

// resolve looks the specifier up in the virtual modules before delegating to the resolver.
func (w *walker) resolve(specifier string, importer string) (string, error) {
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		candidate := path.Join(path.Dir(importer), specifier)
		w.mu.Lock()
		_, isVirtual := w.virtual[candidate]
		w.mu.Unlock()
		if isVirtual {
			return candidate, nil
		}
	}
	resolved, err := w.o.Resolver.Resolve(specifier, importer)
	if err != nil {
		return "", &UnresolvedImportError{Specifier: specifier, Importer: importer, Cause: err}
	}
	return resolved, nil
}

func (w *walker) read(modulePath string) ([]byte, error) {
	w.mu.Lock()
	content, isVirtual := w.virtual[modulePath]
	w.mu.Unlock()
	if isVirtual {
		return content, nil
	}
	filePath, _ := helper.SplitQuery(modulePath)
	return afero.ReadFile(w.o.Fs, path.Join(w.o.Root, filePath))
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
