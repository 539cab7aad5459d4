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

// Package resolver maps import specifiers to project relative module paths. It carries only the
// lookups needed to discover the reachable module set: relative files, packages installed in the
// modules directory and aliases.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/cogment/cogment-pack/helper"
)

var ErrNotFound = errors.New("module not found")

// Resolver resolves specifiers against a source tree rooted at Root.
type Resolver struct {
	Fs         afero.Fs
	Root       string
	Modules    string
	Extensions []string
	// Alias replaces a specifier prefix, a key ending with "$" only matches the exact specifier.
	Alias      map[string]string
	MainFields []string

	aliasKeys []string
}

// New creates a resolver, modules defaults to "node_modules".
func New(fs afero.Fs, root string, modules string, extensions []string, alias map[string]string) *Resolver {
	if modules == "" {
		modules = "node_modules"
	}
	if len(extensions) == 0 {
		extensions = []string{""}
	}
	keys := make([]string, 0, len(alias))
	for key := range alias {
		keys = append(keys, key)
	}
	// Longest aliases first, the order of a map isn't stable.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Resolver{
		Fs:         fs,
		Root:       root,
		Modules:    modules,
		Extensions: extensions,
		Alias:      alias,
		MainFields: []string{"browser", "module", "main"},
		aliasKeys:  keys,
	}
}

type packageManifest struct {
	Name    string          `json:"name"`
	Main    string          `json:"main"`
	Module  string          `json:"module"`
	Browser json.RawMessage `json:"browser"`
}

func (m packageManifest) field(name string) string {
	switch name {
	case "main":
		return m.Main
	case "module":
		return m.Module
	case "browser":
		// Only the string form, the object form remaps individual files.
		var browser string
		if json.Unmarshal(m.Browser, &browser) == nil {
			return browser
		}
	}
	return ""
}

// Resolve returns the project relative path of the module the specifier points to from the
// importer, the query of the specifier is kept. An empty importer resolves from the root.
func (r *Resolver) Resolve(specifier string, importer string) (string, error) {
	request, query := helper.SplitQuery(specifier)
	request = r.applyAlias(request)

	var resolved string
	var err error
	switch {
	case strings.HasPrefix(request, "/"):
		resolved, err = r.resolvePath(strings.TrimPrefix(request, "/"))
	case request == "." || request == ".." || strings.HasPrefix(request, "./") || strings.HasPrefix(request, "../"):
		base := path.Join(path.Dir(helper.ToSlash(importer)), request)
		if base == ".." || strings.HasPrefix(base, "../") {
			return "", fmt.Errorf("%w: %q points outside of the project", ErrNotFound, specifier)
		}
		resolved, err = r.resolvePath(base)
	default:
		resolved, err = r.resolvePackage(request, importer)
	}
	if err != nil {
		return "", err
	}
	return resolved + query, nil
}

// applyAlias rewrites the request, targets starting with "./" are relative to the root.
func (r *Resolver) applyAlias(request string) string {
	for _, key := range r.aliasKeys {
		target := r.Alias[key]
		if strings.HasPrefix(target, "./") {
			target = "/" + strings.TrimPrefix(target, "./")
		}
		if strings.HasSuffix(key, "$") {
			if request == strings.TrimSuffix(key, "$") {
				return target
			}
			continue
		}
		if request == key {
			return target
		}
		if strings.HasPrefix(request, key+"/") {
			return target + strings.TrimPrefix(request, key)
		}
	}
	return request
}

// resolvePath tries the path as a file, with each extension, then as a directory.
func (r *Resolver) resolvePath(base string) (string, error) {
	if resolved, found := r.resolveFile(base); found {
		return resolved, nil
	}
	if resolved, found := r.resolveDirectory(base); found {
		return resolved, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, base)
}

func (r *Resolver) resolveFile(base string) (string, bool) {
	for _, ext := range r.Extensions {
		candidate := base + ext
		if r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) resolveDirectory(base string) (string, bool) {
	if manifest, found := r.readManifest(base); found {
		for _, field := range r.MainFields {
			main := manifest.field(field)
			if main == "" {
				continue
			}
			target := path.Join(base, main)
			if resolved, found := r.resolveFile(target); found {
				return resolved, true
			}
			if resolved, found := r.resolveFile(path.Join(target, "index")); found {
				return resolved, true
			}
		}
	}
	return r.resolveFile(path.Join(base, "index"))
}

// resolvePackage looks a bare specifier up in the modules directories, from the importer's
// directory up to the root.
func (r *Resolver) resolvePackage(request string, importer string) (string, error) {
	name, subpath := splitPackage(request)
	if name == "" {
		return "", fmt.Errorf("%w: invalid package specifier %q", ErrNotFound, request)
	}
	dir := path.Dir(helper.ToSlash(importer))
	for {
		packageDir := path.Join(dir, r.Modules, name)
		if r.isDir(packageDir) {
			if subpath == "" {
				if resolved, found := r.resolveDirectory(packageDir); found {
					return resolved, nil
				}
				return "", fmt.Errorf("%w: package %q has no entry point", ErrNotFound, name)
			}
			return r.resolvePath(path.Join(packageDir, subpath))
		}
		if dir == "." || dir == "/" || dir == "" {
			break
		}
		dir = path.Dir(dir)
	}
	return "", fmt.Errorf("%w: package %q isn't installed in %q", ErrNotFound, name, r.Modules)
}

// splitPackage splits "@scope/name/sub/path" into "@scope/name" and "sub/path".
func splitPackage(request string) (string, string) {
	parts := strings.Split(request, "/")
	count := 1
	if strings.HasPrefix(request, "@") {
		count = 2
	}
	if len(parts) < count || parts[0] == "" {
		return "", ""
	}
	return strings.Join(parts[:count], "/"), strings.Join(parts[count:], "/")
}

func (r *Resolver) readManifest(dir string) (packageManifest, bool) {
	manifest := packageManifest{}
	content, err := afero.ReadFile(r.Fs, path.Join(r.Root, dir, "package.json"))
	if err != nil {
		return manifest, false
	}
	if err := json.Unmarshal(jsonc.ToJSON(content), &manifest); err != nil {
		return manifest, false
	}
	return manifest, true
}

func (r *Resolver) isFile(p string) bool {
	info, err := r.Fs.Stat(path.Join(r.Root, p))
	return err == nil && !info.IsDir()
}

func (r *Resolver) isDir(p string) bool {
	info, err := r.Fs.Stat(path.Join(r.Root, p))
	return err == nil && info.IsDir()
}
