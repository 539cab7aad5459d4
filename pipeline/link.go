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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// ArtifactKind is the kind of an output artifact.
type ArtifactKind int

const (
	ArtifactScript ArtifactKind = iota
	ArtifactStyle
	ArtifactAsset
	ArtifactDocument
	ArtifactStatic
)

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactScript:
		return "script"
	case ArtifactStyle:
		return "style"
	case ArtifactAsset:
		return "asset"
	case ArtifactDocument:
		return "document"
	case ArtifactStatic:
		return "static"
	}
	return "unknown"
}

// Artifact is an output file, its path is relative to the output directory.
type Artifact struct {
	Path    string
	Content []byte
	Kind    ArtifactKind
	Chunk   string
	// Hashed is set when the path carries a content hash and can be cached forever.
	Hashed bool
	// Source is the module path, or the chunk name, the artifact was produced from.
	Source string
}

// Chunk is a chunk group once linked.
type Chunk struct {
	Name string
	// Modules are the module paths in link order.
	Modules []string
	// Entry is the entry module started at the end of the chunk script, if any.
	Entry  string
	Script string
	Style  string
}

// URLPlaceholder is substituted by the public url of the asset the specifier resolves to.
func URLPlaceholder(specifier string) string {
	return "__PACK_URL_" + hex.EncodeToString([]byte(specifier)) + "__"
}

var urlPlaceholderRegex = regexp.MustCompile(`__PACK_URL_([0-9a-f]+)__`)

// linkOrder walks the graph depth first from each entry, dependencies before dependents. The
// first entry reaching a module owns it.
func linkOrder(modules map[string]*Module, entries []EntryPoint, entryPaths []string) ([]string, map[string]string) {
	order := []string{}
	owners := map[string]string{}
	var visit func(modulePath string, owner string)
	visit = func(modulePath string, owner string) {
		if _, visited := owners[modulePath]; visited {
			return
		}
		owners[modulePath] = owner
		for _, dependency := range modules[modulePath].Imports {
			visit(dependency, owner)
		}
		order = append(order, modulePath)
	}
	for idx, entry := range entries {
		visit(entryPaths[idx], entry.Name)
	}
	return order, owners
}

// substitutePlaceholders replaces the url placeholders of a module with public asset urls.
func (o *Orchestrator) substitutePlaceholders(module *Module, modules map[string]*Module, content []byte) ([]byte, error) {
	var substituteErr error
	substituted := urlPlaceholderRegex.ReplaceAllFunc(content, func(placeholder []byte) []byte {
		encoded := urlPlaceholderRegex.FindSubmatch(placeholder)[1]
		specifier, err := hex.DecodeString(string(encoded))
		if err != nil {
			substituteErr = err
			return placeholder
		}
		target, found := modules[module.Deps[string(specifier)]]
		if !found || target.AssetPath == "" {
			substituteErr = fmt.Errorf("%q referenced from %q is not an emitted asset", specifier, module.Path)
			return placeholder
		}
		return []byte(o.PublicPath + target.AssetPath)
	})
	return substituted, substituteErr
}

func (o *Orchestrator) defineModule(buffer *bytes.Buffer, module *Module, modules map[string]*Module, body []byte) error {
	specifiers := make([]string, 0, len(module.Deps))
	for specifier := range module.Deps {
		specifiers = append(specifiers, specifier)
	}
	sort.Strings(specifiers)

	deps := bytes.NewBufferString("{")
	for idx, specifier := range specifiers {
		if idx > 0 {
			deps.WriteString(", ")
		}
		key, _ := json.Marshal(specifier)
		value, _ := json.Marshal(modules[module.Deps[specifier]].ID)
		deps.Write(key)
		deps.WriteString(": ")
		deps.Write(value)
	}
	deps.WriteString("}")

	fmt.Fprintf(buffer, "%s(%q, %s, function (module, exports, require) {\n", defineFn, module.ID, deps.String())
	buffer.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		buffer.WriteByte('\n')
	}
	buffer.WriteString("});\n")
	return nil
}

// link assembles the chunk groups from the resolved modules, it only runs once every module
// task has completed.
func (o *Orchestrator) link(modules map[string]*Module, entryPaths []string) ([]*Chunk, []*Artifact, []string, error) {
	order, owners := linkOrder(modules, o.Entries, entryPaths)

	ids := map[string]string{}
	for _, modulePath := range order {
		module := modules[modulePath]
		if other, collides := ids[module.ID]; collides {
			return nil, nil, nil, &OutputConflictError{Path: "module id " + module.ID, Sources: []string{other, modulePath}}
		}
		ids[module.ID] = modulePath
	}

	emitted := newArtifactSet()

	// Assets are named first, scripts and styles embed their urls.
	for _, modulePath := range order {
		module := modules[modulePath]
		module.Chunk = o.Chunks.AssignChunk(modulePath, owners[modulePath])
		if module.Output.Kind != KindAsset {
			continue
		}
		name, err := o.Naming.AssetName(modulePath, module.Output.AssetName, module.Output.Bytes)
		if err != nil {
			return nil, nil, nil, err
		}
		module.AssetPath = name
		if err := emitted.add(&Artifact{Path: name, Content: module.Output.Bytes, Kind: ArtifactAsset, Chunk: module.Chunk, Hashed: true, Source: modulePath}); err != nil {
			return nil, nil, nil, err
		}
	}

	chunks := []*Chunk{}
	byName := map[string]*Chunk{}
	chunkNames := []string{o.Chunks.Vendor}
	for _, entry := range o.Entries {
		chunkNames = append(chunkNames, entry.Name)
	}
	for idx, name := range chunkNames {
		chunk := &Chunk{Name: name}
		if idx > 0 {
			chunk.Entry = entryPaths[idx-1]
		}
		byName[name] = chunk
	}
	for _, modulePath := range order {
		chunk := byName[modules[modulePath].Chunk]
		chunk.Modules = append(chunk.Modules, modulePath)
	}

	runtimeScript, err := o.runtimeScript()
	if err != nil {
		return nil, nil, nil, err
	}
	runtimeChunk := &Chunk{Name: o.Chunks.Runtime, Modules: []string{RuntimeModule}}
	if runtimeChunk.Script, err = o.Naming.ScriptName(runtimeChunk.Name, runtimeScript); err != nil {
		return nil, nil, nil, err
	}
	if err := emitted.add(&Artifact{Path: runtimeChunk.Script, Content: runtimeScript, Kind: ArtifactScript, Chunk: runtimeChunk.Name, Hashed: true, Source: runtimeChunk.Name}); err != nil {
		return nil, nil, nil, err
	}
	chunks = append(chunks, runtimeChunk)

	for _, name := range chunkNames {
		chunk := byName[name]
		if len(chunk.Modules) == 0 {
			continue
		}
		var script, style bytes.Buffer
		for _, modulePath := range chunk.Modules {
			module := modules[modulePath]
			var body []byte
			switch module.Output.Kind {
			case KindAsset:
				url, _ := json.Marshal(o.PublicPath + module.AssetPath)
				body = []byte(fmt.Sprintf("module.exports = %s;", url))
			case KindStyle:
				css, err := o.substitutePlaceholders(module, modules, module.Output.Bytes)
				if err != nil {
					return nil, nil, nil, err
				}
				style.Write(css)
				if len(css) > 0 && css[len(css)-1] != '\n' {
					style.WriteByte('\n')
				}
			default:
				if body, err = o.substitutePlaceholders(module, modules, module.Output.Bytes); err != nil {
					return nil, nil, nil, err
				}
			}
			if err := o.defineModule(&script, module, modules, body); err != nil {
				return nil, nil, nil, err
			}
		}
		if chunk.Entry != "" {
			fmt.Fprintf(&script, "%s(%q);\n", startFn, modules[chunk.Entry].ID)
		}

		if chunk.Script, err = o.Naming.ScriptName(chunk.Name, script.Bytes()); err != nil {
			return nil, nil, nil, err
		}
		if err := emitted.add(&Artifact{Path: chunk.Script, Content: script.Bytes(), Kind: ArtifactScript, Chunk: chunk.Name, Hashed: true, Source: chunk.Name}); err != nil {
			return nil, nil, nil, err
		}
		if style.Len() > 0 {
			if chunk.Style, err = o.Naming.StyleName(chunk.Name, style.Bytes()); err != nil {
				return nil, nil, nil, err
			}
			if err := emitted.add(&Artifact{Path: chunk.Style, Content: style.Bytes(), Kind: ArtifactStyle, Chunk: chunk.Name, Hashed: true, Source: chunk.Name}); err != nil {
				return nil, nil, nil, err
			}
		}
		chunks = append(chunks, chunk)
	}

	return chunks, emitted.list, order, nil
}

// artifactSet deduplicates identical artifacts and rejects different contents at the same path.
type artifactSet struct {
	byPath map[string]*Artifact
	list   []*Artifact
}

func newArtifactSet() *artifactSet {
	return &artifactSet{byPath: map[string]*Artifact{}}
}

func (s *artifactSet) add(artifact *Artifact) error {
	if existing, found := s.byPath[artifact.Path]; found {
		if bytes.Equal(existing.Content, artifact.Content) {
			return nil
		}
		return &OutputConflictError{Path: artifact.Path, Sources: []string{existing.Source, artifact.Source}}
	}
	s.byPath[artifact.Path] = artifact
	s.list = append(s.list, artifact)
	return nil
}
