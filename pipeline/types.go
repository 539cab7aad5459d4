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
)

// ModuleKind is the kind of bytes a module carries once its chain completes.
type ModuleKind int

const (
	KindScript ModuleKind = iota
	KindStyle
	KindAsset
)

func (k ModuleKind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindStyle:
		return "style"
	case KindAsset:
		return "asset"
	}
	return "unknown"
}

// Fragment is a virtual module produced by a transform, fed back into the graph under Path.
type Fragment struct {
	Path  string
	Bytes []byte
}

// Source is the value threaded from one transform stage to the next.
type Source struct {
	// Path is the project relative path of the module, including its query.
	Path  string
	Bytes []byte
	Kind  ModuleKind
	// Dependencies are the specifiers the module imports, in import order.
	Dependencies []string
	Fragments    []Fragment
	// AssetName is the naming pattern of an emitted asset, empty for the default pattern.
	AssetName string
}

// AddDependency records a specifier once, keeping the first occurrence order.
func (s *Source) AddDependency(specifier string) {
	for _, dep := range s.Dependencies {
		if dep == specifier {
			return
		}
	}
	s.Dependencies = append(s.Dependencies, specifier)
}

// Transform is a single stage of a rule's chain.
type Transform interface {
	Name() string
	Apply(ctx context.Context, source Source) (Source, error)
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc struct {
	Label string
	Fn    func(ctx context.Context, source Source) (Source, error)
}

func (t TransformFunc) Name() string { return t.Label }

func (t TransformFunc) Apply(ctx context.Context, source Source) (Source, error) {
	return t.Fn(ctx, source)
}

// EntryPoint is a named entry module, declaration order is significant.
type EntryPoint struct {
	Name string
	Path string
}

// Resolver maps an import specifier to a module path.
type Resolver interface {
	Resolve(specifier string, importer string) (string, error)
}

// Module is a reachable module once its chain has completed.
type Module struct {
	Path   string
	ID     string
	Rule   string
	Output Source
	// Deps maps each specifier of Output.Dependencies to the resolved module path.
	Deps map[string]string
	// Imports are the resolved module paths in import order.
	Imports []string
	// Chunk is the chunk group the module was assigned to.
	Chunk string
	// AssetPath is the emitted path of an asset module.
	AssetPath string
}
