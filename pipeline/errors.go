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
	"errors"
	"fmt"
)

var (
	ErrUnclassifiedAsset = errors.New("unclassified asset")
	ErrTransform         = errors.New("transform failed")
	ErrOutputConflict    = errors.New("output conflict")
	ErrUnresolvedImport  = errors.New("unresolved import")
)

// UnclassifiedAssetError is returned when a reachable file matches no rule.
type UnclassifiedAssetError struct {
	Path     string
	Importer string
}

func (e *UnclassifiedAssetError) Error() string {
	if e.Importer == "" {
		return fmt.Sprintf("%s: no rule matches %q", ErrUnclassifiedAsset, e.Path)
	}
	return fmt.Sprintf("%s: no rule matches %q (imported by %q)", ErrUnclassifiedAsset, e.Path, e.Importer)
}

func (e *UnclassifiedAssetError) Unwrap() error { return ErrUnclassifiedAsset }

// TransformError is returned when a stage of a transform chain rejects its input.
type TransformError struct {
	Path  string
	Rule  string
	Stage string
	Index int
	Cause error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %q at stage #%d %q of rule %q: %v", ErrTransform, e.Path, e.Index, e.Stage, e.Rule, e.Cause)
}

func (e *TransformError) Unwrap() []error { return []error{ErrTransform, e.Cause} }

// OutputConflictError is returned when different contents are named with the same output path.
type OutputConflictError struct {
	Path    string
	Sources []string
}

func (e *OutputConflictError) Error() string {
	return fmt.Sprintf("%s: %q is produced by %q with different contents", ErrOutputConflict, e.Path, e.Sources)
}

func (e *OutputConflictError) Unwrap() error { return ErrOutputConflict }

// UnresolvedImportError is returned when a dependency specifier can't be found.
type UnresolvedImportError struct {
	Specifier string
	Importer  string
	Cause     error
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("%s: can't resolve %q from %q: %v", ErrUnresolvedImport, e.Specifier, e.Importer, e.Cause)
}

func (e *UnresolvedImportError) Unwrap() []error { return []error{ErrUnresolvedImport, e.Cause} }
