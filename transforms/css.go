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

package transforms

import (
	"context"
	"regexp"
	"strings"

	"github.com/cogment/cogment-pack/pipeline"
)

var (
	cssImportRegex = regexp.MustCompile(`@import\s+(?:url\(\s*)?["']?([^"')\s;]+)["']?\s*\)?\s*;`)
	cssURLRegex    = regexp.MustCompile(`url\(\s*(["']?)([^"')]+?)(["']?)\s*\)`)
)

func isExternalURL(reference string) bool {
	for _, prefix := range []string{"data:", "http:", "https:", "//", "#", "/"} {
		if strings.HasPrefix(reference, prefix) {
			return true
		}
	}
	return strings.HasPrefix(reference, "%23") || strings.Contains(reference, "__PACK_URL_")
}

// cssSpecifier turns a stylesheet reference into an import specifier, "~pkg/file" is a package
// file and anything else is relative.
func cssSpecifier(reference string) string {
	if strings.HasPrefix(reference, "~") {
		return strings.TrimPrefix(reference, "~")
	}
	if strings.HasPrefix(reference, "./") || strings.HasPrefix(reference, "../") {
		return reference
	}
	return "./" + reference
}

// cssTransform turns a stylesheet into a style module. Local @import rules become dependencies
// and url() references are replaced by placeholders substituted with the public asset urls once
// the assets are named.
type cssTransform struct{}

func (t *cssTransform) Name() string { return "css" }

func (t *cssTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	output := source
	output.Kind = pipeline.KindStyle
	output.Dependencies = append([]string{}, source.Dependencies...)

	css := cssImportRegex.ReplaceAllStringFunc(string(source.Bytes), func(rule string) string {
		reference := cssImportRegex.FindStringSubmatch(rule)[1]
		if isExternalURL(reference) {
			return rule
		}
		output.AddDependency(cssSpecifier(reference))
		return ""
	})
	css = cssURLRegex.ReplaceAllStringFunc(css, func(reference string) string {
		matches := cssURLRegex.FindStringSubmatch(reference)
		target := strings.TrimSpace(matches[2])
		if isExternalURL(target) {
			return reference
		}
		specifier := cssSpecifier(target)
		output.AddDependency(specifier)
		return "url(" + pipeline.URLPlaceholder(specifier) + ")"
	})

	output.Bytes = []byte(strings.TrimLeft(css, "\n"))
	return output, nil
}

func newCSS(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	return &cssTransform{}, nil
}

func init() {
	Register("css", newCSS)
}
