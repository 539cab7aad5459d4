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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
)

type componentBlock struct {
	tag     string
	lang    string
	scoped  bool
	content []byte
}

// splitComponent extracts the top level template, script and style blocks of a single-file component.
func splitComponent(content []byte) ([]componentBlock, error) {
	blocks := []componentBlock{}
	tokenizer := html.NewTokenizer(bytes.NewReader(content))
	var current *componentBlock
	depth := 0
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			if tokenizer.Err() == io.EOF {
				break
			}
			return nil, tokenizer.Err()
		}
		raw := append([]byte{}, tokenizer.Raw()...)
		token := tokenizer.Token()

		if current == nil {
			if tokenType != html.StartTagToken {
				continue
			}
			switch token.Data {
			case "template", "script", "style":
				current = &componentBlock{tag: token.Data}
				for _, attr := range token.Attr {
					switch attr.Key {
					case "lang":
						current.lang = attr.Val
					case "scoped":
						current.scoped = true
					}
				}
				depth = 1
			}
			continue
		}

		// Only template blocks can nest their own tag.
		if token.Data == current.tag && current.tag == "template" {
			switch tokenType {
			case html.StartTagToken:
				depth++
			case html.EndTagToken:
				depth--
			}
		} else if tokenType == html.EndTagToken && token.Data == current.tag {
			depth--
		}
		if depth == 0 {
			blocks = append(blocks, *current)
			current = nil
			continue
		}
		current.content = append(current.content, raw...)
	}
	if current != nil {
		return nil, fmt.Errorf("unterminated <%s> block", current.tag)
	}
	return blocks, nil
}

// vueTransform turns a component into a script module importing its script and style blocks as
// virtual modules and attaching the template to the component options.
type vueTransform struct {
	logger *zap.SugaredLogger
}

func (t *vueTransform) Name() string { return "vue" }

func (t *vueTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	blocks, err := splitComponent(source.Bytes)
	if err != nil {
		return pipeline.Source{}, err
	}

	filePath, _ := helper.SplitQuery(source.Path)
	base := path.Base(filePath)
	output := source
	output.Kind = pipeline.KindScript
	output.Fragments = nil

	var glue bytes.Buffer
	var template *componentBlock
	scripts, styles := 0, 0
	for idx := range blocks {
		block := blocks[idx]
		switch block.tag {
		case "template":
			if template != nil {
				return pipeline.Source{}, fmt.Errorf("a component can only have one <template> block")
			}
			if block.lang != "" && block.lang != "html" {
				return pipeline.Source{}, fmt.Errorf("unsupported template language %q", block.lang)
			}
			template = &block
		case "script":
			if scripts > 0 {
				return pipeline.Source{}, fmt.Errorf("a component can only have one <script> block")
			}
			lang := block.lang
			if lang == "" {
				lang = "js"
			}
			fragment := fmt.Sprintf("%s.script%d.%s", filePath, scripts, lang)
			output.Fragments = append(output.Fragments, pipeline.Fragment{Path: fragment, Bytes: block.content})
			fmt.Fprintf(&glue, "import __component from %q;\n", "./"+path.Base(fragment))
			scripts++
		case "style":
			if block.scoped {
				t.logger.Warnf("%s: scoped styles are applied globally", source.Path)
			}
			lang := block.lang
			if lang == "" {
				lang = "css"
			}
			fragment := fmt.Sprintf("%s.style%d.%s", filePath, styles, lang)
			output.Fragments = append(output.Fragments, pipeline.Fragment{Path: fragment, Bytes: block.content})
			fmt.Fprintf(&glue, "import %q;\n", "./"+path.Base(fragment))
			styles++
		}
	}
	if scripts == 0 {
		glue.WriteString("const __component = {};\n")
	}
	if template != nil {
		var encoded bytes.Buffer
		encoder := json.NewEncoder(&encoded)
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(strings.TrimSpace(string(template.content))); err != nil {
			return pipeline.Source{}, err
		}
		fmt.Fprintf(&glue, "__component.template = %s;\n", bytes.TrimSpace(encoded.Bytes()))
	}
	fmt.Fprintf(&glue, "__component.name = __component.name || %q;\n", strings.TrimSuffix(base, path.Ext(base)))
	glue.WriteString("export default __component;\n")

	output.Bytes = glue.Bytes()
	output.Dependencies = nil
	for _, fragment := range output.Fragments {
		output.AddDependency("./" + path.Base(fragment.Path))
	}
	return output, nil
}

func newVue(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	return &vueTransform{logger: helper.GetSugarLogger([]string{"transforms", "vue"})}, nil
}

func init() {
	Register("vue", newVue)
}
