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

package templates

import (
	"bytes"
	"encoding/json"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cogment/cogment-pack/templates/document"
	"github.com/cogment/cogment-pack/templates/runtime"
)

const (
	DefineFn = "__pack_define"
	StartFn  = "__pack_start"
	toolName = "cogment-pack"
)

// Document lists what gets injected in the html document, urls are final public urls.
type Document struct {
	Title       string
	Favicon     string
	Stylesheets []string
	Scripts     []string
	// InlineScripts are appended after the scripts, the dev server uses it for live reload.
	InlineScripts []string
}

// RuntimeScript renders the bootstrap shared by every chunk.
func RuntimeScript() ([]byte, error) {
	return ExecuteString("runtime.js", runtime.RUNTIME_JS, map[string]string{
		"Name":     toolName,
		"DefineFn": DefineFn,
		"StartFn":  StartFn,
	})
}

// StyleInjectScript renders a script module adding the css to the document when evaluated.
func StyleInjectScript(modulePath string, css []byte) ([]byte, error) {
	encodedCSS, err := json.Marshal(string(css))
	if err != nil {
		return nil, err
	}
	encodedPath, err := json.Marshal(modulePath)
	if err != nil {
		return nil, err
	}
	return ExecuteString("styleInject.js", runtime.STYLE_INJECT_JS, map[string]string{
		"CSS":  string(encodedCSS),
		"Path": string(encodedPath),
	})
}

// LiveReloadScript renders the client connecting to the dev server websocket at path.
func LiveReloadScript(path string) (string, error) {
	script, err := ExecuteString("livereload.js", document.LIVERELOAD_JS, map[string]string{
		"Name": toolName,
		"Path": path,
	})
	return string(script), err
}

// DefaultDocumentTemplate renders the html template used when the project doesn't provide one.
func DefaultDocumentTemplate(title string) ([]byte, error) {
	return ExecuteString("index.html", document.INDEX_HTML, map[string]string{"Title": title})
}

// InjectDocument adds the favicon and stylesheet links to the head of the template and the
// scripts at the end of its body, in the given order.
func InjectDocument(tmpl []byte, doc Document) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(tmpl))
	if err != nil {
		return nil, err
	}
	head := findElement(root, atom.Head)
	body := findElement(root, atom.Body)

	if doc.Title != "" && findElement(head, atom.Title) == nil {
		title := element(atom.Title)
		title.AppendChild(&html.Node{Type: html.TextNode, Data: doc.Title})
		head.AppendChild(title)
	}
	if doc.Favicon != "" {
		head.AppendChild(element(atom.Link, html.Attribute{Key: "rel", Val: "icon"}, html.Attribute{Key: "href", Val: doc.Favicon}))
	}
	for _, href := range doc.Stylesheets {
		head.AppendChild(element(atom.Link, html.Attribute{Key: "href", Val: href}, html.Attribute{Key: "rel", Val: "stylesheet"}))
	}
	for _, src := range doc.Scripts {
		body.AppendChild(element(atom.Script, html.Attribute{Key: "src", Val: src}))
	}
	for _, inline := range doc.InlineScripts {
		script := element(atom.Script)
		script.AppendChild(&html.Node{Type: html.RawNode, Data: inline})
		body.AppendChild(script)
	}

	var buffer bytes.Buffer
	if err := html.Render(&buffer, root); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func findElement(node *html.Node, a atom.Atom) *html.Node {
	if node == nil {
		return nil
	}
	if node.Type == html.ElementNode && node.DataAtom == a {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}
