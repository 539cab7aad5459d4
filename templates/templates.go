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
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	ignore "github.com/codeskyblue/dockerignore"
	"github.com/markbates/pkger"
	"github.com/spf13/afero"

	"github.com/cogment/cogment-pack/helper"
)

// This function is only there to let pkger static analysis knows we want to embed the templates file in the binary.
func includeTemplates() {
	pkger.Include("/templates/project")
}

var funcs = template.FuncMap{
	"snakeify":  helper.Snakeify,
	"kebabify":  helper.Kebabify,
	"pascalify": helper.Pascalify,
}

// ExecuteString renders an in-memory template such as the ones defined as constants in the sub-packages.
func ExecuteString(name string, tmpl string, data interface{}) ([]byte, error) {
	t, err := template.New(name).Funcs(funcs).Parse(tmpl)
	if err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	if err := t.Execute(&buffer, data); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// GenerateFromTemplate generates a file from a given template and configuration
func GenerateFromTemplate(fs afero.Fs, tmplPath string, config interface{}, outputPath string) error {
	tmplFile, err := pkger.Open(tmplPath)
	if err != nil {
		return err
	}
	defer tmplFile.Close()

	tmplFileContent, err := io.ReadAll(tmplFile)
	if err != nil {
		return err
	}

	t := template.New(outputPath).Funcs(funcs)
	t, err = t.Parse(string(tmplFileContent))
	if err != nil {
		return err
	}

	outputDir := filepath.Dir(outputPath)
	if err := fs.MkdirAll(outputDir, os.ModePerm); err != nil {
		return err
	}

	outputFile, err := fs.Create(outputPath)
	if err != nil {
		return err
	}
	defer outputFile.Close()

	return t.Execute(outputFile, config)
}

// RecursivelyGenerateFromTemplates generates a file hierarchy from a template hierarchy
func RecursivelyGenerateFromTemplates(fs afero.Fs, tmplDir string, tmplIgnorePatterns []string, config interface{}, outputDir string) error {
	return pkger.Walk(tmplDir, func(tmplPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relativePath, err := filepath.Rel(tmplDir, strings.Split(tmplPath, ":")[1])
		if err != nil {
			return err
		}

		isIgnored, err := ignore.Matches(relativePath, tmplIgnorePatterns)
		if err != nil {
			return err
		}
		if isIgnored {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() && filepath.Ext(relativePath) == ".tmpl" {
			outputPath := filepath.Join(outputDir, relativePath[0:len(relativePath)-len(".tmpl")])
			return GenerateFromTemplate(fs, tmplPath, config, outputPath)
		}

		return nil
	})
}
