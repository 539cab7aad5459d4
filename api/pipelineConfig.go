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

package api

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/imdario/mergo"
	"github.com/jinzhu/copier"
	"github.com/markbates/pkger"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// DefaultConfigFilename is the name of the project configuration file looked up at the project root.
const DefaultConfigFilename = "pack.yaml"

func createPipelineConfigFromYamlContent(yamlContent []byte) (*PipelineConfig, error) {
	config := PipelineConfig{}
	err := yaml.UnmarshalStrict(yamlContent, &config)
	if err != nil {
		return nil, err
	}

	for _, entry := range config.Entries {
		entry.Path = NormalizePath(entry.Path)
	}

	return &config, nil
}

// CreateDefaultPipelineConfig creates a configuration with the defaults defined in "/api/default_pipeline.yaml"
func CreateDefaultPipelineConfig() *PipelineConfig {
	yamlFile, err := pkger.Open("/api/default_pipeline.yaml")
	if err != nil {
		// The defaults are part of the package, if they're not there it's a huge problem
		panic(err)
	}
	defer yamlFile.Close()

	yamlContent, err := io.ReadAll(yamlFile)
	if err != nil {
		panic(err)
	}
	defaultConfig, err := createPipelineConfigFromYamlContent(yamlContent)
	if err != nil {
		panic(err)
	}

	return defaultConfig
}

// ExtendDefaultPipelineConfig extends the default pipeline configuration with the given config
//
// the given config is left untouched.
func ExtendDefaultPipelineConfig(config *PipelineConfig) (*PipelineConfig, error) {
	defaultConfig := CreateDefaultPipelineConfig()
	extendedConfig := PipelineConfig{}
	if err := copier.CopyWithOption(&extendedConfig, config, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	// Pointers set by the user, such as an explicit `false`, are kept as is.
	if err := mergo.Merge(&extendedConfig, defaultConfig, mergo.WithoutDereference); err != nil {
		return nil, err
	}
	return &extendedConfig, extendedConfig.Validate()
}

// CreatePipelineConfigFromYaml creates a new instance of PipelineConfig from a given `pack.yaml` file
func CreatePipelineConfigFromYaml(fs afero.Fs, filename string) (*PipelineConfig, error) {
	yamlContent, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, err
	}
	loadedConfig, err := createPipelineConfigFromYamlContent(yamlContent)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration file %q: %w", filename, err)
	}
	return ExtendDefaultPipelineConfig(loadedConfig)
}

// LoadPipelineConfig loads `pack.yaml` from the project root, falling back to the defaults when it doesn't exist.
func LoadPipelineConfig(fs afero.Fs, root string) (*PipelineConfig, error) {
	filename := path.Join(root, DefaultConfigFilename)
	if _, err := fs.Stat(filename); os.IsNotExist(err) {
		return ExtendDefaultPipelineConfig(&PipelineConfig{})
	}
	return CreatePipelineConfigFromYaml(fs, filename)
}

// NormalizePath turns a configured path into a project relative slash path.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "/")
}

// PipelineConfig describes the configuration of a front-end build, as loaded from a `pack.yaml` file.
type PipelineConfig struct {
	ProjectName  string             `yaml:"project_name"`
	Mode         string             `yaml:"mode"`
	Entries      []*EntryConfig     `yaml:"entries"`
	Output       OutputConfig       `yaml:"output"`
	Resolve      ResolveConfig      `yaml:"resolve"`
	Rules        []*RuleConfig      `yaml:"rules"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Html         HtmlConfig         `yaml:"html"`
	Targets      []string           `yaml:"targets"`
	DevServer    DevServerConfig    `yaml:"dev_server"`
	Env          EnvConfig          `yaml:"env"`
	Concurrency  int                `yaml:"concurrency"`
}

// EntryConfig is a named entry module, each entry gets its own chunk group.
type EntryConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type OutputConfig struct {
	Path          string `yaml:"path"`
	PublicPath    string `yaml:"public_path"`
	Filename      string `yaml:"filename"`
	CssFilename   string `yaml:"css_filename"`
	AssetFilename string `yaml:"asset_filename"`
}

type ResolveConfig struct {
	Modules    string            `yaml:"modules"`
	Extensions []string          `yaml:"extensions"`
	Alias      map[string]string `yaml:"alias"`
}

// RuleConfig maps the files matching Test, and none of the Exclude patterns, to a chain of loaders.
type RuleConfig struct {
	Name    string          `yaml:"name"`
	Test    string          `yaml:"test"`
	Exclude []string        `yaml:"exclude"`
	Use     []*LoaderConfig `yaml:"use"`
}

type LoaderConfig struct {
	Loader  string                 `yaml:"loader"`
	Options map[string]interface{} `yaml:"options"`
}

type OptimizationConfig struct {
	RuntimeChunk string `yaml:"runtime_chunk"`
	VendorRoot   string `yaml:"vendor_root"`
	VendorName   string `yaml:"vendor_name"`
}

type HtmlConfig struct {
	Filename string `yaml:"filename"`
	Template string `yaml:"template"`
	Favicon  string `yaml:"favicon"`
	Title    string `yaml:"title"`
}

type DevServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	HistoryApiFallback *bool  `yaml:"history_api_fallback"`
}

// HistoryFallback reports whether unmatched routes are rewritten to the html document.
func (d DevServerConfig) HistoryFallback() bool {
	return d.HistoryApiFallback == nil || *d.HistoryApiFallback
}

type EnvConfig struct {
	File   string `yaml:"file"`
	Prefix string `yaml:"prefix"`
}

// IsProduction reports whether the build targets production.
func (p *PipelineConfig) IsProduction() bool {
	return p.Mode != "development"
}

// Validate checks the invariants the orchestrator relies on.
func (p *PipelineConfig) Validate() error {
	if p.Mode != "production" && p.Mode != "development" {
		return fmt.Errorf("unknown mode %q, expected production or development", p.Mode)
	}
	if len(p.Entries) == 0 {
		return fmt.Errorf("at least one entry is required")
	}
	names := map[string]bool{}
	for _, entry := range p.Entries {
		if entry.Name == "" || entry.Path == "" {
			return fmt.Errorf("entries require both a name and a path")
		}
		if names[entry.Name] {
			return fmt.Errorf("entry %q is declared more than once", entry.Name)
		}
		if entry.Name == p.Optimization.RuntimeChunk || entry.Name == p.Optimization.VendorName {
			return fmt.Errorf("entry %q collides with a shared chunk name", entry.Name)
		}
		names[entry.Name] = true
	}
	if err := p.ValidateOutputPath(p.Output.Path); err != nil {
		return err
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("at least one rule is required")
	}
	for idx, rule := range p.Rules {
		if rule.Test == "" {
			return fmt.Errorf("rule #%d %q has no test", idx, rule.Name)
		}
		if len(rule.Use) == 0 {
			return fmt.Errorf("rule #%d %q has no loader", idx, rule.Name)
		}
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("rule-%d", idx)
		}
	}
	return nil
}

// SourcePaths lists the project relative paths the build reads from the configuration.
func (p *PipelineConfig) SourcePaths() []string {
	paths := []string{DefaultConfigFilename}
	for _, entry := range p.Entries {
		paths = append(paths, NormalizePath(entry.Path))
	}
	if p.Html.Template != "" {
		paths = append(paths, NormalizePath(p.Html.Template))
	}
	if p.Html.Favicon != "" {
		paths = append(paths, NormalizePath(p.Html.Favicon))
	}
	return paths
}

// ValidateOutputPath checks that cleaning a project relative output directory can't remove the
// project itself or any of its configured sources.
func (p *PipelineConfig) ValidateOutputPath(outputPath string) error {
	cleaned := path.Clean(strings.ReplaceAll(outputPath, "\\", "/"))
	if outputPath == "" || cleaned == "." || cleaned == "/" || isParentPath(cleaned) {
		return fmt.Errorf("output path %q contains the project root", outputPath)
	}
	if path.IsAbs(cleaned) {
		return nil
	}
	for _, sourcePath := range p.SourcePaths() {
		if sourcePath == cleaned || strings.HasPrefix(sourcePath, cleaned+"/") {
			return fmt.Errorf("output path %q contains the project source %q", outputPath, sourcePath)
		}
	}
	return nil
}

// isParentPath reports whether a cleaned relative path only climbs up, like ".." or "../..".
func isParentPath(cleaned string) bool {
	for _, segment := range strings.Split(cleaned, "/") {
		if segment != ".." {
			return false
		}
	}
	return true
}

// FindEntry retrieves an entry by name.
func (p *PipelineConfig) FindEntry(name string) (*EntryConfig, bool) {
	for _, entry := range p.Entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return nil, false
}
