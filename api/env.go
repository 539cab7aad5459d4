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
	"encoding/json"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// BuildEnv is the set of variables exposed to scripts as `process.env.*`.
type BuildEnv map[string]string

// LoadBuildEnv reads `<env.file>` and `<env.file>.<mode>` from the project root, the later file and
// the process environment overriding the former. Only NODE_ENV and the prefixed variables are kept.
func LoadBuildEnv(fs afero.Fs, root string, config *PipelineConfig) (BuildEnv, error) {
	env := BuildEnv{}
	for _, filename := range []string{config.Env.File, config.Env.File + "." + config.Mode} {
		if filename == "" {
			continue
		}
		file, err := fs.Open(path.Join(root, filename))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		values, err := godotenv.Parse(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		for key, value := range values {
			if strings.HasPrefix(key, config.Env.Prefix) {
				env[key] = value
			}
		}
	}

	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if config.Env.Prefix != "" && strings.HasPrefix(key, config.Env.Prefix) {
			env[key] = value
		}
	}

	env["NODE_ENV"] = config.Mode
	return env, nil
}

// Defines converts the environment to compile-time substitutions, `process.env.KEY` to a JSON string.
func (e BuildEnv) Defines() map[string]string {
	defines := make(map[string]string, len(e))
	for key, value := range e {
		encoded, _ := json.Marshal(value)
		defines["process.env."+key] = string(encoded)
	}
	return defines
}

// Keys lists the variable names, sorted.
func (e BuildEnv) Keys() []string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
