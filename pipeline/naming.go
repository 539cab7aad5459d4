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
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/cogment/cogment-pack/helper"
)

type domainKey [32]byte

var (
	contentDomainKey = domainKey{
		'c', 'o', 'g', 'm', 'e', 'n', 't', '-', 'p', 'a', 'c', 'k', '.',
		'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	moduleDomainKey = domainKey{
		'c', 'o', 'g', 'm', 'e', 'n', 't', '-', 'p', 'a', 'c', 'k', '.',
		'm', 'o', 'd', 'u', 'l', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

func keyedHash(key domainKey, data []byte) string {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("pipeline: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ContentHash is the hex digest of the final bytes of an artifact.
func ContentHash(content []byte) string {
	return keyedHash(contentDomainKey, content)
}

// ModuleID derives a short stable identifier from a module path. It doesn't depend on the
// module content so that editing a module leaves the chunks referencing it untouched.
func ModuleID(modulePath string) string {
	return keyedHash(moduleDomainKey, []byte(modulePath))[:8]
}

const defaultHashLength = 20

var placeholderRegex = regexp.MustCompile(`\[([a-z]+)(?::(\d+))?\]`)

// RenderName expands the [name], [ext], [hash:N] placeholders of a naming pattern.
// [contenthash] and [chunkhash] are aliases of [hash], all of them hash the given content.
func RenderName(pattern string, name string, ext string, content []byte) (string, error) {
	var renderErr error
	var digest string
	rendered := placeholderRegex.ReplaceAllStringFunc(pattern, func(placeholder string) string {
		matches := placeholderRegex.FindStringSubmatch(placeholder)
		switch matches[1] {
		case "name":
			return name
		case "ext":
			return ext
		case "hash", "contenthash", "chunkhash":
			if digest == "" {
				digest = ContentHash(content)
			}
			length := defaultHashLength
			if matches[2] != "" {
				length, _ = strconv.Atoi(matches[2])
			}
			if length <= 0 || length > len(digest) {
				renderErr = fmt.Errorf("invalid hash length in %q", placeholder)
				return placeholder
			}
			return digest[:length]
		}
		renderErr = fmt.Errorf("unknown placeholder %q in naming pattern %q", placeholder, pattern)
		return placeholder
	})
	if renderErr != nil {
		return "", renderErr
	}
	return strings.TrimPrefix(path.Clean(rendered), "/"), nil
}

// NamingPolicy names output artifacts after their final bytes.
type NamingPolicy struct {
	Script string
	Style  string
	Asset  string
}

// ScriptName names the script file of a chunk group.
func (p NamingPolicy) ScriptName(chunk string, content []byte) (string, error) {
	return RenderName(p.Script, chunk, "js", content)
}

// StyleName names the stylesheet of a chunk group.
func (p NamingPolicy) StyleName(chunk string, content []byte) (string, error) {
	return RenderName(p.Style, chunk, "css", content)
}

// AssetName names an emitted asset after its source base name, pattern overrides the policy's
// and a pattern ending with "/" is a directory for the policy's pattern.
func (p NamingPolicy) AssetName(modulePath string, pattern string, content []byte) (string, error) {
	if pattern == "" || strings.HasSuffix(pattern, "/") {
		pattern += p.Asset
	}
	filePath, _ := helper.SplitQuery(modulePath)
	base := path.Base(filePath)
	ext := path.Ext(base)
	return RenderName(pattern, strings.TrimSuffix(base, ext), strings.TrimPrefix(ext, "."), content)
}
