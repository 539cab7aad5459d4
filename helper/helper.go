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

package helper

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"
)

func PrettyPrint(i interface{}) string {
	s, err := json.MarshalIndent(i, "", "\t")
	if err != nil {
		log.Printf("prettprint.Get err   #%v ", err)
	}
	return string(s)
}

var spaces = regexp.MustCompile(`\s+`)
var separators = regexp.MustCompile(`(\s|_)+`)
var wordBoundaries = regexp.MustCompile(`[\s_-]+`)

func Snakeify(data string) string {
	data = strings.ToLower(data)
	return spaces.ReplaceAllString(data, "_")
}

func Kebabify(data string) string {
	data = strings.ToLower(data)
	return separators.ReplaceAllString(data, "-")
}

func Pascalify(data string) string {
	words := wordBoundaries.Split(strings.TrimSpace(data), -1)
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, "")
}

// ToSlash normalizes a project relative path: forward slashes, no leading "./".
func ToSlash(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	for strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	return path
}

// SplitQuery separates a module path from its resource query, "a.woff?v=1" gives "a.woff" and "?v=1".
func SplitQuery(path string) (string, string) {
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		return path[:idx], path[idx:]
	}
	return path, ""
}
