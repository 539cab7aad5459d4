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
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TransformCache keeps the outputs of transform chains across builds, keyed by rule, path and content.
type TransformCache struct {
	entries *lru.Cache[string, Source]
}

func NewTransformCache(size int) (*TransformCache, error) {
	entries, err := lru.New[string, Source](size)
	if err != nil {
		return nil, err
	}
	return &TransformCache{entries: entries}, nil
}

func cacheKey(rule *Rule, source Source) string {
	return strings.Join([]string{rule.Name, strings.Join(rule.ChainNames(), ","), source.Path, ContentHash(source.Bytes)}, "\x00")
}

// Get returns the cached output of the rule's chain for the source, if any.
func (c *TransformCache) Get(rule *Rule, source Source) (Source, bool) {
	if c == nil {
		return Source{}, false
	}
	return c.entries.Get(cacheKey(rule, source))
}

// Add stores the output of the rule's chain for the source.
func (c *TransformCache) Add(rule *Rule, source Source, output Source) {
	if c == nil {
		return
	}
	c.entries.Add(cacheKey(rule, source), output)
}

// Purge drops every entry, used when a file outside of the module graph changed.
func (c *TransformCache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

func (c *TransformCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
