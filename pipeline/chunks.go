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

	"github.com/cogment/cogment-pack/helper"
)

// ChunkPolicy splits the module graph into separately cacheable chunk groups.
type ChunkPolicy struct {
	// VendorRoot is the third-party dependency root, modules under it go to the Vendor group.
	VendorRoot string
	Vendor     string
	Runtime    string
}

// RuntimeModule is the path of the bootstrap module, it has no source file.
const RuntimeModule = "\x00runtime"

// AssignChunk returns the chunk group of a module, owner is the entry that first reaches it.
func (p ChunkPolicy) AssignChunk(modulePath string, owner string) string {
	if modulePath == RuntimeModule {
		return p.Runtime
	}
	if p.IsVendor(modulePath) {
		return p.Vendor
	}
	return owner
}

// IsVendor tells if a resolved module path lies under the third-party dependency root.
func (p ChunkPolicy) IsVendor(modulePath string) bool {
	if p.VendorRoot == "" {
		return false
	}
	filePath, _ := helper.SplitQuery(modulePath)
	root := strings.Trim(p.VendorRoot, "/")
	return filePath == root || strings.HasPrefix(filePath, root+"/") || strings.Contains(filePath, "/"+root+"/")
}
