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

package fs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/cogment/cogment-pack/backend"
	"github.com/cogment/cogment-pack/backend/test"
)

func TestSuiteFsBackend(t *testing.T) {
	test.RunSuite(t, func() backend.Backend {
		b, err := CreateBackend(afero.NewMemMapFs(), "dist")
		assert.NoError(t, err)
		return b
	})
}

func TestCreateBackendOnAFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fs, "dist", []byte{}, 0644))

	_, err := CreateBackend(fs, "dist")
	assert.Error(t, err)
}
