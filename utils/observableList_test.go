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

package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservableListObserveEnded(t *testing.T) {
	list := CreateObservableList[string]()
	list.Append("a", false)
	list.Append("b", false)
	list.Append("c", true)
	assert.Equal(t, 3, list.Len())

	item, found := list.Item(1)
	assert.True(t, found)
	assert.Equal(t, "b", item)
	_, found = list.Item(3)
	assert.False(t, found)

	out := make(chan string, 3)
	assert.NoError(t, list.Observe(context.Background(), 1, out))
	close(out)
	received := []string{}
	for item := range out {
		received = append(received, item)
	}
	assert.Equal(t, []string{"b", "c"}, received)
}

func TestObservableListObserveLive(t *testing.T) {
	list := CreateObservableList[int]()
	list.Append(0, false)

	out := make(chan int)
	done := make(chan error)
	go func() {
		done <- list.Observe(context.Background(), 0, out)
	}()

	assert.Equal(t, 0, <-out)
	list.Append(1, false)
	assert.Equal(t, 1, <-out)
	list.Append(2, true)
	assert.Equal(t, 2, <-out)
	assert.NoError(t, <-done)
}

func TestObservableListObserveCanceled(t *testing.T) {
	list := CreateObservableList[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := list.Observe(ctx, 0, make(chan int))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestObservableListAppendAfterEnd(t *testing.T) {
	list := CreateObservableList[int]()
	list.Append(0, true)
	assert.Panics(t, func() { list.Append(1, false) })
}
