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
	"sync"
)

// ObservableList is an append only list observers can follow as it grows.
type ObservableList[T any] interface {
	Len() int
	Item(index int) (T, bool)
	Append(item T, last bool)
	Observe(ctx context.Context, from int, out chan<- T) error
}

type observableList[T any] struct {
	lock  sync.RWMutex
	items []T
	ended bool
	// updated is closed, and replaced, on every append.
	updated chan struct{}
}

func CreateObservableList[T any]() ObservableList[T] {
	return &observableList[T]{
		items:   make([]T, 0),
		updated: make(chan struct{}),
	}
}

func (l *observableList[T]) Len() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.items)
}

func (l *observableList[T]) Item(index int) (T, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if index < 0 || index >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[index], true
}

// Append adds an item, once last is set the observers return after forwarding it.
func (l *observableList[T]) Append(item T, last bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.ended {
		panic("utils: append to an ended observable list")
	}
	l.items = append(l.items, item)
	l.ended = last
	close(l.updated)
	l.updated = make(chan struct{})
}

func (l *observableList[T]) snapshot(from int) ([]T, bool, <-chan struct{}) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if from > len(l.items) {
		from = len(l.items)
	}
	return l.items[from:], l.ended, l.updated
}

// Observe forwards the items from the given index to out, then every appended item until the
// list ends or the context is done.
func (l *observableList[T]) Observe(ctx context.Context, from int, out chan<- T) error {
	next := from
	for {
		items, ended, updated := l.snapshot(next)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- item:
			}
		}
		next += len(items)

		if ended {
			return nil
		}

		// Block until there's some update
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-updated:
		}
	}
}
