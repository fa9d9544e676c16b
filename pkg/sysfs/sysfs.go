// Package sysfs provides the hierarchical tree of read-only diagnostic
// attributes published by kernel subsystems. Values are constant:
// published once at creation time and never re-queried afterwards.
package sysfs

import (
	"sort"
	"strings"
	"sync"
)

// Tree is one attribute tree, keyed by slash-separated paths.
type Tree struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewTree returns an empty attribute tree.
func NewTree() *Tree {
	return &Tree{values: make(map[string]string)}
}

// Join builds a tree path from its elements.
func Join(elems ...string) string {
	return strings.Join(elems, "/")
}

// SetConstant publishes one constant attribute value under the path.
func (t *Tree) SetConstant(path, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[path] = value
}

// Get returns the attribute value published under the path.
func (t *Tree) Get(path string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[path]
	return v, ok
}

// List returns the sorted attribute paths under the given prefix.
func (t *Tree) List(prefix string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for p := range t.values {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
