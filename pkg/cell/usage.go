// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cell

import (
	"sync"

	"golang.org/x/exp/maps"
)

// UsageTree records which cells of a tree have been parsed.
type UsageTree struct {
	mu      sync.Mutex
	root    *Cell
	visited map[Hash]bool
}

// NewUsageTree returns a usage tree tracking root. Cells reached from the
// returned tree's [UsageTree.Root] record themselves when parsed.
func NewUsageTree(root *Cell) *UsageTree {
	u := &UsageTree{visited: map[Hash]bool{}}
	u.root = &Cell{root.core, root.offset, u}
	return u
}

// Root returns the tracked root.
func (u *UsageTree) Root() *Cell { return u.root }

// Contains returns true if the cell with the given representation hash has
// been parsed.
func (u *UsageTree) Contains(h Hash) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.visited[h]
}

// Visited returns the representation hashes of all parsed cells, in no
// particular order.
func (u *UsageTree) Visited() []Hash {
	u.mu.Lock()
	defer u.mu.Unlock()
	return maps.Keys(u.visited)
}

// Len returns the number of parsed cells.
func (u *UsageTree) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.visited)
}

func (u *UsageTree) visit(h Hash) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.visited[h] = true
}
