// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package bintree

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
)

// BinTree is a binary tree addressed by explicit bit paths, with values in
// its leaves.
//
//	bt_leaf$0 leaf:X = BinTree X;
//	bt_fork$1 left:^(BinTree X) right:^(BinTree X) = BinTree X;
type BinTree[X Value[X]] struct {
	t tree[X, none]
}

// New returns a tree with a single leaf.
func New[X Value[X]](x X) (BinTree[X], error) {
	var b BinTree[X]
	var err error
	b.t.root, err = b.t.makeLeaf(x, none{})
	return b, err
}

// FromRoot returns the tree with the given root.
func FromRoot[X Value[X]](root *cell.Cell) BinTree[X] {
	return BinTree[X]{tree[X, none]{root}}
}

func (b *BinTree[X]) Root() *cell.Cell { return b.t.root }

// Get returns the value of the leaf at exactly key.
func (b *BinTree[X]) Get(key cell.BitString) (X, bool, error) {
	n, err := b.t.get(key)
	if err != nil || n == nil {
		var z X
		return z, false, err
	}
	return n.value, true, nil
}

// Find follows key to a leaf and returns the part of key consumed on the
// way along with the leaf value. Find fails to find a leaf if key runs out
// at a fork.
func (b *BinTree[X]) Find(key cell.BitString) (cell.BitString, X, bool, error) {
	k, n, err := b.t.find(key)
	if err != nil || n == nil {
		var z X
		return cell.BitString{}, z, false, err
	}
	return k, n.value, true, nil
}

// Split replaces the first leaf on the path of key with a fork. The old leaf
// becomes the left child and x the right child. Split returns false if key
// runs out at a fork.
func (b *BinTree[X]) Split(key cell.BitString, x X) (bool, error) {
	return b.t.split(key, x, none{})
}

// SplitWith replaces the leaf at exactly key with a fork of the two values
// returned by fn.
func (b *BinTree[X]) SplitWith(key cell.BitString, fn func(X) (X, X, error)) (bool, error) {
	return b.t.splitWith(key, func(x X, _ none) (X, none, X, none, error) {
		l, r, err := fn(x)
		return l, none{}, r, none{}, err
	})
}

// Merge collapses the deepest fork on the path of key into its left child.
// Merge returns false unless both children of that fork are leaves.
func (b *BinTree[X]) Merge(key cell.BitString) (bool, error) {
	return b.t.merge(key)
}

// MergeWith replaces the fork of two leaves at exactly key with a leaf
// holding the value returned by fn.
func (b *BinTree[X]) MergeWith(key cell.BitString, fn func(left, right X) (X, error)) (bool, error) {
	return b.t.mergeWith(key, func(lx X, _ none, rx X, _ none) (X, none, error) {
		x, err := fn(lx, rx)
		return x, none{}, err
	})
}

// Update replaces the value of the leaf at exactly key.
func (b *BinTree[X]) Update(key cell.BitString, fn func(X) (X, error)) (bool, error) {
	return b.t.update(key, func(x X, _ none) (X, none, error) {
		x, err := fn(x)
		return x, none{}, err
	})
}

// Iterate calls fn for every leaf with its path, 0 branches first.
func (b *BinTree[X]) Iterate(fn func(key cell.BitString, x X) (bool, error)) (bool, error) {
	return b.t.iterate(func(key cell.BitString, x X, _ none) (bool, error) {
		return fn(key, x)
	})
}

// StoreTo writes the root node inline.
func (b BinTree[X]) StoreTo(w *cell.Builder) error {
	return b.t.storeTo(w)
}

// Load reads a tree whose root node is inline.
func Load[X Value[X]](s *cell.Slice) (BinTree[X], error) {
	var b BinTree[X]
	err := b.t.loadFrom(s)
	return b, err
}
