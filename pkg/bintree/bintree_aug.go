// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package bintree

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
)

// BinTreeAug is a BinTree whose nodes carry an augmentation. A fork's
// augmentation combines those of its children.
//
//	bta_leaf$0 leaf:X extra:Y = BinTreeAug X Y;
//	bta_fork$1 left:^(BinTreeAug X Y) right:^(BinTreeAug X Y) extra:Y = BinTreeAug X Y;
type BinTreeAug[X Value[X], Y dict.Augmentable[Y]] struct {
	t tree[X, Y]
}

// NewAug returns a tree with a single leaf.
func NewAug[X Value[X], Y dict.Augmentable[Y]](x X, y Y) (BinTreeAug[X, Y], error) {
	var b BinTreeAug[X, Y]
	var err error
	b.t.root, err = b.t.makeLeaf(x, y)
	return b, err
}

// AugFromRoot returns the tree with the given root.
func AugFromRoot[X Value[X], Y dict.Augmentable[Y]](root *cell.Cell) BinTreeAug[X, Y] {
	return BinTreeAug[X, Y]{tree[X, Y]{root}}
}

func (b *BinTreeAug[X, Y]) Root() *cell.Cell { return b.t.root }

// RootExtra returns the augmentation of the whole tree.
func (b *BinTreeAug[X, Y]) RootExtra() (Y, error) {
	n, err := b.t.parse(b.t.root)
	if err != nil {
		var z Y
		return z, err
	}
	return n.extra, nil
}

// Get returns the value of the leaf at exactly key.
func (b *BinTreeAug[X, Y]) Get(key cell.BitString) (X, bool, error) {
	n, err := b.t.get(key)
	if err != nil || n == nil {
		var z X
		return z, false, err
	}
	return n.value, true, nil
}

// Extra returns the augmentation of the leaf at exactly key.
func (b *BinTreeAug[X, Y]) Extra(key cell.BitString) (Y, bool, error) {
	n, err := b.t.get(key)
	if err != nil || n == nil {
		var z Y
		return z, false, err
	}
	return n.extra, true, nil
}

// Find follows key to a leaf and returns the consumed part of key.
func (b *BinTreeAug[X, Y]) Find(key cell.BitString) (cell.BitString, X, bool, error) {
	k, n, err := b.t.find(key)
	if err != nil || n == nil {
		var z X
		return cell.BitString{}, z, false, err
	}
	return k, n.value, true, nil
}

// Split replaces the first leaf on the path of key with a fork of the old
// leaf and a new leaf holding x and y. The augmentations of the forks on the
// path are recomputed.
func (b *BinTreeAug[X, Y]) Split(key cell.BitString, x X, y Y) (bool, error) {
	return b.t.split(key, x, y)
}

// SplitWith replaces the leaf at exactly key with a fork of the two leaves
// returned by fn.
func (b *BinTreeAug[X, Y]) SplitWith(key cell.BitString, fn func(X, Y) (X, Y, X, Y, error)) (bool, error) {
	return b.t.splitWith(key, fn)
}

// Merge collapses the deepest fork on the path of key into its left child.
func (b *BinTreeAug[X, Y]) Merge(key cell.BitString) (bool, error) {
	return b.t.merge(key)
}

// MergeWith replaces the fork of two leaves at exactly key with the leaf
// returned by fn.
func (b *BinTreeAug[X, Y]) MergeWith(key cell.BitString, fn func(lx X, ly Y, rx X, ry Y) (X, Y, error)) (bool, error) {
	return b.t.mergeWith(key, fn)
}

// Update replaces the leaf at exactly key.
func (b *BinTreeAug[X, Y]) Update(key cell.BitString, fn func(X, Y) (X, Y, error)) (bool, error) {
	return b.t.update(key, fn)
}

// SetExtra replaces the augmentation of the leaf at exactly key and
// recomputes the forks above it.
func (b *BinTreeAug[X, Y]) SetExtra(key cell.BitString, y Y) (bool, error) {
	return b.t.update(key, func(x X, _ Y) (X, Y, error) {
		return x, y, nil
	})
}

// Iterate calls fn for every leaf with its path, 0 branches first.
func (b *BinTreeAug[X, Y]) Iterate(fn func(key cell.BitString, x X, y Y) (bool, error)) (bool, error) {
	return b.t.iterate(fn)
}

// StoreTo writes the root node inline.
func (b BinTreeAug[X, Y]) StoreTo(w *cell.Builder) error {
	return b.t.storeTo(w)
}

// LoadAug reads a tree whose root node is inline.
func LoadAug[X Value[X], Y dict.Augmentable[Y]](s *cell.Slice) (BinTreeAug[X, Y], error) {
	var b BinTreeAug[X, Y]
	err := b.t.loadFrom(s)
	return b, err
}
