// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package bintree

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// Value is implemented by the values held in the leaves of a tree.
type Value[X any] interface {
	cell.Serializable
	cell.Loader[X]
}

// none is the zero-width extra of a plain tree.
type none struct{}

func (none) StoreTo(*cell.Builder) error        { return nil }
func (none) LoadFrom(*cell.Slice) (none, error) { return none{}, nil }
func (none) Calc(none) (none, error)            { return none{}, nil }

// tree is the engine shared by BinTree and BinTreeAug.
//
//	leaf$0 value:X extra:Y
//	fork$1 left:^Tree right:^Tree extra:Y
type tree[X Value[X], Y dict.Augmentable[Y]] struct {
	root *cell.Cell
}

type node[X, Y any] struct {
	fork        bool
	value       X
	extra       Y
	left, right *cell.Cell
}

func (n *node[X, Y]) child(bit bool) *cell.Cell {
	if bit {
		return n.right
	}
	return n.left
}

func (t *tree[X, Y]) parse(c *cell.Cell) (*node[X, Y], error) {
	var zx X
	var zy Y
	s, err := c.BeginParse()
	if err != nil {
		return nil, err
	}
	fork, err := s.LoadBit()
	if err != nil {
		return nil, errors.InvalidData.WithFormat("load node tag: %w", err)
	}

	n := &node[X, Y]{fork: fork}
	if fork {
		if s.RefsLeft() < 2 {
			return nil, errors.InvalidData.WithFormat("fork has %d references", s.RefsLeft())
		}
		n.left, err = s.LoadRef()
		if err == nil {
			n.right, err = s.LoadRef()
		}
		if err != nil {
			return nil, err
		}
	} else {
		n.value, err = zx.LoadFrom(s)
		if err != nil {
			return nil, errors.UnknownError.WithFormat("load leaf: %w", err)
		}
	}
	n.extra, err = zy.LoadFrom(s)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("load extra: %w", err)
	}
	return n, nil
}

func (t *tree[X, Y]) isLeaf(c *cell.Cell) (bool, error) {
	s, err := c.BeginParse()
	if err != nil {
		return false, err
	}
	fork, err := s.PreloadBit()
	return !fork, err
}

func (t *tree[X, Y]) makeLeaf(x X, y Y) (*cell.Cell, error) {
	b := cell.NewBuilder()
	err := b.StoreBit(false)
	if err != nil {
		return nil, err
	}
	err = x.StoreTo(b)
	if err != nil {
		return nil, err
	}
	err = y.StoreTo(b)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

func (t *tree[X, Y]) makeFork(left, right *cell.Cell) (*cell.Cell, error) {
	l, err := t.parse(left)
	if err != nil {
		return nil, err
	}
	r, err := t.parse(right)
	if err != nil {
		return nil, err
	}
	y, err := l.extra.Calc(r.extra)
	if err != nil {
		return nil, err
	}

	b := cell.NewBuilder()
	err = b.StoreBit(true)
	if err == nil {
		err = b.StoreRef(left)
	}
	if err == nil {
		err = b.StoreRef(right)
	}
	if err == nil {
		err = y.StoreTo(b)
	}
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

// walk descends along key until stop holds and replaces the node found
// there with the result of fn. The forks above it are rebuilt. walk returns
// nil if the walk fails or fn returns nil.
func (t *tree[X, Y]) walk(c *cell.Cell, key cell.BitString, stop func(*node[X, Y], cell.BitString) (bool, error), fn func(*node[X, Y], cell.BitString) (*cell.Cell, error)) (*cell.Cell, error) {
	n, err := t.parse(c)
	if err != nil {
		return nil, err
	}
	ok, err := stop(n, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return fn(n, key)
	}
	if !n.fork || key.IsEmpty() {
		return nil, nil
	}

	bit := key.Bit(0)
	child, err := t.walk(n.child(bit), key.Suffix(1), stop, fn)
	if err != nil || child == nil {
		return nil, err
	}
	if bit {
		return t.makeFork(n.left, child)
	}
	return t.makeFork(child, n.right)
}

func (t *tree[X, Y]) apply(key cell.BitString, stop func(*node[X, Y], cell.BitString) (bool, error), fn func(*node[X, Y], cell.BitString) (*cell.Cell, error)) (bool, error) {
	root, err := t.walk(t.root, key, stop, fn)
	if err != nil || root == nil {
		return false, err
	}
	t.root = root
	return true, nil
}

func atLeaf[X, Y any](n *node[X, Y], _ cell.BitString) (bool, error) {
	return !n.fork, nil
}

func atKey[X, Y any](_ *node[X, Y], key cell.BitString) (bool, error) {
	return key.IsEmpty(), nil
}

// find follows key to a leaf and returns the consumed part of the key.
func (t *tree[X, Y]) find(key cell.BitString) (cell.BitString, *node[X, Y], error) {
	c, consumed := t.root, 0
	for {
		n, err := t.parse(c)
		if err != nil {
			return cell.BitString{}, nil, err
		}
		if !n.fork {
			return key.Slice(0, consumed), n, nil
		}
		if consumed == key.Len() {
			return cell.BitString{}, nil, nil
		}
		c = n.child(key.Bit(consumed))
		consumed++
	}
}

// get returns the leaf at exactly key.
func (t *tree[X, Y]) get(key cell.BitString) (*node[X, Y], error) {
	k, n, err := t.find(key)
	if err != nil || n == nil || k.Len() != key.Len() {
		return nil, err
	}
	return n, nil
}

// split turns the first leaf on the path of key into a fork whose left child
// is the old leaf and whose right child is a new leaf.
func (t *tree[X, Y]) split(key cell.BitString, x X, y Y) (bool, error) {
	return t.apply(key, atLeaf[X, Y], func(n *node[X, Y], _ cell.BitString) (*cell.Cell, error) {
		left, err := t.makeLeaf(n.value, n.extra)
		if err != nil {
			return nil, err
		}
		right, err := t.makeLeaf(x, y)
		if err != nil {
			return nil, err
		}
		return t.makeFork(left, right)
	})
}

// splitWith splits the leaf at exactly key into the two leaves returned by
// fn.
func (t *tree[X, Y]) splitWith(key cell.BitString, fn func(X, Y) (X, Y, X, Y, error)) (bool, error) {
	return t.apply(key, atKey[X, Y], func(n *node[X, Y], _ cell.BitString) (*cell.Cell, error) {
		if n.fork {
			return nil, nil
		}
		lx, ly, rx, ry, err := fn(n.value, n.extra)
		if err != nil {
			return nil, err
		}
		left, err := t.makeLeaf(lx, ly)
		if err != nil {
			return nil, err
		}
		right, err := t.makeLeaf(rx, ry)
		if err != nil {
			return nil, err
		}
		return t.makeFork(left, right)
	})
}

// merge collapses the deepest fork on the path of key into its left child.
// Both children of the fork must be leaves.
func (t *tree[X, Y]) merge(key cell.BitString) (bool, error) {
	stop := func(n *node[X, Y], key cell.BitString) (bool, error) {
		if !n.fork {
			return false, nil
		}
		if key.IsEmpty() {
			return true, nil
		}
		return t.isLeaf(n.child(key.Bit(0)))
	}
	return t.apply(key, stop, func(n *node[X, Y], _ cell.BitString) (*cell.Cell, error) {
		ok, err := t.bothLeaves(n)
		if err != nil || !ok {
			return nil, err
		}
		return n.left, nil
	})
}

func (t *tree[X, Y]) bothLeaves(n *node[X, Y]) (bool, error) {
	l, err := t.isLeaf(n.left)
	if err != nil || !l {
		return false, err
	}
	return t.isLeaf(n.right)
}

// mergeWith replaces the fork of two leaves at exactly key with the leaf
// returned by fn.
func (t *tree[X, Y]) mergeWith(key cell.BitString, fn func(lx X, ly Y, rx X, ry Y) (X, Y, error)) (bool, error) {
	return t.apply(key, atKey[X, Y], func(n *node[X, Y], _ cell.BitString) (*cell.Cell, error) {
		if !n.fork {
			return nil, nil
		}
		ok, err := t.bothLeaves(n)
		if err != nil || !ok {
			return nil, err
		}
		l, err := t.parse(n.left)
		if err != nil {
			return nil, err
		}
		r, err := t.parse(n.right)
		if err != nil {
			return nil, err
		}
		x, y, err := fn(l.value, l.extra, r.value, r.extra)
		if err != nil {
			return nil, err
		}
		return t.makeLeaf(x, y)
	})
}

// update replaces the leaf at exactly key with the result of fn.
func (t *tree[X, Y]) update(key cell.BitString, fn func(X, Y) (X, Y, error)) (bool, error) {
	return t.apply(key, atKey[X, Y], func(n *node[X, Y], _ cell.BitString) (*cell.Cell, error) {
		if n.fork {
			return nil, nil
		}
		x, y, err := fn(n.value, n.extra)
		if err != nil {
			return nil, err
		}
		return t.makeLeaf(x, y)
	})
}

// iterate calls fn for every leaf, 0 branches first, with the path leading
// to it.
func (t *tree[X, Y]) iterate(fn func(key cell.BitString, x X, y Y) (bool, error)) (bool, error) {
	return t.visit(t.root, cell.BitString{}, fn)
}

func (t *tree[X, Y]) visit(c *cell.Cell, key cell.BitString, fn func(cell.BitString, X, Y) (bool, error)) (bool, error) {
	n, err := t.parse(c)
	if err != nil {
		return false, err
	}
	if !n.fork {
		return fn(key, n.value, n.extra)
	}
	ok, err := t.visit(n.left, key.AppendBit(false), fn)
	if !ok || err != nil {
		return ok, err
	}
	return t.visit(n.right, key.AppendBit(true), fn)
}

func (t *tree[X, Y]) storeTo(b *cell.Builder) error {
	s, err := t.root.BeginParse()
	if err != nil {
		return err
	}
	return b.StoreSlice(s)
}

func (t *tree[X, Y]) loadFrom(s *cell.Slice) error {
	var zx X
	var zy Y
	start := s.Copy()
	fork, err := s.LoadBit()
	if err != nil {
		return err
	}
	if fork {
		err = s.SkipRefs(2)
	} else {
		_, err = zx.LoadFrom(s)
	}
	if err != nil {
		return errors.InvalidData.WithFormat("load tree root: %w", err)
	}
	_, err = zy.LoadFrom(s)
	if err != nil {
		return errors.InvalidData.WithFormat("load tree root: %w", err)
	}
	t.root, err = start.CellUntil(s)
	return err
}
