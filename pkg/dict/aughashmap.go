// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package dict

import (
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// AugHashmap is a dictionary whose nodes carry an augmentation Y combining
// the augmentations of every leaf below, serialized as HashmapAugE.
type AugHashmap[Y Augmentable[Y]] struct {
	t trie[Y]
}

// NewAugHashmap returns an empty augmented dictionary.
func NewAugHashmap[Y Augmentable[Y]](bitLen int) AugHashmap[Y] {
	return AugHashmap[Y]{trie[Y]{bitLen: bitLen}}
}

// AugHashmapFromRoot returns an augmented dictionary with the given root and
// root extra.
func AugHashmapFromRoot[Y Augmentable[Y]](bitLen int, root *cell.Cell, extra Y) AugHashmap[Y] {
	return AugHashmap[Y]{trie[Y]{bitLen, root, extra}}
}

func (h AugHashmap[Y]) BitLen() int       { return h.t.bitLen }
func (h AugHashmap[Y]) Root() *cell.Cell  { return h.t.root }
func (h AugHashmap[Y]) IsEmpty() bool     { return h.t.isEmpty() }
func (h AugHashmap[Y]) Len() (int, error) { return h.t.count() }

// RootExtra returns the combined augmentation of every entry.
func (h AugHashmap[Y]) RootExtra() Y { return h.t.extra }

// UpdateRootExtra recomputes the root extra from the root node.
func (h *AugHashmap[Y]) UpdateRootExtra() error { return h.t.updateRootExtra() }

func splitLeaf[Y Augmentable[Y]](s *cell.Slice) (*cell.Slice, Y, error) {
	var z Y
	if s == nil {
		return nil, z, nil
	}
	extra, err := z.LoadFrom(s)
	if err != nil {
		return nil, z, errors.UnknownError.WithFormat("load leaf extra: %w", err)
	}
	return s, extra, nil
}

// Get returns the value at key, or nil.
func (h *AugHashmap[Y]) Get(key cell.BitString) (*cell.Slice, error) {
	s, _, err := h.GetWithAug(key)
	return s, err
}

// GetWithAug returns the value and augmentation at key. The value is nil if
// there is no entry.
func (h *AugHashmap[Y]) GetWithAug(key cell.BitString) (*cell.Slice, Y, error) {
	s, err := h.t.lookup(key)
	if err != nil {
		var z Y
		return nil, z, err
	}
	return splitLeaf[Y](s)
}

// Set inserts or replaces the value and augmentation at key.
func (h *AugHashmap[Y]) Set(key cell.BitString, value *cell.Builder, aug Y) error {
	b := cell.NewBuilder()
	err := aug.StoreTo(b)
	if err != nil {
		return err
	}
	err = b.StoreBuilder(value)
	if err != nil {
		return err
	}
	return h.t.set(key, b, aug)
}

// SetRef stores c as a reference value at key.
func (h *AugHashmap[Y]) SetRef(key cell.BitString, c *cell.Cell, aug Y) error {
	b := cell.NewBuilder()
	err := b.StoreRef(c)
	if err != nil {
		return err
	}
	return h.Set(key, b, aug)
}

// SetAugmented stores v at key with the augmentation v derives.
func (h *AugHashmap[Y]) SetAugmented(key cell.BitString, v Augmenter[Y]) error {
	aug, err := v.Aug()
	if err != nil {
		return err
	}
	b := cell.NewBuilder()
	err = v.StoreTo(b)
	if err != nil {
		return err
	}
	return h.Set(key, b, aug)
}

// Remove removes the entry at key and reports whether it was present.
func (h *AugHashmap[Y]) Remove(key cell.BitString) (bool, error) {
	return h.t.remove(key)
}

// Iterate calls fn for every entry in ascending key order.
func (h *AugHashmap[Y]) Iterate(fn func(key cell.BitString, value *cell.Slice, aug Y) (bool, error)) (bool, error) {
	return h.t.iterate(func(key cell.BitString, s *cell.Slice) (bool, error) {
		value, aug, err := splitLeaf[Y](s)
		if err != nil {
			return false, err
		}
		return fn(key, value, aug)
	})
}

// Min returns the entry with the lowest key.
func (h *AugHashmap[Y]) Min(signed bool) (cell.BitString, *cell.Slice, Y, error) {
	return h.MinMax(true, signed)
}

// Max returns the entry with the highest key.
func (h *AugHashmap[Y]) Max(signed bool) (cell.BitString, *cell.Slice, Y, error) {
	return h.MinMax(false, signed)
}

// MinMax returns the entry with the lowest key if min is set, or the highest
// otherwise. The value is nil if the dictionary is empty.
func (h *AugHashmap[Y]) MinMax(min, signed bool) (cell.BitString, *cell.Slice, Y, error) {
	key, s, err := h.t.minmax(!min, signed)
	if err != nil {
		var z Y
		return cell.BitString{}, nil, z, err
	}
	value, aug, err := splitLeaf[Y](s)
	return key, value, aug, err
}

// FindLeaf returns the entry nearest to key in the given direction.
func (h *AugHashmap[Y]) FindLeaf(key cell.BitString, next, eq, signed bool) (cell.BitString, *cell.Slice, Y, error) {
	key, s, err := h.t.findLeaf(key, next, eq, signed)
	if err != nil {
		var z Y
		return cell.BitString{}, nil, z, err
	}
	value, aug, err := splitLeaf[Y](s)
	return key, value, aug, err
}

// Traverse walks the dictionary top down. fn sees the key prefix and
// augmentation of every node it reaches, and the value of leaves, and picks
// the branches to descend into. If fn returns End at a node, Traverse returns
// that node's prefix and value.
func (h *AugHashmap[Y]) Traverse(fn func(prefix cell.BitString, aug Y, value *cell.Slice) (TraverseAction, error)) (cell.BitString, *cell.Slice, error) {
	return h.t.traverse(fn)
}

// Single returns the only entry if the dictionary has exactly one.
func (h *AugHashmap[Y]) Single() (cell.BitString, *cell.Slice, Y, error) {
	key, s, err := h.t.single()
	if err != nil {
		var z Y
		return cell.BitString{}, nil, z, err
	}
	value, aug, err := splitLeaf[Y](s)
	return key, value, aug, err
}

// Split divides the dictionary by the bit following prefix.
func (h *AugHashmap[Y]) Split(prefix cell.BitString) (left, right AugHashmap[Y], err error) {
	l, r, err := h.t.split(prefix)
	return AugHashmap[Y]{l}, AugHashmap[Y]{r}, err
}

// Merge adds the entries of other. The keys of both must carry prefix and
// differ in the following bit.
func (h *AugHashmap[Y]) Merge(other AugHashmap[Y], prefix cell.BitString) error {
	return h.t.merge(&other.t, prefix)
}

// SubtreeWithPrefix returns the entries whose keys carry prefix.
func (h *AugHashmap[Y]) SubtreeWithPrefix(prefix cell.BitString) (AugHashmap[Y], error) {
	t, err := h.t.subtree(prefix, false)
	return AugHashmap[Y]{t}, err
}

// Filter removes the entries for which fn returns FilterRemove.
func (h *AugHashmap[Y]) Filter(fn func(key cell.BitString, value *cell.Slice, aug Y) (FilterAction, error)) error {
	return h.t.filter(func(key cell.BitString, s *cell.Slice) (FilterAction, error) {
		value, aug, err := splitLeaf[Y](s)
		if err != nil {
			return FilterStop, err
		}
		return fn(key, value, aug)
	})
}

// ScanDiff calls fn for every key whose value or augmentation differs from
// other, passing nil for a missing side. The slices passed to fn start with
// the augmentation.
func (h *AugHashmap[Y]) ScanDiff(other AugHashmap[Y], fn func(key cell.BitString, mine, theirs *cell.Slice) (bool, error)) (bool, error) {
	return h.t.scanDiff(&other.t, fn)
}

// StoreTo writes the dictionary as HashmapAugE:
//
//	ahme_empty$0 extra:Y
//	ahme_root$1 root:^(HashmapAug n X Y) extra:Y
func (h AugHashmap[Y]) StoreTo(b *cell.Builder) error {
	err := b.StoreMaybeRef(h.t.root)
	if err != nil {
		return err
	}
	return h.t.extra.StoreTo(b)
}

// LoadAugHashmapE reads a HashmapAugE with keys of the given length.
func LoadAugHashmapE[Y Augmentable[Y]](s *cell.Slice, bitLen int) (AugHashmap[Y], error) {
	var z Y
	root, err := s.LoadMaybeRef()
	if err != nil {
		return AugHashmap[Y]{}, errors.UnknownError.WithFormat("load augmented hashmap: %w", err)
	}
	extra, err := z.LoadFrom(s)
	if err != nil {
		return AugHashmap[Y]{}, errors.UnknownError.WithFormat("load augmented hashmap extra: %w", err)
	}

	if root == nil {
		// An empty map must carry the default extra
		a, b := cell.NewBuilder(), cell.NewBuilder()
		err = extra.StoreTo(a)
		if err == nil {
			err = z.StoreTo(b)
		}
		if err != nil {
			return AugHashmap[Y]{}, err
		}
		if !a.Bits().Equal(b.Bits()) || a.RefCount() != b.RefCount() {
			return AugHashmap[Y]{}, errors.InvalidData.With("empty augmented hashmap has a non-default extra")
		}
	}
	return AugHashmapFromRoot(bitLen, root, extra), nil
}
