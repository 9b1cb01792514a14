// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package dict

import (
	"log/slog"

	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// Augmentable is implemented by augmentation values. The zero value must be
// the identity of Calc, and Calc must be commutative and associative.
type Augmentable[Y any] interface {
	cell.Serializable
	cell.Loader[Y]
	Calc(other Y) (Y, error)
}

// Augmenter is implemented by values that can derive their own augmentation.
type Augmenter[Y any] interface {
	cell.Serializable
	Aug() (Y, error)
}

// noExtra is the zero-width augmentation of a plain dictionary.
type noExtra struct{}

var _ Augmentable[noExtra] = noExtra{}

func (noExtra) StoreTo(*cell.Builder) error           { return nil }
func (noExtra) LoadFrom(*cell.Slice) (noExtra, error) { return noExtra{}, nil }
func (noExtra) Calc(noExtra) (noExtra, error)         { return noExtra{}, nil }

// FilterAction is returned by a filter callback.
type FilterAction int

const (
	// FilterAccept keeps the entry.
	FilterAccept FilterAction = iota
	// FilterRemove removes the entry.
	FilterRemove
	// FilterStop keeps the entry and stops filtering.
	FilterStop
)

// trie is the prefix-compressed binary trie shared by the plain and
// augmented dictionaries. Every node starts with a label. A leaf continues
// with extra and value. A fork has two references and continues with extra.
// For a plain dictionary extra has no bits.
type trie[Y Augmentable[Y]] struct {
	bitLen int
	root   *cell.Cell
	extra  Y
}

// node is a parsed node header. s is positioned after the label.
type node struct {
	cell  *cell.Cell
	label cell.BitString
	s     *cell.Slice
}

func parseNode(c *cell.Cell, max int) (*node, error) {
	s, err := c.BeginParse()
	if err != nil {
		return nil, err
	}
	label, err := loadLabel(s, max)
	if err != nil {
		return nil, err
	}
	return &node{c, label, s}, nil
}

// child returns the fork's child selected by bit.
func (n *node) child(bit bool) (*cell.Cell, error) {
	if n.s.RefsLeft() < 2 {
		return nil, errors.CellUnderflow.WithFormat("fork has %d references", n.s.RefsLeft())
	}
	if bit {
		return n.cell.Ref(1)
	}
	return n.cell.Ref(0)
}

func (t *trie[Y]) checkKey(key cell.BitString) error {
	if key.Len() != t.bitLen {
		return errors.InvalidArgument.WithFormat("key has %d bits, want %d", key.Len(), t.bitLen)
	}
	return nil
}

func (t *trie[Y]) isEmpty() bool { return t.root == nil }

// lookup returns the leaf content, extra followed by value, or nil.
func (t *trie[Y]) lookup(key cell.BitString) (*cell.Slice, error) {
	if err := t.checkKey(key); err != nil {
		return nil, err
	}
	c, m := t.root, t.bitLen
	for c != nil {
		n, err := parseNode(c, m)
		if err != nil {
			return nil, err
		}
		if !key.HasPrefix(n.label) {
			return nil, nil
		}
		key, m = key.Suffix(n.label.Len()), m-n.label.Len()
		if m == 0 {
			return n.s, nil
		}
		c, err = n.child(key.Bit(0))
		if err != nil {
			return nil, err
		}
		key, m = key.Suffix(1), m-1
	}
	return nil, nil
}

func combine[Y Augmentable[Y]](l, r Y) (Y, error) {
	return l.Calc(r)
}

// nodeExtra reads the extra of the node at c without descending.
func (t *trie[Y]) nodeExtra(c *cell.Cell, m int) (Y, error) {
	var z Y
	n, err := parseNode(c, m)
	if err != nil {
		return z, err
	}
	if n.label.Len() < m && n.s.RefsLeft() < 2 {
		return z, errors.CellUnderflow.WithFormat("fork has %d references", n.s.RefsLeft())
	}
	return z.LoadFrom(n.s)
}

func (t *trie[Y]) makeLeaf(label cell.BitString, max int, content *cell.Builder) (*cell.Cell, error) {
	b := cell.NewBuilder()
	err := storeLabel(b, label, max)
	if err != nil {
		return nil, err
	}
	err = b.StoreBuilder(content)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

func (t *trie[Y]) makeFork(label cell.BitString, max int, left, right *cell.Cell, extra Y) (*cell.Cell, error) {
	b := cell.NewBuilder()
	err := storeLabel(b, label, max)
	if err != nil {
		return nil, err
	}
	err = b.StoreRef(left)
	if err != nil {
		return nil, err
	}
	err = b.StoreRef(right)
	if err != nil {
		return nil, err
	}
	err = extra.StoreTo(b)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

// relabel returns a node with the given label followed by the remainder of s.
func relabel(s *cell.Slice, label cell.BitString, max int) (*cell.Cell, error) {
	b := cell.NewBuilder()
	err := storeLabel(b, label, max)
	if err != nil {
		return nil, err
	}
	err = b.StoreSlice(s)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

// set inserts or replaces the leaf at key. content holds extra followed by
// the value.
func (t *trie[Y]) set(key cell.BitString, content *cell.Builder, extra Y) error {
	if err := t.checkKey(key); err != nil {
		return err
	}
	var root *cell.Cell
	var err error
	if t.root == nil {
		root, err = t.makeLeaf(key, t.bitLen, content)
	} else {
		root, extra, err = t.put(t.root, key, t.bitLen, content, extra)
	}
	if err != nil {
		return err
	}
	t.root, t.extra = root, extra
	return nil
}

func (t *trie[Y]) put(c *cell.Cell, key cell.BitString, m int, content *cell.Builder, extra Y) (*cell.Cell, Y, error) {
	var z Y
	if key.Len() != m {
		slog.Error("Remaining key length does not match the node", "key", key, "remaining", m, "module", "dict")
		return nil, z, errors.FatalError.WithFormat("remaining key has %d bits, node expects %d", key.Len(), m)
	}

	n, err := parseNode(c, m)
	if err != nil {
		return nil, z, err
	}
	p := n.label.CommonPrefixLen(key)

	switch {
	case p == m:
		// Replace the leaf
		c, err = t.makeLeaf(key, m, content)
		return c, extra, err

	case p == n.label.Len():
		// Descend into the fork
		bit := key.Bit(p)
		child, err := n.child(bit)
		if err != nil {
			return nil, z, err
		}
		sibling, err := n.child(!bit)
		if err != nil {
			return nil, z, err
		}
		child, childExtra, err := t.put(child, key.Suffix(p+1), m-p-1, content, extra)
		if err != nil {
			return nil, z, err
		}
		siblingExtra, err := t.nodeExtra(sibling, m-p-1)
		if err != nil {
			return nil, z, err
		}
		return t.fork(n.label, m, bit, child, childExtra, sibling, siblingExtra)

	case p < n.label.Len():
		// Split the edge at p
		existingBit := n.label.Bit(p)
		existing, err := relabel(n.s, n.label.Suffix(p+1), m-p-1)
		if err != nil {
			return nil, z, err
		}
		existingExtra, err := t.nodeExtra(existing, m-p-1)
		if err != nil {
			return nil, z, err
		}
		leaf, err := t.makeLeaf(key.Suffix(p+1), m-p-1, content)
		if err != nil {
			return nil, z, err
		}
		return t.fork(key.Slice(0, p), m, !existingBit, leaf, extra, existing, existingExtra)
	}

	slog.Error("Common prefix exceeds the label", "key", key, "label", n.label, "module", "dict")
	return nil, z, errors.FatalError.WithFormat("common prefix %d exceeds label of %d bits", p, n.label.Len())
}

// fork builds a fork from a child on the bit side and its sibling on the
// other.
func (t *trie[Y]) fork(label cell.BitString, m int, bit bool, child *cell.Cell, childExtra Y, sibling *cell.Cell, siblingExtra Y) (*cell.Cell, Y, error) {
	var z Y
	left, right := child, sibling
	leftExtra, rightExtra := childExtra, siblingExtra
	if bit {
		left, right = sibling, child
		leftExtra, rightExtra = siblingExtra, childExtra
	}
	extra, err := combine(leftExtra, rightExtra)
	if err != nil {
		return nil, z, err
	}
	c, err := t.makeFork(label, m, left, right, extra)
	if err != nil {
		return nil, z, err
	}
	return c, extra, nil
}

// remove deletes key and reports whether it was present.
func (t *trie[Y]) remove(key cell.BitString) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}
	if t.root == nil {
		return false, nil
	}
	root, extra, found, err := t.del(t.root, key, t.bitLen)
	if err != nil || !found {
		return false, err
	}
	if root == nil {
		var z Y
		extra = z
	}
	t.root, t.extra = root, extra
	return true, nil
}

func (t *trie[Y]) del(c *cell.Cell, key cell.BitString, m int) (*cell.Cell, Y, bool, error) {
	var z Y
	n, err := parseNode(c, m)
	if err != nil {
		return nil, z, false, err
	}
	if !key.HasPrefix(n.label) {
		return c, z, false, nil
	}
	p := n.label.Len()
	if p == m {
		return nil, z, true, nil
	}

	bit := key.Bit(p)
	child, err := n.child(bit)
	if err != nil {
		return nil, z, false, err
	}
	sibling, err := n.child(!bit)
	if err != nil {
		return nil, z, false, err
	}
	child, childExtra, found, err := t.del(child, key.Suffix(p+1), m-p-1)
	if err != nil || !found {
		return c, z, false, err
	}

	if child != nil {
		siblingExtra, err := t.nodeExtra(sibling, m-p-1)
		if err != nil {
			return nil, z, false, err
		}
		c, extra, err := t.fork(n.label, m, bit, child, childExtra, sibling, siblingExtra)
		return c, extra, true, err
	}

	// Collapse the fork into the sibling
	sn, err := parseNode(sibling, m-p-1)
	if err != nil {
		return nil, z, false, err
	}
	label := n.label.AppendBit(!bit).Append(sn.label)
	c, err = relabel(sn.s, label, m)
	if err != nil {
		return nil, z, false, err
	}
	extra, err := t.nodeExtra(c, m)
	if err != nil {
		return nil, z, false, err
	}
	return c, extra, true, nil
}

// updateRootExtra recomputes the root extra from the root node.
func (t *trie[Y]) updateRootExtra() error {
	var z Y
	if t.root == nil {
		t.extra = z
		return nil
	}
	extra, err := t.nodeExtra(t.root, t.bitLen)
	if err != nil {
		return err
	}
	t.extra = extra
	return nil
}

// iterate calls fn for every leaf in ascending key order, passing the leaf
// content. It returns false if fn stopped the iteration.
func (t *trie[Y]) iterate(fn func(key cell.BitString, content *cell.Slice) (bool, error)) (bool, error) {
	if t.root == nil {
		return true, nil
	}
	return t.walk(t.root, cell.BitString{}, t.bitLen, fn)
}

func (t *trie[Y]) walk(c *cell.Cell, prefix cell.BitString, m int, fn func(cell.BitString, *cell.Slice) (bool, error)) (bool, error) {
	n, err := parseNode(c, m)
	if err != nil {
		return false, err
	}
	prefix, m = prefix.Append(n.label), m-n.label.Len()
	if m == 0 {
		return fn(prefix, n.s)
	}
	for _, bit := range []bool{false, true} {
		child, err := n.child(bit)
		if err != nil {
			return false, err
		}
		ok, err := t.walk(child, prefix.AppendBit(bit), m-1, fn)
		if !ok || err != nil {
			return ok, err
		}
	}
	return true, nil
}

func (t *trie[Y]) count() (int, error) {
	var count int
	_, err := t.iterate(func(cell.BitString, *cell.Slice) (bool, error) {
		count++
		return true, nil
	})
	return count, err
}

// edge returns the minimum or maximum leaf below c. prefix is the key path
// leading to c.
func (t *trie[Y]) edge(c *cell.Cell, prefix cell.BitString, m int, max, signed bool) (cell.BitString, *cell.Slice, error) {
	for {
		n, err := parseNode(c, m)
		if err != nil {
			return cell.BitString{}, nil, err
		}
		prefix, m = prefix.Append(n.label), m-n.label.Len()
		if m == 0 {
			return prefix, n.s, nil
		}

		// The sign bit is the first bit of the key
		bit := max
		if signed && prefix.Len() == 0 {
			bit = !bit
		}
		c, err = n.child(bit)
		if err != nil {
			return cell.BitString{}, nil, err
		}
		prefix, m = prefix.AppendBit(bit), m-1
	}
}

func (t *trie[Y]) minmax(max, signed bool) (cell.BitString, *cell.Slice, error) {
	if t.root == nil {
		return cell.BitString{}, nil, nil
	}
	return t.edge(t.root, cell.BitString{}, t.bitLen, max, signed)
}

// findLeaf returns the leaf nearest to key in the given direction. If eq is
// set key itself qualifies.
func (t *trie[Y]) findLeaf(key cell.BitString, next, eq, signed bool) (cell.BitString, *cell.Slice, error) {
	if err := t.checkKey(key); err != nil {
		return cell.BitString{}, nil, err
	}
	if t.root == nil {
		return cell.BitString{}, nil, nil
	}
	return t.find(t.root, cell.BitString{}, key, t.bitLen, next, eq, signed)
}

func (t *trie[Y]) find(c *cell.Cell, prefix, key cell.BitString, m int, next, eq, signed bool) (cell.BitString, *cell.Slice, error) {
	n, err := parseNode(c, m)
	if err != nil {
		return cell.BitString{}, nil, err
	}
	pos := prefix.Len()
	part := key.Slice(pos, pos+n.label.Len())
	if d := n.label.CommonPrefixLen(part); d < n.label.Len() {
		// The whole subtree lies on one side of key
		greater := n.label.Bit(d)
		if signed && pos+d == 0 {
			greater = !greater
		}
		if greater != next {
			return cell.BitString{}, nil, nil
		}
		return t.edge(c, prefix, m, !next, signed)
	}

	prefix, m = prefix.Append(n.label), m-n.label.Len()
	if m == 0 {
		if eq {
			return prefix, n.s, nil
		}
		return cell.BitString{}, nil, nil
	}

	pos = prefix.Len()
	bit := key.Bit(pos)
	child, err := n.child(bit)
	if err != nil {
		return cell.BitString{}, nil, err
	}
	k, v, err := t.find(child, prefix.AppendBit(bit), key, m-1, next, eq, signed)
	if err != nil || v != nil {
		return k, v, err
	}

	// Move to the sibling if it lies in the requested direction. The sign
	// bit reverses the order of the children.
	siblingGreater := !bit
	if signed && pos == 0 {
		siblingGreater = bit
	}
	if siblingGreater != next {
		return cell.BitString{}, nil, nil
	}
	sibling, err := n.child(!bit)
	if err != nil {
		return cell.BitString{}, nil, err
	}
	return t.edge(sibling, prefix.AppendBit(!bit), m-1, !next, signed)
}

// locate walks the path of prefix and returns the node at which every key
// carries prefix, along with its full label measured from the root. It
// returns nil if no key carries prefix.
func (t *trie[Y]) locate(prefix cell.BitString) (*node, cell.BitString, error) {
	if prefix.Len() > t.bitLen {
		return nil, cell.BitString{}, errors.InvalidArgument.WithFormat("prefix has %d bits, keys have %d", prefix.Len(), t.bitLen)
	}
	c, pos, m := t.root, 0, t.bitLen
	for c != nil {
		n, err := parseNode(c, m)
		if err != nil {
			return nil, cell.BitString{}, err
		}
		rest := prefix.Suffix(pos)
		if rest.Len() <= n.label.Len() {
			if !n.label.HasPrefix(rest) {
				return nil, cell.BitString{}, nil
			}
			return n, prefix.Slice(0, pos).Append(n.label), nil
		}
		if !rest.HasPrefix(n.label) {
			return nil, cell.BitString{}, nil
		}
		pos, m = pos+n.label.Len(), m-n.label.Len()
		c, err = n.child(prefix.Bit(pos))
		if err != nil {
			return nil, cell.BitString{}, err
		}
		pos, m = pos+1, m-1
	}
	return nil, cell.BitString{}, nil
}

// subtree returns the entries whose keys carry prefix. If strip is set the
// prefix is removed from the keys.
func (t *trie[Y]) subtree(prefix cell.BitString, strip bool) (trie[Y], error) {
	r := trie[Y]{bitLen: t.bitLen}
	if strip {
		r.bitLen -= prefix.Len()
	}
	n, label, err := t.locate(prefix)
	if err != nil || n == nil {
		return r, err
	}
	if strip {
		label = label.Suffix(prefix.Len())
	}
	r.root, err = relabel(n.s, label, r.bitLen)
	if err != nil {
		return r, err
	}
	err = r.updateRootExtra()
	return r, err
}

// split returns the entries whose keys carry prefix+0 and prefix+1.
func (t *trie[Y]) split(prefix cell.BitString) (trie[Y], trie[Y], error) {
	left, err := t.subtree(prefix.AppendBit(false), false)
	if err != nil {
		return trie[Y]{}, trie[Y]{}, err
	}
	right, err := t.subtree(prefix.AppendBit(true), false)
	if err != nil {
		return trie[Y]{}, trie[Y]{}, err
	}
	return left, right, nil
}

// merge combines t with o. Every key of both must carry prefix, and the keys
// of t and o must differ in the bit following prefix.
func (t *trie[Y]) merge(o *trie[Y], prefix cell.BitString) error {
	if t.bitLen != o.bitLen {
		return errors.InvalidArgument.WithFormat("cannot merge %d-bit keys with %d-bit keys", o.bitLen, t.bitLen)
	}
	p := prefix.Len()
	if p >= t.bitLen {
		return errors.InvalidArgument.WithFormat("prefix has %d bits, keys have %d", p, t.bitLen)
	}
	if o.root == nil {
		return nil
	}
	if t.root == nil {
		t.root, t.extra = o.root, o.extra
		return nil
	}

	mine, err := parseNode(t.root, t.bitLen)
	if err != nil {
		return err
	}
	theirs, err := parseNode(o.root, o.bitLen)
	if err != nil {
		return err
	}
	for _, n := range []*node{mine, theirs} {
		if n.label.Len() <= p || !n.label.HasPrefix(prefix) {
			return errors.InvalidArgument.WithFormat("keys do not carry prefix %s followed by a distinct bit", prefix)
		}
	}
	bit := mine.label.Bit(p)
	if theirs.label.Bit(p) == bit {
		return errors.InvalidArgument.WithFormat("both dictionaries have keys starting with %s%d", prefix.Binary(), b2i(bit))
	}

	m := t.bitLen - p - 1
	a, err := relabel(mine.s, mine.label.Suffix(p+1), m)
	if err != nil {
		return err
	}
	b, err := relabel(theirs.s, theirs.label.Suffix(p+1), m)
	if err != nil {
		return err
	}
	root, extra, err := t.fork(prefix, t.bitLen, bit, a, t.extra, b, o.extra)
	if err != nil {
		return err
	}
	t.root, t.extra = root, extra
	return nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// filter removes the entries for which fn returns FilterRemove.
func (t *trie[Y]) filter(fn func(key cell.BitString, content *cell.Slice) (FilterAction, error)) error {
	var remove []cell.BitString
	_, err := t.iterate(func(key cell.BitString, content *cell.Slice) (bool, error) {
		action, err := fn(key, content)
		if err != nil {
			return false, err
		}
		switch action {
		case FilterRemove:
			remove = append(remove, key)
		case FilterStop:
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, key := range remove {
		_, err = t.remove(key)
		if err != nil {
			return err
		}
	}
	return nil
}

type entry struct {
	key     cell.BitString
	content *cell.Slice
	hash    cell.Hash
}

func (t *trie[Y]) entries() ([]entry, error) {
	var list []entry
	_, err := t.iterate(func(key cell.BitString, content *cell.Slice) (bool, error) {
		c, err := content.Copy().ToCell()
		if err != nil {
			return false, err
		}
		list = append(list, entry{key, content, c.ReprHash()})
		return true, nil
	})
	return list, err
}

// scanDiff calls fn for every key whose content differs between t and o,
// passing nil for the side the key is missing from. It returns false if fn
// stopped the scan.
func (t *trie[Y]) scanDiff(o *trie[Y], fn func(key cell.BitString, mine, theirs *cell.Slice) (bool, error)) (bool, error) {
	if t.bitLen != o.bitLen {
		return false, errors.InvalidArgument.WithFormat("cannot compare %d-bit keys with %d-bit keys", o.bitLen, t.bitLen)
	}
	if t.root == nil && o.root == nil {
		return true, nil
	}
	if t.root != nil && o.root != nil && t.root.ReprHash() == o.root.ReprHash() {
		return true, nil
	}

	a, err := t.entries()
	if err != nil {
		return false, err
	}
	b, err := o.entries()
	if err != nil {
		return false, err
	}

	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var key cell.BitString
		var mine, theirs *cell.Slice
		switch {
		case j >= len(b) || (i < len(a) && a[i].key.Compare(b[j].key) < 0):
			key, mine = a[i].key, a[i].content
			i++
		case i >= len(a) || a[i].key.Compare(b[j].key) > 0:
			key, theirs = b[j].key, b[j].content
			j++
		default:
			same := a[i].hash == b[j].hash
			key, mine, theirs = a[i].key, a[i].content, b[j].content
			i++
			j++
			if same {
				continue
			}
		}
		ok, err := fn(key, mine, theirs)
		if !ok || err != nil {
			return ok, err
		}
	}
	return true, nil
}

// TraverseAction tells a traversal where to go next.
type TraverseAction int

const (
	// VisitZero descends into the 0 branch only.
	VisitZero TraverseAction = iota
	// VisitOne descends into the 1 branch only.
	VisitOne
	// VisitZeroOne descends into the 0 branch, then the 1 branch.
	VisitZeroOne
	// VisitOneZero descends into the 1 branch, then the 0 branch.
	VisitOneZero
	// Stop ends the traversal without a result.
	Stop
	// End ends the traversal with the current node as the result.
	End
)

// traverse visits nodes top down, letting fn choose the branches. fn gets a
// nil value for forks.
func (t *trie[Y]) traverse(fn func(prefix cell.BitString, extra Y, value *cell.Slice) (TraverseAction, error)) (cell.BitString, *cell.Slice, error) {
	if t.root == nil {
		return cell.BitString{}, nil, nil
	}
	key, value, _, err := t.visit(t.root, cell.BitString{}, t.bitLen, fn)
	return key, value, err
}

func (t *trie[Y]) visit(c *cell.Cell, prefix cell.BitString, m int, fn func(cell.BitString, Y, *cell.Slice) (TraverseAction, error)) (cell.BitString, *cell.Slice, bool, error) {
	var z Y
	n, err := parseNode(c, m)
	if err != nil {
		return cell.BitString{}, nil, false, err
	}
	prefix, m = prefix.Append(n.label), m-n.label.Len()
	isLeaf := m == 0
	if !isLeaf && n.s.RefsLeft() < 2 {
		return cell.BitString{}, nil, false, errors.CellUnderflow.WithFormat("fork has %d references", n.s.RefsLeft())
	}
	extra, err := z.LoadFrom(n.s)
	if err != nil {
		return cell.BitString{}, nil, false, err
	}

	var value *cell.Slice
	if isLeaf {
		value = n.s
	}
	action, err := fn(prefix, extra, value)
	if err != nil {
		return cell.BitString{}, nil, false, err
	}

	var order []bool
	switch action {
	case Stop:
		return cell.BitString{}, nil, true, nil
	case End:
		return prefix, value, true, nil
	case VisitZero:
		order = []bool{false}
	case VisitOne:
		order = []bool{true}
	case VisitZeroOne:
		order = []bool{false, true}
	case VisitOneZero:
		order = []bool{true, false}
	default:
		return cell.BitString{}, nil, false, errors.InvalidArgument.WithFormat("unknown traverse action %d", action)
	}
	if isLeaf {
		return cell.BitString{}, nil, false, nil
	}

	for _, bit := range order {
		child, err := n.child(bit)
		if err != nil {
			return cell.BitString{}, nil, false, err
		}
		key, value, done, err := t.visit(child, prefix.AppendBit(bit), m-1, fn)
		if done || err != nil {
			return key, value, done, err
		}
	}
	return cell.BitString{}, nil, false, nil
}

// single returns the only leaf if the root label covers the whole key.
func (t *trie[Y]) single() (cell.BitString, *cell.Slice, error) {
	if t.root == nil {
		return cell.BitString{}, nil, nil
	}
	n, err := parseNode(t.root, t.bitLen)
	if err != nil {
		return cell.BitString{}, nil, err
	}
	if n.label.Len() != t.bitLen {
		return cell.BitString{}, nil, nil
	}
	return n.label, n.s, nil
}
