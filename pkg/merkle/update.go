// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package merkle

import (
	"log/slog"

	"gitlab.com/accumulatenetwork/blockcells/internal/metrics"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// Update transforms one cell tree into another. Old and New are partial
// trees. Subtrees shared by both versions are pruned in both and are taken
// from the caller's copy of the old tree when the update is applied.
//
//	!merkle_update {X:Type} old_hash:bits256 new_hash:bits256 old_depth:uint16 new_depth:uint16
//	  old:^X new:^X = MERKLE_UPDATE X;
type Update struct {
	OldHash  cell.Hash
	NewHash  cell.Hash
	OldDepth uint16
	NewDepth uint16
	Old      *cell.Cell
	New      *cell.Cell
}

func unchanged(root *cell.Cell) (*Update, error) {
	pruned, err := cell.NewPrunedBranch(root, 0)
	if err != nil {
		return nil, err
	}
	return &Update{
		OldHash:  root.ReprHash(),
		NewHash:  root.ReprHash(),
		OldDepth: root.ReprDepth(),
		NewDepth: root.ReprDepth(),
		Old:      pruned,
		New:      pruned,
	}, nil
}

// CreateUpdate creates an update from old to new. Every cell of old that
// also appears in new is pruned on both sides.
func CreateUpdate(old, new *cell.Cell) (*Update, error) {
	if old.ReprHash() == new.ReprHash() {
		metrics.UpdatesCreated.WithLabelValues("unchanged").Inc()
		return unchanged(old)
	}

	u := &updateBuilder{
		newCells: map[cell.Hash]bool{},
		pruned:   map[cell.Hash]*cell.Cell{},
		oldDone:  map[cell.Hash]*cell.Cell{},
		newDone:  map[cell.Hash]*cell.Cell{},
	}
	u.collect(new)

	oldCell, err := u.traverseOld(old, 0)
	if err != nil {
		return nil, err
	}
	if oldCell == nil {
		// Nothing is shared so the whole old tree is pruned
		oldCell, err = cell.NewPrunedBranch(old, 0)
		if err != nil {
			return nil, err
		}
	}

	newCell, err := u.traverseNew(new)
	if err != nil {
		return nil, err
	}

	metrics.UpdatesCreated.WithLabelValues("full").Inc()
	slog.Debug("Created update", "module", "merkle", "old", old.ReprHash().String(), "new", new.ReprHash().String(), "shared", len(u.pruned))
	return &Update{
		OldHash:  old.ReprHash(),
		NewHash:  new.ReprHash(),
		OldDepth: old.ReprDepth(),
		NewDepth: new.ReprDepth(),
		Old:      oldCell,
		New:      newCell,
	}, nil
}

type updateBuilder struct {
	newCells map[cell.Hash]bool
	pruned   map[cell.Hash]*cell.Cell
	oldDone  map[cell.Hash]*cell.Cell
	newDone  map[cell.Hash]*cell.Cell
}

func (u *updateBuilder) collect(c *cell.Cell) {
	h := c.ReprHash()
	if u.newCells[h] {
		return
	}
	u.newCells[h] = true
	for _, r := range c.Refs() {
		u.collect(r)
	}
}

// traverseOld prunes every child of c that appears in the new tree. It
// returns nil if no cell below c was pruned that way.
func (u *updateBuilder) traverseOld(c *cell.Cell, merkleDepth int) (*cell.Cell, error) {
	h := c.ReprHash()
	if r, ok := u.oldDone[h]; ok {
		return r, nil
	}

	if c.IsMerkle() {
		merkleDepth++
	}

	refs := c.Refs()
	children := make([]*cell.Cell, len(refs))
	var shared bool
	for i, child := range refs {
		var err error
		ch := child.ReprHash()
		if u.newCells[ch] {
			children[i], err = cell.NewPrunedBranch(child, merkleDepth)
			u.pruned[ch] = children[i]
		} else {
			children[i], err = u.traverseOld(child, merkleDepth)
		}
		if err != nil {
			return nil, err
		}
		if children[i] != nil {
			shared = true
		}
	}

	if !shared {
		u.oldDone[h] = nil
		return nil, nil
	}

	b := cell.FromCell(c)
	for i, child := range children {
		var err error
		if child == nil {
			child, err = cell.NewPrunedBranch(refs[i], merkleDepth)
			if err != nil {
				return nil, err
			}
		}
		err = b.ReplaceRef(i, child)
		if err != nil {
			return nil, err
		}
	}

	r, err := b.Finalize()
	if err != nil {
		return nil, err
	}
	u.oldDone[h] = r
	return r, nil
}

// traverseNew copies the new tree, substituting the pruned branches recorded
// by traverseOld.
func (u *updateBuilder) traverseNew(c *cell.Cell) (*cell.Cell, error) {
	h := c.ReprHash()
	if r, ok := u.newDone[h]; ok {
		return r, nil
	}

	b := cell.FromCell(c)
	for i, child := range c.Refs() {
		r, ok := u.pruned[child.ReprHash()]
		if !ok {
			var err error
			r, err = u.traverseNew(child)
			if err != nil {
				return nil, err
			}
		}
		err := b.ReplaceRef(i, r)
		if err != nil {
			return nil, err
		}
	}

	r, err := b.Finalize()
	if err != nil {
		return nil, err
	}
	u.newDone[h] = r
	return r, nil
}

// CreateUpdateFast creates an update from old to new without comparing the
// trees. Cells of new for which visitedOld returns true are assumed to be
// present in old and are pruned. A subtree of new that duplicates
// unvisited parts of old is included in full.
func CreateUpdateFast(old, new *cell.Cell, visitedOld Predicate) (*Update, error) {
	if old.ReprHash() == new.ReprHash() {
		metrics.UpdatesCreated.WithLabelValues("unchanged").Inc()
		return unchanged(old)
	}

	pruned := map[cell.Hash]bool{}
	nb := &proofBuilder{
		include:        func(h cell.Hash) bool { return !visitedOld(h) },
		includeSubtree: none,
		done:           map[cell.Hash]*cell.Cell{},
		onPrune:        func(h cell.Hash) { pruned[h] = true },
	}
	newCell, err := nb.build(new, 0)
	if err != nil {
		return nil, err
	}

	p := &pathCollector{
		visitedOld:    visitedOld,
		pruned:        pruned,
		visitedPruned: map[cell.Hash]bool{},
		used:          map[cell.Hash]bool{},
		visited:       map[cell.Hash]bool{},
	}
	if p.collect(old) {
		p.used[old.ReprHash()] = true
	}

	ob := &proofBuilder{
		include:        func(h cell.Hash) bool { return p.used[h] },
		includeSubtree: none,
		done:           map[cell.Hash]*cell.Cell{},
	}
	oldCell, err := ob.build(old, 0)
	if err != nil {
		return nil, err
	}

	metrics.UpdatesCreated.WithLabelValues("fast").Inc()
	return &Update{
		OldHash:  old.ReprHash(),
		NewHash:  new.ReprHash(),
		OldDepth: old.ReprDepth(),
		NewDepth: new.ReprDepth(),
		Old:      oldCell,
		New:      newCell,
	}, nil
}

// pathCollector finds the cells of the old tree that lie on a path to a cell
// pruned from the new tree.
type pathCollector struct {
	visitedOld    Predicate
	pruned        map[cell.Hash]bool
	visitedPruned map[cell.Hash]bool
	used          map[cell.Hash]bool
	visited       map[cell.Hash]bool
}

func (p *pathCollector) collect(c *cell.Cell) bool {
	h := c.ReprHash()
	if p.visited[h] || p.used[h] {
		return false
	}
	p.visited[h] = true

	var isPruned bool
	if p.pruned[h] {
		if p.visitedPruned[h] {
			return false
		}
		p.visitedPruned[h] = true
		isPruned = true
	}

	var found bool
	if p.visitedOld(h) {
		for _, r := range c.Refs() {
			if p.collect(r) {
				found = true
			}
		}
		if found {
			p.used[h] = true
		}
	}
	return found || isPruned
}

// Check verifies that the update can be applied to oldRoot. It returns the
// cells of oldRoot that the new side of the update refers to, by hash.
func (u *Update) Check(oldRoot *cell.Cell) (map[cell.Hash]*cell.Cell, error) {
	if u.OldHash != oldRoot.ReprHash() {
		return nil, errors.BaseMismatch.WithFormat("old bag's hash mismatch: want %v, got %v", u.OldHash, oldRoot.ReprHash())
	}

	// Every pruned branch of the new side must be known to the old side
	known := map[cell.Hash]bool{}
	checkOld(u.Old, known, map[cell.Hash]bool{}, 0)
	err := checkNew(u.New, known, map[cell.Hash]bool{}, 0)
	if err != nil {
		return nil, err
	}

	cells := map[cell.Hash]*cell.Cell{}
	collate(oldRoot, known, cells, map[cell.Hash]bool{}, 0)
	return cells, nil
}

func childDepth(c *cell.Cell, merkleDepth int) int {
	if c.IsMerkle() {
		return merkleDepth + 1
	}
	return merkleDepth
}

func checkOld(c *cell.Cell, known, visited map[cell.Hash]bool, merkleDepth int) {
	if visited[c.ReprHash()] {
		return
	}
	visited[c.ReprHash()] = true
	known[c.Hash(merkleDepth)] = true
	if c.IsPruned() {
		return
	}
	for _, r := range c.Refs() {
		checkOld(r, known, visited, childDepth(c, merkleDepth))
	}
}

func checkNew(c *cell.Cell, known, visited map[cell.Hash]bool, merkleDepth int) error {
	if visited[c.ReprHash()] {
		return nil
	}
	visited[c.ReprHash()] = true
	if c.IsPruned() {
		if c.Level() == merkleDepth+1 && !known[c.Hash(merkleDepth)] {
			return errors.WrongMerkleUpdate.WithFormat("old and new trees mismatch %v", c.Hash(merkleDepth))
		}
		return nil
	}
	for _, r := range c.Refs() {
		err := checkNew(r, known, visited, childDepth(c, merkleDepth))
		if err != nil {
			return err
		}
	}
	return nil
}

func collate(c *cell.Cell, known map[cell.Hash]bool, cells map[cell.Hash]*cell.Cell, visited map[cell.Hash]bool, merkleDepth int) {
	if visited[c.ReprHash()] {
		return
	}
	visited[c.ReprHash()] = true
	h := c.Hash(merkleDepth)
	if !known[h] {
		return
	}
	cells[h] = c
	for _, r := range c.Refs() {
		collate(r, known, cells, visited, childDepth(c, merkleDepth))
	}
}

// Apply applies the update to oldRoot and returns the new tree.
func (u *Update) Apply(oldRoot *cell.Cell) (*cell.Cell, error) {
	root, err := u.apply(oldRoot)
	metrics.UpdatesApplied.WithLabelValues(metrics.Result(err)).Inc()
	return root, err
}

func (u *Update) apply(oldRoot *cell.Cell) (*cell.Cell, error) {
	old, err := u.Check(oldRoot)
	if err != nil {
		return nil, err
	}
	if u.NewHash == u.OldHash {
		return oldRoot, nil
	}

	root, err := applyCell(u.New, old, map[cell.Hash]*cell.Cell{}, 0)
	if err != nil {
		return nil, err
	}
	if root.ReprHash() != u.NewHash {
		return nil, errors.WrongMerkleUpdate.WithFormat("new bag's hash mismatch: want %v, got %v", u.NewHash, root.ReprHash())
	}
	return root, nil
}

// applyCell rebuilds c, splicing in cells of the old tree in place of the
// pruned branches that belong to this update.
func applyCell(c *cell.Cell, old, done map[cell.Hash]*cell.Cell, merkleDepth int) (*cell.Cell, error) {
	depth := childDepth(c, merkleDepth)
	b := cell.FromCell(c)
	for i, child := range c.Refs() {
		var r *cell.Cell
		switch {
		case child.IsPruned() && child.LevelMask()&(1<<depth) != 0:
			h := child.Hash(child.Level() - 1)
			var ok bool
			r, ok = old[h]
			if !ok {
				return nil, errors.WrongMerkleUpdate.WithFormat("can't get child with hash %v", h)
			}

		case child.IsPruned():
			r = child

		default:
			h := child.Hash(depth)
			if d, ok := done[h]; ok {
				r = d
				break
			}
			var err error
			r, err = applyCell(child, old, done, depth)
			if err != nil {
				return nil, err
			}
			done[h] = r
		}

		err := b.ReplaceRef(i, r)
		if err != nil {
			return nil, err
		}
	}
	return b.Finalize()
}

// Cell returns the Merkle update cell.
func (u *Update) Cell() (*cell.Cell, error) {
	b := cell.NewBuilder()
	b.SetType(cell.MerkleUpdate)
	err := u.StoreTo(b)
	if err != nil {
		return nil, err
	}
	return b.Finalize()
}

// StoreTo writes the update. The builder must be empty and of type
// [cell.MerkleUpdate].
func (u *Update) StoreTo(b *cell.Builder) error {
	if b.BitLen() != 0 || b.RefCount() != 0 {
		return errors.InvalidArgument.With("a Merkle update must fill a whole cell")
	}
	err := b.StoreUint8(uint8(cell.MerkleUpdate))
	if err == nil {
		err = b.StoreHash(u.OldHash)
	}
	if err == nil {
		err = b.StoreHash(u.NewHash)
	}
	if err == nil {
		err = b.StoreUint16(u.OldDepth)
	}
	if err == nil {
		err = b.StoreUint16(u.NewDepth)
	}
	if err == nil {
		err = b.StoreRef(u.Old)
	}
	if err == nil {
		err = b.StoreRef(u.New)
	}
	return err
}

// LoadUpdate decodes a Merkle update cell and verifies the stored hashes and
// depths against both sides.
func LoadUpdate(c *cell.Cell) (*Update, error) {
	if c.Type() != cell.MerkleUpdate {
		return nil, errors.InvalidData.WithFormat("invalid Merkle update root's cell type %v", c.Type())
	}

	s := c.BeginParseRaw()
	err := s.Skip(8)
	u := new(Update)
	if err == nil {
		u.OldHash, err = s.LoadHash()
	}
	if err == nil {
		u.NewHash, err = s.LoadHash()
	}
	if err == nil {
		u.OldDepth, err = s.LoadUint16()
	}
	if err == nil {
		u.NewDepth, err = s.LoadUint16()
	}
	if err == nil {
		u.Old, err = s.LoadRef()
	}
	if err == nil {
		u.New, err = s.LoadRef()
	}
	if err != nil {
		return nil, errors.InvalidData.Wrap(err)
	}

	switch {
	case u.OldHash != u.Old.Hash(0):
		return nil, errors.WrongMerkleUpdate.With("stored old hash is not equal to the calculated one")
	case u.NewHash != u.New.Hash(0):
		return nil, errors.WrongMerkleUpdate.With("stored new hash is not equal to the calculated one")
	case u.OldDepth != u.Old.Depth(0):
		return nil, errors.WrongMerkleUpdate.With("stored old depth is not equal to the calculated one")
	case u.NewDepth != u.New.Depth(0):
		return nil, errors.WrongMerkleUpdate.With("stored new depth is not equal to the calculated one")
	}
	return u, nil
}
