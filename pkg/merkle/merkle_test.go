// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

const keyBits = 32

func u32(t testing.TB, v uint32) *cell.Builder {
	t.Helper()
	b := cell.NewBuilder()
	require.NoError(t, b.StoreUint32(v))
	return b
}

func buildMap(t testing.TB, n int, salt uint32) dict.Hashmap {
	t.Helper()
	h := dict.NewHashmap(keyBits)
	for i := 0; i < n; i++ {
		k := uint64(i) * 0x9E3779B1 % (1 << keyBits)
		require.NoError(t, h.Set(dict.Key(k, keyBits), u32(t, uint32(i)^salt)))
	}
	return h
}

func mapKey(i int) cell.BitString {
	return dict.Key(uint64(i)*0x9E3779B1%(1<<keyBits), keyBits)
}

func get(t testing.TB, root *cell.Cell, key cell.BitString) (uint32, error) {
	t.Helper()
	h := dict.HashmapFromRoot(keyBits, root)
	s, err := h.Get(key)
	if err != nil {
		return 0, err
	}
	require.NotNil(t, s)
	return s.LoadUint32()
}

func TestProofByUsage(t *testing.T) {
	m := buildMap(t, 50, 0)
	root := m.Root()

	usage := cell.NewUsageTree(root)
	require.Equal(t, uint32(7), must(get(t, usage.Root(), mapKey(7))))

	proof, err := CreateProofByUsage(root, usage)
	require.NoError(t, err)
	require.Equal(t, root.ReprHash(), proof.Hash)
	require.Equal(t, root.ReprDepth(), proof.Depth)
	require.Equal(t, root.ReprHash(), proof.Root.Hash(0))
	require.Equal(t, 1, proof.Root.Level())

	// The proof survives a round trip through a bag of cells
	c := must(proof.Cell())
	require.Equal(t, 0, c.Level())
	c = must(cell.FromBOC(must(cell.ToBOC(c))))
	loaded, err := LoadProof(c)
	require.NoError(t, err)
	require.Equal(t, proof.Hash, loaded.Hash)

	// The included value can be read, anything else is pruned
	virt := loaded.Virtualize()
	require.Equal(t, root.ReprHash(), virt.ReprHash())
	require.Equal(t, uint32(7), must(get(t, virt, mapKey(7))))
	_, err = get(t, virt, mapKey(8))
	require.ErrorIs(t, err, errors.PrunedCellAccess)
}

func TestProofRootMustBeIncluded(t *testing.T) {
	m := buildMap(t, 5, 0)
	_, err := CreateProof(m.Root(), func(cell.Hash) bool { return false })
	require.ErrorIs(t, err, errors.InvalidArgument)
}

func TestProofExcludesData(t *testing.T) {
	m := buildMap(t, 5, 0)
	root := m.Root()
	proof := must(CreateProof(root, func(h cell.Hash) bool { return h == root.ReprHash() }))

	require.Equal(t, root.ReprHash(), proof.Hash)
	require.Equal(t, root.RefCount(), proof.Root.RefCount())
	require.Equal(t, root.Bits(), proof.Root.Bits())
	for i, r := range proof.Root.Refs() {
		require.True(t, r.IsPruned())
		orig := must(root.Ref(i))
		require.Equal(t, orig.ReprHash(), r.Hash(0))
		require.Equal(t, orig.ReprDepth(), r.Depth(0))
	}
}

func TestProofWithSubtrees(t *testing.T) {
	m := buildMap(t, 30, 0)
	root := m.Root()
	left := must(root.Ref(0))

	proof := must(CreateProofWithSubtrees(root,
		func(h cell.Hash) bool { return h == root.ReprHash() },
		func(h cell.Hash) bool { return h == left.ReprHash() }))
	require.Equal(t, root.ReprHash(), proof.Hash)

	// Every key in the left subtree is readable
	virt := proof.Virtualize()
	var read, pruned int
	for i := 0; i < 30; i++ {
		v, err := get(t, virt, mapKey(i))
		if errors.Is(err, errors.PrunedCellAccess) {
			pruned++
			continue
		}
		require.NoError(t, err)
		require.Equal(t, uint32(i), v)
		read++
	}
	require.NotZero(t, read)
	require.NotZero(t, pruned)
}

func TestLoadProofMismatch(t *testing.T) {
	m := buildMap(t, 5, 0)
	root := m.Root()
	proof := must(CreateProof(root, func(cell.Hash) bool { return true }))

	bad := *proof
	bad.Hash[0] ^= 1
	_, err := LoadProof(must(bad.Cell()))
	require.ErrorIs(t, err, errors.WrongMerkleProof)

	bad = *proof
	bad.Depth++
	_, err = LoadProof(must(bad.Cell()))
	require.ErrorIs(t, err, errors.WrongMerkleProof)

	_, err = LoadProof(root)
	require.ErrorIs(t, err, errors.InvalidData)
}

func TestUpdateApply(t *testing.T) {
	old := buildMap(t, 40, 0)
	m := buildMap(t, 40, 0)
	require.NoError(t, m.Set(mapKey(3), u32(t, 1000)))
	require.NoError(t, m.Set(mapKey(100), u32(t, 100)))
	_, err := m.Remove(mapKey(20))
	require.NoError(t, err)

	u, err := CreateUpdate(old.Root(), m.Root())
	require.NoError(t, err)
	require.Equal(t, old.Root().ReprHash(), u.OldHash)
	require.Equal(t, m.Root().ReprHash(), u.NewHash)

	// Round trip the update through its cell
	c := must(u.Cell())
	c = must(cell.FromBOC(must(cell.ToBOC(c))))
	u = must(LoadUpdate(c))

	root, err := u.Apply(old.Root())
	require.NoError(t, err)
	require.Equal(t, m.Root().ReprHash(), root.ReprHash())
	require.Equal(t, uint32(1000), must(get(t, root, mapKey(3))))
	require.Equal(t, uint32(5), must(get(t, root, mapKey(5))))
}

func TestUpdateUnchanged(t *testing.T) {
	old := buildMap(t, 10, 0)
	u := must(CreateUpdate(old.Root(), old.Root()))
	require.Equal(t, u.OldHash, u.NewHash)
	require.True(t, u.Old.IsPruned())

	root, err := u.Apply(old.Root())
	require.NoError(t, err)
	require.Equal(t, old.Root().ReprHash(), root.ReprHash())
}

func TestUpdateNothingShared(t *testing.T) {
	old := buildMap(t, 10, 0)
	m := buildMap(t, 10, 0xFFFF)

	u := must(CreateUpdate(old.Root(), m.Root()))
	require.True(t, u.Old.IsPruned())

	root, err := u.Apply(old.Root())
	require.NoError(t, err)
	require.Equal(t, m.Root().ReprHash(), root.ReprHash())
}

func TestUpdateWrongBase(t *testing.T) {
	old := buildMap(t, 10, 0)
	m := buildMap(t, 11, 0)
	other := buildMap(t, 12, 0)

	u := must(CreateUpdate(old.Root(), m.Root()))
	_, err := u.Apply(other.Root())
	require.ErrorIs(t, err, errors.BaseMismatch)
	_, err = u.Check(other.Root())
	require.ErrorIs(t, err, errors.BaseMismatch)
}

func TestUpdateForeignPrunedBranch(t *testing.T) {
	old := buildMap(t, 10, 0)
	m := buildMap(t, 11, 0)
	foreign := buildMap(t, 10, 0xFFFF)

	u := must(CreateUpdate(old.Root(), m.Root()))

	// Smuggle in a pruned branch the old tree does not have
	b := cell.NewBuilder()
	require.NoError(t, b.StoreRef(must(cell.NewPrunedBranch(foreign.Root(), 0))))
	u.New = must(b.Finalize())
	u.NewHash = u.New.Hash(0)

	_, err := u.Check(old.Root())
	require.ErrorIs(t, err, errors.WrongMerkleUpdate)
	_, err = u.Apply(old.Root())
	require.ErrorIs(t, err, errors.WrongMerkleUpdate)
}

func TestUpdateNewHashMismatch(t *testing.T) {
	old := buildMap(t, 10, 0)
	m := buildMap(t, 11, 0)

	u := must(CreateUpdate(old.Root(), m.Root()))
	u.NewHash[0] ^= 1
	_, err := u.Apply(old.Root())
	require.ErrorIs(t, err, errors.WrongMerkleUpdate)
}

func TestLoadUpdateMismatch(t *testing.T) {
	old := buildMap(t, 10, 0)
	m := buildMap(t, 11, 0)
	u := must(CreateUpdate(old.Root(), m.Root()))

	cases := map[string]func(*Update){
		"old hash":  func(u *Update) { u.OldHash[0] ^= 1 },
		"new hash":  func(u *Update) { u.NewHash[0] ^= 1 },
		"old depth": func(u *Update) { u.OldDepth++ },
		"new depth": func(u *Update) { u.NewDepth++ },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			bad := *u
			corrupt(&bad)
			_, err := LoadUpdate(must(bad.Cell()))
			require.ErrorIs(t, err, errors.WrongMerkleUpdate)
		})
	}
}

func TestUpdateFast(t *testing.T) {
	old := buildMap(t, 40, 0)

	// Modify the map through a usage tree, reading one unchanged value too
	usage := cell.NewUsageTree(old.Root())
	m := dict.HashmapFromRoot(keyBits, usage.Root())
	require.Equal(t, uint32(9), must(get(t, usage.Root(), mapKey(9))))
	require.NoError(t, m.Set(mapKey(3), u32(t, 1000)))
	require.NoError(t, m.Set(mapKey(77), u32(t, 77)))

	u, err := CreateUpdateFast(old.Root(), m.Root(), usage.Contains)
	require.NoError(t, err)

	root, err := u.Apply(old.Root())
	require.NoError(t, err)
	require.Equal(t, m.Root().ReprHash(), root.ReprHash())
	require.Equal(t, uint32(1000), must(get(t, root, mapKey(3))))
	require.Equal(t, uint32(9), must(get(t, root, mapKey(9))))
}
