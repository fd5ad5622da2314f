package memtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetThenGet(t *testing.T) {
	mt := New()
	mt.Set([]byte("k"), []byte("v"), 100)

	e, ok := mt.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("v"), e.Value)
	assert.Equal(t, uint64(100), e.Timestamp)
	assert.False(t, e.Tombstone)
}

func TestSetOverwriteKeepsSingleEntry(t *testing.T) {
	mt := New()
	mt.Set([]byte("k"), []byte("v1"), 1)
	mt.Set([]byte("k"), []byte("v2longer"), 2)

	assert.Equal(t, 1, mt.Len())
	e, ok := mt.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("v2longer"), e.Value)
}

func TestDeleteCreatesTombstone(t *testing.T) {
	mt := New()
	mt.Set([]byte("k"), []byte("v"), 1)
	mt.Delete([]byte("k"), 2)

	e, ok := mt.Get([]byte("k"))
	require.True(t, ok)
	assert.True(t, e.Tombstone)
	assert.Equal(t, uint64(2), e.Timestamp)
}

func TestDeleteOfMissingKeyInsertsTombstone(t *testing.T) {
	mt := New()
	mt.Delete([]byte("ghost"), 5)

	e, ok := mt.Get([]byte("ghost"))
	require.True(t, ok)
	assert.True(t, e.Tombstone)
}

func TestGetMissingKey(t *testing.T) {
	mt := New()
	_, ok := mt.Get([]byte("missing"))
	assert.False(t, ok)
}

func TestEntriesAreSortedAscending(t *testing.T) {
	mt := New()
	mt.Set([]byte("c"), []byte("3"), 1)
	mt.Set([]byte("a"), []byte("1"), 1)
	mt.Set([]byte("b"), []byte("2"), 1)

	entries := mt.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []byte("a"), entries[0].Key)
	assert.Equal(t, []byte("b"), entries[1].Key)
	assert.Equal(t, []byte("c"), entries[2].Key)
}

func TestSizeAccountingOnInsert(t *testing.T) {
	mt := New()
	mt.Set([]byte("key"), []byte("value"), 1) // 3 + 5 + 17 = 25
	assert.Equal(t, 25, mt.Size())
}

func TestSizeAccountingOnOverwrite(t *testing.T) {
	mt := New()
	mt.Set([]byte("key"), []byte("value"), 1) // size = 25
	mt.Set([]byte("key"), []byte("v"), 2)     // value shrinks to 1 byte
	assert.Equal(t, 3+1+17, mt.Size())
}

func TestSizeAccountingOnDeleteOfLiveEntry(t *testing.T) {
	mt := New()
	mt.Set([]byte("key"), []byte("value"), 1) // 25
	mt.Delete([]byte("key"), 2)               // value length subtracted, no value added
	assert.Equal(t, 3+17, mt.Size())
}

func TestSizeAccountingOnDeleteOfMissingKey(t *testing.T) {
	mt := New()
	mt.Delete([]byte("key"), 1)
	assert.Equal(t, 3+17, mt.Size())
}

func TestSizeInvariantHoldsAcrossMixedOperations(t *testing.T) {
	mt := New()
	mt.Set([]byte("a"), []byte("1"), 1)
	mt.Set([]byte("bb"), []byte("22"), 2)
	mt.Delete([]byte("a"), 3)
	mt.Set([]byte("ccc"), []byte("333"), 4)

	want := (1 + 17) + (2 + 2 + 17) + (3 + 3 + 17)
	assert.Equal(t, want, mt.Size())
}
