package hierarchy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/zart/codec"
	"github.com/scigolib/zart/internal/zerr"
	"github.com/scigolib/zart/metadata"
	"github.com/scigolib/zart/store"
)

func int32ArrayMeta(shape, chunkShape []int64) *metadata.ArrayMetadata {
	dt, _ := metadata.ParseDataType("int32")
	return &metadata.ArrayMetadata{
		Shape: shape, DataType: dt, ChunkShape: chunkShape,
		ChunkKeyEncoding: metadata.DefaultChunkKeyEncoding(),
		FillValueRaw:     json.RawMessage(`0`),
		Codecs:           []codec.Spec{{Name: "bytes"}},
	}
}

// E4: Group "/" with children created in order "foo","bar","baz".
// group_keys() must yield ["bar","baz","foo"].
func TestE4LexicographicGroupKeys(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	root, err := h.RequireGroup(context.Background(), "")
	require.NoError(t, err)

	for _, name := range []string{"foo", "bar", "baz"} {
		_, err := h.CreateGroup(context.Background(), name)
		require.NoError(t, err)
	}

	keys, err := root.GroupKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "baz", "foo"}, keys)
}

// E5: array written at "data", then create_group("data") on the same path
// raises ContainsArray.
func TestE5CreateGroupOverExistingArray(t *testing.T) {
	st := store.NewMemory()
	h := New(st)

	_, err := h.CreateArray(context.Background(), "data", int32ArrayMeta([]int64{4}, []int64{2}))
	require.NoError(t, err)

	_, err = h.CreateGroup(context.Background(), "data")
	require.Error(t, err)
	kind, ok := zerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, zerr.KindContainsArray, kind)
}

func TestCreateGroupFailsIfTerminalAlreadyGroup(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	_, err := h.CreateGroup(context.Background(), "g")
	require.NoError(t, err)

	_, err = h.CreateGroup(context.Background(), "g")
	assert.Error(t, err)
}

func TestRequireGroupIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	g1, err := h.RequireGroup(context.Background(), "g")
	require.NoError(t, err)
	g2, err := h.RequireGroup(context.Background(), "g")
	require.NoError(t, err)
	assert.Equal(t, g1.Path(), g2.Path())
}

func TestCreateArrayRejectsArrayParent(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	_, err := h.CreateArray(context.Background(), "data", int32ArrayMeta([]int64{4}, []int64{2}))
	require.NoError(t, err)

	_, err = h.CreateArray(context.Background(), "data/child", int32ArrayMeta([]int64{4}, []int64{2}))
	require.Error(t, err)
	kind, ok := zerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, zerr.KindContainsArray, kind)
}

func TestRequireArrayOpensExisting(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	m := int32ArrayMeta([]int64{4}, []int64{2})
	a1, err := h.RequireArray(context.Background(), "data", m)
	require.NoError(t, err)

	a2, err := h.RequireArray(context.Background(), "data", m)
	require.NoError(t, err)
	assert.Equal(t, a1.Path(), a2.Path())
}

func TestGroupReadOnlyRejectsMutations(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	g, err := h.RequireGroup(context.Background(), "g")
	require.NoError(t, err)
	g.SetReadOnly(true)

	_, err = g.CreateGroup(context.Background(), "child")
	require.Error(t, err)
	kind, ok := zerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, zerr.KindReadOnlyViolation, kind)

	_, err = g.RequireGroup(context.Background(), "child")
	require.Error(t, err)

	_, err = g.CreateArray(context.Background(), "arr", int32ArrayMeta([]int64{4}, []int64{2}))
	require.Error(t, err)

	_, err = g.RequireArray(context.Background(), "arr", int32ArrayMeta([]int64{4}, []int64{2}))
	require.Error(t, err)

	keys, err := g.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGroupCreateArrayScopedUnderGroupPath(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	g, err := h.RequireGroup(context.Background(), "g")
	require.NoError(t, err)

	a, err := g.CreateArray(context.Background(), "arr", int32ArrayMeta([]int64{4}, []int64{2}))
	require.NoError(t, err)
	assert.Equal(t, "g/arr", a.Path())

	arrayKeys, err := g.ArrayKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"arr"}, arrayKeys)
}

func TestNodeDispatchesOnKind(t *testing.T) {
	st := store.NewMemory()
	h := New(st)
	_, err := h.CreateArray(context.Background(), "data", int32ArrayMeta([]int64{4}, []int64{2}))
	require.NoError(t, err)
	_, err = h.CreateGroup(context.Background(), "grp")
	require.NoError(t, err)

	kind, arr, _, err := h.Node(context.Background(), "data")
	require.NoError(t, err)
	assert.Equal(t, KindArray, kind)
	assert.NotNil(t, arr)

	kind, _, grp, err := h.Node(context.Background(), "grp")
	require.NoError(t, err)
	assert.Equal(t, KindGroup, kind)
	assert.NotNil(t, grp)

	_, _, _, err = h.Node(context.Background(), "nope")
	assert.Error(t, err)
}
