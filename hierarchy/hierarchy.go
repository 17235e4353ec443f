// Package hierarchy implements group-tree navigation and creation rules
// over a store's key namespace (spec section 4.6): schema-exclusive node
// kinds, parent-chain enforcement, and lexicographic child listing.
// Grounded on the teacher's File/Group tree (file.go, group.go,
// group_write.go: walkGroup-style recursive traversal and link-write
// creation rules), generalized from HDF5's symbol-table-node links to an
// abstract store's listed key prefixes.
package hierarchy

import (
	"context"
	"encoding/json"

	"github.com/scigolib/zart/array"
	"github.com/scigolib/zart/internal/zerr"
	"github.com/scigolib/zart/metadata"
	"github.com/scigolib/zart/store"
)

// NodeKind classifies a store path prefix (spec section 3: "array, group,
// absent").
type NodeKind uint8

const (
	KindAbsent NodeKind = iota
	KindArray
	KindGroup
)

// NodeKindAt inspects the sentinel keys under path and reports its kind.
// A v3 zarr.json, when present, decides the kind on its own and the v2 keys
// are not consulted. Without it, v2's .zarray and .zgroup both existing is a
// schema violation (spec section 8, invariant 7: schema exclusivity).
func NodeKindAt(ctx context.Context, st store.Store, path string) (NodeKind, error) {
	v3Key := store.Join(path, metadata.V3Sentinel)
	if data, ok, err := st.Get(ctx, v3Key); err != nil {
		return KindAbsent, zerr.Wrap(zerr.KindStoreError, "reading "+v3Key, err)
	} else if ok {
		return kindFromV3Sentinel(data)
	}

	hasArray, err := st.Contains(ctx, store.Join(path, metadata.V2ArrayKey))
	if err != nil {
		return KindAbsent, zerr.Wrap(zerr.KindStoreError, "checking .zarray", err)
	}
	hasGroup, err := st.Contains(ctx, store.Join(path, metadata.V2GroupKey))
	if err != nil {
		return KindAbsent, zerr.Wrap(zerr.KindStoreError, "checking .zgroup", err)
	}
	switch {
	case hasArray && hasGroup:
		return KindAbsent, zerr.New(zerr.KindContainsArray, path+": both .zarray and .zgroup present")
	case hasArray:
		return KindArray, nil
	case hasGroup:
		return KindGroup, nil
	default:
		return KindAbsent, nil
	}
}

func kindFromV3Sentinel(data []byte) (NodeKind, error) {
	var doc struct {
		NodeType string `json:"node_type"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return KindAbsent, zerr.Wrap(zerr.KindInvalidMetadata, "reading node_type", err)
	}
	switch doc.NodeType {
	case "array":
		return KindArray, nil
	case "group":
		return KindGroup, nil
	default:
		return KindAbsent, zerr.New(zerr.KindInvalidMetadata, "unrecognized node_type "+doc.NodeType)
	}
}

// Hierarchy is the entry point for group-tree operations over one store.
type Hierarchy struct {
	store store.Store
}

// New builds a Hierarchy over the given store.
func New(st store.Store) *Hierarchy {
	return &Hierarchy{store: st}
}

// Store returns the underlying store.
func (h *Hierarchy) Store() store.Store { return h.store }

// ensureParentGroups walks every segment of path except the last,
// requiring each to resolve to a group (creating missing ones), and fails
// if any resolves to an array.
func (h *Hierarchy) ensureParentGroups(ctx context.Context, path string) error {
	segs := store.Segments(path)
	if len(segs) <= 1 {
		return nil
	}
	cur := ""
	for _, seg := range segs[:len(segs)-1] {
		cur = store.Join(cur, seg)
		kind, err := NodeKindAt(ctx, h.store, cur)
		if err != nil {
			return err
		}
		switch kind {
		case KindAbsent:
			if err := h.writeGroupSentinel(ctx, cur); err != nil {
				return err
			}
		case KindArray:
			return zerr.New(zerr.KindContainsArray, cur)
		case KindGroup:
			// already a group, continue
		}
	}
	return nil
}

func (h *Hierarchy) writeGroupSentinel(ctx context.Context, path string) error {
	g := metadata.NewEmptyGroup()
	data, err := g.MarshalV3()
	if err != nil {
		return zerr.Wrap(zerr.KindInvalidMetadata, "serializing group metadata", err)
	}
	key := store.Join(path, metadata.V3Sentinel)
	if err := h.store.Set(ctx, key, data); err != nil {
		return zerr.Wrap(zerr.KindStoreError, "writing "+key, err)
	}
	return nil
}

// CreateGroup ensures every intermediate path segment is a group (creating
// missing ones), then creates the terminal group. Fails if the terminal
// already exists, whether as an array or a group.
func (h *Hierarchy) CreateGroup(ctx context.Context, name string) (*Group, error) {
	path := store.Normalize(name)
	if err := h.ensureParentGroups(ctx, path); err != nil {
		return nil, err
	}
	kind, err := NodeKindAt(ctx, h.store, path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindArray:
		return nil, zerr.New(zerr.KindContainsArray, path)
	case KindGroup:
		return nil, zerr.New(zerr.KindContainsGroup, path)
	}
	if err := h.writeGroupSentinel(ctx, path); err != nil {
		return nil, err
	}
	return &Group{store: h.store, path: path}, nil
}

// RequireGroup is CreateGroup's idempotent counterpart: it succeeds if the
// terminal path is already a group.
func (h *Hierarchy) RequireGroup(ctx context.Context, name string) (*Group, error) {
	path := store.Normalize(name)
	if err := h.ensureParentGroups(ctx, path); err != nil {
		return nil, err
	}
	kind, err := NodeKindAt(ctx, h.store, path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindArray:
		return nil, zerr.New(zerr.KindContainsArray, path)
	case KindGroup:
		return &Group{store: h.store, path: path}, nil
	}
	if err := h.writeGroupSentinel(ctx, path); err != nil {
		return nil, err
	}
	return &Group{store: h.store, path: path}, nil
}

// CreateArray ensures the parent chain is groups, then creates the array
// at name. Fails if the terminal path already holds any node.
func (h *Hierarchy) CreateArray(ctx context.Context, name string, m *metadata.ArrayMetadata) (*array.Array, error) {
	path := store.Normalize(name)
	if err := h.ensureParentGroups(ctx, path); err != nil {
		return nil, err
	}
	kind, err := NodeKindAt(ctx, h.store, path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindArray:
		return nil, zerr.New(zerr.KindContainsArray, path)
	case KindGroup:
		return nil, zerr.New(zerr.KindContainsGroup, path)
	}
	return array.Create(ctx, h.store, path, m)
}

// RequireArray is the supplemented idempotent counterpart to CreateArray:
// it opens and returns the existing array at name if one is already
// present, or creates it from m. An existing array is returned as stored;
// its shape, chunk_shape and data_type are not compared with m.
func (h *Hierarchy) RequireArray(ctx context.Context, name string, m *metadata.ArrayMetadata) (*array.Array, error) {
	path := store.Normalize(name)
	if err := h.ensureParentGroups(ctx, path); err != nil {
		return nil, err
	}
	kind, err := NodeKindAt(ctx, h.store, path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindGroup:
		return nil, zerr.New(zerr.KindContainsGroup, path)
	case KindArray:
		return array.Open(ctx, h.store, path)
	default:
		return array.Create(ctx, h.store, path, m)
	}
}

// Node dispatches on name's node kind, returning whichever of arr/grp is
// non-nil (the __getitem__ contract of spec section 4.6).
func (h *Hierarchy) Node(ctx context.Context, name string) (kind NodeKind, arr *array.Array, grp *Group, err error) {
	path := store.Normalize(name)
	kind, err = NodeKindAt(ctx, h.store, path)
	if err != nil {
		return KindAbsent, nil, nil, err
	}
	switch kind {
	case KindArray:
		a, err := array.Open(ctx, h.store, path)
		return KindArray, a, nil, err
	case KindGroup:
		return KindGroup, nil, &Group{store: h.store, path: path}, nil
	default:
		return KindAbsent, nil, nil, zerr.New(zerr.KindNotFound, path)
	}
}
