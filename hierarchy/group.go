package hierarchy

import (
	"context"
	"fmt"
	"sort"

	"github.com/scigolib/zart/array"
	"github.com/scigolib/zart/internal/zerr"
	"github.com/scigolib/zart/metadata"
	"github.com/scigolib/zart/store"
)

// Group is a handle onto one group node.
type Group struct {
	store    store.Store
	path     string
	readOnly bool
}

// Path returns the group's normalized node path.
func (g *Group) Path() string { return g.path }

// SetReadOnly toggles the handle's read-only flag.
func (g *Group) SetReadOnly(readOnly bool) { g.readOnly = readOnly }

// ReadOnly reports the handle's current read-only flag.
func (g *Group) ReadOnly() bool { return g.readOnly }

// String returns a short diagnostic summary, in the spirit of the teacher's
// DatatypeMessage.String()/DataspaceMessage.String() one-liners.
func (g *Group) String() string {
	return fmt.Sprintf("Group(path=%q)", g.path)
}

// Metadata reads and parses this group's own sentinel document.
func (g *Group) Metadata(ctx context.Context) (*metadata.GroupMetadata, error) {
	key := store.Join(g.path, metadata.V3Sentinel)
	data, ok, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, zerr.Wrap(zerr.KindStoreError, "reading "+key, err)
	}
	if !ok {
		return nil, zerr.New(zerr.KindNotFound, g.path)
	}
	return metadata.ParseGroupMetadataV3(data)
}

// child is one immediate child of a group, resolved to a real node kind
// (entries in the store listing that don't resolve to a node -- e.g. a
// chunk key sitting directly under the group prefix, which should not
// happen but is tolerated -- are filtered out).
type child struct {
	name string
	kind NodeKind
}

// children lists and resolves every immediate child of g, sorted
// lexicographically by name (spec section 4.6: "yielded in lexicographic
// order by child name -- a stable contract").
func (g *Group) children(ctx context.Context) ([]child, error) {
	listing, err := g.store.ListDir(ctx, g.path)
	if err != nil {
		return nil, zerr.Wrap(zerr.KindStoreError, "listing "+g.path, err)
	}

	names := make(map[string]bool)
	for _, k := range listing.Keys {
		names[k] = true
	}
	for _, p := range listing.Prefixes {
		names[p] = true
	}

	out := make([]child, 0, len(names))
	for name := range names {
		childPath := store.Join(g.path, name)
		kind, err := NodeKindAt(ctx, g.store, childPath)
		if err != nil {
			return nil, err
		}
		if kind == KindAbsent {
			continue
		}
		out = append(out, child{name: name, kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// Keys lists every immediate child name in lexicographic order, regardless
// of kind.
func (g *Group) Keys(ctx context.Context) ([]string, error) {
	children, err := g.children(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(children))
	for i, c := range children {
		out[i] = c.name
	}
	return out, nil
}

// GroupKeys lists immediate child names that are groups, lexicographically.
func (g *Group) GroupKeys(ctx context.Context) ([]string, error) {
	children, err := g.children(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range children {
		if c.kind == KindGroup {
			out = append(out, c.name)
		}
	}
	return out, nil
}

// ArrayKeys lists immediate child names that are arrays, lexicographically.
func (g *Group) ArrayKeys(ctx context.Context) ([]string, error) {
	children, err := g.children(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range children {
		if c.kind == KindArray {
			out = append(out, c.name)
		}
	}
	return out, nil
}

// Child opens the named immediate child array.
func (g *Group) Child(ctx context.Context, name string) (*array.Array, error) {
	return array.Open(ctx, g.store, store.Join(g.path, name))
}

// CreateGroup creates a child group named name under g, failing with a
// read-only violation if g is read-only (spec section 4.6: read-only is a
// per-handle flag that every mutation path must check before touching the
// store).
func (g *Group) CreateGroup(ctx context.Context, name string) (*Group, error) {
	if g.readOnly {
		return nil, zerr.New(zerr.KindReadOnlyViolation, g.path)
	}
	return New(g.store).CreateGroup(ctx, store.Join(g.path, name))
}

// RequireGroup is CreateGroup's idempotent counterpart, scoped under g.
func (g *Group) RequireGroup(ctx context.Context, name string) (*Group, error) {
	if g.readOnly {
		return nil, zerr.New(zerr.KindReadOnlyViolation, g.path)
	}
	return New(g.store).RequireGroup(ctx, store.Join(g.path, name))
}

// CreateArray creates a child array named name under g with metadata m,
// failing with a read-only violation if g is read-only.
func (g *Group) CreateArray(ctx context.Context, name string, m *metadata.ArrayMetadata) (*array.Array, error) {
	if g.readOnly {
		return nil, zerr.New(zerr.KindReadOnlyViolation, g.path)
	}
	return New(g.store).CreateArray(ctx, store.Join(g.path, name), m)
}

// RequireArray is CreateArray's idempotent counterpart, scoped under g.
func (g *Group) RequireArray(ctx context.Context, name string, m *metadata.ArrayMetadata) (*array.Array, error) {
	if g.readOnly {
		return nil, zerr.New(zerr.KindReadOnlyViolation, g.path)
	}
	return New(g.store).RequireArray(ctx, store.Join(g.path, name), m)
}

// ChildGroup opens the named immediate child group.
func (g *Group) ChildGroup(ctx context.Context, name string) (*Group, error) {
	path := store.Join(g.path, name)
	kind, err := NodeKindAt(ctx, g.store, path)
	if err != nil {
		return nil, err
	}
	if kind != KindGroup {
		return nil, zerr.New(zerr.KindNotFound, path)
	}
	return &Group{store: g.store, path: path}, nil
}
