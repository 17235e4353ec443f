package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/scigolib/zart/internal/zerr"
)

// GroupMetadata is the parsed form of a group node's sentinel metadata
// document. Only Attributes is semantically used (spec section 3); Extra
// preserves unknown top-level keys for round-trip fidelity.
type GroupMetadata struct {
	Attributes json.RawMessage
	Extra      map[string]json.RawMessage
}

type groupDocV3 struct {
	ZarrFormat int             `json:"zarr_format"`
	NodeType   string          `json:"node_type"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

var groupV3KnownKeys = map[string]bool{
	"zarr_format": true, "node_type": true, "attributes": true,
}

// ParseGroupMetadataV3 parses a zarr.json document for a group node.
func ParseGroupMetadataV3(data []byte) (*GroupMetadata, error) {
	var doc groupDocV3
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "parsing zarr.json", err)
	}
	if doc.NodeType != "group" {
		return nil, zerr.New(zerr.KindInvalidMetadata, fmt.Sprintf("expected node_type \"group\", got %q", doc.NodeType))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, zerr.Wrap(zerr.KindInvalidMetadata, "parsing zarr.json", err)
	}
	extra := map[string]json.RawMessage{}
	for k, v := range raw {
		if !groupV3KnownKeys[k] {
			extra[k] = v
		}
	}

	return &GroupMetadata{Attributes: doc.Attributes, Extra: extra}, nil
}

// MarshalV3 serializes g back to a zarr.json document.
func (g *GroupMetadata) MarshalV3() ([]byte, error) {
	doc := groupDocV3{ZarrFormat: 3, NodeType: "group", Attributes: g.Attributes}
	base, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if len(g.Extra) == 0 {
		return base, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range g.Extra {
		merged[k] = v
	}
	return marshalSorted(merged)
}

// NewEmptyGroup builds a GroupMetadata with no attributes, for
// create_group/require_group.
func NewEmptyGroup() *GroupMetadata {
	return &GroupMetadata{}
}
