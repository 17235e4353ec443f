package metadata

// Sentinel key names (spec section 3/6): a store prefix is an array if
// V3Sentinel (or V2ArrayKey) exists under it, a group if V3Sentinel (with
// node_type "group") or V2GroupKey exists.
const (
	V3Sentinel = "zarr.json"
	V2ArrayKey = ".zarray"
	V2GroupKey = ".zgroup"
	V2AttrsKey = ".zattrs"
)
