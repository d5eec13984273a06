// Package ua holds the protocol value model shared by the resolver, the codec
// and the client session.
//
// Node identifiers are an explicit sum type: NumericNodeID, StringNodeID,
// GUIDNodeID and OpaqueNodeID all implement NodeID. Resolution only ever
// produces the first two; the others exist so a transport can report what a
// server actually returned.
//
//	id, err := ua.ParseNodeID("ns=2;s=Plant.SCU")
//	path, err := ua.ParsePath("Plant.SCU.Mode", 2)
//
// Variant keeps values as raw little-endian bytes so write requests can alias
// bound signal memory without copying.
package ua
