// Package canon defines the structured value grammar shared by identity
// documents, timeline events, and snapshots, and its single canonical byte
// encoding.
//
// The encoding is JSON with a fixed set of choices so that semantically
// equal values always produce identical bytes:
//   - mapping keys sorted by the byte order of their UTF-8 encoding
//   - sequence element order preserved verbatim
//   - strings NFC-normalized, escaped minimally (quote, backslash, controls)
//   - integers in base 10, floats in shortest round-trip form
//   - no whitespace between tokens
//
// Values outside the grammar (non-finite floats, cyclic containers,
// unsupported Go types at the boundary) are rejected with *EncodingError.
package canon
