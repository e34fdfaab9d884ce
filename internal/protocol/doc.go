// Package protocol defines the Webstone wire format.
//
// Every frame is a JSON envelope:
//
//	{"type": "BLOCK_STATE", "payload": {"blockId": "...", "powered": true}}
//
// Decoding happens in two stages. The envelope is read first with the
// payload left raw, then the type selects the payload struct. Only kinds a
// client may send are accepted by Decode; anything else, including kinds the
// server sends, yields ErrUnknownType.
//
// Timestamps are RFC 3339 with nanoseconds.
package protocol
