// Package protocol implements the wire layer shared by the bridge and the
// client session: the Content-Length framing codec, the JSON-RPC 2.0
// envelope, the language-server payload types this client speaks, and the
// helpers that normalize the protocol's polymorphic result shapes.
//
// The codec is deliberately stateful on the decode side. Transports give no
// message-boundary guarantees, so the Decoder accumulates fed chunks and
// emits a payload only once its declared byte count has fully arrived:
//
//	var dec protocol.Decoder
//	for _, payload := range dec.Feed(chunk) {
//	    handle(payload)
//	}
//
// Positions in this package are zero-based with UTF-16 character offsets,
// exactly as they travel on the wire. Translation to the editing surface's
// one-based coordinates happens in the session layer, never here.
package protocol
