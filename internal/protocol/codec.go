package protocol

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// headerSeparator terminates the header block of a framed message.
const headerSeparator = "\r\n\r\n"

// contentLengthHeader is the only header this codec requires or emits.
// Other headers (Content-Type, ...) are tolerated and ignored.
const contentLengthHeader = "content-length:"

// EncodeFrame prefixes a payload with a Content-Length header so it can be
// written to a byte stream as one discrete message.
func EncodeFrame(payload []byte) []byte {
	header := fmt.Sprintf("Content-Length: %d%s", len(payload), headerSeparator)
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

// WriteFrame encodes a payload and writes it to w in a single call.
func WriteFrame(w io.Writer, payload []byte) error {
	if _, err := w.Write(EncodeFrame(payload)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Decoder incrementally splits a byte stream into framed message payloads.
// It makes no assumption about how the stream is chunked: a single Feed may
// carry zero, one, or many frames, and a frame may arrive split across many
// feeds. The internal buffer holds whatever prefix of the next frame has
// arrived so far.
type Decoder struct {
	buf []byte
}

// Feed appends a chunk to the decoder's buffer and returns every payload
// that is now complete, in stream order. A header block without a parseable
// Content-Length is skipped past so a corrupt header can never wedge the
// stream.
func (d *Decoder) Feed(chunk []byte) [][]byte {
	d.buf = append(d.buf, chunk...)

	var msgs [][]byte
	for {
		sep := bytes.Index(d.buf, []byte(headerSeparator))
		if sep < 0 {
			break
		}

		length, ok := parseContentLength(d.buf[:sep])
		if !ok {
			// Malformed header block: advance past it and keep scanning.
			d.buf = d.buf[sep+len(headerSeparator):]
			continue
		}

		bodyStart := sep + len(headerSeparator)
		if len(d.buf) < bodyStart+length {
			break // Body not fully arrived yet.
		}

		payload := make([]byte, length)
		copy(payload, d.buf[bodyStart:bodyStart+length])
		msgs = append(msgs, payload)

		d.buf = d.buf[bodyStart+length:]
	}

	return msgs
}

// Buffered returns the number of bytes held for a not-yet-complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards any partially accumulated frame.
func (d *Decoder) Reset() {
	d.buf = nil
}

// parseContentLength scans a header block for the Content-Length header.
// Multiple headers before the separator are tolerated.
func parseContentLength(block []byte) (int, bool) {
	for _, line := range strings.Split(string(block), "\r\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if !strings.HasPrefix(lower, contentLengthHeader) {
			continue
		}
		value := strings.TrimSpace(lower[len(contentLengthHeader):])
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// StreamFrames reads r until EOF, passing every decoded payload to emit.
// It is the read-loop half of the codec for callers that own a blocking
// stream (a subprocess pipe or a loopback connection).
func StreamFrames(r io.Reader, emit func(payload []byte)) error {
	var dec Decoder
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, payload := range dec.Feed(buf[:n]) {
				emit(payload)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
