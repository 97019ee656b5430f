package protocol

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	payload := []byte(`{"jsonrpc":"2.0","method":"initialized"}`)
	frame := EncodeFrame(payload)

	want := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(payload), payload)
	if string(frame) != want {
		t.Errorf("EncodeFrame() = %q, want %q", frame, want)
	}
}

func TestDecoder_RoundTripSingleChunk(t *testing.T) {
	payloads := []string{
		`{"id":1,"method":"initialize"}`,
		``,
		`{"method":"textDocument/didOpen","params":{"text":"héllo ✎"}}`,
	}

	for _, p := range payloads {
		var dec Decoder
		msgs := dec.Feed(EncodeFrame([]byte(p)))
		if len(msgs) != 1 {
			t.Fatalf("Feed(%q) emitted %d messages, want 1", p, len(msgs))
		}
		if string(msgs[0]) != p {
			t.Errorf("decoded %q, want %q", msgs[0], p)
		}
		if dec.Buffered() != 0 {
			t.Errorf("decoder retained %d bytes after complete frame", dec.Buffered())
		}
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	payload := `{"id":42,"result":{"capabilities":{}}}`
	frame := EncodeFrame([]byte(payload))

	var dec Decoder
	var got [][]byte
	for i := range frame {
		got = append(got, dec.Feed(frame[i:i+1])...)
	}

	if len(got) != 1 {
		t.Fatalf("emitted %d messages, want 1", len(got))
	}
	if string(got[0]) != payload {
		t.Errorf("decoded %q, want %q", got[0], payload)
	}
}

func TestDecoder_RandomSplits(t *testing.T) {
	payload := `{"method":"textDocument/publishDiagnostics","params":{"uri":"file:///repo/main.go"}}`
	frame := EncodeFrame([]byte(payload))
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 50; trial++ {
		var dec Decoder
		var got [][]byte
		rest := frame
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			got = append(got, dec.Feed(rest[:n])...)
			rest = rest[n:]
		}
		if len(got) != 1 || string(got[0]) != payload {
			t.Fatalf("trial %d: decoded %v, want one copy of payload", trial, got)
		}
	}
}

func TestDecoder_CoalescedFrames(t *testing.T) {
	payloads := []string{`{"id":1}`, `{"id":2}`, `{"method":"initialized"}`}
	var stream []byte
	for _, p := range payloads {
		stream = append(stream, EncodeFrame([]byte(p))...)
	}

	var dec Decoder
	msgs := dec.Feed(stream)
	if len(msgs) != len(payloads) {
		t.Fatalf("emitted %d messages, want %d", len(msgs), len(payloads))
	}
	for i, p := range payloads {
		if string(msgs[i]) != p {
			t.Errorf("message %d = %q, want %q", i, msgs[i], p)
		}
	}
}

func TestDecoder_PartialFrameEmitsNothing(t *testing.T) {
	payload := `{"id":7,"method":"textDocument/hover"}`
	frame := EncodeFrame([]byte(payload))

	for cut := 1; cut < len(frame); cut++ {
		var dec Decoder
		if msgs := dec.Feed(frame[:cut]); len(msgs) != 0 {
			t.Fatalf("truncation at %d emitted %d messages, want 0", cut, len(msgs))
		}
		msgs := dec.Feed(frame[cut:])
		if len(msgs) != 1 || string(msgs[0]) != payload {
			t.Fatalf("completing frame cut at %d yielded %v", cut, msgs)
		}
	}
}

func TestDecoder_MalformedHeaderSkipped(t *testing.T) {
	payload := `{"id":1}`
	var stream []byte
	stream = append(stream, []byte("Content-Length: banana\r\n\r\n")...)
	stream = append(stream, EncodeFrame([]byte(payload))...)

	var dec Decoder
	msgs := dec.Feed(stream)
	if len(msgs) != 1 || string(msgs[0]) != payload {
		t.Fatalf("decoded %v, want the frame after the malformed header", msgs)
	}
}

func TestDecoder_HeaderWithoutLengthSkipped(t *testing.T) {
	var stream []byte
	stream = append(stream, []byte("Content-Type: application/json\r\n\r\n")...)
	stream = append(stream, EncodeFrame([]byte(`{}`))...)

	var dec Decoder
	msgs := dec.Feed(stream)
	if len(msgs) != 1 || string(msgs[0]) != `{}` {
		t.Fatalf("decoded %v, want one empty object", msgs)
	}
}

func TestDecoder_MultipleHeaders(t *testing.T) {
	payload := `{"id":9}`
	header := fmt.Sprintf("Content-Type: application/vscode-jsonrpc; charset=utf-8\r\nContent-Length: %d\r\n\r\n", len(payload))

	var dec Decoder
	msgs := dec.Feed([]byte(header + payload))
	if len(msgs) != 1 || string(msgs[0]) != payload {
		t.Fatalf("decoded %v, want payload despite extra header", msgs)
	}
}

func TestDecoder_Reset(t *testing.T) {
	var dec Decoder
	dec.Feed([]byte("Content-Length: 100\r\n\r\npartial"))
	if dec.Buffered() == 0 {
		t.Fatal("expected buffered bytes before reset")
	}
	dec.Reset()
	if dec.Buffered() != 0 {
		t.Error("expected empty buffer after reset")
	}

	msgs := dec.Feed(EncodeFrame([]byte(`{}`)))
	if len(msgs) != 1 {
		t.Errorf("decoder unusable after reset: %v", msgs)
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte(`{"id":3}`)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Content-Length: 8\r\n\r\n") {
		t.Errorf("unexpected frame: %q", buf.String())
	}
}

func TestStreamFrames(t *testing.T) {
	var stream []byte
	payloads := []string{`{"id":1}`, `{"method":"initialized"}`}
	for _, p := range payloads {
		stream = append(stream, EncodeFrame([]byte(p))...)
	}

	var got []string
	err := StreamFrames(bytes.NewReader(stream), func(payload []byte) {
		got = append(got, string(payload))
	})
	if err != nil {
		t.Fatalf("StreamFrames() error = %v", err)
	}
	if len(got) != 2 || got[0] != payloads[0] || got[1] != payloads[1] {
		t.Errorf("StreamFrames() emitted %v, want %v", got, payloads)
	}
}
