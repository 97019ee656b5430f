package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"langbridge/internal/config"
	"langbridge/internal/protocol"
)

// testConfig wires the "echo" language to cat, which relays stdin to
// stdout and so behaves as a trivially correct framed server.
func testConfig() *config.Config {
	return &config.Config{
		Servers: map[string]config.ServerConfig{
			"echo": {Command: "cat", LanguageIDs: []string{"echo"}},
		},
		DebounceDelay: 300 * time.Millisecond,
		ControlAddr:   "127.0.0.1:0",
		LogLevel:      "error",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSupervisor_StartIsIdempotent(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	defer sup.Close()

	root := t.TempDir()
	ctx := context.Background()

	port1, err := sup.Start(ctx, "echo", root)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	port2, err := sup.Start(ctx, "echo", root)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if port1 != port2 {
		t.Errorf("second start got port %d, want %d", port2, port1)
	}

	if n := len(sup.Status()); n != 1 {
		t.Errorf("expected 1 instance, got %d", n)
	}
}

func TestSupervisor_SeparateRootsSeparateInstances(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	defer sup.Close()

	ctx := context.Background()
	portA, err := sup.Start(ctx, "echo", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	portB, err := sup.Start(ctx, "echo", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if portA == portB {
		t.Error("distinct roots must get distinct instances")
	}
}

func TestSupervisor_StartErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Servers["ghost"] = config.ServerConfig{
		Command:     "definitely-not-a-real-binary-1f9d",
		LanguageIDs: []string{"ghost"},
	}
	sup := NewSupervisor(cfg, quietLogger())
	defer sup.Close()

	tests := []struct {
		name     string
		language string
		want     error
	}{
		{"unknown language", "cobol", ErrUnknownLanguage},
		{"missing binary", "ghost", ErrServerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sup.Start(context.Background(), tt.language, t.TempDir())
			if !errors.Is(err, tt.want) {
				t.Errorf("Start() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSupervisor_StopRemovesInstance(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	defer sup.Close()

	root := t.TempDir()
	ctx := context.Background()

	port1, err := sup.Start(ctx, "echo", root)
	if err != nil {
		t.Fatal(err)
	}
	if err := sup.Stop("echo", root); err != nil {
		t.Fatal(err)
	}
	if n := len(sup.Status()); n != 0 {
		t.Fatalf("expected empty registry after stop, got %d", n)
	}

	// Stopping again is a no-op.
	if err := sup.Stop("echo", root); err != nil {
		t.Fatal(err)
	}

	// The next start launches a fresh instance.
	port2, err := sup.Start(ctx, "echo", root)
	if err != nil {
		t.Fatal(err)
	}
	if port1 == port2 {
		t.Log("fresh instance reused the port; acceptable but unusual")
	}
}

func TestSupervisor_DeadProcessLeavesRegistry(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	defer sup.Close()

	root := t.TempDir()
	ctx := context.Background()

	if _, err := sup.Start(ctx, "echo", root); err != nil {
		t.Fatal(err)
	}

	sup.mu.Lock()
	var inst *Instance
	for _, i := range sup.instances {
		inst = i
	}
	sup.mu.Unlock()
	if inst == nil {
		t.Fatal("no instance in registry")
	}

	// Kill the process behind the supervisor's back and wait for the
	// exit handler to clean up.
	inst.cmd.Process.Kill()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(sup.Status()) == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if n := len(sup.Status()); n != 0 {
		t.Fatalf("dead instance still registered (%d)", n)
	}

	// Retry after death starts a new server.
	if _, err := sup.Start(ctx, "echo", root); err != nil {
		t.Fatalf("restart after crash: %v", err)
	}
}

func TestSupervisor_CloseRejectsStart(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	sup.Close()

	_, err := sup.Start(context.Background(), "echo", t.TempDir())
	if !errors.Is(err, ErrSupervisorClosed) {
		t.Errorf("Start after Close = %v, want %v", err, ErrSupervisorClosed)
	}
}

func TestSupervisor_ListAvailable(t *testing.T) {
	cfg := testConfig()
	cfg.Servers["ghost"] = config.ServerConfig{
		Command:     "definitely-not-a-real-binary-1f9d",
		LanguageIDs: []string{"ghost"},
	}
	sup := NewSupervisor(cfg, quietLogger())
	defer sup.Close()

	servers := sup.ListAvailable()
	byLang := make(map[string]AvailableServer, len(servers))
	for _, srv := range servers {
		byLang[srv.LanguageID] = srv
	}

	if !byLang["echo"].Installed {
		t.Error("cat should resolve on PATH")
	}
	if byLang["ghost"].Installed {
		t.Error("missing binary reported as installed")
	}
}

// dialInstance connects a framed client to a running instance.
func dialInstance(t *testing.T, port int) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), 5*time.Second)
	if err != nil {
		t.Fatalf("dial instance: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readOneFrame reads a single framed payload from the connection.
func readOneFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var dec protocol.Decoder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frames := dec.Feed(buf[:n]); len(frames) > 0 {
			return frames[0]
		}
	}
}

func TestInstance_RelayAndBroadcast(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	defer sup.Close()

	port, err := sup.Start(context.Background(), "echo", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first := dialInstance(t, port)
	second := dialInstance(t, port)

	// Give the accept loop a moment to register both clients.
	time.Sleep(50 * time.Millisecond)

	payload := []byte(`{"jsonrpc":"2.0","method":"ping"}`)
	if err := protocol.WriteFrame(first, payload); err != nil {
		t.Fatal(err)
	}

	// cat relays the frame back; both clients see the broadcast.
	for i, conn := range []net.Conn{first, second} {
		got := readOneFrame(t, conn)
		if string(got) != string(payload) {
			t.Errorf("client %d got %q, want %q", i, got, payload)
		}
	}
}

// readFrames reads frames from the connection with one decoder, so
// payloads split across reads survive between frames.
func readFrames(t *testing.T, conn net.Conn, count int) [][]byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var dec protocol.Decoder
	var out [][]byte
	buf := make([]byte, 64*1024)
	for len(out) < count {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read frames: %v", err)
		}
		out = append(out, dec.Feed(buf[:n])...)
	}
	return out
}

func TestInstance_ConcurrentClientWritesKeepFraming(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	defer sup.Close()

	port, err := sup.Start(context.Background(), "echo", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	first := dialInstance(t, port)
	second := dialInstance(t, port)
	time.Sleep(50 * time.Millisecond)

	// Payloads well past the pipe's atomic write size, so an
	// unserialized stdin write would interleave and corrupt framing.
	const perClient = 8
	pad := strings.Repeat("x", 32*1024)
	payloadFor := func(client, n int) []byte {
		return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","method":"ping","params":{"client":%d,"n":%d,"pad":%q}}`, client, n, pad))
	}

	var wg sync.WaitGroup
	for client, conn := range []net.Conn{first, second} {
		wg.Add(1)
		go func(client int, conn net.Conn) {
			defer wg.Done()
			for n := 0; n < perClient; n++ {
				if werr := protocol.WriteFrame(conn, payloadFor(client, n)); werr != nil {
					t.Errorf("client %d write %d: %v", client, n, werr)
					return
				}
			}
		}(client, conn)
	}
	wg.Wait()

	// cat relays every frame back in some order; each one must decode
	// to exactly one of the sent payloads.
	want := make(map[string]bool, 2*perClient)
	for client := 0; client < 2; client++ {
		for n := 0; n < perClient; n++ {
			want[string(payloadFor(client, n))] = true
		}
	}
	for i, frame := range readFrames(t, first, 2*perClient) {
		got := string(frame)
		if !want[got] {
			t.Fatalf("frame %d matches no sent payload (len %d)", i, len(got))
		}
		delete(want, got)
	}
	if len(want) != 0 {
		t.Errorf("%d frames never came back", len(want))
	}
}

func TestInstance_ClientDisconnectIsRoutine(t *testing.T) {
	sup := NewSupervisor(testConfig(), quietLogger())
	defer sup.Close()

	root := t.TempDir()
	port, err := sup.Start(context.Background(), "echo", root)
	if err != nil {
		t.Fatal(err)
	}

	conn := dialInstance(t, port)
	conn.Close()
	time.Sleep(100 * time.Millisecond)

	// The instance survives and keeps serving new clients.
	if n := len(sup.Status()); n != 1 {
		t.Fatalf("instance gone after client disconnect (%d registered)", n)
	}

	again := dialInstance(t, port)
	payload := []byte(`{"jsonrpc":"2.0","method":"ping"}`)
	time.Sleep(50 * time.Millisecond)
	if err := protocol.WriteFrame(again, payload); err != nil {
		t.Fatal(err)
	}
	if got := readOneFrame(t, again); string(got) != string(payload) {
		t.Errorf("relay after reconnect got %q", got)
	}
}
