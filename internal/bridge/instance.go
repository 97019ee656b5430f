package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"langbridge/internal/config"
	"langbridge/internal/protocol"
)

// Instance is one running language server process bridged to a loopback
// TCP listener. Frames read from the process stdout are broadcast to every
// connected client; frames read from any client are forwarded to the
// process stdin.
type Instance struct {
	LanguageID  string
	ProjectRoot string

	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdinMu  sync.Mutex
	listener net.Listener
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[net.Conn]struct{}

	startedAt time.Time
	stopped   atomic.Bool
	cancel    context.CancelFunc
	procDone  chan struct{}

	// onExit runs exactly once after the instance is fully torn down,
	// whether by Stop or by process death.
	onExit   func(*Instance, error)
	exitOnce sync.Once
}

// startInstance spawns the server process and begins relaying traffic.
func startInstance(ctx context.Context, languageID, projectRoot string, sc config.ServerConfig, logger *slog.Logger, onExit func(*Instance, error)) (*Instance, error) {
	cmd := exec.Command(sc.Command, sc.Args...)
	cmd.Dir = projectRoot
	cmd.Env = append(os.Environ(), sc.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		listener.Close()
		return nil, fmt.Errorf("start %s: %w", sc.Command, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	inst := &Instance{
		LanguageID:  languageID,
		ProjectRoot: projectRoot,
		cmd:         cmd,
		stdin:       stdin,
		listener:    listener,
		logger:      logger.With("language", languageID, "root", projectRoot),
		clients:     make(map[net.Conn]struct{}),
		startedAt:   time.Now(),
		cancel:      cancel,
		procDone:    make(chan struct{}),
		onExit:      onExit,
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return inst.broadcastLoop(stdout) })
	g.Go(func() error { return inst.acceptLoop(gctx) })
	g.Go(func() error { inst.logStderr(stderr); return nil })
	g.Go(func() error {
		err := cmd.Wait()
		close(inst.procDone)
		if inst.stopped.Load() {
			return nil
		}
		if err != nil {
			return fmt.Errorf("server process exited: %w", err)
		}
		return fmt.Errorf("server process exited")
	})

	go func() {
		err := g.Wait()
		inst.teardown(err)
	}()

	inst.logger.Info("server started", "pid", cmd.Process.Pid, "port", inst.Port())
	return inst, nil
}

// Port returns the loopback port clients connect to.
func (i *Instance) Port() int {
	return i.listener.Addr().(*net.TCPAddr).Port
}

// PID returns the server process id.
func (i *Instance) PID() int {
	return i.cmd.Process.Pid
}

// Uptime reports how long the instance has been running.
func (i *Instance) Uptime() time.Duration {
	return time.Since(i.startedAt)
}

// ClientCount returns the number of connected clients.
func (i *Instance) ClientCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.clients)
}

// acceptLoop admits clients and starts a forwarder per connection.
func (i *Instance) acceptLoop(ctx context.Context) error {
	for {
		conn, err := i.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || i.stopped.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		i.mu.Lock()
		i.clients[conn] = struct{}{}
		n := len(i.clients)
		i.mu.Unlock()
		i.logger.Debug("client connected", "clients", n)

		go i.forwardClient(conn)
	}
}

// forwardClient reads frames from one client and writes them to the server
// process. A client disconnecting is routine and never tears the instance
// down.
func (i *Instance) forwardClient(conn net.Conn) {
	defer func() {
		i.mu.Lock()
		delete(i.clients, conn)
		i.mu.Unlock()
		conn.Close()
		i.logger.Debug("client disconnected")
	}()

	err := protocol.StreamFrames(conn, func(payload []byte) {
		// Serialized so frames from concurrent clients cannot interleave
		// on the process stdin.
		i.stdinMu.Lock()
		werr := protocol.WriteFrame(i.stdin, payload)
		i.stdinMu.Unlock()
		if werr != nil {
			i.logger.Warn("write to server failed", "error", werr)
		}
	})
	if err != nil && err != io.EOF && !i.stopped.Load() {
		i.logger.Debug("client read ended", "error", err)
	}
}

// broadcastLoop reads frames from the server's stdout and fans each one
// out to all connected clients. A slow or dead client is dropped rather
// than allowed to stall the others.
func (i *Instance) broadcastLoop(stdout io.Reader) error {
	err := protocol.StreamFrames(stdout, func(payload []byte) {
		frame := protocol.EncodeFrame(payload)

		i.mu.Lock()
		var dead []net.Conn
		for conn := range i.clients {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if _, werr := conn.Write(frame); werr != nil {
				dead = append(dead, conn)
			}
			conn.SetWriteDeadline(time.Time{})
		}
		for _, conn := range dead {
			delete(i.clients, conn)
			conn.Close()
		}
		i.mu.Unlock()
	})
	if err != nil && err != io.EOF {
		return fmt.Errorf("server stdout: %w", err)
	}
	return fmt.Errorf("server stdout closed")
}

// logStderr forwards server stderr lines to the log.
func (i *Instance) logStderr(stderr io.Reader) {
	buf := make([]byte, 4096)
	var line []byte
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				if b == '\n' {
					if len(line) > 0 {
						i.logger.Debug("server stderr", "line", string(line))
						line = line[:0]
					}
					continue
				}
				line = append(line, b)
			}
		}
		if err != nil {
			if len(line) > 0 {
				i.logger.Debug("server stderr", "line", string(line))
			}
			return
		}
	}
}

// Stop tears the instance down, asking the process to exit first.
func (i *Instance) Stop() {
	i.teardown(nil)
}

// teardown closes the listener, all clients, and the process. Runs once.
func (i *Instance) teardown(cause error) {
	i.exitOnce.Do(func() {
		i.stopped.Store(true)
		i.cancel()

		i.listener.Close()

		i.mu.Lock()
		for conn := range i.clients {
			conn.Close()
		}
		i.clients = make(map[net.Conn]struct{})
		i.mu.Unlock()

		i.stdin.Close()
		// Give the process a moment to exit on its own after stdin
		// closes before killing it.
		select {
		case <-i.procDone:
		case <-time.After(2 * time.Second):
			if i.cmd.Process != nil {
				i.cmd.Process.Kill()
			}
		}

		if cause != nil {
			i.logger.Warn("instance torn down", "cause", cause)
		} else {
			i.logger.Info("instance stopped")
		}

		if i.onExit != nil {
			i.onExit(i, cause)
		}
	})
}
