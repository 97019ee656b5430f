package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

// ControlRequest is one newline-delimited JSON command on the control
// socket.
type ControlRequest struct {
	Command     string `json:"command"`
	Language    string `json:"language,omitempty"`
	ProjectRoot string `json:"projectRoot,omitempty"`
}

// ControlResponse is the reply to a control command.
type ControlResponse struct {
	OK        bool              `json:"ok"`
	Error     string            `json:"error,omitempty"`
	Port      int               `json:"port,omitempty"`
	Instances []InstanceStatus  `json:"instances,omitempty"`
	Servers   []AvailableServer `json:"servers,omitempty"`
}

// ControlServer exposes supervisor lifecycle operations over a loopback
// socket using one JSON object per line in each direction.
type ControlServer struct {
	sup      *Supervisor
	logger   *slog.Logger
	listener net.Listener
}

// NewControlServer binds the control endpoint. addr must be a loopback
// address; port 0 picks an ephemeral port.
func NewControlServer(addr string, sup *Supervisor, logger *slog.Logger) (*ControlServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("control listen: %w", err)
	}
	return &ControlServer{sup: sup, logger: logger, listener: listener}, nil
}

// Addr returns the bound control address.
func (c *ControlServer) Addr() string {
	return c.listener.Addr().String()
}

// Serve accepts control connections until the context is canceled.
func (c *ControlServer) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.listener.Close()
	}()

	for {
		conn, err := c.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("control accept: %w", err)
		}
		go c.handleConn(ctx, conn)
	}
}

// handleConn processes commands from one control client.
func (c *ControlServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req ControlRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			enc.Encode(ControlResponse{OK: false, Error: "malformed request: " + err.Error()})
			continue
		}

		resp := c.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			c.logger.Debug("control write failed", "error", err)
			return
		}
	}
}

// dispatch executes one control command.
func (c *ControlServer) dispatch(ctx context.Context, req ControlRequest) ControlResponse {
	switch req.Command {
	case "start":
		if req.Language == "" || req.ProjectRoot == "" {
			return ControlResponse{OK: false, Error: "start requires language and projectRoot"}
		}
		startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		port, err := c.sup.Start(startCtx, req.Language, req.ProjectRoot)
		if err != nil {
			return ControlResponse{OK: false, Error: err.Error()}
		}
		return ControlResponse{OK: true, Port: port}

	case "stop":
		if req.Language == "" || req.ProjectRoot == "" {
			return ControlResponse{OK: false, Error: "stop requires language and projectRoot"}
		}
		if err := c.sup.Stop(req.Language, req.ProjectRoot); err != nil {
			return ControlResponse{OK: false, Error: err.Error()}
		}
		return ControlResponse{OK: true}

	case "status":
		return ControlResponse{OK: true, Instances: c.sup.Status()}

	case "list":
		return ControlResponse{OK: true, Servers: c.sup.ListAvailable()}

	default:
		return ControlResponse{OK: false, Error: "unknown command: " + req.Command}
	}
}

// ControlClient talks to a running control endpoint. Used by the CLI
// status and list commands.
type ControlClient struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// DialControl connects to the control endpoint at addr.
func DialControl(addr string) (*ControlClient, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial control %s: %w", addr, err)
	}
	return &ControlClient{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

// Do sends one command and reads its reply.
func (c *ControlClient) Do(req ControlRequest) (*ControlResponse, error) {
	if err := c.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("send control request: %w", err)
	}
	var resp ControlResponse
	if err := c.dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("read control response: %w", err)
	}
	return &resp, nil
}

// Close closes the control connection.
func (c *ControlClient) Close() error {
	return c.conn.Close()
}
