package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"langbridge/internal/protocol"
)

// ConnectionState is the session lifecycle. Closed is both the initial
// and the terminal state; a closed session is never reused.
type ConnectionState int32

const (
	StateClosed ConnectionState = iota
	StateConnecting
	StateInitializing
	StateReady
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Option configures a session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithSurface attaches the editing surface.
func WithSurface(surface Surface) Option {
	return func(s *Session) { s.surface = surface }
}

// WithDebounce sets the document change debounce delay. Zero flushes
// every change immediately.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithInitializationOptions passes server-specific options through the
// handshake.
func WithInitializationOptions(opts any) Option {
	return func(s *Session) { s.initOptions = opts }
}

// Session is one protocol client connection. It is safe for concurrent
// use once Start has returned.
type Session struct {
	conn    io.ReadWriteCloser
	logger  *slog.Logger
	surface Surface

	debounce    time.Duration
	initOptions any
	projectRoot string

	state  atomic.Int32
	nextID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan *protocol.Message

	docsMu sync.Mutex
	docs   map[string]*document

	diagsMu sync.Mutex
	diags   map[string][]protocol.Diagnostic

	capsMu     sync.Mutex
	caps       protocol.ServerCapabilities
	serverInfo *protocol.ServerInfo

	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// New wraps an established framed connection in a session. Call Start to
// run the handshake.
func New(conn io.ReadWriteCloser, opts ...Option) *Session {
	s := &Session{
		conn:     conn,
		logger:   slog.Default(),
		surface:  NopSurface{},
		debounce: 300 * time.Millisecond,
		pending:  make(map[int64]chan *protocol.Message),
		docs:     make(map[string]*document),
		diags:    make(map[string][]protocol.Diagnostic),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(StateClosed))
	return s
}

// Dial connects to a bridge instance's loopback port and wraps the
// connection in a session.
func Dial(addr string, opts ...Option) (*Session, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn, opts...), nil
}

// Start runs the initialize handshake. On return the session is Ready
// and providers may be used.
func (s *Session) Start(ctx context.Context, projectRoot string) error {
	if !s.state.CompareAndSwap(int32(StateClosed), int32(StateConnecting)) {
		return ErrAlreadyStarted
	}
	s.projectRoot = projectRoot

	go s.readLoop()

	s.state.Store(int32(StateInitializing))

	rootURI := protocol.FilePathToURI(projectRoot)
	params := protocol.InitializeParams{
		ProcessID:             os.Getpid(),
		RootURI:               rootURI,
		Capabilities:          protocol.DefaultClientCapabilities(),
		InitializationOptions: s.initOptions,
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: rootURI, Name: filepath.Base(projectRoot)},
		},
		ClientInfo: &protocol.ClientInfo{Name: "langbridge"},
	}

	var result protocol.InitializeResult
	if err := s.request(ctx, protocol.MethodInitialize, params, &result); err != nil {
		s.teardown()
		return fmt.Errorf("initialize: %w", err)
	}

	s.capsMu.Lock()
	s.caps = result.Capabilities
	s.serverInfo = result.ServerInfo
	s.capsMu.Unlock()

	if err := s.notify(protocol.MethodInitialized, protocol.InitializedParams{}); err != nil {
		s.teardown()
		return fmt.Errorf("initialized: %w", err)
	}

	s.state.Store(int32(StateReady))
	s.logger.Info("session ready", "root", projectRoot, "server", s.serverName())
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

// Capabilities returns the negotiated server capabilities.
func (s *Session) Capabilities() protocol.ServerCapabilities {
	s.capsMu.Lock()
	defer s.capsMu.Unlock()
	return s.caps
}

func (s *Session) serverName() string {
	s.capsMu.Lock()
	defer s.capsMu.Unlock()
	if s.serverInfo != nil {
		return s.serverInfo.Name
	}
	return ""
}

// SessionStats is a point-in-time snapshot for status surfaces.
type SessionStats struct {
	State           ConnectionState
	OpenDocuments   int
	PendingRequests int
}

// Stats returns current session statistics.
func (s *Session) Stats() SessionStats {
	s.docsMu.Lock()
	docCount := len(s.docs)
	s.docsMu.Unlock()

	s.pendingMu.Lock()
	pendingCount := len(s.pending)
	s.pendingMu.Unlock()

	return SessionStats{
		State:           s.State(),
		OpenDocuments:   docCount,
		PendingRequests: pendingCount,
	}
}

// request sends a request and blocks until its response arrives, the
// context is canceled, or the session closes. There is no internal
// timeout; the caller's context is the only bound.
func (s *Session) request(ctx context.Context, method string, params, result any) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	id := s.nextID.Add(1)
	ch := make(chan *protocol.Message, 1)

	s.pendingMu.Lock()
	s.pending[id] = ch
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	msg, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	if err := s.send(msg); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 && string(resp.Result) != "null" {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}
}

// notify sends a notification; no response is expected.
func (s *Session) notify(method string, params any) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	msg, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	return s.send(msg)
}

// send writes one framed message to the connection.
func (s *Session) send(msg *protocol.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return protocol.WriteFrame(s.conn, payload)
}

// readLoop decodes frames off the connection until it closes, then tears
// the session down so no pending request dangles.
func (s *Session) readLoop() {
	err := protocol.StreamFrames(s.conn, func(payload []byte) {
		var msg protocol.Message
		if uerr := json.Unmarshal(payload, &msg); uerr != nil {
			s.logger.Debug("discarding undecodable message", "error", uerr)
			return
		}
		s.dispatch(&msg)
	})
	if err != nil && err != io.EOF && s.State() != StateClosed {
		s.logger.Debug("session read ended", "error", err)
	}
	s.teardown()
}

// dispatch routes one incoming message.
func (s *Session) dispatch(msg *protocol.Message) {
	switch {
	case msg.IsResponse():
		s.pendingMu.Lock()
		ch, ok := s.pending[*msg.ID]
		if ok {
			delete(s.pending, *msg.ID)
		}
		s.pendingMu.Unlock()
		if ok {
			ch <- msg
		} else {
			s.logger.Debug("response for unknown request", "id", *msg.ID)
		}

	case msg.IsRequest():
		// Handled off the read goroutine so a slow surface cannot stall
		// response delivery.
		go s.handleServerRequest(msg)

	case msg.IsNotification():
		go s.handleNotification(msg)
	}
}

// handleServerRequest services the few server-to-client requests the
// session supports and replies to everything else with an error.
func (s *Session) handleServerRequest(msg *protocol.Message) {
	switch msg.Method {
	case protocol.MethodApplyEdit:
		var params protocol.ApplyWorkspaceEditParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			s.replyError(*msg.ID, protocol.CodeInvalidParams, "malformed applyEdit params")
			return
		}
		applied := s.applyWorkspaceEdit(&params.Edit)
		s.reply(*msg.ID, protocol.ApplyWorkspaceEditResponse{Applied: applied})

	default:
		s.replyError(*msg.ID, protocol.CodeMethodNotFound, "unsupported request: "+msg.Method)
	}
}

// applyWorkspaceEdit hands a server-initiated edit to the surface, one
// open buffer at a time. Files that are not open are skipped; the edit
// counts as applied only if every touched file was applied.
func (s *Session) applyWorkspaceEdit(we *protocol.WorkspaceEdit) bool {
	byPath := s.editsByPath(we)
	if len(byPath) == 0 {
		return false
	}

	applied := true
	for path, edits := range byPath {
		if s.lookupDocument(path) == nil {
			applied = false
			continue
		}
		if !s.surface.ApplyEdits(path, edits) {
			applied = false
		}
	}
	return applied
}

// handleNotification services unsolicited server notifications.
func (s *Session) handleNotification(msg *protocol.Message) {
	switch msg.Method {
	case protocol.MethodPublishDiagnostics:
		var params protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return
		}
		path := protocol.URIToFilePath(params.URI)
		doc := s.lookupDocument(path)
		if doc == nil {
			// Diagnostics for buffers we do not have open are dropped.
			return
		}

		s.diagsMu.Lock()
		if len(params.Diagnostics) == 0 {
			delete(s.diags, path)
		} else {
			s.diags[path] = params.Diagnostics
		}
		s.diagsMu.Unlock()

		s.surface.PublishMarkers(path, markersFromDiagnostics(doc.snapshot(), params.Diagnostics))

	case protocol.MethodShowMessage:
		var params protocol.ShowMessageParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return
		}
		s.surface.ShowMessage(messageKind(params.Type), params.Message)

	case protocol.MethodLogMessage:
		var params protocol.ShowMessageParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return
		}
		s.logger.Debug("server log", "message", params.Message)

	default:
		s.logger.Debug("unhandled notification", "method", msg.Method)
	}
}

func messageKind(t protocol.MessageType) MessageKind {
	switch t {
	case protocol.MessageTypeError:
		return MessageError
	case protocol.MessageTypeWarning:
		return MessageWarning
	case protocol.MessageTypeInfo:
		return MessageInfo
	default:
		return MessageLog
	}
}

// reply sends a successful response to a server request.
func (s *Session) reply(id int64, result any) {
	msg, err := protocol.NewResponse(id, result)
	if err != nil {
		return
	}
	if err := s.send(msg); err != nil {
		s.logger.Debug("reply failed", "id", id, "error", err)
	}
}

// replyError sends an error response to a server request.
func (s *Session) replyError(id int64, code int, text string) {
	payload, err := json.Marshal(&protocol.Message{
		JSONRPC: "2.0",
		ID:      &id,
		Error:   &protocol.ResponseError{Code: code, Message: text},
	})
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if werr := protocol.WriteFrame(s.conn, payload); werr != nil {
		s.logger.Debug("error reply failed", "id", id, "error", werr)
	}
}

// Close tears the session down gracefully: cancel pending document
// syncs, close every document, clear markers, run the shutdown
// handshake bounded by ctx, and reject all pending requests.
func (s *Session) Close(ctx context.Context) error {
	if s.State() == StateClosed {
		s.teardown()
		return nil
	}

	// Stop syncing and tell the server the documents are gone.
	s.docsMu.Lock()
	paths := make([]string, 0, len(s.docs))
	for path, doc := range s.docs {
		doc.cancelPending()
		paths = append(paths, path)
	}
	s.docsMu.Unlock()

	s.diagsMu.Lock()
	s.diags = make(map[string][]protocol.Diagnostic)
	s.diagsMu.Unlock()

	for _, path := range paths {
		s.surface.PublishMarkers(path, nil)
		_ = s.notify(protocol.MethodDidClose, protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.FilePathToURI(path)},
		})
	}

	// Best-effort shutdown handshake. A server that never answers must
	// not wedge teardown, so the request is bounded.
	shutdownCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = s.request(shutdownCtx, protocol.MethodShutdown, nil, nil)
	_ = s.notify(protocol.MethodExit, nil)

	s.teardown()
	return nil
}

// teardown closes the connection and rejects every pending request.
// Safe to call more than once.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.done)
		s.conn.Close()

		s.docsMu.Lock()
		for _, doc := range s.docs {
			doc.cancelPending()
		}
		s.docs = make(map[string]*document)
		s.docsMu.Unlock()

		// Wake every in-flight request with a rejection. Waiters also
		// select on s.done, so clearing the table is enough.
		s.pendingMu.Lock()
		s.pending = make(map[int64]chan *protocol.Message)
		s.pendingMu.Unlock()

		s.logger.Debug("session torn down")
	})
}
