package session

import (
	"sync"
	"time"

	"langbridge/internal/protocol"
)

// document is one open buffer tracked by the session. Whole-document
// sync only: every flush carries the full text.
type document struct {
	path       string
	uri        protocol.DocumentURI
	languageID string

	mu      sync.Mutex
	version int
	content string

	// One timer per document, replaced on every change while dirty.
	timer *time.Timer
	dirty bool
	draft string
}

// snapshot returns the last synced content.
func (d *document) snapshot() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

// cancelPending stops the debounce timer without flushing.
func (d *document) cancelPending() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.dirty = false
	d.mu.Unlock()
}

// lookupDocument returns the tracked document for path, or nil.
func (s *Session) lookupDocument(path string) *document {
	s.docsMu.Lock()
	defer s.docsMu.Unlock()
	return s.docs[path]
}

// OpenDocument announces a buffer to the server at version 1. Opening an
// already open document is a no-op.
func (s *Session) OpenDocument(path, languageID, content string) error {
	if s.State() != StateReady {
		return ErrNotReady
	}
	if languageID == "" {
		languageID = protocol.DetectLanguageID(path)
	}

	uri := protocol.FilePathToURI(path)

	s.docsMu.Lock()
	if _, open := s.docs[path]; open {
		s.docsMu.Unlock()
		return nil
	}
	doc := &document{
		path:       path,
		uri:        uri,
		languageID: languageID,
		version:    1,
		content:    content,
	}
	s.docs[path] = doc
	s.docsMu.Unlock()

	return s.notify(protocol.MethodDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    1,
			Text:       content,
		},
	})
}

// ChangeDocument records new buffer content and schedules a debounced
// sync. Rapid edits coalesce into one flush carrying the latest text;
// each flush bumps the version by exactly one.
func (s *Session) ChangeDocument(path, content string) error {
	if s.State() != StateReady {
		return ErrNotReady
	}

	doc := s.lookupDocument(path)
	if doc == nil {
		return ErrDocumentNotOpen
	}

	doc.mu.Lock()
	doc.draft = content
	doc.dirty = true
	if s.debounce <= 0 {
		doc.mu.Unlock()
		return s.flushDocument(doc)
	}
	if doc.timer != nil {
		doc.timer.Stop()
	}
	doc.timer = time.AfterFunc(s.debounce, func() {
		if err := s.flushDocument(doc); err != nil {
			s.logger.Debug("change sync failed", "path", path, "error", err)
		}
	})
	doc.mu.Unlock()
	return nil
}

// flushDocument sends the pending draft, if any, as one didChange.
func (s *Session) flushDocument(doc *document) error {
	doc.mu.Lock()
	if !doc.dirty {
		doc.mu.Unlock()
		return nil
	}
	if doc.timer != nil {
		doc.timer.Stop()
		doc.timer = nil
	}
	doc.dirty = false
	doc.content = doc.draft
	doc.version++
	version := doc.version
	content := doc.content
	doc.mu.Unlock()

	return s.notify(protocol.MethodDidChange, protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: doc.uri},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: content},
		},
	})
}

// flushPath flushes a pending sync before a position-sensitive request
// so the server sees the same text the editor does.
func (s *Session) flushPath(path string) *document {
	doc := s.lookupDocument(path)
	if doc == nil {
		return nil
	}
	if err := s.flushDocument(doc); err != nil {
		s.logger.Debug("flush before request failed", "path", path, "error", err)
	}
	return doc
}

// CloseDocument closes a buffer: cancels any pending sync, clears its
// markers, and tells the server.
func (s *Session) CloseDocument(path string) error {
	if s.State() != StateReady {
		return ErrNotReady
	}

	s.docsMu.Lock()
	doc, open := s.docs[path]
	if open {
		delete(s.docs, path)
	}
	s.docsMu.Unlock()

	if !open {
		return ErrDocumentNotOpen
	}

	doc.cancelPending()

	s.diagsMu.Lock()
	delete(s.diags, path)
	s.diagsMu.Unlock()

	s.surface.PublishMarkers(path, nil)

	return s.notify(protocol.MethodDidClose, protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.uri},
	})
}

// SaveDocument flushes any pending change, then notifies the server of
// the save. The saved text rides along when the server asked for it.
func (s *Session) SaveDocument(path string) error {
	if s.State() != StateReady {
		return ErrNotReady
	}

	doc := s.flushPath(path)
	if doc == nil {
		return ErrDocumentNotOpen
	}

	params := protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.uri},
	}
	if s.Capabilities().SaveIncludesText() {
		doc.mu.Lock()
		params.Text = doc.content
		doc.mu.Unlock()
	}
	return s.notify(protocol.MethodDidSave, params)
}

// OpenDocuments lists the paths of all open documents.
func (s *Session) OpenDocuments() []string {
	s.docsMu.Lock()
	defer s.docsMu.Unlock()
	paths := make([]string, 0, len(s.docs))
	for path := range s.docs {
		paths = append(paths, path)
	}
	return paths
}

// DocumentVersion reports the current synced version of an open
// document, or 0 when it is not open.
func (s *Session) DocumentVersion(path string) int {
	doc := s.lookupDocument(path)
	if doc == nil {
		return 0
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	return doc.version
}
