package protocol

import (
	"encoding/json"
	"testing"
)

func TestHasCapability(t *testing.T) {
	tests := []struct {
		name string
		cap  any
		want bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"options object", map[string]any{"workDoneProgress": true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCapability(tt.cap); got != tt.want {
				t.Errorf("HasCapability(%v) = %v, want %v", tt.cap, got, tt.want)
			}
		})
	}
}

func TestServerCapabilities_SyncKind(t *testing.T) {
	var full ServerCapabilities
	if err := json.Unmarshal([]byte(`{"textDocumentSync":1}`), &full); err != nil {
		t.Fatal(err)
	}
	if full.SyncKind() != TextDocumentSyncKindFull {
		t.Errorf("numeric sync kind = %v, want full", full.SyncKind())
	}

	var opts ServerCapabilities
	if err := json.Unmarshal([]byte(`{"textDocumentSync":{"openClose":true,"change":2}}`), &opts); err != nil {
		t.Fatal(err)
	}
	if opts.SyncKind() != TextDocumentSyncKindIncremental {
		t.Errorf("object sync kind = %v, want incremental", opts.SyncKind())
	}

	var none ServerCapabilities
	if none.SyncKind() != TextDocumentSyncKindNone {
		t.Errorf("absent sync kind = %v, want none", none.SyncKind())
	}
}

func TestServerCapabilities_SaveIncludesText(t *testing.T) {
	var caps ServerCapabilities
	if err := json.Unmarshal([]byte(`{"textDocumentSync":{"save":{"includeText":true}}}`), &caps); err != nil {
		t.Fatal(err)
	}
	if !caps.SaveIncludesText() {
		t.Error("expected includeText to be detected")
	}

	var boolSave ServerCapabilities
	if err := json.Unmarshal([]byte(`{"textDocumentSync":{"save":true}}`), &boolSave); err != nil {
		t.Fatal(err)
	}
	if !boolSave.SaveIncludesText() {
		t.Error("expected boolean save to be detected")
	}
}

func TestSupportsRenamePrepare(t *testing.T) {
	var caps ServerCapabilities
	if err := json.Unmarshal([]byte(`{"renameProvider":{"prepareProvider":true}}`), &caps); err != nil {
		t.Fatal(err)
	}
	if !SupportsRenamePrepare(caps.RenameProvider) {
		t.Error("expected prepareProvider to be detected")
	}
	if SupportsRenamePrepare(true) {
		t.Error("bare boolean rename capability has no prepare step")
	}
}

func TestDefaultClientCapabilities(t *testing.T) {
	caps := DefaultClientCapabilities()

	if caps.Workspace == nil || !caps.Workspace.ApplyEdit {
		t.Error("workspace applyEdit must be advertised")
	}
	td := caps.TextDocument
	if td == nil {
		t.Fatal("textDocument capabilities missing")
	}
	if td.Synchronization == nil || !td.Synchronization.DidSave {
		t.Error("didSave must be advertised")
	}
	if td.Completion == nil || td.Completion.CompletionItem == nil || !td.Completion.CompletionItem.SnippetSupport {
		t.Error("snippet completion must be advertised")
	}
	if td.Rename == nil || !td.Rename.PrepareSupport {
		t.Error("rename prepare support must be advertised")
	}
	if td.DocumentSymbol == nil || !td.DocumentSymbol.HierarchicalDocumentSymbolSupport {
		t.Error("hierarchical symbols must be advertised")
	}
	if td.PublishDiagnostics == nil || !td.PublishDiagnostics.RelatedInformation {
		t.Error("diagnostic related information must be advertised")
	}
}
