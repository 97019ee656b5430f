package protocol

// ServerCapabilities is the feature set the analysis server advertised at
// handshake time. It is negotiated once and read-only afterward; a feature
// provider is registered only when its capability is present.
type ServerCapabilities struct {
	TextDocumentSync           any                   `json:"textDocumentSync,omitempty"`
	CompletionProvider         *CompletionOptions    `json:"completionProvider,omitempty"`
	HoverProvider              any                   `json:"hoverProvider,omitempty"`
	SignatureHelpProvider      *SignatureHelpOptions `json:"signatureHelpProvider,omitempty"`
	DefinitionProvider         any                   `json:"definitionProvider,omitempty"`
	ReferencesProvider         any                   `json:"referencesProvider,omitempty"`
	DocumentSymbolProvider     any                   `json:"documentSymbolProvider,omitempty"`
	CodeActionProvider         any                   `json:"codeActionProvider,omitempty"`
	DocumentFormattingProvider any                   `json:"documentFormattingProvider,omitempty"`
	RenameProvider             any                   `json:"renameProvider,omitempty"`
}

// CompletionOptions carry completion trigger metadata.
type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters,omitempty"`
	ResolveProvider   bool     `json:"resolveProvider,omitempty"`
}

// SignatureHelpOptions carry signature help trigger metadata.
type SignatureHelpOptions struct {
	TriggerCharacters   []string `json:"triggerCharacters,omitempty"`
	RetriggerCharacters []string `json:"retriggerCharacters,omitempty"`
}

// HasCapability interprets the boolean-or-options capability shape: absent
// means unsupported, false means disabled, anything else means enabled.
func HasCapability(cap any) bool {
	switch v := cap.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

// SupportsRenamePrepare reports whether the rename capability advertises
// the prepare pre-check step.
func SupportsRenamePrepare(cap any) bool {
	opts, ok := cap.(map[string]any)
	if !ok {
		return false
	}
	prepare, _ := opts["prepareProvider"].(bool)
	return prepare
}

// SyncKind extracts the negotiated document sync kind, which may be a bare
// number or an options object.
func (c ServerCapabilities) SyncKind() TextDocumentSyncKind {
	switch v := c.TextDocumentSync.(type) {
	case nil:
		return TextDocumentSyncKindNone
	case float64:
		return TextDocumentSyncKind(int(v))
	case int:
		return TextDocumentSyncKind(v)
	case map[string]any:
		if change, ok := v["change"].(float64); ok {
			return TextDocumentSyncKind(int(change))
		}
	}
	return TextDocumentSyncKindFull
}

// SaveIncludesText reports whether didSave should carry the full text.
func (c ServerCapabilities) SaveIncludesText() bool {
	opts, ok := c.TextDocumentSync.(map[string]any)
	if !ok {
		return false
	}
	switch save := opts["save"].(type) {
	case bool:
		return save
	case map[string]any:
		include, _ := save["includeText"].(bool)
		return include
	}
	return false
}

// ClientCapabilities declares what the editing surface supports. Only the
// slices of the protocol this client actually implements are advertised.
type ClientCapabilities struct {
	Workspace    *WorkspaceClientCapabilities    `json:"workspace,omitempty"`
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
}

// WorkspaceClientCapabilities covers workspace-level features.
type WorkspaceClientCapabilities struct {
	ApplyEdit     bool                             `json:"applyEdit,omitempty"`
	WorkspaceEdit *WorkspaceEditClientCapabilities `json:"workspaceEdit,omitempty"`
}

// WorkspaceEditClientCapabilities covers workspace edit shapes.
type WorkspaceEditClientCapabilities struct {
	DocumentChanges bool `json:"documentChanges,omitempty"`
}

// TextDocumentClientCapabilities covers per-document features.
type TextDocumentClientCapabilities struct {
	Synchronization    *SyncClientCapabilities          `json:"synchronization,omitempty"`
	Completion         *CompletionClientCapabilities    `json:"completion,omitempty"`
	Hover              *HoverClientCapabilities         `json:"hover,omitempty"`
	SignatureHelp      *SignatureHelpClientCapabilities `json:"signatureHelp,omitempty"`
	Definition         *DefinitionClientCapabilities    `json:"definition,omitempty"`
	References         *struct{}                        `json:"references,omitempty"`
	DocumentSymbol     *DocumentSymbolCapabilities      `json:"documentSymbol,omitempty"`
	Formatting         *struct{}                        `json:"formatting,omitempty"`
	Rename             *RenameClientCapabilities        `json:"rename,omitempty"`
	CodeAction         *CodeActionClientCapabilities    `json:"codeAction,omitempty"`
	PublishDiagnostics *DiagnosticsClientCapabilities   `json:"publishDiagnostics,omitempty"`
}

// SyncClientCapabilities covers document synchronization features.
type SyncClientCapabilities struct {
	DidSave bool `json:"didSave,omitempty"`
}

// CompletionClientCapabilities covers completion features.
type CompletionClientCapabilities struct {
	CompletionItem *CompletionItemCapabilities `json:"completionItem,omitempty"`
	ContextSupport bool                        `json:"contextSupport,omitempty"`
}

// CompletionItemCapabilities covers per-item completion features.
type CompletionItemCapabilities struct {
	SnippetSupport      bool         `json:"snippetSupport,omitempty"`
	DocumentationFormat []MarkupKind `json:"documentationFormat,omitempty"`
}

// HoverClientCapabilities covers hover content formats.
type HoverClientCapabilities struct {
	ContentFormat []MarkupKind `json:"contentFormat,omitempty"`
}

// SignatureHelpClientCapabilities covers signature help features.
type SignatureHelpClientCapabilities struct {
	SignatureInformation *SignatureInformationCapabilities `json:"signatureInformation,omitempty"`
}

// SignatureInformationCapabilities covers signature documentation formats.
type SignatureInformationCapabilities struct {
	DocumentationFormat []MarkupKind `json:"documentationFormat,omitempty"`
}

// DefinitionClientCapabilities covers go-to-definition features.
type DefinitionClientCapabilities struct {
	LinkSupport bool `json:"linkSupport,omitempty"`
}

// DocumentSymbolCapabilities covers symbol result shapes.
type DocumentSymbolCapabilities struct {
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport,omitempty"`
}

// RenameClientCapabilities covers rename features.
type RenameClientCapabilities struct {
	PrepareSupport bool `json:"prepareSupport,omitempty"`
}

// CodeActionClientCapabilities covers code action features.
type CodeActionClientCapabilities struct {
	CodeActionLiteralSupport *CodeActionLiteralSupport `json:"codeActionLiteralSupport,omitempty"`
}

// CodeActionLiteralSupport names the action kinds the client understands.
type CodeActionLiteralSupport struct {
	CodeActionKind CodeActionKindSupport `json:"codeActionKind"`
}

// CodeActionKindSupport is the accepted code action kind set.
type CodeActionKindSupport struct {
	ValueSet []CodeActionKind `json:"valueSet"`
}

// DiagnosticsClientCapabilities covers published diagnostic features.
type DiagnosticsClientCapabilities struct {
	RelatedInformation bool `json:"relatedInformation,omitempty"`
}

// DefaultClientCapabilities declares everything the editing surface behind
// this client supports: full-document sync with save notifications,
// snippet completion with documentation, hover, signature help,
// definitions with link support, references, hierarchical symbols,
// formatting, rename with pre-check, the known code action kinds,
// diagnostics with related information, and workspace edit application.
func DefaultClientCapabilities() ClientCapabilities {
	return ClientCapabilities{
		Workspace: &WorkspaceClientCapabilities{
			ApplyEdit:     true,
			WorkspaceEdit: &WorkspaceEditClientCapabilities{DocumentChanges: true},
		},
		TextDocument: &TextDocumentClientCapabilities{
			Synchronization: &SyncClientCapabilities{DidSave: true},
			Completion: &CompletionClientCapabilities{
				CompletionItem: &CompletionItemCapabilities{
					SnippetSupport:      true,
					DocumentationFormat: []MarkupKind{MarkupKindMarkdown, MarkupKindPlainText},
				},
				ContextSupport: true,
			},
			Hover: &HoverClientCapabilities{
				ContentFormat: []MarkupKind{MarkupKindMarkdown, MarkupKindPlainText},
			},
			SignatureHelp: &SignatureHelpClientCapabilities{
				SignatureInformation: &SignatureInformationCapabilities{
					DocumentationFormat: []MarkupKind{MarkupKindMarkdown, MarkupKindPlainText},
				},
			},
			Definition:     &DefinitionClientCapabilities{LinkSupport: true},
			References:     &struct{}{},
			DocumentSymbol: &DocumentSymbolCapabilities{HierarchicalDocumentSymbolSupport: true},
			Formatting:     &struct{}{},
			Rename:         &RenameClientCapabilities{PrepareSupport: true},
			CodeAction: &CodeActionClientCapabilities{
				CodeActionLiteralSupport: &CodeActionLiteralSupport{
					CodeActionKind: CodeActionKindSupport{
						ValueSet: []CodeActionKind{
							CodeActionKindQuickFix,
							CodeActionKindRefactor,
							CodeActionKindRefactorExtract,
							CodeActionKindRefactorInline,
							CodeActionKindRefactorRewrite,
							CodeActionKindSource,
							CodeActionKindSourceOrganizeImports,
						},
					},
				},
			},
			PublishDiagnostics: &DiagnosticsClientCapabilities{RelatedInformation: true},
		},
	}
}
