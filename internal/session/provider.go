package session

import (
	"context"
	"encoding/json"

	"langbridge/internal/protocol"
)

// Feature providers are gated on negotiated capabilities and absorb
// failures: a provider the server does not support, or a request that
// errors, yields an empty result rather than surfacing a protocol error
// to the editing surface. Errors are still logged at debug level.

// positionParams flushes any pending sync for the document and builds
// the common position parameter block.
func (s *Session) positionParams(path string, pos Pos) (*document, protocol.TextDocumentPositionParams, bool) {
	if s.State() != StateReady {
		return nil, protocol.TextDocumentPositionParams{}, false
	}
	doc := s.flushPath(path)
	if doc == nil {
		return nil, protocol.TextDocumentPositionParams{}, false
	}
	return doc, protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.uri},
		Position:     toProtocolPosition(doc.snapshot(), pos),
	}, true
}

func (s *Session) absorb(method string, err error) {
	if err != nil {
		s.logger.Debug("provider request failed", "method", method, "error", err)
	}
}

// Completion returns completion candidates at a position, or nothing.
func (s *Session) Completion(ctx context.Context, path string, pos Pos) []CompletionEntry {
	caps := s.Capabilities()
	if caps.CompletionProvider == nil {
		return nil
	}
	_, posParams, ok := s.positionParams(path, pos)
	if !ok {
		return nil
	}

	params := protocol.CompletionParams{
		TextDocumentPositionParams: posParams,
		Context: &protocol.CompletionContext{
			TriggerKind: protocol.CompletionTriggerKindInvoked,
		},
	}

	var raw json.RawMessage
	if err := s.request(ctx, protocol.MethodCompletion, params, &raw); err != nil {
		s.absorb(protocol.MethodCompletion, err)
		return nil
	}
	list, err := protocol.ParseCompletionResult(raw)
	if err != nil {
		s.absorb(protocol.MethodCompletion, err)
		return nil
	}
	return completionEntries(list)
}

// Hover returns the hover text at a position. The second return is
// false when there is nothing to show.
func (s *Session) Hover(ctx context.Context, path string, pos Pos) (string, bool) {
	if !protocol.HasCapability(s.Capabilities().HoverProvider) {
		return "", false
	}
	_, posParams, ok := s.positionParams(path, pos)
	if !ok {
		return "", false
	}

	var hover *protocol.Hover
	if err := s.request(ctx, protocol.MethodHover, protocol.HoverParams{TextDocumentPositionParams: posParams}, &hover); err != nil {
		s.absorb(protocol.MethodHover, err)
		return "", false
	}
	if hover == nil {
		return "", false
	}
	text := protocol.ExtractHoverText(hover.Contents)
	return text, text != ""
}

// Definition returns the definition sites for the symbol at a position.
// When a site points into a file other than the queried one, the surface
// is asked to open that file before the sites are returned.
func (s *Session) Definition(ctx context.Context, path string, pos Pos) []Site {
	if !protocol.HasCapability(s.Capabilities().DefinitionProvider) {
		return nil
	}
	_, posParams, ok := s.positionParams(path, pos)
	if !ok {
		return nil
	}

	var raw json.RawMessage
	if err := s.request(ctx, protocol.MethodDefinition, posParams, &raw); err != nil {
		s.absorb(protocol.MethodDefinition, err)
		return nil
	}
	locs, err := protocol.ParseLocationResult(raw)
	if err != nil {
		s.absorb(protocol.MethodDefinition, err)
		return nil
	}
	sites := s.sitesFromLocations(locs)
	for _, site := range sites {
		if site.Path != path {
			s.surface.OpenFile(site.Path)
		}
	}
	return sites
}

// References returns every reference to the symbol at a position.
func (s *Session) References(ctx context.Context, path string, pos Pos, includeDeclaration bool) []Site {
	if !protocol.HasCapability(s.Capabilities().ReferencesProvider) {
		return nil
	}
	_, posParams, ok := s.positionParams(path, pos)
	if !ok {
		return nil
	}

	params := protocol.ReferenceParams{
		TextDocumentPositionParams: posParams,
		Context:                    protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}

	var locs []protocol.Location
	if err := s.request(ctx, protocol.MethodReferences, params, &locs); err != nil {
		s.absorb(protocol.MethodReferences, err)
		return nil
	}
	return s.sitesFromLocations(locs)
}

// SignatureHelp returns call signatures at a position.
func (s *Session) SignatureHelp(ctx context.Context, path string, pos Pos) (SignatureInfo, bool) {
	if s.Capabilities().SignatureHelpProvider == nil {
		return SignatureInfo{}, false
	}
	_, posParams, ok := s.positionParams(path, pos)
	if !ok {
		return SignatureInfo{}, false
	}

	var sh *protocol.SignatureHelp
	if err := s.request(ctx, protocol.MethodSignatureHelp, protocol.SignatureHelpParams{TextDocumentPositionParams: posParams}, &sh); err != nil {
		s.absorb(protocol.MethodSignatureHelp, err)
		return SignatureInfo{}, false
	}
	return signatureInfo(sh)
}

// DocumentSymbols returns the symbol outline of a document. Flat server
// results are normalized into the hierarchical shape.
func (s *Session) DocumentSymbols(ctx context.Context, path string) []SymbolEntry {
	if !protocol.HasCapability(s.Capabilities().DocumentSymbolProvider) {
		return nil
	}
	if s.State() != StateReady {
		return nil
	}
	doc := s.flushPath(path)
	if doc == nil {
		return nil
	}

	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.uri},
	}

	var raw json.RawMessage
	if err := s.request(ctx, protocol.MethodDocumentSymbol, params, &raw); err != nil {
		s.absorb(protocol.MethodDocumentSymbol, err)
		return nil
	}
	symbols, err := protocol.ParseSymbolResult(raw)
	if err != nil {
		s.absorb(protocol.MethodDocumentSymbol, err)
		return nil
	}
	return symbolEntries(doc.snapshot(), symbols)
}

// Format returns whole-document formatting edits.
func (s *Session) Format(ctx context.Context, path string, tabSize int, insertSpaces bool) []Edit {
	if !protocol.HasCapability(s.Capabilities().DocumentFormattingProvider) {
		return nil
	}
	if s.State() != StateReady {
		return nil
	}
	doc := s.flushPath(path)
	if doc == nil {
		return nil
	}

	params := protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.uri},
		Options: protocol.FormattingOptions{
			TabSize:      tabSize,
			InsertSpaces: insertSpaces,
		},
	}

	var edits []protocol.TextEdit
	if err := s.request(ctx, protocol.MethodFormatting, params, &edits); err != nil {
		s.absorb(protocol.MethodFormatting, err)
		return nil
	}
	return editsFromTextEdits(doc.snapshot(), edits)
}

// PrepareRename checks whether the symbol at a position can be renamed,
// returning the symbol's span and placeholder text. When the server has
// no prepare step, the check passes vacuously with an empty span.
func (s *Session) PrepareRename(ctx context.Context, path string, pos Pos) (Span, string, bool) {
	renameCap := s.Capabilities().RenameProvider
	if !protocol.HasCapability(renameCap) {
		return Span{}, "", false
	}
	if !protocol.SupportsRenamePrepare(renameCap) {
		return Span{}, "", true
	}
	doc, posParams, ok := s.positionParams(path, pos)
	if !ok {
		return Span{}, "", false
	}

	var result *protocol.PrepareRenameResult
	if err := s.request(ctx, protocol.MethodPrepareRename, protocol.PrepareRenameParams{TextDocumentPositionParams: posParams}, &result); err != nil {
		s.absorb(protocol.MethodPrepareRename, err)
		return Span{}, "", false
	}
	if result == nil {
		return Span{}, "", false
	}
	return fromProtocolRange(doc.snapshot(), result.Range), result.Placeholder, true
}

// Rename renames the symbol at a position across the workspace and
// applies the resulting edits to open buffers through the surface.
// It reports whether any edit was applied.
func (s *Session) Rename(ctx context.Context, path string, pos Pos, newName string) bool {
	if !protocol.HasCapability(s.Capabilities().RenameProvider) {
		return false
	}
	_, posParams, ok := s.positionParams(path, pos)
	if !ok {
		return false
	}

	params := protocol.RenameParams{
		TextDocumentPositionParams: posParams,
		NewName:                    newName,
	}

	var we *protocol.WorkspaceEdit
	if err := s.request(ctx, protocol.MethodRename, params, &we); err != nil {
		s.absorb(protocol.MethodRename, err)
		return false
	}
	if we == nil {
		return false
	}
	return s.applyWorkspaceEdit(we)
}

// CodeActions returns the actions available for a region, scoped by the
// current diagnostics that touch it.
func (s *Session) CodeActions(ctx context.Context, path string, span Span) []ActionEntry {
	if !protocol.HasCapability(s.Capabilities().CodeActionProvider) {
		return nil
	}
	if s.State() != StateReady {
		return nil
	}
	doc := s.flushPath(path)
	if doc == nil {
		return nil
	}

	content := doc.snapshot()
	rng := toProtocolRange(content, span)

	params := protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.uri},
		Range:        rng,
		Context: protocol.CodeActionContext{
			Diagnostics: s.diagnosticsTouching(path, rng),
		},
	}

	var actions []protocol.CodeAction
	if err := s.request(ctx, protocol.MethodCodeAction, params, &actions); err != nil {
		s.absorb(protocol.MethodCodeAction, err)
		return nil
	}

	entries := make([]ActionEntry, 0, len(actions))
	for _, action := range actions {
		entries = append(entries, ActionEntry{
			Title:       action.Title,
			Kind:        string(action.Kind),
			IsPreferred: action.IsPreferred,
			Edits:       s.editsByPath(action.Edit),
		})
	}
	return entries
}

// diagnosticsTouching returns the published diagnostics for a document
// that overlap the given range. Context must never be null on the wire,
// so an empty slice stands in for none.
func (s *Session) diagnosticsTouching(path string, rng protocol.Range) []protocol.Diagnostic {
	s.diagsMu.Lock()
	all := s.diags[path]
	s.diagsMu.Unlock()

	out := make([]protocol.Diagnostic, 0, len(all))
	for _, d := range all {
		if rangesOverlap(d.Range, rng) {
			out = append(out, d)
		}
	}
	return out
}

func positionBefore(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

func rangesOverlap(a, b protocol.Range) bool {
	if positionBefore(b.End, a.Start) {
		return false
	}
	if positionBefore(a.End, b.Start) {
		return false
	}
	return true
}

// TriggerCharacters reports the negotiated completion and signature help
// trigger characters so the surface can fire providers automatically.
func (s *Session) TriggerCharacters() (completion, signature []string) {
	caps := s.Capabilities()
	if caps.CompletionProvider != nil {
		completion = caps.CompletionProvider.TriggerCharacters
	}
	if caps.SignatureHelpProvider != nil {
		signature = caps.SignatureHelpProvider.TriggerCharacters
	}
	return completion, signature
}
