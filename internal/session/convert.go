package session

import (
	"strconv"
	"strings"

	"langbridge/internal/protocol"
)

// toProtocolPosition converts a 1-based editor position to a 0-based
// protocol position, using content to translate rune columns to UTF-16.
// Out-of-range positions clamp to the nearest valid one.
func toProtocolPosition(content string, p Pos) protocol.Position {
	line := p.Line - 1
	if line < 0 {
		line = 0
	}
	if max := lineCount(content) - 1; line > max {
		line = max
	}
	text := contentLine(content, line)

	col := p.Col - 1
	if col < 0 {
		col = 0
	}
	if max := runeLen(text); col > max {
		col = max
	}

	return protocol.Position{
		Line:      line,
		Character: runeToUTF16(text, col),
	}
}

// fromProtocolPosition converts a 0-based protocol position to a 1-based
// editor position using content for the UTF-16 translation.
func fromProtocolPosition(content string, pos protocol.Position) Pos {
	line := pos.Line
	if line < 0 {
		line = 0
	}
	text := contentLine(content, line)
	return Pos{
		Line: line + 1,
		Col:  utf16ToRune(text, pos.Character) + 1,
	}
}

// fromProtocolPositionNoContent converts a protocol position for a file
// whose content is not available, e.g. a definition site in an unopened
// file. UTF-16 units are taken as columns directly; exact only for lines
// within the Basic Multilingual Plane.
func fromProtocolPositionNoContent(pos protocol.Position) Pos {
	return Pos{Line: pos.Line + 1, Col: pos.Character + 1}
}

func toProtocolRange(content string, s Span) protocol.Range {
	return protocol.Range{
		Start: toProtocolPosition(content, s.Start),
		End:   toProtocolPosition(content, s.End),
	}
}

func fromProtocolRange(content string, r protocol.Range) Span {
	return Span{
		Start: fromProtocolPosition(content, r.Start),
		End:   fromProtocolPosition(content, r.End),
	}
}

func fromProtocolRangeNoContent(r protocol.Range) Span {
	return Span{
		Start: fromProtocolPositionNoContent(r.Start),
		End:   fromProtocolPositionNoContent(r.End),
	}
}

// markersFromDiagnostics converts protocol diagnostics for an open
// buffer into editor markers.
func markersFromDiagnostics(content string, diags []protocol.Diagnostic) []Marker {
	markers := make([]Marker, 0, len(diags))
	for _, d := range diags {
		severity := MarkerSeverity(d.Severity)
		if severity < MarkerError || severity > MarkerHint {
			severity = MarkerError
		}
		markers = append(markers, Marker{
			Span:     fromProtocolRange(content, d.Range),
			Severity: severity,
			Message:  d.Message,
			Source:   d.Source,
			Code:     codeString(d.Code),
		})
	}
	return markers
}

// codeString renders the diagnostic code, which the wire allows to be a
// number or a string.
func codeString(code any) string {
	switch v := code.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

// editsFromTextEdits converts protocol text edits for an open buffer.
func editsFromTextEdits(content string, edits []protocol.TextEdit) []Edit {
	out := make([]Edit, 0, len(edits))
	for _, e := range edits {
		out = append(out, Edit{
			Span:    fromProtocolRange(content, e.Range),
			NewText: e.NewText,
		})
	}
	return out
}

// sitesFromLocations converts protocol locations into editor sites,
// using open-buffer content for exact column translation where we have
// it.
func (s *Session) sitesFromLocations(locs []protocol.Location) []Site {
	sites := make([]Site, 0, len(locs))
	for _, loc := range locs {
		path := protocol.URIToFilePath(loc.URI)
		if doc := s.lookupDocument(path); doc != nil {
			sites = append(sites, Site{Path: path, Span: fromProtocolRange(doc.snapshot(), loc.Range)})
		} else {
			sites = append(sites, Site{Path: path, Span: fromProtocolRangeNoContent(loc.Range)})
		}
	}
	return sites
}

// completionEntries converts a completion list into editor entries.
func completionEntries(list *protocol.CompletionList) []CompletionEntry {
	if list == nil {
		return nil
	}
	entries := make([]CompletionEntry, 0, len(list.Items))
	for _, item := range list.Items {
		insert := item.InsertText
		if insert == "" {
			insert = item.Label
		}
		entries = append(entries, CompletionEntry{
			Label:         item.Label,
			InsertText:    insert,
			Kind:          int(item.Kind),
			Detail:        item.Detail,
			Documentation: protocol.ExtractDocumentation(item.Documentation),
			IsSnippet:     item.InsertTextFormat == protocol.InsertTextFormatSnippet,
		})
	}
	return entries
}

// symbolEntries converts hierarchical document symbols.
func symbolEntries(content string, symbols []protocol.DocumentSymbol) []SymbolEntry {
	out := make([]SymbolEntry, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, SymbolEntry{
			Name:     sym.Name,
			Kind:     int(sym.Kind),
			Span:     fromProtocolRange(content, sym.SelectionRange),
			Children: symbolEntries(content, sym.Children),
		})
	}
	return out
}

// FlattenSymbols walks a symbol tree depth-first into a flat list, with
// child names qualified by their container.
func FlattenSymbols(symbols []SymbolEntry) []SymbolEntry {
	var out []SymbolEntry
	var walk func(prefix string, entries []SymbolEntry)
	walk = func(prefix string, entries []SymbolEntry) {
		for _, e := range entries {
			name := e.Name
			if prefix != "" {
				name = prefix + "." + e.Name
			}
			out = append(out, SymbolEntry{Name: name, Kind: e.Kind, Span: e.Span})
			walk(name, e.Children)
		}
	}
	walk("", symbols)
	return out
}

// editsByPath converts a workspace edit into per-path editor edits,
// using open-buffer content where available.
func (s *Session) editsByPath(we *protocol.WorkspaceEdit) map[string][]Edit {
	if we == nil {
		return nil
	}
	out := make(map[string][]Edit)

	add := func(uri protocol.DocumentURI, edits []protocol.TextEdit) {
		if len(edits) == 0 {
			return
		}
		path := protocol.URIToFilePath(uri)
		content := ""
		if doc := s.lookupDocument(path); doc != nil {
			content = doc.snapshot()
		}
		if content != "" {
			out[path] = append(out[path], editsFromTextEdits(content, edits)...)
			return
		}
		for _, e := range edits {
			out[path] = append(out[path], Edit{Span: fromProtocolRangeNoContent(e.Range), NewText: e.NewText})
		}
	}

	for uri, edits := range we.Changes {
		add(uri, edits)
	}
	for _, change := range we.DocumentChanges {
		add(change.TextDocument.URI, change.Edits)
	}
	return out
}

// signatureInfo converts signature help into display strings.
func signatureInfo(sh *protocol.SignatureHelp) (SignatureInfo, bool) {
	if sh == nil || len(sh.Signatures) == 0 {
		return SignatureInfo{}, false
	}
	info := SignatureInfo{
		ActiveSignature: sh.ActiveSignature,
		ActiveParameter: sh.ActiveParameter,
	}
	for _, sig := range sh.Signatures {
		label := sig.Label
		if doc := protocol.ExtractDocumentation(sig.Documentation); doc != "" {
			label += "\n" + firstLine(doc)
		}
		info.Signatures = append(info.Signatures, label)
	}
	if info.ActiveSignature >= len(info.Signatures) {
		info.ActiveSignature = 0
	}
	return info, true
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
