package session

// The editing surface sees only 1-based coordinates. Line 1 column 1 is
// the first character of a buffer; columns count runes, not bytes.

// Pos is a 1-based editor position.
type Pos struct {
	Line int
	Col  int
}

// Span is a half-open editor region from Start up to but not including End.
type Span struct {
	Start Pos
	End   Pos
}

// MarkerSeverity orders diagnostics from most to least severe.
type MarkerSeverity int

const (
	MarkerError MarkerSeverity = iota + 1
	MarkerWarning
	MarkerInfo
	MarkerHint
)

// String returns a human-readable severity name.
func (s MarkerSeverity) String() string {
	switch s {
	case MarkerError:
		return "error"
	case MarkerWarning:
		return "warning"
	case MarkerInfo:
		return "info"
	case MarkerHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Marker is one diagnostic annotation on a buffer.
type Marker struct {
	Span     Span
	Severity MarkerSeverity
	Message  string
	Source   string
	Code     string
}

// Edit replaces the text in Span with NewText.
type Edit struct {
	Span    Span
	NewText string
}

// Site is a location in some file, open or not.
type Site struct {
	Path string
	Span Span
}

// CompletionEntry is one completion candidate.
type CompletionEntry struct {
	Label         string
	InsertText    string
	Kind          int
	Detail        string
	Documentation string
	IsSnippet     bool
}

// SymbolEntry is one document symbol. Children is non-nil only for
// servers that report hierarchical symbols.
type SymbolEntry struct {
	Name     string
	Kind     int
	Span     Span
	Children []SymbolEntry
}

// SignatureInfo describes the signatures at a call site.
type SignatureInfo struct {
	Signatures      []string
	ActiveSignature int
	ActiveParameter int
}

// ActionEntry is one code action offered for a region.
type ActionEntry struct {
	Title       string
	Kind        string
	IsPreferred bool
	// Edits maps file paths to the edits the action performs. Empty when
	// the action only carries a command the surface cannot run.
	Edits map[string][]Edit
}

// MessageKind classifies a server-initiated message for the surface.
type MessageKind int

const (
	MessageError MessageKind = iota + 1
	MessageWarning
	MessageInfo
	MessageLog
)

// Surface is the narrow contract the editing surface implements. The
// session never renders anything itself; it hands converted results to
// the surface and lets it decide presentation.
//
// Implementations must tolerate calls from the session's read goroutine.
type Surface interface {
	// ShowMessage surfaces a server-initiated message to the user.
	ShowMessage(kind MessageKind, text string)

	// PublishMarkers replaces all markers for the given open buffer.
	// An empty slice clears them.
	PublishMarkers(path string, markers []Marker)

	// ApplyEdits applies edits to the named buffer and reports whether
	// they were applied. Called for server-initiated workspace edits.
	ApplyEdits(path string, edits []Edit) bool

	// OpenFile asks the surface to open the named file ahead of a
	// navigation into it. Opening an already-open file is a no-op.
	OpenFile(path string)
}

// NopSurface discards everything. Used when no surface is attached.
type NopSurface struct{}

func (NopSurface) ShowMessage(MessageKind, string) {}
func (NopSurface) PublishMarkers(string, []Marker) {}
func (NopSurface) ApplyEdits(string, []Edit) bool  { return false }
func (NopSurface) OpenFile(string)                 {}
