package protocol

import (
	"path/filepath"
	"strings"
)

// languageByExtension maps file extensions to protocol language ids.
var languageByExtension = map[string]string{
	".go":     "go",
	".rs":     "rust",
	".ts":     "typescript",
	".tsx":    "typescriptreact",
	".js":     "javascript",
	".jsx":    "javascriptreact",
	".py":     "python",
	".rb":     "ruby",
	".java":   "java",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".cc":     "cpp",
	".cxx":    "cpp",
	".hpp":    "cpp",
	".cs":     "csharp",
	".swift":  "swift",
	".kt":     "kotlin",
	".kts":    "kotlin",
	".scala":  "scala",
	".php":    "php",
	".lua":    "lua",
	".zig":    "zig",
	".ex":     "elixir",
	".exs":    "elixir",
	".hs":     "haskell",
	".ml":     "ocaml",
	".sh":     "shellscript",
	".bash":   "shellscript",
	".json":   "json",
	".yaml":   "yaml",
	".yml":    "yaml",
	".toml":   "toml",
	".md":     "markdown",
	".html":   "html",
	".css":    "css",
	".sql":    "sql",
	".proto":  "protobuf",
	".tf":     "terraform",
	".vue":    "vue",
	".svelte": "svelte",
}

// DetectLanguageID returns the protocol language id for a file path, or
// the empty string when the extension is unknown.
func DetectLanguageID(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return languageByExtension[ext]
}
