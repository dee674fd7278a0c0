package domain

import (
	"path"
	"strings"
)

var languageByExt = map[string]string{
	".dart": "dart",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".cpp":  "cpp",
	".c":    "c",
	".cs":   "csharp",
	".go":   "go",
	".rs":   "rust",
	".kt":   "kotlin",
	".rb":   "ruby",
	".sql":  "sql",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

const LanguageUnknown = "unknown"

// LanguageOf maps a file path onto a language name by extension.
func LanguageOf(p string) string {
	if lang, ok := languageByExt[strings.ToLower(path.Ext(p))]; ok {
		return lang
	}
	return LanguageUnknown
}
