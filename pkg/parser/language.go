package parser

import (
	"path/filepath"
	"strings"
)

// Language is a grammar a theme config file can be written in.
type Language int

const (
	// LanguageTypeScript covers tailwind.config.ts and its .mts/.cts variants.
	LanguageTypeScript Language = iota
	// LanguageJavaScript covers .js, .mjs and .cjs configs.
	LanguageJavaScript
	// LanguageUnknown is any other extension.
	LanguageUnknown
)

// String returns the string representation of the language.
func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// DetectLanguage detects the config language from a file path.
// Returns LanguageUnknown if the file extension is not recognized.
func DetectLanguage(filePath string) Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	case ".js", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// IsScript reports whether path is a JavaScript or TypeScript file.
func IsScript(filePath string) bool {
	return DetectLanguage(filePath) != LanguageUnknown
}

// SupportedLanguages returns a list of all supported languages.
func SupportedLanguages() []Language {
	return []Language{
		LanguageTypeScript,
		LanguageJavaScript,
	}
}
