package language

import (
	"path/filepath"
	"strings"
)

// ExtensionToLanguage maps file extensions (without dot) to language names.
var ExtensionToLanguage = map[string]string{
	// Go
	"go": "Go",
	// JavaScript / TypeScript
	"js": "JavaScript", "jsx": "JavaScript", "mjs": "JavaScript", "cjs": "JavaScript",
	"ts": "TypeScript", "tsx": "TypeScript", "mts": "TypeScript", "cts": "TypeScript",
	// Python
	"py": "Python", "pyi": "Python", "pyw": "Python",
	// Rust
	"rs": "Rust",
	// Java / Kotlin
	"java": "Java", "kt": "Kotlin", "kts": "Kotlin",
	// C / C++
	"c": "C", "h": "C",
	"cpp": "C++", "cc": "C++", "cxx": "C++", "hpp": "C++", "hxx": "C++",
	// C#
	"cs": "C#", "csx": "C#",
	// Swift
	"swift": "Swift",
	// Dart
	"dart": "Dart",
	// Ruby
	"rb": "Ruby", "erb": "Ruby",
	// PHP
	"php": "PHP",
	// Shell
	"sh": "Shell", "bash": "Shell", "zsh": "Shell", "fish": "Shell",
	"ps1": "PowerShell", "psm1": "PowerShell", "psd1": "PowerShell",
	// Web
	"html": "HTML", "htm": "HTML",
	"css": "CSS", "scss": "SCSS", "sass": "Sass", "less": "Less",
	// Data / Config
	"json": "JSON", "jsonc": "JSON",
	"yaml": "YAML", "yml": "YAML",
	"toml": "TOML",
	"xml": "XML", "xsl": "XML", "xslt": "XML",
	"ini": "INI",
	"env": "Env",
	"properties": "Properties",
	// Markup
	"md": "Markdown", "mdx": "Markdown",
	"rst": "reStructuredText",
	"tex": "LaTeX",
	// SQL
	"sql": "SQL",
	// GraphQL
	"graphql": "GraphQL", "gql": "GraphQL",
	// Protocol Buffers
	"proto": "Protobuf",
	// Docker
	"dockerfile": "Dockerfile",
	// Terraform
	"tf": "Terraform", "tfvars": "Terraform",
	// Lua
	"lua": "Lua",
	// R
	"r": "R", "rmd": "R",
	// Scala
	"scala": "Scala",
	// Elixir / Erlang
	"ex": "Elixir", "exs": "Elixir",
	"erl": "Erlang", "hrl": "Erlang",
	// Haskell
	"hs": "Haskell",
	// Zig
	"zig": "Zig",
	// Vue / Svelte
	"vue": "Vue", "svelte": "Svelte",
	// Misc
	"txt": "Text",
	"csv": "CSV",
	"svg": "SVG",
	"bat": "Batch", "cmd": "Batch",
	"makefile": "Makefile",
	"cmake": "CMake",
	"gradle": "Gradle",
}

// affinityLanguages are the languages whose files an agent most often
// navigates to. Entries with these extensions receive the small ranking bonus
// used to break ties between otherwise equal fuzzy matches.
var affinityLanguages = map[string]bool{
	"Go": true, "JavaScript": true, "TypeScript": true, "Python": true, "Rust": true,
	"Java": true, "Kotlin": true, "C": true, "C++": true, "C#": true, "Ruby": true,
	"PHP": true, "Swift": true, "Markdown": true, "JSON": true, "YAML": true, "TOML": true,
	"HTML": true, "CSS": true, "SQL": true, "Shell": true, "Vue": true, "Svelte": true,
}

// DetectLanguage returns the language for a file path from its extension, or
// from well-known extensionless names. Returns "Unknown" otherwise.
func DetectLanguage(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if ext == "" {
		return detectByName(strings.ToLower(filepath.Base(filePath)))
	}
	if lang, ok := ExtensionToLanguage[ext]; ok {
		return lang
	}
	// dotfiles such as .gitignore have their whole name as "extension"
	return detectByName(strings.ToLower(filepath.Base(filePath)))
}

// HasAffinity reports whether ext (lower case, no dot) belongs to a
// frequently edited source or document language.
func HasAffinity(ext string) bool {
	lang, ok := ExtensionToLanguage[ext]
	return ok && affinityLanguages[lang]
}

func detectByName(base string) string {
	switch base {
	case "makefile", "gnumakefile":
		return "Makefile"
	case "dockerfile", "containerfile":
		return "Dockerfile"
	case "gemfile", "rakefile":
		return "Ruby"
	case ".gitignore", ".gitattributes", ".ignore":
		return "Git Config"
	case ".env", ".env.local", ".env.example":
		return "Env"
	case "license", "readme", "authors":
		return "Text"
	}
	return "Unknown"
}
