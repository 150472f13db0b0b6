package pattern

import (
	"fmt"
	"sort"
	"strings"
)

// Preset is a named regex for a common structural idiom in text documents.
type Preset struct {
	Name        string
	Description string
	Expr        string
}

var presets = map[string]Preset{
	"heading": {
		Name:        "heading",
		Description: "Markdown ATX headings (# Title)",
		Expr:        `^#{1,6}[ \t]+.+$`,
	},
	"list_item": {
		Name:        "list_item",
		Description: "bulleted or numbered list items",
		Expr:        `^[ \t]*(?:[-*+]|\d{1,9}[.)])[ \t]+.+$`,
	},
	"checklist": {
		Name:        "checklist",
		Description: "checklist items, open or done (- [ ] / - [x])",
		Expr:        `^[ \t]*[-*+][ \t]+\[[ xX]\].*$`,
	},
	"checklist_open": {
		Name:        "checklist_open",
		Description: "open checklist items (- [ ])",
		Expr:        `^[ \t]*[-*+][ \t]+\[ \].*$`,
	},
	"checklist_done": {
		Name:        "checklist_done",
		Description: "completed checklist items (- [x])",
		Expr:        `^[ \t]*[-*+][ \t]+\[[xX]\].*$`,
	},
	"tag": {
		Name:        "tag",
		Description: "inline hashtags (#project/alpha)",
		Expr:        `(?<![\w&#/])#[A-Za-z][\w/-]*`,
	},
	"html_tag": {
		Name:        "html_tag",
		Description: "HTML or XML opening, closing and self-closing tags",
		Expr:        `</?[A-Za-z][A-Za-z0-9:-]*(?:\s[^<>]*)?/?>`,
	},
	"code_block": {
		Name:        "code_block",
		Description: "fenced code blocks (``` or ~~~)",
		Expr:        "^(```|~~~)[^\\n]*\\n[\\s\\S]*?^\\1[ \\t]*$",
	},
	"front_matter": {
		Name:        "front_matter",
		Description: "YAML front matter at the start of a document",
		Expr:        `\A---[ \t]*\r?\n[\s\S]*?^---[ \t]*\r?$`,
	},
	"wikilink": {
		Name:        "wikilink",
		Description: "wiki-style cross references ([[Page]] or [[Page|alias]])",
		Expr:        `\[\[[^\[\]\n]+\]\]`,
	},
	"md_link": {
		Name:        "md_link",
		Description: "Markdown links and images ([text](target))",
		Expr:        `!?\[[^\[\]\n]*\]\([^()\s]+(?:[ \t]+"[^"\n]*")?\)`,
	},
}

// LookupPreset returns the preset registered under name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames lists every preset name in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
