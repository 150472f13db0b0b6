package language

import "unicode/utf8"

// sniffLength is how much of a file is inspected to classify it.
const sniffLength = 8000

// IsBinaryContent reports whether data looks like binary content: a NUL byte
// in the sniffed prefix, or a prefix that is not valid UTF-8 once a possibly
// truncated trailing rune is discounted.
func IsBinaryContent(data []byte) bool {
	sample := data
	if len(sample) > sniffLength {
		sample = sample[:sniffLength]
	}
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	if utf8.Valid(sample) {
		return false
	}
	// the cut at sniffLength may split a multi-byte rune
	if len(data) > sniffLength {
		for trim := 1; trim < utf8.UTFMax && trim < len(sample); trim++ {
			if utf8.Valid(sample[:len(sample)-trim]) {
				return false
			}
		}
	}
	return true
}
