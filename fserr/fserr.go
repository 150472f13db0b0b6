// Package fserr defines the error taxonomy shared by every sandboxed
// filesystem operation. All expected failures are returned as *Error values
// carrying a machine-readable Code and a recovery Hint; only unexpected OS
// failures surface as KindIO.
package fserr

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Kind groups error codes into the families callers switch on.
type Kind int

const (
	KindPath Kind = iota
	KindNotFound
	KindNotText
	KindRange
	KindConcurrency
	KindPattern
	KindAmbiguity
	KindInvalidRequest
	KindCancelled
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindNotFound:
		return "not_found"
	case KindNotText:
		return "not_text"
	case KindRange:
		return "range"
	case KindConcurrency:
		return "concurrency"
	case KindPattern:
		return "pattern"
	case KindAmbiguity:
		return "ambiguity"
	case KindInvalidRequest:
		return "invalid_request"
	case KindCancelled:
		return "cancelled"
	default:
		return "io"
	}
}

// Code is the machine-readable identifier reported to callers.
type Code string

const (
	CodeOutOfScope       Code = "OUT_OF_SCOPE"
	CodeTraversal        Code = "TRAVERSAL"
	CodeSymlinkEscape    Code = "SYMLINK_ESCAPE"
	CodeNotFound         Code = "NOT_FOUND"
	CodeNotText          Code = "NOT_TEXT"
	CodeInvalidRange     Code = "INVALID_RANGE"
	CodeChecksumMismatch Code = "CHECKSUM_MISMATCH"
	CodeUnsafePattern    Code = "UNSAFE_PATTERN"
	CodeInvalidPattern   Code = "INVALID_PATTERN"
	CodePatternTimeout   Code = "PATTERN_TIMEOUT"
	CodePatternNotFound  Code = "PATTERN_NOT_FOUND"
	CodeAmbiguous        Code = "AMBIGUOUS"
	CodeIsDirectory      Code = "IS_DIRECTORY"
	CodeNotDirectory     Code = "NOT_DIRECTORY"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeFileTooLarge     Code = "FILE_TOO_LARGE"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeCancelled        Code = "CANCELLED"
	CodeIO               Code = "IO_ERROR"
)

// Error is the structured result for every expected failure.
type Error struct {
	Kind       Kind
	Code       Code
	Message    string
	Hint       string
	Path       string
	Candidates []string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeIO for foreign errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeIO
}

// KindOf returns the kind of err, or KindIO for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindIO
}

func OutOfScope(path string, message string, mountNames []string) *Error {
	hint := "use a virtual path that starts with a mount name"
	if len(mountNames) > 0 {
		hint = fmt.Sprintf("use a virtual path that starts with one of: %s", strings.Join(mountNames, ", "))
	}
	return &Error{Kind: KindPath, Code: CodeOutOfScope, Message: message, Hint: hint, Path: path}
}

func Traversal(path string) *Error {
	return &Error{
		Kind:    KindPath,
		Code:    CodeTraversal,
		Message: fmt.Sprintf("path %q escapes its mount", path),
		Hint:    "remove '..' segments and address the file from its mount name",
		Path:    path,
	}
}

func SymlinkEscape(path string, link string, target string) *Error {
	return &Error{
		Kind:    KindPath,
		Code:    CodeSymlinkEscape,
		Message: fmt.Sprintf("symlink %q points outside the mount (%s)", link, target),
		Hint:    "symlinks leaving a mount cannot be followed; use the target's own mount if it has one",
		Path:    path,
	}
}

func NotFound(path string, suggestions []string) *Error {
	hint := "list the parent directory or use the find tool to locate the file"
	if len(suggestions) > 0 {
		hint = fmt.Sprintf("did you mean: %s", strings.Join(suggestions, ", "))
	}
	return &Error{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s does not exist", path),
		Hint:       hint,
		Path:       path,
		Candidates: suggestions,
	}
}

func NotText(path string) *Error {
	return &Error{
		Kind:    KindNotText,
		Code:    CodeNotText,
		Message: fmt.Sprintf("%s is not a text file", path),
		Hint:    "binary files cannot be read or edited through this interface",
		Path:    path,
	}
}

func InvalidRange(message string) *Error {
	return &Error{
		Kind:    KindRange,
		Code:    CodeInvalidRange,
		Message: message,
		Hint:    `use "N" or "N-M" with 1 <= N <= M and N within the file`,
	}
}

func ChecksumMismatch(path string, expected string, actual string) *Error {
	return &Error{
		Kind:    KindConcurrency,
		Code:    CodeChecksumMismatch,
		Message: fmt.Sprintf("%s changed since it was read (expected checksum %s, current %s)", path, expected, actual),
		Hint:    "re-read the file and retry with the new checksum",
		Path:    path,
	}
}

func UnsafePattern(reason string) *Error {
	return &Error{
		Kind:    KindPattern,
		Code:    CodeUnsafePattern,
		Message: fmt.Sprintf("pattern rejected: %s", reason),
		Hint:    "simplify the expression (avoid nested quantifiers and long alternations) or use literal/fuzzy mode",
	}
}

func InvalidPattern(err error) *Error {
	return &Error{
		Kind:    KindPattern,
		Code:    CodeInvalidPattern,
		Message: "pattern does not compile",
		Hint:    "check the regular expression syntax or switch to literal mode",
		Err:     err,
	}
}

func PatternTimeout(err error) *Error {
	return &Error{
		Kind:    KindPattern,
		Code:    CodePatternTimeout,
		Message: "pattern matching exceeded its time limit",
		Hint:    "narrow the pattern or search a smaller set of files",
		Err:     err,
	}
}

func PatternNotFound(path string, pattern string) *Error {
	return &Error{
		Kind:    KindPattern,
		Code:    CodePatternNotFound,
		Message: fmt.Sprintf("pattern %q does not occur in %s", pattern, path),
		Hint:    "re-read the file; try fuzzy mode if whitespace may differ",
		Path:    path,
	}
}

func Ambiguous(path string, message string, candidates []string) *Error {
	return &Error{
		Kind:       KindAmbiguity,
		Code:       CodeAmbiguous,
		Message:    message,
		Hint:       "make the target unique: extend the pattern, use a line range, or pick one of the candidates",
		Path:       path,
		Candidates: candidates,
	}
}

func IsDirectory(path string) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Code:    CodeIsDirectory,
		Message: fmt.Sprintf("%s is a directory", path),
		Hint:    "supply recursive=true to search a directory, or use the list tool",
		Path:    path,
	}
}

func NotDirectory(path string) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Code:    CodeNotDirectory,
		Message: fmt.Sprintf("%s is not a directory", path),
		Hint:    "use the read tool for files",
		Path:    path,
	}
}

func InvalidArgument(message string, hint string) *Error {
	return &Error{Kind: KindInvalidRequest, Code: CodeInvalidArgument, Message: message, Hint: hint}
}

func FileTooLarge(path string, size int64, limit int64) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Code:    CodeFileTooLarge,
		Message: fmt.Sprintf("%s is %d bytes, above the %d byte limit", path, size, limit),
		Hint:    "raise max_file_size in the server configuration to work with this file",
		Path:    path,
	}
}

func AlreadyExists(path string) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Code:    CodeAlreadyExists,
		Message: fmt.Sprintf("%s already exists", path),
		Hint:    "pass the file's current checksum or overwrite=true to replace it",
		Path:    path,
	}
}

func Cancelled(err error) *Error {
	return &Error{
		Kind:    KindCancelled,
		Code:    CodeCancelled,
		Message: "operation cancelled",
		Hint:    "retry the request; partial results were discarded",
		Err:     err,
	}
}

// IO wraps an unexpected operating system failure.
func IO(op string, path string, err error) *Error {
	return &Error{
		Kind:    KindIO,
		Code:    CodeIO,
		Message: fmt.Sprintf("%s %s failed", op, path),
		Hint:    "check permissions and disk state on the host",
		Path:    path,
		Err:     err,
	}
}

// FromOS maps an os-level error onto the taxonomy.
func FromOS(op string, path string, err error) *Error {
	if e, ok := As(err); ok {
		return e
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NotFound(path, nil)
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists(path)
	default:
		return IO(op, path, err)
	}
}
