// Package path implements the virtual path conventions used by the catalog.
//
// Virtual paths are the client-facing directory strings, decoupled from the
// physical blob layout. A normalized path always starts with "/" and ends
// with "/" ("/" alone denotes the root). Normalization never fails: input
// that cannot be sanitized falls back to the root. The fallback is
// deliberate — path normalization degrades a request instead of rejecting
// it, and callers rely on that.
package path

import (
	gopath "path"
	"strings"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
)

// MaxDepth is the maximum number of directory segments a virtual path may
// carry. Deeper paths are truncated silently (a warning is logged).
const MaxDepth = 10

// Root is the normalized root path.
const Root = "/"

// Part is one breadcrumb element of a virtual path.
type Part struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Normalize sanitizes a raw client path into canonical form.
//
// Rules, applied in order: backslashes become "/"; "." and ".." segments
// are collapsed lexically against the root (a rooted path can never escape
// upward); repeated slashes collapse; the result carries a single leading
// "/" and a trailing "/" unless it is the root. Depth is capped at
// MaxDepth segments. Input that is still unsafe after sanitizing (control
// characters, NUL, ".." embedded in a segment name) falls back to the root.
//
// Normalize is idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(raw string) string {
	if raw == "" || raw == Root {
		return Root
	}

	sanitized := sanitize(raw)
	if !Valid(sanitized) {
		logger.Warn("invalid virtual path, falling back to root", "path", raw)
		return Root
	}

	parts := splitSegments(sanitized)
	if len(parts) == 0 {
		return Root
	}

	if len(parts) > MaxDepth {
		logger.Warn("virtual path too deep, truncating", "path", raw, "depth", len(parts))
		parts = parts[:MaxDepth]
	}

	return Root + strings.Join(parts, "/") + "/"
}

// sanitize applies the character-level rewriting rules without validating.
func sanitize(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")

	// Rooted Clean collapses "." and ".." segments and repeated slashes;
	// leading ".." tokens cannot climb above "/".
	return gopath.Clean("/" + p)
}

// Valid reports whether a path is safe to use. It rejects control
// characters, NUL bytes and any remaining ".." sequences (after
// sanitizing, those can only come from segment names like "a..b", which
// the catalog does not accept in paths). The empty string is valid — it
// denotes the root.
func Valid(p string) bool {
	if p == "" {
		return true
	}
	if strings.Contains(p, "..") {
		return false
	}
	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}

// Parts breaks a path into breadcrumb elements, starting with the synthetic
// "Home" root entry. Each element's Path is the normalized path of that
// directory, suitable for listing requests and for validating move and
// rename destinations.
func Parts(p string) []Part {
	normalized := Normalize(p)

	parts := []Part{{Name: "Home", Path: Root}}
	if normalized == Root {
		return parts
	}

	current := ""
	for _, seg := range splitSegments(normalized) {
		current += "/" + seg
		parts = append(parts, Part{Name: seg, Path: current + "/"})
	}
	return parts
}

// Join concatenates path fragments and normalizes the result.
func Join(parts ...string) string {
	return Normalize(strings.Join(parts, "/"))
}

// Parent returns the normalized parent directory of p. The parent of the
// root is the root.
func Parent(p string) string {
	normalized := Normalize(p)
	if normalized == Root {
		return Root
	}

	segs := splitSegments(normalized)
	segs = segs[:len(segs)-1]
	if len(segs) == 0 {
		return Root
	}
	return Root + strings.Join(segs, "/") + "/"
}

// Base returns the last segment of p, or "" for the root.
func Base(p string) string {
	normalized := Normalize(p)
	if normalized == Root {
		return ""
	}
	segs := splitSegments(normalized)
	return segs[len(segs)-1]
}

// IsNested reports whether child lies strictly under parent (any depth).
func IsNested(parent, child string) bool {
	parent = Normalize(parent)
	child = Normalize(child)
	return child != parent && strings.HasPrefix(child, parent)
}

func splitSegments(p string) []string {
	raw := strings.Split(p, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
