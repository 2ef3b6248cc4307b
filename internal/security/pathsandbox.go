// Package security provides the filesystem sandbox used by the
// experiment runner. Output paths supplied by callers are resolved and
// contained under the project root; traversal outside it is a security
// violation, never a warning.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveUnderRoot resolves candidate relative to root, normalises any
// "." and ".." segments, and returns the absolute path. It fails when
// the resolved path is not the root itself or a descendant of it.
// Symlinks in both root and candidate are resolved before the
// containment check so a link pointing outside the root cannot be used
// as an escape hatch.
func ResolveUnderRoot(candidate, root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	canonRoot, err := canonicalise(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolve root symlinks: %w", err)
	}

	abs := filepath.Clean(candidate)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(canonRoot, abs)
	}
	canon, err := canonicalise(abs)
	if err != nil {
		return "", fmt.Errorf("resolve candidate symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonRoot, canon)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q escapes repo root %q", candidate, root)
	}
	return canon, nil
}

// canonicalise resolves symlinks for as much of the path as exists.
// For a not-yet-created path the deepest existing ancestor is resolved
// and the remaining segments are rejoined, which blocks attacks of the
// form existing-symlink/new-dir where the symlink points outside the
// root.
func canonicalise(abs string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	check := abs
	for {
		parent := filepath.Dir(check)
		if parent == check {
			// Reached the filesystem root without an existing ancestor.
			return abs, nil
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, err := filepath.Rel(parent, abs)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rel), nil
		}
		check = parent
	}
}

// SanitizeFilename makes a safe filename from an arbitrary identifier,
// for embedding kernel ids into artifact names. Characters outside
// ASCII letters, digits, dot, underscore and dash become underscores;
// runs of underscores collapse and the result is length-capped.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
