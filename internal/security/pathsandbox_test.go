package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveUnderRoot_ValidRelative(t *testing.T) {
	root := t.TempDir()

	got, err := ResolveUnderRoot("runs/exp1", root)
	if err != nil {
		t.Fatalf("valid relative path rejected: %v", err)
	}
	if !strings.HasPrefix(got, root) {
		t.Errorf("resolved path %q not under root %q", got, root)
	}
}

func TestResolveUnderRoot_RootItself(t *testing.T) {
	root := t.TempDir()
	if _, err := ResolveUnderRoot(".", root); err != nil {
		t.Errorf("root itself rejected: %v", err)
	}
}

func TestResolveUnderRoot_Traversal(t *testing.T) {
	root := t.TempDir()

	cases := []string{
		"../outside",
		"a/../../../etc/passwd",
		"runs/../../exp",
		"..",
	}
	for _, candidate := range cases {
		_, err := ResolveUnderRoot(candidate, root)
		if err == nil {
			t.Errorf("traversal %q accepted", candidate)
			continue
		}
		if !strings.Contains(err.Error(), "escapes repo root") {
			t.Errorf("traversal %q: error missing escape diagnostic: %v", candidate, err)
		}
	}
}

func TestResolveUnderRoot_AbsoluteOutside(t *testing.T) {
	root := t.TempDir()
	_, err := ResolveUnderRoot("/etc/passwd", root)
	if err == nil || !strings.Contains(err.Error(), "escapes repo root") {
		t.Errorf("absolute outside path: got %v", err)
	}
}

func TestResolveUnderRoot_AbsoluteInside(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "runs")
	if _, err := ResolveUnderRoot(inside, root); err != nil {
		t.Errorf("absolute inside path rejected: %v", err)
	}
}

func TestResolveUnderRoot_InteriorDotDotStaysInside(t *testing.T) {
	root := t.TempDir()
	got, err := ResolveUnderRoot("runs/../other", root)
	if err != nil {
		t.Fatalf("normalisable interior path rejected: %v", err)
	}
	want := filepath.Join(mustEval(t, root), "other")
	if got != want {
		t.Errorf("resolved to %q, want %q", got, want)
	}
}

func TestResolveUnderRoot_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	// Both the symlink itself and a child under it resolve outside the
	// root and must be rejected.
	if _, err := ResolveUnderRoot("link", root); err == nil {
		t.Error("symlink pointing outside root accepted")
	}
	if _, err := ResolveUnderRoot("link/newdir", root); err == nil {
		t.Error("new path under an escaping symlink accepted")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"k2":            "k2",
		"knock aware!!": "knock_aware",
		"":              "unknown",
		"...":           "unknown",
		"a/b\\c":        "a_b_c",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func mustEval(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}
