package safeio

import (
	"os"
	"path/filepath"
	"testing"
)

func newRoot(t *testing.T) (string, *SafeFS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewSafeFS(dir)
	if err != nil {
		t.Fatalf("NewSafeFS: %v", err)
	}
	return fs.Root(), fs
}

func TestSafeReadFileRelativeAndAbsolute(t *testing.T) {
	dir, fs := newRoot(t)
	p := filepath.Join(dir, "pack.yaml")
	if err := os.WriteFile(p, []byte("packs: []"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := fs.SafeReadFile("pack.yaml"); err != nil {
		t.Fatalf("relative read: %v", err)
	}
	if _, err := fs.SafeReadFile(p); err != nil {
		t.Fatalf("absolute read under root: %v", err)
	}
}

func TestSafeReadFileRejectsTraversal(t *testing.T) {
	_, fs := newRoot(t)
	if _, err := fs.SafeReadFile(filepath.Join("..", "outside.yaml")); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestSafeReadFileRejectsSymlinkEscape(t *testing.T) {
	dir, fs := newRoot(t)
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.yaml")
	if err := os.WriteFile(target, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(dir, "link.yaml")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := fs.SafeReadFile("link.yaml"); err == nil {
		t.Fatal("expected symlink escape to be rejected")
	}
}

func TestSafeReadDirRejectsFile(t *testing.T) {
	dir, fs := newRoot(t)
	p := filepath.Join(dir, "pack.yaml")
	if err := os.WriteFile(p, []byte("packs: []"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := fs.SafeReadDir("pack.yaml"); err == nil {
		t.Fatal("expected error listing a regular file")
	}
}
