package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStore_PutAndOverwrite(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStore(filepath.Join(dir, "remote"))
	defer func() { _ = s.Close() }()

	if err := s.Put(context.Background(), "host-host-0.out", strings.NewReader("first\n"), 6); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(context.Background(), "host-host-0.out", strings.NewReader("second\n"), 7); err != nil {
		t.Fatalf("overwrite put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "remote", "host-host-0.out"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second\n" {
		t.Errorf("content = %q, want %q", data, "second\n")
	}
}

func TestFSStore_PrefixedKeyCreatesSubdir(t *testing.T) {
	dir := t.TempDir()
	s := NewFSStore(dir)

	if err := s.Put(context.Background(), "run7/host-host-2.out", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "run7", "host-host-2.out")); err != nil {
		t.Errorf("expected object under prefix subdir: %v", err)
	}
}
