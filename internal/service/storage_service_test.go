package service

import (
	"context"
	"examprep_backend/internal/config"
	"sort"
	"strings"
	"testing"
)

func newLocalStorage(t *testing.T, publicBase string) *StorageService {
	t.Helper()
	cfg := &config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir(), PublicBaseURL: publicBase}}
	return NewStorageService(cfg)
}

func TestLocalStorageUploadListRemove(t *testing.T) {
	s := newLocalStorage(t, "")
	ctx := context.Background()

	for _, key := range []string{"subjects/1/a.pdf", "subjects/1/b.pdf", "subjects/2/c.pdf"} {
		if err := s.Upload(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := s.List(ctx, "subjects/1/")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "subjects/1/a.pdf" || keys[1] != "subjects/1/b.pdf" {
		t.Fatalf("keys = %v", keys)
	}

	n, err := s.RemovePrefix(ctx, "subjects/1/", "subjects/1/b.pdf")
	if err != nil || n != 1 {
		t.Fatalf("RemovePrefix removed %d, err %v", n, err)
	}
	keys, _ = s.List(ctx, "subjects/1/")
	if len(keys) != 1 || keys[0] != "subjects/1/b.pdf" {
		t.Fatalf("after cleanup keys = %v", keys)
	}

	if keys, err := s.List(ctx, "subjects/99/"); err != nil || len(keys) != 0 {
		t.Fatalf("missing prefix: %v %v", keys, err)
	}
	if err := s.Remove(ctx, "subjects/1/missing.pdf"); err != nil {
		t.Fatalf("removing a missing file: %v", err)
	}
}

func TestStoragePublicURL(t *testing.T) {
	if got := newLocalStorage(t, "").PublicURL("subjects/1/a.pdf"); got != "/uploads/subjects/1/a.pdf" {
		t.Fatalf("local url = %q", got)
	}
	if got := newLocalStorage(t, "https://cdn.example.com/").PublicURL("subjects/1/a.pdf"); got != "https://cdn.example.com/subjects/1/a.pdf" {
		t.Fatalf("public base url = %q", got)
	}
	if got := newLocalStorage(t, "").PublicURL(""); got != "" {
		t.Fatalf("empty key = %q", got)
	}
}
