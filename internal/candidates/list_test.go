package candidates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write wordlist: %v", err)
	}
	return path
}

func TestListSource_OrderAndTotal(t *testing.T) {
	path := writeList(t, "www\nmail\nbogus\n")
	s, err := NewListSource(path)
	if err != nil {
		t.Fatalf("NewListSource: %v", err)
	}
	defer s.Close()

	if s.Total() != 3 {
		t.Fatalf("Total=%d want 3", s.Total())
	}
	got := drain(s)
	want := []string{"www", "mail", "bogus"}
	if len(got) != len(want) {
		t.Fatalf("yielded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("label %d = %q, want %q", i, got[i], want[i])
		}
	}
	if s.Err() != nil {
		t.Fatalf("unexpected err: %v", s.Err())
	}
}

func TestListSource_CRLFAndMissingTrailingNewline(t *testing.T) {
	path := writeList(t, "api\r\ndev\r\nstage")
	s, err := NewListSource(path)
	if err != nil {
		t.Fatalf("NewListSource: %v", err)
	}
	defer s.Close()

	got := drain(s)
	if strings.Join(got, ",") != "api,dev,stage" {
		t.Fatalf("got %v", got)
	}
	if uint64(len(got)) != s.Total() {
		t.Fatalf("yielded %d, Total says %d", len(got), s.Total())
	}
}

func TestListSource_EmptyLinesAreCounted(t *testing.T) {
	path := writeList(t, "one\n\ntwo\n")
	s, err := NewListSource(path)
	if err != nil {
		t.Fatalf("NewListSource: %v", err)
	}
	defer s.Close()

	if s.Total() != 3 {
		t.Fatalf("Total=%d want 3", s.Total())
	}
	got := drain(s)
	if len(got) != 3 || got[1] != "" {
		t.Fatalf("got %q", got)
	}
}

func TestListSource_MissingFile(t *testing.T) {
	if _, err := NewListSource(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error for missing wordlist")
	}
}
