package candidates

import (
	"strings"
	"testing"
)

func TestRandomLabel(t *testing.T) {
	for i := 0; i < 50; i++ {
		label := RandomLabel(6)
		if len(label) != 6 {
			t.Fatalf("length %d, want 6", len(label))
		}
		for _, c := range label {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("label %q contains %q outside the alphabet", label, c)
			}
		}
	}
}
