package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	got := String()
	if !strings.HasPrefix(got, "cronoapp "+Version) || !strings.Contains(got, Commit) {
		t.Fatalf("String() = %q", got)
	}
}
