package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if u.Version() != 7 {
		t.Fatalf("version = %d, want 7", u.Version())
	}
}

func TestUUIDv7_Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool, 1000)
	for range 1000 {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestShort(t *testing.T) {
	id := Short(6)()
	if len(id) != 6 {
		t.Fatalf("len = %d, want 6", len(id))
	}
	if strings.Trim(id, "0123456789abcdef") != "" {
		t.Fatalf("non-hex id %q", id)
	}
	if len(Short(40)()) != 12 {
		t.Fatal("length not capped at 12")
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("run_", func() string { return "x" })
	if got := gen(); got != "run_x" {
		t.Fatalf("got %q", got)
	}
}

func TestDefault_IsUUIDv7(t *testing.T) {
	u, err := uuid.Parse(Default())
	if err != nil {
		t.Fatal(err)
	}
	if u.Version() != 7 {
		t.Fatalf("version = %d", u.Version())
	}
}
