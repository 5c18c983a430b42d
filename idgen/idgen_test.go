package idgen

import (
	"strings"
	"testing"
)

func TestNanoID_LengthAndAlphabet(t *testing.T) {
	for _, length := range []int{6, 12, 100} {
		id := NanoID(length)()
		if len(id) != length {
			t.Fatalf("NanoID(%d): got length %d", length, len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
				t.Fatalf("NanoID: unexpected character %q in %q", c, id)
			}
		}
	}
}

func TestUUIDv7_SortsByTime(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id <= prev {
			t.Fatalf("UUIDv7: %q not after %q", id, prev)
		}
		prev = id
	}
}

func TestRun(t *testing.T) {
	id := Run()
	if !strings.HasPrefix(id, "run_") {
		t.Fatalf("Run: expected run_ prefix, got %q", id)
	}
	if len(id) != 4+36 {
		t.Fatalf("Run: expected length 40, got %d", len(id))
	}
	got, err := ParseRun(id)
	if err != nil {
		t.Fatalf("ParseRun(%q): %v", id, err)
	}
	if got != id {
		t.Fatalf("ParseRun: got %q, want %q", got, id)
	}
}

func TestParseRun_Invalid(t *testing.T) {
	for _, s := range []string{"", "run_", "run_not-a-uuid", New(), "job_" + New(), "run_../../etc"} {
		if _, err := ParseRun(s); err == nil {
			t.Errorf("ParseRun(%q): expected error", s)
		}
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("trc_", NanoID(8))()
	if !strings.HasPrefix(id, "trc_") || len(id) != 12 {
		t.Fatalf("Prefixed: got %q", id)
	}
}

func TestDefault_IsUUID(t *testing.T) {
	if _, err := Parse(New()); err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("Parse: expected error for invalid UUID")
	}
}
