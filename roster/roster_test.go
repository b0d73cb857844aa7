package roster

import (
	"strings"
	"testing"
)

func TestParseWithHeader(t *testing.T) {
	in := "name,club\nAlice,Boulder Club\nBob,\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Alice" || got[0].Club != "Boulder Club" || got[1].Club != "" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseWithoutHeader(t *testing.T) {
	in := "Alice,Boulder Club\nBob,Other Club\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 competitors, got %d", len(got))
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	in := "Alice,A\nalice,B\n"
	if _, err := Parse(strings.NewReader(in)); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty roster")
	}
}
