package pattern

import "testing"

func TestParseDefaultIsNameFuzzy(t *testing.T) {
	p, err := Parse("main")
	if err != nil {
		t.Fatal(err)
	}
	if p.Score("main.go", "cmd/main.go") == 0 {
		t.Fatalf("expected fuzzy name match")
	}
}

func TestParseAndOr(t *testing.T) {
	p, err := Parse("n/main and n/go")
	if err != nil {
		t.Fatal(err)
	}
	if p.Score("main.go", "cmd/main.go") == 0 {
		t.Fatalf("expected both atoms to match")
	}
	if p.Score("other.go", "cmd/other.go") != 0 {
		t.Fatalf("expected mismatch on first atom to fail the and")
	}
}

func TestParseNot(t *testing.T) {
	p, err := Parse("not n/test")
	if err != nil {
		t.Fatal(err)
	}
	if p.Score("test.go", "test.go") != 0 {
		t.Fatalf("expected not to exclude a match")
	}
	if p.Score("main.go", "main.go") == 0 {
		t.Fatalf("expected not to keep a non-match")
	}
}

func TestParseRegexLiteral(t *testing.T) {
	p, err := Parse("n/^main\\.go$/")
	if err != nil {
		t.Fatal(err)
	}
	if p.Score("main.go", "main.go") == 0 {
		t.Fatalf("expected regex match")
	}
	if p.Score("mainx.go", "mainx.go") != 0 {
		t.Fatalf("expected anchored regex to reject suffix")
	}
}

func TestOverridePrefixes(t *testing.T) {
	if err := OverridePrefixes(map[string]string{"x": "path-exact"}); err != nil {
		t.Fatal(err)
	}
	defer delete(Prefixes, "x")
	p, err := Parse("x/lib")
	if err != nil {
		t.Fatal(err)
	}
	if p.Score("other", "path/lib/a") == 0 {
		t.Fatal("expected the overridden prefix to select path-exact matching")
	}
	if err := OverridePrefixes(map[string]string{"y": "nope"}); err == nil {
		t.Fatal("expected an unknown mode to be rejected")
	}
}

func TestParseEmptyIsNone(t *testing.T) {
	p, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if HasRealScore(p) {
		t.Fatalf("expected Parse(\"\") to be the None pattern")
	}
}
