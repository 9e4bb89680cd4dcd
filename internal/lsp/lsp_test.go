package lsp

import (
	"testing"
)

func TestAnalyzeCleanDocument(t *testing.T) {
	diags := Analyze("x = 1\nprint(x)\n")
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
}

func TestAnalyzeParseError(t *testing.T) {
	diags := Analyze("if x\n  y = 1\nend if\n")
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].Code != "IP0001" {
		t.Fatalf("code: %s", diags[0].Code)
	}
	if diags[0].Range.Line != 2 {
		t.Fatalf("line: %d", diags[0].Range.Line)
	}
}

func TestAnalyzeLexError(t *testing.T) {
	diags := Analyze("x = @\n")
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].Code != "IL0001" {
		t.Fatalf("code: %s", diags[0].Code)
	}
	if diags[0].Range.Line != 1 || diags[0].Range.Col != 5 {
		t.Fatalf("position %d:%d", diags[0].Range.Line, diags[0].Range.Col)
	}
}

func TestSemanticTokensForText(t *testing.T) {
	toks := SemanticTokensForText(`x = "s" + 1`)

	wantTypes := []int{SemVariable, SemOperator, SemString, SemOperator, SemNumber}
	if len(toks) != len(wantTypes) {
		t.Fatalf("expected %d tokens, got %d (%v)", len(wantTypes), len(toks), toks)
	}
	for i, w := range wantTypes {
		if toks[i].Type != w {
			t.Fatalf("toks[%d] - type %d, expected %d", i, toks[i].Type, w)
		}
	}
}

func TestEncodeSemanticTokensDeltas(t *testing.T) {
	toks := []SemTok{
		{Line: 1, Col: 1, Length: 2, Type: SemKeyword},
		{Line: 1, Col: 4, Length: 1, Type: SemNumber},
		{Line: 3, Col: 2, Length: 5, Type: SemString},
	}
	data := EncodeSemanticTokens(toks)
	want := []uint32{
		0, 0, 2, uint32(SemKeyword), 0,
		0, 3, 1, uint32(SemNumber), 0,
		2, 1, 5, uint32(SemString), 0,
	}
	if len(data) != len(want) {
		t.Fatalf("length %d, expected %d", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("data[%d] = %d, expected %d", i, data[i], want[i])
		}
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Set("file:///a.is", "x = 1")
	if text, ok := s.Get("file:///a.is"); !ok || text != "x = 1" {
		t.Fatalf("got %q %v", text, ok)
	}
	s.Delete("file:///a.is")
	if _, ok := s.Get("file:///a.is"); ok {
		t.Fatal("document should be gone")
	}
}
