package lsp

import (
	"sort"

	"itmoscript/internal/lexer"
	"itmoscript/internal/token"
)

// Semantic token type indices, matching the legend the server advertises.
const (
	SemKeyword = iota
	SemString
	SemNumber
	SemOperator
	SemVariable
)

type SemTok struct {
	Line   int // 1-based
	Col    int // 1-based
	Length int
	Type   int
	Mods   int
}

// SemanticTokensForText classifies the raw token stream. A document that
// fails to lex yields whatever tokens were produced before the error.
func SemanticTokensForText(text string) []SemTok {
	lx := lexer.New(text)
	tokens, _ := lx.Tokenize()

	var out []SemTok
	for _, tok := range tokens {
		var typ int
		length := len(tok.Literal)
		switch tok.Kind {
		case token.KEYWORD:
			typ = SemKeyword
		case token.STRING:
			typ = SemString
			// Literal holds the decoded text; highlight at least the quotes.
			length += 2
		case token.NUMBER:
			typ = SemNumber
		case token.OPERATOR:
			typ = SemOperator
		case token.IDENT:
			typ = SemVariable
		default:
			continue
		}
		if length <= 0 {
			continue
		}
		out = append(out, SemTok{Line: tok.Line, Col: tok.Col, Length: length, Type: typ})
	}
	return out
}

// EncodeSemanticTokens packs tokens in the LSP delta encoding.
func EncodeSemanticTokens(toks []SemTok) []uint32 {
	sort.Slice(toks, func(i, j int) bool {
		if toks[i].Line != toks[j].Line {
			return toks[i].Line < toks[j].Line
		}
		return toks[i].Col < toks[j].Col
	})

	var data []uint32
	prevLine := 1
	prevCol := 1

	for _, t := range toks {
		line0 := t.Line - 1
		col0 := t.Col - 1

		prevLine0 := prevLine - 1
		prevCol0 := prevCol - 1

		deltaLine := line0 - prevLine0
		deltaStart := col0
		if deltaLine == 0 {
			deltaStart = col0 - prevCol0
		}

		if t.Length <= 0 {
			continue
		}

		data = append(data,
			uint32(deltaLine),
			uint32(deltaStart),
			uint32(t.Length),
			uint32(t.Type),
			uint32(t.Mods),
		)

		prevLine = t.Line
		prevCol = t.Col
	}

	return data
}
