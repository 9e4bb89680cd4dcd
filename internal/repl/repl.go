// Package repl provides the interactive loop. Lines accumulate until every
// block construct has met its closing marker, then the buffer runs against a
// persistent evaluator so bindings survive between inputs.
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"itmoscript/internal/evaluator"
	"itmoscript/internal/lexer"
	"itmoscript/internal/object"
	"itmoscript/internal/parser"
	"itmoscript/internal/token"
)

const (
	prompt1 = "itmo> "
	prompt2 = "....> "
)

func Start(out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt1,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(out, "ITMOScript REPL (Ctrl+D to exit)")

	in := evaluator.New(out)
	var buf strings.Builder

	for {
		if buf.Len() == 0 {
			rl.SetPrompt(prompt1)
		} else {
			rl.SetPrompt(prompt2)
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buf.Reset()
			continue
		}
		if err != nil {
			fmt.Fprintln(out)
			return nil
		}

		trim := strings.TrimSpace(line)
		if buf.Len() == 0 && (trim == "exit" || trim == "quit") {
			return nil
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		if BlockDepth(buf.String()) > 0 {
			continue
		}

		src := buf.String()
		buf.Reset()
		if strings.TrimSpace(src) == "" {
			continue
		}

		runLine(in, src, out)
	}
}

func runLine(in *evaluator.Interp, src string, out io.Writer) {
	tokens, err := lexer.New(src).Tokenize()
	if err != nil {
		fmt.Fprintf(out, "Runtime error (specific): %s\n", err)
		return
	}

	p := parser.New(tokens)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		fmt.Fprintf(out, "Runtime error (specific): %s\n", errs[0])
		return
	}

	result := in.Run(program)
	if errObj, isErr := result.(*object.Error); isErr {
		fmt.Fprintf(out, "Runtime error (specific): %s\n", errObj.Message)
		return
	}
	if result != nil && result.Type() != object.NIL_OBJ {
		fmt.Fprintln(out, result.Inspect())
	}
}

// BlockDepth counts opened composite constructs minus their 'end X' closers.
// A buffer with a positive depth is still mid-block and keeps accumulating.
// The construct keyword in a closer ('end if') and the 'if' of an 'else if'
// branch do not open anything.
func BlockDepth(src string) int {
	tokens, err := lexer.New(src).Tokenize()
	if err != nil {
		// Let the evaluation path report the lexical error.
		return 0
	}

	depth := 0
	var prev token.Token
	for _, tok := range tokens {
		if tok.Kind != token.KEYWORD {
			prev = tok
			continue
		}
		switch tok.Literal {
		case "if":
			if !prev.IsKeyword("end") && !prev.IsKeyword("else") {
				depth++
			}
		case "while", "for", "function":
			if !prev.IsKeyword("end") {
				depth++
			}
		case "end":
			depth--
		}
		prev = tok
	}
	if depth < 0 {
		return 0
	}
	return depth
}
