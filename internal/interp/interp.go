// Package interp composes the lexer, parser and evaluator into the single
// operation the interpreter exposes: run a source stream against an output
// sink.
package interp

import (
	"fmt"
	"io"

	"itmoscript/internal/evaluator"
	"itmoscript/internal/lexer"
	"itmoscript/internal/object"
	"itmoscript/internal/parser"
)

// Interpret reads a whole ITMOScript program from input and executes it.
// Everything the program prints appears on output. On failure the sink
// carries a single diagnostic line and the result is false.
func Interpret(input io.Reader, output io.Writer) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(output, "Runtime error (generic): %v\n", r)
			ok = false
		}
	}()

	src, err := io.ReadAll(input)
	if err != nil {
		fmt.Fprintf(output, "Runtime error (generic): %s\n", err)
		return false
	}

	tokens, err := lexer.New(string(src)).Tokenize()
	if err != nil {
		fmt.Fprintf(output, "Runtime error (specific): %s\n", err)
		return false
	}

	p := parser.New(tokens)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		fmt.Fprintf(output, "Runtime error (specific): %s\n", errs[0])
		return false
	}

	in := evaluator.New(output)
	result := in.Run(program)
	if errObj, isErr := result.(*object.Error); isErr {
		fmt.Fprintf(output, "Runtime error (specific): %s\n", errObj.Message)
		return false
	}
	return true
}
