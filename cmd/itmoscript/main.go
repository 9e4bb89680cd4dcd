package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"itmoscript/internal/config"
	"itmoscript/internal/interp"
	"itmoscript/internal/lexer"
	"itmoscript/internal/parser"
	"itmoscript/internal/repl"
	"itmoscript/internal/runtimeio"
	"itmoscript/internal/token"
)

func main() {
	tokensMode := flag.Bool("tokens", false, "print tokens instead of running")
	astMode := flag.Bool("ast", false, "print AST instead of running")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		if *tokensMode || *astMode {
			fmt.Println("-tokens and -ast require a source file")
			os.Exit(1)
		}
		if runtimeio.IsInteractive() {
			if err := repl.Start(os.Stdout); err != nil {
				fmt.Println("repl error:", err)
				os.Exit(1)
			}
			return
		}
		if !interp.Interpret(os.Stdin, os.Stdout) {
			os.Exit(1)
		}
		return
	}

	cmd := args[0]
	cmdArgs := args[1:]
	if cmd != "run" && cmd != "repl" {
		cmd = "run"
		cmdArgs = args
	}

	switch cmd {
	case "repl":
		if len(cmdArgs) != 0 {
			fmt.Println("usage: itmoscript repl")
			os.Exit(1)
		}
		if err := repl.Start(os.Stdout); err != nil {
			fmt.Println("repl error:", err)
			os.Exit(1)
		}

	case "run":
		if len(cmdArgs) != 1 {
			fmt.Println("usage: itmoscript [run] <file.is|dir>")
			os.Exit(1)
		}
		entry, err := resolveRunTarget(cmdArgs[0])
		if err != nil {
			fmt.Println("run error:", err)
			os.Exit(1)
		}

		if *tokensMode || *astMode {
			if err := dumpDebug(entry, *tokensMode); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			return
		}

		f, err := os.Open(entry)
		if err != nil {
			fmt.Println("run error:", err)
			os.Exit(1)
		}
		defer f.Close()
		if !interp.Interpret(f, os.Stdout) {
			os.Exit(1)
		}
	}
}

// resolveRunTarget maps a path to the script to execute: a file runs as-is,
// a directory runs the entry named by its itmoscript.toml manifest.
func resolveRunTarget(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return target, nil
	}

	manifestPath := filepath.Join(target, "itmoscript.toml")
	man, err := config.LoadManifest(manifestPath)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(man.Entry) == "" {
		return "", fmt.Errorf("%s: missing entry", manifestPath)
	}
	return filepath.Join(target, man.Entry), nil
}

func dumpDebug(path string, tokensMode bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tokens, err := lexer.New(string(b)).Tokenize()
	if err != nil {
		return fmt.Errorf("lex error: %s", err)
	}

	if tokensMode {
		for _, tok := range tokens {
			fmt.Printf("%4d:%-3d  %-10s  %q\n", tok.Line, tok.Col, tok.Kind, tok.Literal)
			if tok.Kind == token.EOF {
				break
			}
		}
		return nil
	}

	p := parser.New(tokens)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return fmt.Errorf("parse error: %s", errs[0])
	}
	fmt.Println(program.String())
	return nil
}
