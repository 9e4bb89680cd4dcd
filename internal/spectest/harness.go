// Package spectest drives whole programs through the interpreter and checks
// their literal output, the way the end-to-end language tests are written.
package spectest

import (
	"bytes"
	"strings"
	"testing"

	"itmoscript/internal/interp"
)

type Result struct {
	Stdout string
	OK     bool
}

// Run interprets source and captures everything written to the sink,
// diagnostics included.
func Run(t *testing.T, source string) Result {
	t.Helper()

	var out bytes.Buffer
	ok := interp.Interpret(strings.NewReader(source), &out)
	return Result{Stdout: out.String(), OK: ok}
}

// AssertOutput requires a clean run with exactly the given output.
func AssertOutput(t *testing.T, source, want string) {
	t.Helper()

	res := Run(t, source)
	if !res.OK {
		t.Fatalf("program failed; output:\n%s", res.Stdout)
	}
	if res.Stdout != want {
		t.Fatalf("output mismatch\nsource:\n%s\nwant: %q\ngot:  %q", source, want, res.Stdout)
	}
}

// AssertFailure requires a failed run whose diagnostic contains fragment.
// Output printed before the failure point must match printedBefore.
func AssertFailure(t *testing.T, source, printedBefore, fragment string) {
	t.Helper()

	res := Run(t, source)
	if res.OK {
		t.Fatalf("expected failure, got success; output:\n%s", res.Stdout)
	}
	if !strings.HasPrefix(res.Stdout, printedBefore) {
		t.Fatalf("expected output to start with %q, got %q", printedBefore, res.Stdout)
	}
	if !strings.Contains(res.Stdout, "Runtime error") {
		t.Fatalf("expected a runtime error diagnostic, got %q", res.Stdout)
	}
	if fragment != "" && !strings.Contains(res.Stdout, fragment) {
		t.Fatalf("expected diagnostic to contain %q, got %q", fragment, res.Stdout)
	}
}
