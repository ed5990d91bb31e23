package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/organic-audio/organic/internal/lang/ast"
)

func parseString(t *testing.T, src string) *ast.Program {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.organic")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	prog, err := New().ParseFile(path)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestParseEmptyFile(t *testing.T) {
	prog := parseString(t, "")
	if len(prog.Instructions) != 0 {
		t.Fatalf("expected no instructions, got %d", len(prog.Instructions))
	}
	if prog.Loc.Line != 1 || prog.Loc.Col != 1 {
		t.Fatalf("expected location (1,1), got (%d,%d)", prog.Loc.Line, prog.Loc.Col)
	}
}

func TestParseAssign(t *testing.T) {
	prog := parseString(t, "freq = 440")
	if len(prog.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(prog.Instructions))
	}
	assign, ok := prog.Instructions[0].(*ast.Assign)
	if !ok {
		t.Fatalf("expected *ast.Assign, got %T", prog.Instructions[0])
	}
	if assign.Name != "freq" {
		t.Fatalf("expected name freq, got %q", assign.Name)
	}
	val, ok := assign.Value.(*ast.Value)
	if !ok || val.Num != 440 {
		t.Fatalf("expected literal 440, got %#v", assign.Value)
	}
}

func TestParseTopLevelAudioSourceWrapsPlay(t *testing.T) {
	prog := parseString(t, "sine(volume: 1, frequency: 440)")
	call, ok := prog.Instructions[0].(*ast.Call)
	if !ok {
		t.Fatalf("expected *ast.Call, got %T", prog.Instructions[0])
	}
	if call.Name != "play" || !call.TopLevel {
		t.Fatalf("expected implicit top-level play wrapper, got %+v", call)
	}
	inner, ok := call.Args[0].Value.(*ast.Call)
	if !ok || inner.Name != "sine" {
		t.Fatalf("expected wrapped sine call, got %#v", call.Args[0].Value)
	}
}

func TestParseDefineAndCall(t *testing.T) {
	prog := parseString(t, "tone(freq) = {\n  sine(volume: 1, frequency: freq)\n}\ntone(freq: 440)")
	def, ok := prog.Instructions[0].(*ast.Define)
	if !ok {
		t.Fatalf("expected *ast.Define, got %T", prog.Instructions[0])
	}
	if def.Name != "tone" || len(def.Params) != 1 || def.Params[0] != "freq" {
		t.Fatalf("unexpected define shape: %+v", def)
	}
	call, ok := prog.Instructions[1].(*ast.Call)
	if !ok || call.Intrinsic {
		t.Fatalf("expected non-intrinsic user call, got %#v", prog.Instructions[1])
	}
	if call.Name != "tone" {
		t.Fatalf("expected call to tone, got %q", call.Name)
	}
}

func TestParseSelfRedefinitionRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.organic")
	src := "f(x) = {\n  f(x) = { x }\n  x\n}"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := New().ParseFile(path); err == nil {
		t.Fatalf("expected an error redefining f inside its own body")
	}
}

func TestParseReservedNameRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.organic")
	if err := os.WriteFile(path, []byte("sine = 1"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := New().ParseFile(path); err == nil {
		t.Fatalf("expected an error assigning to reserved name sine")
	}
}

func TestParseComparisonDoesNotChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.organic")
	if err := os.WriteFile(path, []byte("x = 1 < 2 < 3"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := New().ParseFile(path); err == nil {
		t.Fatalf("expected a chained-comparison error")
	}
}

func TestParsePrecedence(t *testing.T) {
	prog := parseString(t, "x = 1 + 2 * 3")
	assign := prog.Instructions[0].(*ast.Assign)
	add, ok := assign.Value.(*ast.BinOp)
	if !ok || add.Kind() != ast.KindAdd {
		t.Fatalf("expected top-level Add, got %#v", assign.Value)
	}
	mul, ok := add.Right.(*ast.BinOp)
	if !ok || mul.Kind() != ast.KindMultiply {
		t.Fatalf("expected right operand Multiply, got %#v", add.Right)
	}
}

func TestParseIncludeDeduplicates(t *testing.T) {
	dir := t.TempDir()
	childPath := filepath.Join(dir, "child.organic")
	if err := os.WriteFile(childPath, []byte("shared = 1"), 0o644); err != nil {
		t.Fatalf("write child: %v", err)
	}
	mainPath := filepath.Join(dir, "main.organic")
	src := "include(\"child.organic\")\ninclude(\"child.organic\")\nshared"
	if err := os.WriteFile(mainPath, []byte(src), 0o644); err != nil {
		t.Fatalf("write main: %v", err)
	}
	p := New()
	prog, err := p.ParseFile(mainPath)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	inc2 := prog.Instructions[1].(*ast.Include)
	if inc2.Program != nil {
		t.Fatalf("expected second include to be a no-op")
	}
	if len(p.Warnings) == 0 {
		t.Fatalf("expected a duplicate-include warning")
	}
}

func TestParseListLiteral(t *testing.T) {
	prog := parseString(t, "x = [1, 2, 3]")
	assign := prog.Instructions[0].(*ast.Assign)
	list, ok := assign.Value.(*ast.List)
	if !ok || len(list.Values) != 3 {
		t.Fatalf("expected a 3-element list, got %#v", assign.Value)
	}
}
