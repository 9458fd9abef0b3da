// Package testutil loads annotated assembly sources for tests.
//
// Instructions are annotated in trailing comments, e.g.
//
//	iconst_1
//	iconst_2
//	iadd      ; @top("int:3")
//	ifeq L1   ; @targets(10)
//	nop       ; @unreachable
//
// See annotation-factory.go for the available annotations.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/classfile/asm"
	"github.com/cs-au-dk/jpeval/utils"
)

// Assemble assembles src or fails the test.
func Assemble(t *testing.T, src string) *cf.Program {
	t.Helper()
	prog, err := asm.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

// AssembleMethod assembles the only method in src and validates it, or
// fails the test.
func AssembleMethod(t *testing.T, src string) *cf.Method {
	t.Helper()
	m, err := asm.ParseMethod(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	return m
}

// LoadSource assembles an annotated source and collects its notes.
func LoadSource(t *testing.T, name, src string) NotesManager {
	t.Helper()
	utils.Opts().SetNoColorize(true)
	l, err := asm.ParseListing(name, strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return MakeNotesManager(t, name, src, l)
}

// LoadFile assembles an annotated source file and collects its notes.
func LoadFile(t *testing.T, path string) NotesManager {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return LoadSource(t, path, string(data))
}

// ListTests returns the assembly files in dir, sorted by name.
func ListTests(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.jasm"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatalf("No tests found in %s", dir)
	}
	sort.Strings(paths)
	return paths
}

// TestName is the base name of a test file without extension.
func TestName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
