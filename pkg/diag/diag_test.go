package diag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type node struct {
	Name string
	Next *node
}

func TestDumpStructure(t *testing.T) {
	tail := &node{Name: "tail"}
	head := &node{Name: "head", Next: tail}

	var sb strings.Builder
	DumpStructure(&sb, head)
	out := sb.String()
	if !strings.Contains(out, "digraph") {
		t.Fatalf("expected graphviz output, got %q", out)
	}
	for _, want := range []string{"head", "tail"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestWriteStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.dot")
	if err := WriteStructure(path, &node{Name: "only"}); err != nil {
		t.Fatalf("WriteStructure: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "only") {
		t.Error("expected the node in the file")
	}

	if err := WriteStructure(filepath.Join(t.TempDir(), "missing", "x.dot"), 1); err == nil {
		t.Error("expected an error for a bad path")
	}
}
