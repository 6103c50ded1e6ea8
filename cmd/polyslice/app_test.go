package main

import (
	"math"
	"os"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/chazu/polyslice/pkg/engine"
)

func newTestApp() *App {
	return NewApp(engine.NewEngine(engine.WithDebugChecks(true)), zap.NewNop(), false)
}

// TestE2ECubeExample exercises the full pipeline: Lisp source -> engine ->
// arena -> tessellate -> meshes.
func TestE2ECubeExample(t *testing.T) {
	app := newTestApp()

	source, err := os.ReadFile("../../examples/cube3.lisp")
	if err != nil {
		t.Fatalf("failed to read cube3.lisp: %v", err)
	}

	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	if len(result.Pieces) != 27 {
		t.Fatalf("expected 27 pieces, got %d", len(result.Pieces))
	}
	if len(result.Meshes) != 27 {
		t.Fatalf("expected 27 meshes, got %d", len(result.Meshes))
	}

	seen := make(map[string]bool)
	for _, m := range result.Meshes {
		if seen[m.Piece] {
			t.Errorf("piece %q meshed twice", m.Piece)
		}
		seen[m.Piece] = true

		// Every piece is a box: six quads of two triangles.
		if got := len(m.Indices) / 3; got != 12 {
			t.Errorf("piece %q: expected 12 triangles, got %d", m.Piece, got)
		}
		if len(m.Normals) != len(m.Vertices) {
			t.Errorf("piece %q: %d normals for %d vertex coordinates", m.Piece, len(m.Normals), len(m.Vertices))
		}
		if m.Color == "" {
			t.Errorf("piece %q: no color assigned", m.Piece)
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully:
// the whole of space is one piece that cannot be meshed.
func TestE2EEmptySource(t *testing.T) {
	result := newTestApp().Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Pieces) != 1 {
		t.Errorf("expected the whole space as one piece, got %v", result.Pieces)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(result.Meshes))
	}
}

func TestE2ECommentsOnly(t *testing.T) {
	result := newTestApp().Evaluate(";; just a comment\n; and another\n")
	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	result := newTestApp().Evaluate("(cube 1)\n(cut (plane [1 0 0] 0)\n")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for the unbalanced paren")
	}
	if result.Errors[0].Message == "" {
		t.Error("error message should not be empty")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes on error, got %d", len(result.Meshes))
	}
}

func TestE2ENestedArithmeticDef(t *testing.T) {
	result := newTestApp().Evaluate(`
(def half (/ 1.0 2.0))
(def size (* half 4))
(cube size)
`)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	for i := 0; i < len(result.Meshes[0].Vertices); i++ {
		if v := math.Abs(float64(result.Meshes[0].Vertices[i])); math.Abs(v-2) > 1e-4 {
			t.Fatalf("vertex coordinate %v, expected +-2", result.Meshes[0].Vertices[i])
		}
	}
}

func TestE2EColorPaletteWrapping(t *testing.T) {
	// Ten slabs exceed the eight-color palette.
	var b strings.Builder
	b.WriteString("(cube 1)\n")
	for _, d := range []string{"-0.8", "-0.6", "-0.4", "-0.2", "0", "0.2", "0.4", "0.6", "0.8"} {
		b.WriteString("(cut (plane [1 0 0] " + d + "))\n")
	}

	result := newTestApp().Evaluate(b.String())
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 10 {
		t.Fatalf("expected 10 meshes, got %d", len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if want := colorPalette[i%len(colorPalette)]; m.Color != want {
			t.Errorf("mesh %d: color %s, want %s", i, m.Color, want)
		}
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	app := newTestApp()

	// Concurrent evaluations on one engine: every call either succeeds or
	// is reported as superseded by a newer one.
	var wg sync.WaitGroup
	results := make([]EvalResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = app.Evaluate("(cube 1) (cut (plane [0 0 1] 0))")
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if len(r.Errors) == 0 {
			if len(r.Pieces) != 2 {
				t.Errorf("result %d: expected 2 pieces, got %d", i, len(r.Pieces))
			}
			continue
		}
		if !strings.Contains(r.Errors[0].Message, "superseded") {
			t.Errorf("result %d: unexpected error %q", i, r.Errors[0].Message)
		}
	}
}
