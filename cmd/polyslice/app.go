package main

import (
	"sort"

	"go.uber.org/zap"

	"github.com/chazu/polyslice/pkg/engine"
	"github.com/chazu/polyslice/pkg/kernel"
	"github.com/chazu/polyslice/pkg/shape"
	"github.com/chazu/polyslice/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to pieces.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs cut scripts and turns the resulting arena into reportable data.
type App struct {
	engine *engine.Engine
	log    *zap.Logger
	gc     bool
}

// MeshData is the JSON-serializable mesh of one piece.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Tags     []uint16  `json:"tags"`
	Piece    string    `json:"piece"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of running one script.
type EvalResult struct {
	Dimension int               `json:"dimension"`
	Pieces    []string          `json:"pieces"`
	Shapes    int               `json:"shapes"`
	Collected int               `json:"collected"`
	Facets    map[string]uint16 `json:"facets"`
	Meshes    []MeshData        `json:"meshes"`
	Errors    []EvalErrorData   `json:"errors"`
	Warnings  []EvalErrorData   `json:"warnings"`

	model  *engine.Model
	meshes []*kernel.Mesh
}

// NewApp creates a new App around an engine.
func NewApp(eng *engine.Engine, log *zap.Logger, gc bool) *App {
	return &App{engine: eng, log: log, gc: gc}
}

// Evaluate takes Lisp source and returns the pieces it carves, with their
// meshes when the space is three-dimensional.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Pieces:   []string{},
		Facets:   map[string]uint16{},
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a shape arena.
	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("evaluate fatal error", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the report format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	result.model = m
	for _, w := range m.Warnings {
		a.log.Warn(w.Message, zap.Int("cut", w.Cut))
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}

	arena := m.Arena
	if a.gc {
		result.Collected = arena.GC().Deleted
	}
	for _, finding := range shape.Errors(arena.Validate()) {
		a.log.Error("invalid arena", zap.String("finding", finding.Error()))
		result.Errors = append(result.Errors, EvalErrorData{Message: finding.Error()})
	}
	result.Dimension, _ = arena.Space().NDim()
	for _, root := range arena.Roots() {
		result.Pieces = append(result.Pieces, root.String())
	}
	result.Shapes = arena.Len()
	for name, tag := range m.Facets {
		result.Facets[name] = uint16(tag)
	}

	if result.Dimension != 3 {
		return result
	}

	// Step 3: Tessellate the pieces into triangle meshes.
	meshes, err := tessellate.Tessellate(arena)
	if err != nil {
		a.log.Warn("tessellation skipped", zap.Error(err))
		result.Warnings = append(result.Warnings, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}
	result.meshes = meshes

	// Step 4: Convert kernel meshes to the report format.
	for i, mesh := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: mesh.Vertices,
			Normals:  mesh.Normals,
			Indices:  mesh.Indices,
			Tags:     mesh.Tags,
			Piece:    mesh.Piece,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return result
}

// facetNames lists the facet names of a result in tag order.
func (r EvalResult) facetNames() []string {
	names := make([]string, 0, len(r.Facets))
	for name := range r.Facets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.Facets[names[i]] < r.Facets[names[j]]
	})
	return names
}
