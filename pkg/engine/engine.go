// Package engine provides the Lisp front end for polyslice. It wraps
// zygomys in a sandboxed environment and builds a shape arena from a cut
// script.
package engine

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/polyslice/pkg/kernel/flat"
	"github.com/chazu/polyslice/pkg/shape"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return "line " + strconv.Itoa(e.Line) + ": " + e.Message
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Message string
	Cut     int // 1-based index of the cut that raised it, 0 if none
}

// Model is the outcome of a successful evaluation.
type Model struct {
	Arena    *shape.Arena
	Facets   map[string]shape.Metadata
	Warnings []EvalWarning
}

// FacetName returns the facet name registered for m, or "" if none.
func (m *Model) FacetName(md shape.Metadata) string {
	for name, tag := range m.Facets {
		if tag == md {
			return name
		}
	}
	return ""
}

// Engine wraps the zygomys interpreter for polyslice evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh arena for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout time.Duration
	log     *zap.Logger
	debug   *bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit for a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger handed to every arena the engine builds.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDebugChecks forces the arena self-checks on or off.
func WithDebugChecks(on bool) Option {
	return func(e *Engine) {
		e.debug = &on
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout: DefaultEvalTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs a cut script and returns the arena it built.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns model + nil errors + nil error
//   - On parse/eval failure: returns nil model + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Model, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: errors.Errorf("panic during evaluation: %v", r)}
			}
		}()

		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{model: m, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
}

func (e *Engine) arenaOptions() []shape.Option {
	opts := []shape.Option{shape.WithLogger(e.log)}
	if e.debug != nil {
		opts = append(opts, shape.WithDebugChecks(*e.debug))
	}
	return opts
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Model, []EvalError, error) {
	st := newScriptState(e.arenaOptions())

	// Empty source is a valid program that leaves the whole space intact.
	if strings.TrimSpace(source) == "" {
		return st.model(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	m := st.model()
	e.log.Info("evaluated cut script",
		zap.Int("cuts", st.cuts),
		zap.Int("pieces", len(m.Arena.Roots())),
		zap.Int("shapes", m.Arena.Len()))
	return m, nil, nil
}

// newSpace returns the whole space of dimension n.
func newSpace(n int) (*flat.Flat, error) {
	if n < 1 {
		return nil, errors.Errorf("space dimension must be positive, got %d", n)
	}
	return flat.Space(n), nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
