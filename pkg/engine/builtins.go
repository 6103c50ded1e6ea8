package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/pkg/errors"

	"github.com/chazu/polyslice/pkg/kernel"
	"github.com/chazu/polyslice/pkg/kernel/flat"
	"github.com/chazu/polyslice/pkg/shape"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms polyslice Lisp source code before passing it
// to zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: collect-garbage -> collect_garbage
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
//  3. Line comments: ; and ;; become //, which is what zygomys reads.
//
// All transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters; a
		// minus operator or negative number is left alone.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpManifold wraps a cut manifold so it can be returned from `plane`
// and consumed by `cut` and `carve`.
type sexpManifold struct {
	m kernel.Manifold
}

func (s *sexpManifold) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(manifold %s)", s.m)
}
func (s *sexpManifold) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A keyword
// in value position is taken as the value of the keyword before it.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, errors.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, errors.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, errors.Errorf("expected list or array, got %T", s)
}

// toVector extracts a coordinate vector from a list or array of numbers.
func toVector(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = toFloat64(item); err != nil {
			return nil, errors.Wrapf(err, "component %d", i)
		}
	}
	return out, nil
}

// toManifold extracts a manifold from a sexpManifold.
func toManifold(s zygo.Sexp) (kernel.Manifold, error) {
	if m, ok := s.(*sexpManifold); ok {
		return m.m, nil
	}
	return nil, errors.Errorf("expected manifold, got %T (%s)", s, s.SexpString(nil))
}

func sexpInt(n int) zygo.Sexp {
	return &zygo.SexpInt{Val: int64(n)}
}

// ---------------------------------------------------------------------------
// Script state
// ---------------------------------------------------------------------------

// scriptState is the arena under construction and the facet names seen so
// far. The arena is created by the first builtin that needs it. Named
// facets and numeric tags share one tag space: a name never gets a tag a
// script already used as a number, and a number a name holds is rejected.
type scriptState struct {
	opts     []shape.Option
	arena    *shape.Arena
	facets   map[string]shape.Metadata
	numbered map[shape.Metadata]bool
	nextTag  shape.Metadata
	cuts     int
	warnings []EvalWarning
}

func newScriptState(opts []shape.Option) *scriptState {
	return &scriptState{
		opts:     opts,
		facets:   make(map[string]shape.Metadata),
		numbered: make(map[shape.Metadata]bool),
		nextTag:  1,
	}
}

func (st *scriptState) ensureArena() *shape.Arena {
	if st.arena == nil {
		st.arena = shape.New(flat.Space(3), st.opts...)
	}
	return st.arena
}

func (st *scriptState) ndim() int {
	n, err := st.ensureArena().Space().NDim()
	if err != nil {
		return 0
	}
	return n
}

// facet returns the tag of a named facet, allocating one on first use.
func (st *scriptState) facet(name string) shape.Metadata {
	if tag, ok := st.facets[name]; ok {
		return tag
	}
	for st.numbered[st.nextTag] {
		st.nextTag++
	}
	tag := st.nextTag
	st.nextTag++
	st.facets[name] = tag
	return tag
}

// number claims tag for use by number. It fails if a named facet holds it.
func (st *scriptState) number(tag shape.Metadata) error {
	if tag != shape.NoMetadata {
		for name, held := range st.facets {
			if held == tag {
				return errors.Errorf("tag %d is already facet %q", tag, name)
			}
		}
	}
	st.numbered[tag] = true
	return nil
}

// policy reads a cut policy: a number keeps with that tag, a string keeps
// with a named facet, :keep keeps untagged and :remove discards.
func (st *scriptState) policy(s zygo.Sexp) (shape.CutPolicy, error) {
	if kw, ok := isKW(s); ok {
		switch kw {
		case "keep":
			return shape.Keep(shape.NoMetadata), nil
		case "remove":
			return shape.Remove(), nil
		}
		return shape.CutPolicy{}, errors.Errorf("invalid policy :%s, expected :keep or :remove", kw)
	}
	switch v := s.(type) {
	case *zygo.SexpInt:
		if v.Val < 0 || v.Val > 0xffff {
			return shape.CutPolicy{}, errors.Errorf("tag %d out of range", v.Val)
		}
		tag := shape.Metadata(v.Val)
		if err := st.number(tag); err != nil {
			return shape.CutPolicy{}, err
		}
		return shape.Keep(tag), nil
	case *zygo.SexpStr:
		return shape.Keep(st.facet(v.S)), nil
	}
	return shape.CutPolicy{}, errors.Errorf("expected policy, got %T (%s)", s, s.SexpString(nil))
}

func (st *scriptState) cut(p shape.CutParams) error {
	a := st.ensureArena()
	st.cuts++
	if err := a.Cut(p); err != nil {
		return err
	}
	if a.IsEmpty() {
		st.warnings = append(st.warnings, EvalWarning{Message: "cut left the arena empty", Cut: st.cuts})
	}
	return nil
}

func (st *scriptState) model() *Model {
	facets := make(map[string]shape.Metadata, len(st.facets))
	for k, v := range st.facets {
		facets[k] = v
	}
	return &Model{
		Arena:    st.ensureArena(),
		Facets:   facets,
		Warnings: st.warnings,
	}
}

// axisName names coordinate axis i.
func axisName(i int) string {
	if i < 4 {
		return string("xyzw"[i])
	}
	return fmt.Sprintf("x%d", i)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all polyslice DSL builtins into a zygomys
// environment. The builtins operate on st, populating its arena during
// evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *scriptState) {

	// -----------------------------------------------------------------------
	// (space 4)
	// -----------------------------------------------------------------------
	env.AddFunction("space", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, errors.Errorf("space requires a dimension argument")
		}
		if st.arena != nil {
			return zygo.SexpNull, errors.Errorf("space: must come before any geometry")
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "space: dimension")
		}
		sp, err := newSpace(n)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "space")
		}
		st.arena = shape.New(sp, st.opts...)
		return sexpInt(n), nil
	})

	// -----------------------------------------------------------------------
	// (plane [1 0 0] 0.5)   ; inside is x < 0.5
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, errors.Errorf("plane requires a normal and a distance, got %d arguments", len(args))
		}
		normal, err := toVector(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "plane: normal")
		}
		d, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "plane: distance")
		}
		if n := st.ndim(); len(normal) != n {
			return zygo.SexpNull, errors.Errorf("plane: normal has %d components, space has dimension %d", len(normal), n)
		}
		m, err := flat.Hyperplane(normal, d)
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "plane")
		}
		return &sexpManifold{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (cut (plane ...) :inside "top" :outside :remove)
	// -----------------------------------------------------------------------
	env.AddFunction("cut", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, errors.Errorf("cut requires a manifold as its only positional argument")
		}
		m, err := toManifold(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "cut")
		}
		p := shape.CutParams{Cut: m}
		if v, ok := pa.kw["inside"]; ok {
			if p.Inside, err = st.policy(v); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "cut: inside")
			}
		}
		if v, ok := pa.kw["outside"]; ok {
			if p.Outside, err = st.policy(v); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "cut: outside")
			}
		}
		if err := st.cut(p); err != nil {
			return zygo.SexpNull, errors.Wrap(err, "cut")
		}
		return sexpInt(len(st.arena.Roots())), nil
	})

	// -----------------------------------------------------------------------
	// (carve (plane ...) :facet "top")  ; keep the inside, drop the outside
	// -----------------------------------------------------------------------
	env.AddFunction("carve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, errors.Errorf("carve requires a manifold as its only positional argument")
		}
		m, err := toManifold(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "carve")
		}
		inside := shape.Keep(shape.NoMetadata)
		if v, ok := pa.kw["facet"]; ok {
			if inside, err = st.policy(v); err != nil {
				return zygo.SexpNull, errors.Wrap(err, "carve: facet")
			}
		}
		if err := st.cut(shape.CutParams{Cut: m, Inside: inside, Outside: shape.Remove()}); err != nil {
			return zygo.SexpNull, errors.Wrap(err, "carve")
		}
		return sexpInt(len(st.arena.Roots())), nil
	})

	// -----------------------------------------------------------------------
	// (cube 1)  ; carve [-1, 1]^n with facets "+x", "-x", ...
	// -----------------------------------------------------------------------
	env.AddFunction("cube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, errors.Errorf("cube requires a half-width argument")
		}
		r, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, errors.Wrap(err, "cube: half-width")
		}
		if r <= 0 {
			return zygo.SexpNull, errors.Errorf("cube: half-width must be positive, got %g", r)
		}
		n := st.ndim()
		for i := 0; i < n; i++ {
			for _, sign := range []float64{1, -1} {
				normal := make([]float64, n)
				normal[i] = sign
				m, err := flat.Hyperplane(normal, r)
				if err != nil {
					return zygo.SexpNull, errors.Wrap(err, "cube")
				}
				facet := "+" + axisName(i)
				if sign < 0 {
					facet = "-" + axisName(i)
				}
				p := shape.CutParams{Cut: m, Inside: shape.Keep(st.facet(facet)), Outside: shape.Remove()}
				if err := st.cut(p); err != nil {
					return zygo.SexpNull, errors.Wrapf(err, "cube: facet %s", facet)
				}
			}
		}
		return sexpInt(len(st.arena.Roots())), nil
	})

	// -----------------------------------------------------------------------
	// (pieces) (shapes)
	// -----------------------------------------------------------------------
	env.AddFunction("pieces", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return sexpInt(len(st.ensureArena().Roots())), nil
	})
	env.AddFunction("shapes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return sexpInt(st.ensureArena().Len()), nil
	})

	// -----------------------------------------------------------------------
	// (collect-garbage)
	//
	// Note: registered as "collect_garbage" because zygomys does not support
	// hyphens in identifiers.
	// -----------------------------------------------------------------------
	env.AddFunction("collect_garbage", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		stats := st.ensureArena().GC()
		return sexpInt(stats.Deleted), nil
	})
}
