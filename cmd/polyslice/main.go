// Command polyslice evaluates a cut script, reports the pieces it carves
// out of space and optionally writes them to an STL file.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chazu/polyslice/pkg/config"
	"github.com/chazu/polyslice/pkg/engine"
	"github.com/chazu/polyslice/pkg/kernel"
	"github.com/chazu/polyslice/pkg/kernel/sdfx"
)

// errScript is returned when the script itself failed; the details have
// already been printed.
var errScript = errors.New("script failed")

func newRootCmd() *cobra.Command {
	conf := config.New()
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "polyslice [script]",
		Short: "Carve N-dimensional space into pieces with a cut script",
		Long: `
polyslice runs a Lisp cut script against a shape arena that starts as the
whole of space. Each cut splits every piece by an oriented hyperplane and
keeps or removes the pieces on either side. The script is read from the
named file, or from standard input when the name is "-" or omitted.
`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd, conf, path, asJSON)
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON, meshes included.")
	if err := conf.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func readScript(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), errors.Wrap(err, "reading script from stdin")
	}
	b, err := os.ReadFile(path)
	return string(b), errors.Wrapf(err, "reading script %s", path)
}

func run(cmd *cobra.Command, conf *viper.Viper, path string, asJSON bool) error {
	cfg, err := config.Load(conf)
	if err != nil {
		return err
	}
	log := cfg.Logger(cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	source, err := readScript(cmd, path)
	if err != nil {
		return err
	}

	app := NewApp(engine.NewEngine(cfg.EngineOptions(log)...), log, cfg.GC)
	result := app.Evaluate(source)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return errors.Wrap(err, "encoding result")
		}
	} else {
		printResult(out, cmd.ErrOrStderr(), result)
	}
	if len(result.Errors) > 0 {
		return errScript
	}

	if cfg.STL != "" {
		if result.Dimension != 3 {
			return errors.Errorf("cannot write %s: space has dimension %d", cfg.STL, result.Dimension)
		}
		if result.meshes == nil {
			return errors.Errorf("cannot write %s: pieces could not be tessellated", cfg.STL)
		}
		if err := sdfx.SaveSTL(cfg.STL, result.meshes...); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), stlSummary(cfg.STL, result.meshes))
	}
	return nil
}

// stlSummary describes a written STL file. Bounds are left out when the
// meshes have no vertices.
func stlSummary(path string, meshes []*kernel.Mesh) string {
	msg := fmt.Sprintf("wrote %d pieces to %s", len(meshes), path)
	if bb, ok := sdfx.BoundingBox(meshes...); ok {
		msg += fmt.Sprintf(", bounds %v to %v", bb.Min, bb.Max)
	}
	return msg
}

func printResult(out, errOut io.Writer, r EvalResult) {
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(errOut, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintf(errOut, "error: %s\n", e.Message)
		}
	}
	if len(r.Errors) > 0 {
		return
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(errOut, "warning: %s\n", w.Message)
	}

	fmt.Fprintf(out, "dimension: %d\n", r.Dimension)
	fmt.Fprintf(out, "pieces: %d\n", len(r.Pieces))
	fmt.Fprintf(out, "shapes: %d\n", r.Shapes)
	if r.Collected > 0 {
		fmt.Fprintf(out, "collected: %d\n", r.Collected)
	}
	for _, name := range r.facetNames() {
		fmt.Fprintf(out, "facet %d: %s\n", r.Facets[name], name)
	}
	for _, m := range r.Meshes {
		fmt.Fprintf(out, "mesh %s: %d triangles\n", m.Piece, len(m.Indices)/3)
	}
	if r.model != nil {
		fmt.Fprint(out, r.model.Arena.String())
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if err != errScript {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
