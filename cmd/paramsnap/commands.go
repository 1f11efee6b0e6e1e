package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/paramsnap/pkg/canvas"
	"github.com/ormasoftchile/paramsnap/pkg/console"
	"github.com/ormasoftchile/paramsnap/pkg/diagram"
	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/restore"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
)

// --- store ---

var (
	storeEnabled   bool
	storeBanks     string
	storeValues    string
	storePoints    string
	storeNumPoints int
)

var storeCmd = &cobra.Command{
	Use:   "store [snapshot.json]",
	Short: "Write a snapshot from bank sizes, slider values and points",
	Args:  cobra.ExactArgs(1),
	RunE:  runStore,
}

func runStore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	banks, err := parseInts(storeBanks)
	if err != nil {
		return fmt.Errorf("--banks: %w", err)
	}
	values, err := parseInts(storeValues)
	if err != nil {
		return fmt.Errorf("--values: %w", err)
	}
	points, err := parsePoints(storePoints)
	if err != nil {
		return fmt.Errorf("--points: %w", err)
	}
	pointCount := storeNumPoints
	if pointCount < 0 {
		pointCount = len(points)
	}
	store, err := rt.snapshots(ctx)
	if err != nil {
		return err
	}
	if err := rt.writer(store).Store(ctx, storeEnabled, args[0], banks, values, pointCount, points); err != nil {
		return err
	}
	if storeEnabled {
		fmt.Printf("✓ stored %d banks, %d values, %d points to %s\n", len(banks), len(values), len(points), args[0])
	}
	return nil
}

// --- restore ---

var (
	restoreCanvas string
	restorePrefix string
	restoreAnchor string
	restoreOut    string
)

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot.json]",
	Short: "Restore a snapshot into a canvas document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	anchor, err := parseAnchor(restoreAnchor)
	if err != nil {
		return fmt.Errorf("--anchor: %w", err)
	}
	docs := storage.NewOSStore()
	c, err := loadCanvas(ctx, docs, restoreCanvas)
	if err != nil {
		return err
	}
	r, err := newRestorer(ctx, c)
	if err != nil {
		return err
	}

	pass, err := r.Trigger(ctx, restore.Request{Path: args[0], Prefix: restorePrefix, Anchor: anchor})
	if err != nil {
		return err
	}
	if _, err := c.Drain(ctx); err != nil {
		return err
	}
	<-pass.Done()

	printWarnings(pass.Warnings())
	if err := pass.Err(); err != nil {
		return err
	}
	out := restoreOut
	if out == "" {
		out = restoreCanvas
	}
	if err := c.Save(ctx, docs, out); err != nil {
		return err
	}
	rep := pass.Report()
	fmt.Printf("✓ %s restored into %s: %d deleted, %d created, %d edges\n",
		restorePrefix, out, len(rep.Deleted), rep.Created(), rep.Edges)
	return nil
}

// --- capture ---

var (
	captureCanvas string
	capturePrefix string
)

var captureCmd = &cobra.Command{
	Use:   "capture [snapshot.json]",
	Short: "Capture the live values of a canvas scope into a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runCapture,
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := loadCanvas(ctx, storage.NewOSStore(), captureCanvas)
	if err != nil {
		return err
	}
	s, err := restore.Capture(ctx, c, capturePrefix)
	if err != nil {
		return err
	}
	store, err := rt.snapshots(ctx)
	if err != nil {
		return err
	}
	if err := rt.writer(store).Save(ctx, args[0], s); err != nil {
		return err
	}
	fmt.Printf("✓ captured %s: %d banks, %d values, %d points to %s\n",
		capturePrefix, len(s.BankSizes), len(s.SliderValues), len(s.Points), args[0])
	return nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [snapshot.json]",
	Short: "Validate a snapshot document against the schema and domain rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := rt.snapshots(ctx)
	if err != nil {
		return err
	}
	data, err := store.Read(ctx, args[0])
	if err != nil {
		return err
	}
	opts, err := rt.restoreOptions()
	if err != nil {
		return err
	}
	s, findings := snapshot.Validate(data, opts.Rules)
	if s != nil {
		findings = append(findings, snapshot.CheckRange(s, opts.Range.Min, opts.Range.Max)...)
	}
	printWarnings(snapshot.Warnings(findings))
	if errs := snapshot.Errors(findings); len(errs) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(errs))
		for i, e := range errs {
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}
	fmt.Printf("✓ %s is valid (%d banks, %d values, %d points)\n",
		args[0], len(s.BankSizes), s.Total(), len(s.Points))
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the snapshot JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := snapshot.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- diagram ---

var (
	diagramPrefix string
	diagramFormat string
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [canvas.yaml]",
	Short: "Render a canvas scope as a Mermaid or ASCII diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := loadCanvas(ctx, storage.NewOSStore(), args[0])
		if err != nil {
			return err
		}
		out, err := diagram.Generate(ctx, c, diagramPrefix, diagram.Format(diagramFormat))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

// --- console ---

var consolePrefix string

var consoleCmd = &cobra.Command{
	Use:   "console [canvas.yaml]",
	Short: "Interactive console over a canvas document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		docs := storage.NewOSStore()
		c, err := loadCanvas(ctx, docs, args[0])
		if err != nil {
			return err
		}
		r, err := newRestorer(ctx, c)
		if err != nil {
			return err
		}
		store, err := rt.snapshots(ctx)
		if err != nil {
			return err
		}
		con, err := console.New(console.Options{
			Canvas:      c,
			Restorer:    r,
			Writer:      rt.writer(store),
			Documents:   docs,
			DocumentKey: args[0],
			Prefix:      consolePrefix,
		})
		if err != nil {
			return err
		}
		return con.Run(ctx)
	},
}

// --- helpers ---

// loadCanvas reads a canvas document; a missing document yields an empty canvas.
func loadCanvas(ctx context.Context, docs storage.Store, key string) (*canvas.Canvas, error) {
	if key == "" {
		return nil, fmt.Errorf("no canvas document given")
	}
	c, err := canvas.Load(ctx, docs, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			rt.log.Info().Str("path", key).Msg("canvas document not found, starting empty")
			return canvas.New(), nil
		}
		return nil, err
	}
	return c, nil
}

func newRestorer(ctx context.Context, c *canvas.Canvas) (*restore.Restorer, error) {
	opts, err := rt.restoreOptions()
	if err != nil {
		return nil, err
	}
	store, err := rt.snapshots(ctx)
	if err != nil {
		return nil, err
	}
	return restore.New(c, c, store,
		restore.WithOptions(opts),
		restore.WithLogger(rt.log),
		restore.WithTrace(rt.trace),
		restore.WithMetrics(rt.metrics),
	), nil
}

func printWarnings(ws []*snapshot.ValidationError) {
	for _, w := range ws {
		fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", w.Phase, w.Message)
		if w.Path != "" {
			fmt.Fprintf(os.Stderr, "    at: %s\n", w.Path)
		}
	}
}

// parseInts parses a comma-separated integer list. An empty string is an empty list.
func parseInts(s string) ([]int, error) {
	out := []int{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parsePoints parses "x,y,z;x,y,z".
func parsePoints(s string) ([]snapshot.Point3, error) {
	out := []snapshot.Point3{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for i, p := range strings.Split(s, ";") {
		f := strings.Split(p, ",")
		if len(f) != 3 {
			return nil, fmt.Errorf("point %d: want x,y,z, got %q", i, p)
		}
		var xyz [3]float64
		for j := range f {
			v, err := strconv.ParseFloat(strings.TrimSpace(f[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
			xyz[j] = v
		}
		out = append(out, snapshot.Point3{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return out, nil
}

// parseAnchor parses "x,y"; empty means the origin.
func parseAnchor(s string) (host.Position, error) {
	if strings.TrimSpace(s) == "" {
		return host.Position{}, nil
	}
	f := strings.Split(s, ",")
	if len(f) != 2 {
		return host.Position{}, fmt.Errorf("want x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(f[0]), 64)
	if err != nil {
		return host.Position{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(f[1]), 64)
	if err != nil {
		return host.Position{}, err
	}
	return host.Position{X: x, Y: y}, nil
}

func init() {
	storeCmd.Flags().BoolVar(&storeEnabled, "store", true, "Write the snapshot; when false nothing is written")
	storeCmd.Flags().StringVar(&storeBanks, "banks", "", "Comma-separated bank sizes, e.g. 3,2")
	storeCmd.Flags().StringVar(&storeValues, "values", "", "Comma-separated slider values, flattened across banks")
	storeCmd.Flags().StringVar(&storePoints, "points", "", "Semicolon-separated points, e.g. 0,0,0;1,2,3")
	storeCmd.Flags().IntVar(&storeNumPoints, "num-points", -1, "NumPoints to record; negative means the number of --points")

	restoreCmd.Flags().StringVar(&restoreCanvas, "canvas", "canvas.yaml", "Canvas document to restore into")
	restoreCmd.Flags().StringVar(&restorePrefix, "prefix", "", "Control-name prefix of the scope (required)")
	restoreCmd.Flags().StringVar(&restoreAnchor, "anchor", "", "Anchor position x,y for the layout")
	restoreCmd.Flags().StringVar(&restoreOut, "out", "", "Write the rewritten canvas here instead of in place")
	_ = restoreCmd.MarkFlagRequired("prefix")

	captureCmd.Flags().StringVar(&captureCanvas, "canvas", "canvas.yaml", "Canvas document to read")
	captureCmd.Flags().StringVar(&capturePrefix, "prefix", "", "Control-name prefix of the scope (required)")
	_ = captureCmd.MarkFlagRequired("prefix")

	schemaCmd.AddCommand(schemaExportCmd)

	diagramCmd.Flags().StringVar(&diagramPrefix, "prefix", "", "Control-name prefix of the scope (required)")
	diagramCmd.Flags().StringVar(&diagramFormat, "format", "ascii", "Output format: ascii or mermaid")
	_ = diagramCmd.MarkFlagRequired("prefix")

	consoleCmd.Flags().StringVar(&consolePrefix, "prefix", "", "Default control-name prefix")
}
