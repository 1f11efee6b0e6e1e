// Package console implements the interactive REPL over a canvas document.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/paramsnap/pkg/canvas"
	"github.com/ormasoftchile/paramsnap/pkg/restore"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
)

// Options wires the console to its canvas and stores.
type Options struct {
	Canvas   *canvas.Canvas
	Restorer *restore.Restorer
	Writer   *snapshot.Writer
	// Documents and DocumentKey locate the canvas document written by save.
	Documents   storage.Store
	DocumentKey string
	Prefix      string
	Output      io.Writer
}

// Console provides an interactive REPL for restoring and capturing
// snapshots against a canvas.
type Console struct {
	canvas   *canvas.Canvas
	restorer *restore.Restorer
	writer   *snapshot.Writer
	docs     storage.Store
	docKey   string
	prefix   string
	output   io.Writer
	styles   styles
	rl       *readline.Instance
}

// New creates a console. Output defaults to stdout.
func New(opts Options) (*Console, error) {
	if opts.Canvas == nil || opts.Restorer == nil || opts.Writer == nil {
		return nil, fmt.Errorf("console requires a canvas, restorer and writer")
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		canvas:   opts.Canvas,
		restorer: opts.Restorer,
		writer:   opts.Writer,
		docs:     opts.Documents,
		docKey:   opts.DocumentKey,
		prefix:   opts.Prefix,
		output:   out,
		styles:   newStyles(out),
	}, nil
}

var commands = []string{"restore", "capture", "show", "diagram ascii", "diagram mermaid",
	"state", "prefix", "add", "connect", "save", "help", "quit"}

// Run starts the interactive REPL loop.
func (c *Console) Run(ctx context.Context) error {
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	c.rl = rl
	defer rl.Close()

	fmt.Fprintf(c.output, "paramsnap console, %d nodes, prefix=%q\n", len(c.canvas.Nodes()), c.prefix)
	fmt.Fprintf(c.output, "Type 'help' for available commands.\n\n")

	for {
		rl.SetPrompt(c.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		if c.Exec(ctx, line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	var err error
	switch parts[0] {
	case "restore", "r":
		err = c.handleRestore(ctx, parts)
	case "capture", "c":
		err = c.handleCapture(ctx, parts)
	case "show", "ls":
		c.handleShow()
	case "diagram", "d":
		err = c.handleDiagram(ctx, parts)
	case "state":
		c.handleState(parts)
	case "prefix":
		c.handlePrefix(parts)
	case "add":
		c.handleAdd(parts)
	case "connect":
		err = c.handleConnect(ctx, parts)
	case "save":
		err = c.handleSave(ctx)
	case "help", "?":
		c.handleHelp()
	case "quit", "q", "exit":
		fmt.Fprintf(c.output, "Exiting console.\n")
		return true
	default:
		fmt.Fprintf(c.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
	}
	if err != nil {
		fmt.Fprintf(c.output, "Error: %v\n", err)
	}
	return false
}

// buildPrompt creates the prompt string: paramsnap[prefix | state]>
func (c *Console) buildPrompt() string {
	if c.prefix == "" {
		return "paramsnap> "
	}
	return fmt.Sprintf("paramsnap[%s | %s]> ", c.prefix, c.restorer.State(c.prefix))
}
