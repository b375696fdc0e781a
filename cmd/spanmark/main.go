package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/kk-code-lab/spanmark/internal/anchor"
	"github.com/kk-code-lab/spanmark/internal/app"
	"github.com/kk-code-lab/spanmark/internal/capture"
	"github.com/kk-code-lab/spanmark/internal/config"
	"github.com/kk-code-lab/spanmark/internal/diag"
	"github.com/kk-code-lab/spanmark/internal/fs"
	"github.com/kk-code-lab/spanmark/internal/ui/preview"
)

const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
)

func printHelp(w io.Writer) {
	fmt.Fprint(w, `spanmark - anchor rendered selections in markdown sources and mark them up

USAGE:
    spanmark <command> [OPTIONS] FILE

COMMANDS:
    locate    Print the byte span a selection resolves to
    apply     Highlight, colour, embolden, tag or unmark a selection
    capture   Describe a selection made in rendered HTML
    preview   Show all candidates in the terminal and pick one
    colors    List the configured colour palette
    help      Show this help message

SELECTION OPTIONS (locate, apply, preview):
    --snippet TEXT       Selected text as rendered (required)
    --context TEXT       Text of the rendered block around the selection
    --occurrence N       Index of that block among identical blocks (default 0)

Run "spanmark <command> -h" for command options. Exit status is 2 when the
selection cannot be found.
`)
}

var openScreen = func() (tcell.Screen, error) {
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return screen, nil
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stderr)
		return exitError
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "-h", "--help", "help":
		printHelp(stdout)
		return exitOK
	case "locate":
		return runLocate(ctx, rest, stdout, stderr)
	case "apply":
		return runApply(ctx, rest, stdout, stderr)
	case "capture":
		return runCapture(ctx, rest, stdout, stderr)
	case "preview":
		return runPreview(ctx, rest, stdout, stderr)
	case "colors":
		return runColors(rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printHelp(stderr)
		return exitError
	}
}

// selectionFlags are the flags every command that resolves a selection
// shares.
type selectionFlags struct {
	snippet    string
	context    string
	occurrence int
	config     string
	jsonOut    bool
}

func (s *selectionFlags) register(fset *flag.FlagSet) {
	fset.StringVar(&s.snippet, "snippet", "", "selected text as rendered")
	fset.StringVar(&s.context, "context", "", "text of the rendered block around the selection")
	fset.IntVar(&s.occurrence, "occurrence", 0, "index of the block among identical blocks")
	fset.StringVar(&s.config, "config", "", "settings file (default $SPANMARK_CONFIG or the user config dir)")
	fset.BoolVar(&s.jsonOut, "json", false, "print the result as JSON")
}

// selection builds the selection; context only counts when --context was
// given, even if empty.
func (s *selectionFlags) selection(fset *flag.FlagSet) anchor.Selection {
	sel := anchor.Selection{Snippet: s.snippet, Occurrence: s.occurrence}
	fset.Visit(func(f *flag.Flag) {
		if f.Name == "context" {
			sel.Context = s.context
			sel.HasContext = true
		}
	})
	return sel
}

// stringList collects a repeatable, comma-separated flag. A nil list means
// the flag was never given.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	if *l == nil {
		*l = []string{}
	}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.SetOutput(stderr)
	return fset
}

// parseFile parses args and returns the single FILE operand.
func parseFile(fset *flag.FlagSet, args []string, stderr io.Writer) (string, bool) {
	if err := fset.Parse(args); err != nil {
		return "", false
	}
	if fset.NArg() != 1 {
		fmt.Fprintf(stderr, "%s: expected exactly one FILE\n", fset.Name())
		return "", false
	}
	return fset.Arg(0), true
}

func newApplication(configPath string) (*app.Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(fs.NewFileStore(""), cfg), nil
}

func fail(stderr io.Writer, err error) int {
	diag.Debugf("command failed code=%s err=%v", diag.Classify(err), err)
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if errors.Is(err, app.ErrNotFound) || errors.Is(err, capture.ErrNotFound) {
		return exitNotFound
	}
	return exitError
}

type spanOutput struct {
	Path       string `json:"path"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
	Candidates int    `json:"candidates"`
	Stripped   bool   `json:"stripped"`
}

func runLocate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := newFlagSet("locate", stderr)
	var sf selectionFlags
	sf.register(fset)
	path, ok := parseFile(fset, args, stderr)
	if !ok {
		return exitError
	}
	application, err := newApplication(sf.config)
	if err != nil {
		return fail(stderr, err)
	}
	res, err := application.Locate(ctx, path, sf.selection(fset))
	if err != nil {
		return fail(stderr, err)
	}
	out := spanOutput{
		Path:       path,
		Start:      res.Span().Start,
		End:        res.Span().End,
		Text:       res.Text(),
		Candidates: len(res.Resolution.Candidates),
		Stripped:   res.Resolution.Stripped,
	}
	if sf.jsonOut {
		return writeJSON(stdout, stderr, out)
	}
	fmt.Fprintf(stdout, "%d %d\t%s\n", out.Start, out.End, strings.ReplaceAll(out.Text, "\n", `\n`))
	return exitOK
}

type applyOutput struct {
	Path    string `json:"path"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Written bool   `json:"written"`
	Diff    string `json:"diff"`
}

func runApply(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := newFlagSet("apply", stderr)
	var sf selectionFlags
	sf.register(fset)
	var (
		mode   string
		color  string
		tags   stringList
		dryRun bool
	)
	fset.StringVar(&mode, "mode", "", "highlight, color, bold, italic, strike, tag or remove (default from config)")
	fset.StringVar(&color, "color", "", "palette name or CSS colour for --mode color")
	fset.Var(&tags, "tag", "tag to insert; repeatable or comma-separated")
	fset.BoolVar(&dryRun, "dry-run", false, "print the diff without writing the file")
	path, ok := parseFile(fset, args, stderr)
	if !ok {
		return exitError
	}
	application, err := newApplication(sf.config)
	if err != nil {
		return fail(stderr, err)
	}
	res, err := application.ApplyNamed(ctx, path, sf.selection(fset), mode, color, tags, dryRun)
	if err != nil {
		return fail(stderr, err)
	}
	if sf.jsonOut {
		return writeJSON(stdout, stderr, applyOutput{
			Path: path, Start: res.Span.Start, End: res.Span.End, Written: res.Written, Diff: res.Diff,
		})
	}
	switch {
	case dryRun:
		fmt.Fprint(stdout, res.Diff)
	case res.Written:
		fmt.Fprintf(stdout, "%s: marked %d..%d\n", path, res.Span.Start, res.Span.End)
	default:
		fmt.Fprintf(stdout, "%s: unchanged\n", path)
	}
	return exitOK
}

type captureOutput struct {
	Snippet    string `json:"snippet"`
	Context    string `json:"context,omitempty"`
	HasContext bool   `json:"has_context"`
	Occurrence int    `json:"occurrence"`
	Start      *int   `json:"start,omitempty"`
	End        *int   `json:"end,omitempty"`
}

func runCapture(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := newFlagSet("capture", stderr)
	var (
		htmlPath string
		snippet  string
		nth      int
		source   string
		cfgPath  string
	)
	fset.StringVar(&htmlPath, "html", "", "rendered HTML file (required)")
	fset.StringVar(&snippet, "snippet", "", "selected text (required)")
	fset.IntVar(&nth, "nth", 0, "which rendered occurrence of the snippet, from 0")
	fset.StringVar(&source, "source", "", "markdown source to resolve the captured selection in")
	fset.StringVar(&cfgPath, "config", "", "settings file")
	if err := fset.Parse(args); err != nil {
		return exitError
	}
	if htmlPath == "" || snippet == "" {
		fmt.Fprintln(stderr, "capture: --html and --snippet are required")
		return exitError
	}
	rendered, err := os.ReadFile(htmlPath)
	if err != nil {
		return fail(stderr, err)
	}
	sel, err := capture.FromHTML(fs.NormalizeTextContent(rendered), snippet, nth)
	if err != nil {
		return fail(stderr, err)
	}
	out := captureOutput{Snippet: sel.Snippet, Context: sel.Context, HasContext: sel.HasContext, Occurrence: sel.Occurrence}
	if source != "" {
		application, err := newApplication(cfgPath)
		if err != nil {
			return fail(stderr, err)
		}
		res, err := application.Locate(ctx, source, sel)
		if err != nil {
			return fail(stderr, err)
		}
		start, end := res.Span().Start, res.Span().End
		out.Start, out.End = &start, &end
	}
	return writeJSON(stdout, stderr, out)
}

func runPreview(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fset := newFlagSet("preview", stderr)
	var sf selectionFlags
	sf.register(fset)
	path, ok := parseFile(fset, args, stderr)
	if !ok {
		return exitError
	}
	application, err := newApplication(sf.config)
	if err != nil {
		return fail(stderr, err)
	}
	res, err := application.Locate(ctx, path, sf.selection(fset))
	if err != nil {
		return fail(stderr, err)
	}

	screen, err := openScreen()
	if err != nil {
		return fail(stderr, fmt.Errorf("terminal: %w", err))
	}
	span, accepted := preview.New(screen, res.Document, res.Resolution, path).Run()
	screen.Fini()
	if !accepted {
		return exitOK
	}
	fmt.Fprintf(stdout, "%d %d\n", span.Start, span.End)
	return exitOK
}

func runColors(args []string, stdout, stderr io.Writer) int {
	fset := newFlagSet("colors", stderr)
	cfgPath := fset.String("config", "", "settings file")
	if err := fset.Parse(args); err != nil {
		return exitError
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fail(stderr, err)
	}
	for _, name := range cfg.ColorNames() {
		marker := " "
		if strings.EqualFold(name, cfg.DefaultColor) {
			marker = "*"
		}
		fmt.Fprintf(stdout, "%s %-8s %s\n", marker, name, cfg.Colors[name])
	}
	return exitOK
}

func writeJSON(stdout, stderr io.Writer, v interface{}) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}
