package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kk-code-lab/spanmark/internal/anchor"
	"github.com/kk-code-lab/spanmark/internal/config"
	"github.com/kk-code-lab/spanmark/internal/diag"
	"github.com/kk-code-lab/spanmark/internal/fs"
	"github.com/kk-code-lab/spanmark/internal/markup"
)

var (
	// ErrNotFound reports that a selection matched nothing in the document.
	ErrNotFound = errors.New("selection not found in document")
	// ErrEmptySelection reports a snippet that is blank after trimming.
	ErrEmptySelection = errors.New("empty selection")
)

func init() {
	diag.RegisterNotFound(ErrNotFound)
	diag.RegisterInvalid(ErrEmptySelection, fs.ErrNotText)
}

// Application resolves selections against documents held in a Store and
// writes markup back. Calls touching the same path are serialized.
type Application struct {
	store  fs.Store
	config config.Config
	locks  pathLocks
}

// New returns an Application over store using cfg for markup defaults.
func New(store fs.Store, cfg config.Config) *Application {
	return &Application{store: store, config: cfg}
}

// Config returns the settings the application was built with.
func (app *Application) Config() config.Config {
	return app.config
}

// LocateResult is a resolved selection together with the document text it
// was resolved in.
type LocateResult struct {
	Path       string
	Document   string
	Resolution anchor.Resolution
}

// Span is the chosen span.
func (r LocateResult) Span() anchor.Span { return r.Resolution.Span }

// Text is the raw document text covered by the chosen span.
func (r LocateResult) Text() string {
	s := r.Resolution.Span
	return r.Document[s.Start:s.End]
}

// ApplyResult describes one markup edit.
type ApplyResult struct {
	Path     string
	Located  anchor.Span
	Span     anchor.Span
	Before   string
	After    string
	Diff     string
	Written  bool
	Stripped bool
}

// Locate reads path and resolves sel in it.
func (app *Application) Locate(ctx context.Context, path string, sel anchor.Selection) (LocateResult, error) {
	unlock := app.locks.lock(path)
	defer unlock()
	return app.locate(ctx, path, sel)
}

func (app *Application) locate(ctx context.Context, path string, sel anchor.Selection) (LocateResult, error) {
	if strings.TrimSpace(sel.Snippet) == "" {
		return LocateResult{}, ErrEmptySelection
	}
	doc, err := app.store.Read(ctx, path)
	if err != nil {
		diag.Debugf("locate read path=%s code=%s err=%v", path, diag.Classify(err), err)
		return LocateResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	res, ok := anchor.Resolve(doc, sel)
	if !ok {
		diag.Debugf("locate path=%s snippet=%q stripped=%v result=none", path, sel.Snippet, res.Stripped)
		return LocateResult{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	diag.Debugf("locate path=%s candidates=%d valid=%d span=%d..%d stripped=%v",
		path, len(res.Candidates), len(res.Valid), res.Span.Start, res.Span.End, res.Stripped)
	return LocateResult{Path: path, Document: doc, Resolution: res}, nil
}

// Apply locates sel in path, rewrites it with opts and, unless dryRun is
// set, writes the new document back. The result always carries a diff.
func (app *Application) Apply(ctx context.Context, path string, sel anchor.Selection, opts markup.Options, dryRun bool) (ApplyResult, error) {
	unlock := app.locks.lock(path)
	defer unlock()

	found, err := app.locate(ctx, path, sel)
	if err != nil {
		return ApplyResult{}, err
	}
	after, span := markup.Apply(found.Document, found.Span(), opts)
	result := ApplyResult{
		Path:     path,
		Located:  found.Span(),
		Span:     span,
		Before:   found.Document,
		After:    after,
		Diff:     Diff(found.Document, after),
		Stripped: found.Resolution.Stripped,
	}
	if dryRun || after == found.Document {
		diag.Debugf("apply path=%s mode=%s dry=%v changed=%v", path, opts.Mode, dryRun, after != found.Document)
		return result, nil
	}
	if err := app.store.Write(ctx, path, after); err != nil {
		diag.Debugf("apply write path=%s code=%s err=%v", path, diag.Classify(err), err)
		return ApplyResult{}, fmt.Errorf("write %s: %w", path, err)
	}
	result.Written = true
	diag.Debugf("apply path=%s mode=%s span=%d..%d written", path, opts.Mode, span.Start, span.End)
	return result, nil
}

// ApplyNamed is Apply with options built from the application config; empty
// mode, empty color and nil tags take the configured defaults.
func (app *Application) ApplyNamed(ctx context.Context, path string, sel anchor.Selection, mode, color string, tags []string, dryRun bool) (ApplyResult, error) {
	opts, err := app.config.MarkupOptions(mode, color, tags)
	if err != nil {
		return ApplyResult{}, err
	}
	return app.Apply(ctx, path, sel, opts, dryRun)
}
