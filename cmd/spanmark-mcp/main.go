package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kk-code-lab/spanmark/internal/anchor"
	"github.com/kk-code-lab/spanmark/internal/app"
	"github.com/kk-code-lab/spanmark/internal/capture"
	"github.com/kk-code-lab/spanmark/internal/config"
	"github.com/kk-code-lab/spanmark/internal/diag"
	"github.com/kk-code-lab/spanmark/internal/fs"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.1.0"

func main() {
	root := flag.String("root", os.Getenv("SPANMARK_ROOT"), "directory relative document paths resolve against")
	cfgPath := flag.String("config", "", "settings file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	tools := &toolServer{app: app.New(fs.NewFileStore(*root), cfg)}

	s := server.NewMCPServer(
		"spanmark",
		version,
		server.WithToolCapabilities(true),
	)
	tools.register(s)

	log.Println("Starting spanmark MCP server...")
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

type toolServer struct {
	app *app.Application
}

func selectionOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Markdown document path"),
		),
		mcp.WithString("snippet",
			mcp.Required(),
			mcp.Description("Selected text as it appears in the rendered view"),
		),
		mcp.WithString("context",
			mcp.Description("Text content of the rendered block around the selection"),
		),
		mcp.WithNumber("occurrence",
			mcp.Description("Index of that block among blocks with identical text (default: 0)"),
		),
	}
}

func (t *toolServer) register(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("locate_selection", append([]mcp.ToolOption{
			mcp.WithDescription("Resolve a rendered-view selection to a byte span of the markdown source. Returns the span, the covered source text and the number of candidates."),
		}, selectionOptions()...)...),
		t.handleLocate,
	)

	s.AddTool(
		mcp.NewTool("apply_markup", append([]mcp.ToolOption{
			mcp.WithDescription("Highlight, colour, embolden, italicize, strike, tag or unmark a selection in the markdown source. Returns a line diff of the change."),
			mcp.WithString("mode",
				mcp.Description("highlight, color, bold, italic, strike, tag or remove (default from config)"),
			),
			mcp.WithString("color",
				mcp.Description("Palette name or CSS colour for mode color"),
			),
			mcp.WithString("tags",
				mcp.Description("Comma-separated tags to insert before the marked text"),
			),
			mcp.WithBoolean("dry_run",
				mcp.Description("Return the diff without writing the document"),
			),
		}, selectionOptions()...)...),
		t.handleApply,
	)

	s.AddTool(
		mcp.NewTool("capture_selection",
			mcp.WithDescription("Describe a selection made in rendered HTML: the enclosing block's text and its index among identical blocks. With path set, also resolve it in that markdown source."),
			mcp.WithString("html",
				mcp.Required(),
				mcp.Description("Rendered HTML document"),
			),
			mcp.WithString("snippet",
				mcp.Required(),
				mcp.Description("Selected text"),
			),
			mcp.WithNumber("nth",
				mcp.Description("Which rendered occurrence of the snippet, from 0 (default: 0)"),
			),
			mcp.WithString("path",
				mcp.Description("Optional markdown source to resolve the captured selection in"),
			),
		),
		t.handleCapture,
	)
}

func selectionFrom(req mcp.CallToolRequest) anchor.Selection {
	sel := anchor.Selection{
		Snippet:    req.GetString("snippet", ""),
		Occurrence: req.GetInt("occurrence", 0),
	}
	if args := req.GetArguments(); args != nil {
		if v, ok := args["context"].(string); ok {
			sel.Context = v
			sel.HasContext = true
		}
	}
	return sel
}

func toolError(err error) *mcp.CallToolResult {
	code := diag.Classify(err)
	diag.Debugf("tool error code=%s err=%v", code, err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", code, err))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

type locateResponse struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
	Candidates int    `json:"candidates"`
	Stripped   bool   `json:"stripped"`
}

func (t *toolServer) handleLocate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	res, err := t.app.Locate(ctx, path, selectionFrom(req))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(locateResponse{
		Start:      res.Span().Start,
		End:        res.Span().End,
		Text:       res.Text(),
		Candidates: len(res.Resolution.Candidates),
		Stripped:   res.Resolution.Stripped,
	})
}

type applyResponse struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Written bool   `json:"written"`
	Diff    string `json:"diff"`
}

func (t *toolServer) handleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	var tags []string
	if raw := req.GetString("tags", ""); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	res, err := t.app.ApplyNamed(ctx, path, selectionFrom(req),
		req.GetString("mode", ""), req.GetString("color", ""), tags, req.GetBool("dry_run", false))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(applyResponse{Start: res.Span.Start, End: res.Span.End, Written: res.Written, Diff: res.Diff})
}

type captureResponse struct {
	Snippet    string `json:"snippet"`
	Context    string `json:"context"`
	HasContext bool   `json:"has_context"`
	Occurrence int    `json:"occurrence"`
	Start      *int   `json:"start,omitempty"`
	End        *int   `json:"end,omitempty"`
}

func (t *toolServer) handleCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document := req.GetString("html", "")
	snippet := req.GetString("snippet", "")
	if document == "" || snippet == "" {
		return mcp.NewToolResultError("html and snippet are required"), nil
	}
	sel, err := capture.FromHTML(document, snippet, req.GetInt("nth", 0))
	if err != nil {
		return toolError(err), nil
	}
	resp := captureResponse{Snippet: sel.Snippet, Context: sel.Context, HasContext: sel.HasContext, Occurrence: sel.Occurrence}
	if path := req.GetString("path", ""); path != "" {
		res, err := t.app.Locate(ctx, path, sel)
		if err != nil {
			return toolError(err), nil
		}
		start, end := res.Span().Start, res.Span().End
		resp.Start, resp.End = &start, &end
	}
	return jsonResult(resp)
}
