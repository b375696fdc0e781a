package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SPANMARK_CONFIG", filepath.Join(dir, "none.json"))
	t.Setenv("SPANMARK_TAG_PREFIX", "")
	t.Setenv("SPANMARK_COLOR", "")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestLocateCommand(t *testing.T) {
	dir := isolateConfig(t)
	doc := writeFile(t, dir, "list.md", "- item one\n- item one\n- item one")

	code, out, errOut := runCLI("locate", "--snippet", "item one", "--context", "item one", "--occurrence", "1", doc)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "13 21\titem one\n" {
		t.Fatalf("stdout = %q", out)
	}
}

func TestLocateCommandJSON(t *testing.T) {
	dir := isolateConfig(t)
	doc := writeFile(t, dir, "a.md", "Some **bold** words")

	code, out, errOut := runCLI("locate", "--json", "--snippet", "bold words", doc)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var got spanOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Start != 7 || got.End != 19 || !got.Stripped || got.Text != "bold** words" {
		t.Fatalf("got %+v", got)
	}
}

func TestLocateCommandNotFoundExitCode(t *testing.T) {
	dir := isolateConfig(t)
	doc := writeFile(t, dir, "a.md", "nothing to see")

	code, _, errOut := runCLI("locate", "--snippet", "absent", doc)
	if code != exitNotFound {
		t.Fatalf("exit %d, want %d (%s)", code, exitNotFound, errOut)
	}
}

func TestApplyCommandWritesAndDryRuns(t *testing.T) {
	dir := isolateConfig(t)
	doc := writeFile(t, dir, "a.md", "- first\n- second\n")

	code, out, errOut := runCLI("apply", "--dry-run", "--mode", "bold", "--snippet", "second", doc)
	if code != exitOK {
		t.Fatalf("dry run exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "+- **second**\n") {
		t.Fatalf("dry run diff = %q", out)
	}
	data, _ := os.ReadFile(doc)
	if string(data) != "- first\n- second\n" {
		t.Fatalf("dry run wrote the file: %q", data)
	}

	code, _, errOut = runCLI("apply", "--mode", "color", "--color", "green", "--tag", "todo,later", "--snippet", "second", doc)
	if code != exitOK {
		t.Fatalf("apply exit %d: %s", code, errOut)
	}
	data, _ = os.ReadFile(doc)
	want := "- first\n- #todo #later <mark style=\"background: #BBFABBA6;\">second</mark>\n"
	if string(data) != want {
		t.Fatalf("file = %q, want %q", data, want)
	}
}

func TestApplyCommandUsesConfigFile(t *testing.T) {
	dir := isolateConfig(t)
	cfg := writeFile(t, dir, "cfg.json", `{"default_mode": "italic"}`)
	doc := writeFile(t, dir, "a.md", "plain words")

	code, _, errOut := runCLI("apply", "--config", cfg, "--snippet", "words", doc)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	data, _ := os.ReadFile(doc)
	if string(data) != "plain *words*" {
		t.Fatalf("file = %q", data)
	}
}

func TestCaptureCommandResolvesSource(t *testing.T) {
	dir := isolateConfig(t)
	html := writeFile(t, dir, "page.html", "<ul><li>item one</li><li>item one</li><li>item one</li></ul>")
	src := writeFile(t, dir, "page.md", "- item one\n- item one\n- item one")

	code, out, errOut := runCLI("capture", "--html", html, "--snippet", "item one", "--nth", "2", "--source", src)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var got captureOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Occurrence != 2 || got.Context != "item one" || got.Start == nil || *got.Start != 24 || *got.End != 32 {
		t.Fatalf("got %+v", got)
	}
}

func TestPreviewCommandPrintsAcceptedSpan(t *testing.T) {
	dir := isolateConfig(t)
	doc := writeFile(t, dir, "list.md", "- item one\n- item one\n- item one")

	scr := tcell.NewSimulationScreen("")
	prev := openScreen
	openScreen = func() (tcell.Screen, error) {
		if err := scr.Init(); err != nil {
			return nil, err
		}
		scr.SetSize(40, 6)
		scr.InjectKey(tcell.KeyRune, 'n', tcell.ModNone)
		scr.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
		return scr, nil
	}
	t.Cleanup(func() { openScreen = prev })

	code, out, errOut := runCLI("preview", "--snippet", "item one", doc)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "13 21\n" {
		t.Fatalf("stdout = %q", out)
	}
}

func TestColorsAndUsage(t *testing.T) {
	isolateConfig(t)
	code, out, _ := runCLI("colors")
	if code != exitOK || !strings.Contains(out, "* yellow") {
		t.Fatalf("colors exit %d: %q", code, out)
	}

	if code, _, _ := runCLI(); code != exitError {
		t.Fatalf("no args exit %d", code)
	}
	if code, _, _ := runCLI("frobnicate"); code != exitError {
		t.Fatalf("unknown command exit %d", code)
	}
	if code, _, _ := runCLI("locate", "--snippet", "x"); code != exitError {
		t.Fatalf("missing FILE exit %d", code)
	}
	if code, out, _ := runCLI("help"); code != exitOK || !strings.Contains(out, "USAGE") {
		t.Fatalf("help exit %d", code)
	}
}
