package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mailframe/pkg/bundle"
	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/inspect"
)

func TestMain(m *testing.M) {
	isInteractive = func() bool { return false }
	os.Exit(m.Run())
}

func box(x, y, w, h float64) *design.Box {
	return &design.Box{X: x, Y: y, Width: w, Height: h}
}

// writeDocument writes a design with two frames; "Spring Sale" holds one
// [table] region.
func writeDocument(t *testing.T) string {
	t.Helper()
	doc := &design.Document{Name: "campaign", Nodes: []*design.Node{
		{
			ID: "1:1", Name: "Spring Sale", Type: design.TypeFrame, Visible: true,
			Box: box(0, 0, 600, 300),
			Children: []*design.Node{
				{
					ID: "1:2", Name: "[table] prices", Type: design.TypeFrame, Visible: true,
					Box: box(0, 0, 200, 40),
					Children: []*design.Node{{
						ID: "1:3", Name: "cell", Type: design.TypeText, Visible: true,
						Box:  box(10, 10, 80, 20),
						Text: &design.Text{Characters: "Price"},
					}},
				},
				{
					ID: "1:4", Name: "bar", Type: design.TypeRectangle, Visible: true,
					Box:   box(0, 100, 600, 10),
					Fills: []design.Paint{design.Solid(design.Color{B: 1})},
				},
			},
		},
		{ID: "2:1", Name: "Footer", Type: design.TypeFrame, Visible: true, Box: box(0, 400, 600, 80)},
	}}

	path := filepath.Join(t.TempDir(), "design.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := design.WriteJSON(doc, f); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompile(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "bundle")

	err := c.runCompile(ctx, writeDocument(t), compileOpts{root: "1:1", output: out})
	if err != nil {
		t.Fatalf("runCompile() error: %v", err)
	}

	html, err := os.ReadFile(filepath.Join(out, "spring-sale.html"))
	if err != nil {
		t.Fatalf("html not written: %v", err)
	}
	if !strings.Contains(string(html), "Price") {
		t.Error("html does not contain the table cell text")
	}
	if _, err := os.Stat(filepath.Join(out, bundle.Manifest)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}

	led, store, err := c.openLedger(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	bal, err := led.Balance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 4 {
		t.Errorf("balance = %d, want 4 after one table", bal)
	}
}

func TestCompileArchive(t *testing.T) {
	c := newTestCLI(t)
	out := filepath.Join(t.TempDir(), "sale"+bundle.ArchiveExt)

	err := c.runCompile(context.Background(), writeDocument(t), compileOpts{root: "1:1", output: out, archive: true, noCache: true})
	if err != nil {
		t.Fatalf("runCompile() error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	files, err := bundle.ReadArchive(f)
	if err != nil {
		t.Fatalf("ReadArchive() error: %v", err)
	}
	if _, ok := files["spring-sale.html"]; !ok {
		t.Errorf("archive entries = %v, want spring-sale.html", keys(files))
	}
}

func TestCompileErrors(t *testing.T) {
	doc := writeDocument(t)

	tests := []struct {
		name string
		opts compileOpts
		code errors.Code
	}{
		{"unknown root", compileOpts{root: "9:9"}, errors.ErrCodeSelection},
		{"text node root", compileOpts{root: "1:3"}, errors.ErrCodeSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCLI(t)
			tt.opts.output = t.TempDir()
			err := c.runCompile(context.Background(), doc, tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestCompileQuota(t *testing.T) {
	c := newTestCLI(t)
	c.Config.Ledger.InitialCredits = 1
	ctx := context.Background()
	doc := writeDocument(t)

	if err := c.runCompile(ctx, doc, compileOpts{root: "1:1", output: t.TempDir()}); err != nil {
		t.Fatalf("first compile: %v", err)
	}
	err := c.runCompile(ctx, doc, compileOpts{root: "1:1", output: t.TempDir()})
	if !errors.Is(err, errors.ErrCodeQuota) {
		t.Errorf("second compile error = %v, want QUOTA", err)
	}
}

func TestInspectJSON(t *testing.T) {
	var out bytes.Buffer
	err := runInspect(context.Background(), &out, writeDocument(t), inspectOpts{root: "1:1", tolerance: 10, asJSON: true})
	if err != nil {
		t.Fatalf("runInspect() error: %v", err)
	}

	var r inspect.Report
	if err := json.Unmarshal(out.Bytes(), &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if r.Root != "Spring Sale" || r.Tables != 1 || len(r.Bands) != 2 {
		t.Errorf("report = %+v", r)
	}
}

func TestInspectDOT(t *testing.T) {
	var out bytes.Buffer
	err := runInspect(context.Background(), &out, writeDocument(t), inspectOpts{root: "1:1", dot: true})
	if err != nil {
		t.Fatalf("runInspect() error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "digraph G {") || !strings.Contains(out.String(), `"1:1" -> "1:2"`) {
		t.Errorf("unexpected DOT:\n%s", out.String())
	}
}

func TestInspectNeedsRoot(t *testing.T) {
	var out bytes.Buffer
	err := runInspect(context.Background(), &out, writeDocument(t), inspectOpts{})
	if !errors.Is(err, errors.ErrCodeSelection) {
		t.Errorf("error = %v, want SELECTION for two frames without --root", err)
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.html")
	markup := `<table style="position:absolute; left:0px; top:0px; width:100px; height:20px;"><tr><td>x</td></tr></table>`
	if err := os.WriteFile(in, []byte(markup), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestCLI(t)
	var out bytes.Buffer
	cmd := c.convertCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{in, "--width", "600", "--background", "#eeeeee"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if strings.Contains(out.String(), "left:0px") || !strings.Contains(out.String(), "<!--[if !mso]><!--><table") {
		t.Error("positioning survived conversion")
	}
	if !strings.Contains(out.String(), "#eeeeee") {
		t.Error("background color missing")
	}
}

func TestCredits(t *testing.T) {
	c := newTestCLI(t)
	c.Config.Ledger.AdminSecret = "letmein"

	run := func(args ...string) error {
		cmd := c.creditsCommand()
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		return cmd.Execute()
	}

	if err := run("admin", "list"); !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Fatalf("list before admin = %v, want UNAUTHORIZED", err)
	}
	if err := run("redeem", "letmein"); err != nil {
		t.Fatalf("redeem admin secret: %v", err)
	}
	if err := run("admin", "add", "SPRING", "3"); err != nil {
		t.Fatalf("add code: %v", err)
	}
	if err := run("admin", "generate", "abc"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("generate with bad amount = %v, want INVALID_INPUT", err)
	}
	if err := run("redeem", "SPRING"); err != nil {
		t.Fatalf("redeem promo: %v", err)
	}
	if err := run("redeem", "SPRING"); !errors.Is(err, errors.ErrCodeInvalidCode) {
		t.Errorf("second redeem = %v, want INVALID_CODE", err)
	}
	if err := run("reset", "0000"); !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("bad reset = %v, want UNAUTHORIZED", err)
	}

	ctx := context.Background()
	led, store, err := c.openLedger(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if bal, _ := led.Balance(ctx); bal != 8 {
		t.Errorf("balance = %d, want 8", bal)
	}
}

func TestFrameListModel(t *testing.T) {
	frames := []*design.Node{
		{ID: "1:1", Name: "Hero", Box: box(0, 0, 600, 300)},
		{ID: "2:1", Name: "Broken"},
		{ID: "3:1", Name: "Footer", Box: box(0, 0, 600, 80)},
	}
	var m tea.Model = NewFrameListModel(frames)

	press := func(key string) {
		var msg tea.KeyMsg
		switch key {
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		}
		m, _ = m.Update(msg)
	}

	press("down")
	press("enter")
	if got := m.(FrameListModel).Selected; got != nil {
		t.Fatalf("frame without bounds was selected: %v", got.Name)
	}
	press("down")
	press("enter")
	if got := m.(FrameListModel).Selected; got == nil || got.ID != "3:1" {
		t.Errorf("selected = %v, want Footer", got)
	}
	if !strings.Contains(m.View(), "Footer") {
		t.Error("view does not list frames")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestExecuteRecoversPanic(t *testing.T) {
	c := newTestCLI(t)
	root := &cobra.Command{Use: appName, SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(&cobra.Command{
		Use: "boom",
		RunE: func(*cobra.Command, []string) error {
			panic("index out of range")
		},
	})
	root.SetArgs([]string{"boom"})

	err := c.Execute(context.Background(), root)
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Fatalf("Execute() error = %v, want INTERNAL", err)
	}
	msg := ErrorMessage(err)
	if strings.Contains(msg, "index out of range") || strings.Contains(msg, string(errors.ErrCodeInternal)) {
		t.Errorf("ErrorMessage() = %q, want a generic message", msg)
	}
}

func TestErrorMessage(t *testing.T) {
	c := newTestCLI(t)
	err := c.runCompile(context.Background(), writeDocument(t), compileOpts{root: "9:9", output: t.TempDir()})
	if !errors.Is(err, errors.ErrCodeSelection) {
		t.Fatalf("runCompile() error = %v, want SELECTION", err)
	}
	if msg := ErrorMessage(err); msg == "" || strings.HasPrefix(msg, string(errors.ErrCodeSelection)) {
		t.Errorf("ErrorMessage() = %q, want the bare user message", msg)
	}
}
