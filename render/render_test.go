package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
)

// fakeRunner emulates pdftoppm by writing placeholder PNG files for the
// requested page range.
type fakeRunner struct {
	totalPages int
	failProbe  bool
	failRender bool
	calls      []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))

	if len(args) == 1 && args[0] == "-v" {
		if f.failProbe {
			return nil, []byte("command not found"), errors.New("exit status 127")
		}
		return nil, []byte("pdftoppm version 24.02.0"), nil
	}
	if f.failRender {
		return nil, []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}

	first, last := 1, f.totalPages
	var positional []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-r":
			i++
		case "-f":
			first, _ = strconv.Atoi(args[i+1])
			i++
		case "-l":
			last, _ = strconv.Atoi(args[i+1])
			i++
		case "-png":
		default:
			positional = append(positional, args[i])
		}
	}
	if len(positional) != 2 {
		return nil, nil, fmt.Errorf("unexpected args: %v", args)
	}
	prefix := positional[1]
	for p := first; p <= last && p <= f.totalPages; p++ {
		out := fmt.Sprintf("%s-%d.png", prefix, p)
		if err := os.WriteFile(out, []byte(fmt.Sprintf("png page %d", p)), 0o600); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func TestRenderAll(t *testing.T) {
	runner := &fakeRunner{totalPages: 3}
	r := NewRasterizer(Config{}, runner, nil)

	imgs, err := r.RenderAll(context.Background(), []byte("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}
	if len(imgs) != 3 {
		t.Fatalf("len(imgs) = %d, want 3", len(imgs))
	}
	for i, img := range imgs {
		if img.Index != i {
			t.Errorf("imgs[%d].Index = %d, want %d", i, img.Index, i)
		}
		if want := fmt.Sprintf("png page %d", i+1); string(img.PNG) != want {
			t.Errorf("imgs[%d].PNG = %q, want %q", i, img.PNG, want)
		}
	}
}

func TestRenderPagesSubset(t *testing.T) {
	runner := &fakeRunner{totalPages: 5}
	r := NewRasterizer(Config{DPI: 150}, runner, nil)

	imgs, err := r.RenderPages(context.Background(), []byte("%PDF-1.4 fake"), []int{3, 0})
	if err != nil {
		t.Fatalf("RenderPages() error = %v", err)
	}
	if len(imgs) != 2 {
		t.Fatalf("len(imgs) = %d, want 2", len(imgs))
	}
	if imgs[0].Index != 0 || imgs[1].Index != 3 {
		t.Errorf("indices = [%d %d], want [0 3]", imgs[0].Index, imgs[1].Index)
	}

	// Selective rendering must pass a page range, not rasterize everything.
	var sawRange bool
	for _, call := range runner.calls {
		if strings.Contains(call, "-f 4 -l 4") {
			sawRange = true
		}
	}
	if !sawRange {
		t.Errorf("no -f 4 -l 4 invocation in calls: %v", runner.calls)
	}
}

func TestRenderNegativePage(t *testing.T) {
	r := NewRasterizer(Config{}, &fakeRunner{totalPages: 1}, nil)
	if _, err := r.RenderPages(context.Background(), []byte("x"), []int{-1}); err == nil {
		t.Fatal("RenderPages(-1) error = nil, want error")
	}
}

func TestRenderCommandFailure(t *testing.T) {
	r := NewRasterizer(Config{}, &fakeRunner{totalPages: 2, failRender: true}, nil)
	if _, err := r.RenderAll(context.Background(), []byte("not a pdf")); err == nil {
		t.Fatal("RenderAll() error = nil, want error")
	}
}

func TestProbe(t *testing.T) {
	ok := NewRasterizer(Config{}, &fakeRunner{}, nil)
	if err := ok.Probe(context.Background()); err != nil {
		t.Errorf("Probe() error = %v, want nil", err)
	}

	missing := NewRasterizer(Config{}, &fakeRunner{failProbe: true}, nil)
	if err := missing.Probe(context.Background()); err == nil {
		t.Error("Probe() error = nil, want error")
	}
}

func TestPageIndexFromName(t *testing.T) {
	tests := []struct {
		path    string
		want    int
		wantErr bool
	}{
		{"/tmp/x/all-1.png", 0, false},
		{"/tmp/x/all-07.png", 6, false},
		{"/tmp/x/p3-4.png", 3, false},
		{"/tmp/x/noindex.png", 0, true},
		{"/tmp/x/all-zero.png", 0, true},
	}
	for _, tt := range tests {
		got, err := pageIndexFromName(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("pageIndexFromName(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("pageIndexFromName(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}
