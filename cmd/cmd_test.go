package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/gaurav-prasanna/quillpipe/core/blobstore"
	"github.com/gaurav-prasanna/quillpipe/core/export"
	"github.com/gaurav-prasanna/quillpipe/core/render"
	"github.com/gaurav-prasanna/quillpipe/internal/config"
	"github.com/klauspost/compress/zip"
)

func setup(t *testing.T) string {
	t.Helper()
	cfg = config.Default()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"letter/Quill.toml":   "[Quill]\nname = \"letter\"\nformats = [\"pdf\", \"txt\"]\n",
		"letter/glue.typ":     "#body",
		"letter/assets/a.png": "\x89PNG",
	}
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "letter.zip"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "note.md"), []byte("# Note\n\nHello.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRenderDocument(t *testing.T) {
	dir := setup(t)
	ctx := context.Background()

	doc, err := renderDocument(ctx, render.NewEngine(nil), filepath.Join(dir, "letter.zip"), filepath.Join(dir, "note.md"), "")
	if err != nil {
		t.Fatalf("renderDocument: %v", err)
	}
	if doc.format != core.FormatPDF {
		t.Errorf("resolved format = %q, want pdf (svg unsupported)", doc.format)
	}
	if doc.name != "note" {
		t.Errorf("name = %q", doc.name)
	}

	doc, err = renderDocument(ctx, render.NewEngine(nil), filepath.Join(dir, "letter.zip"), filepath.Join(dir, "note.md"), "txt")
	if err != nil {
		t.Fatal(err)
	}
	data, err := export.PrimaryArtifact(doc.result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Note\n====\n") {
		t.Errorf("txt = %q", data)
	}

	if _, err := renderDocument(ctx, render.NewEngine(nil), filepath.Join(dir, "letter.zip"), filepath.Join(dir, "note.md"), "docx"); err == nil {
		t.Errorf("unknown format accepted")
	}
}

func TestLoadTemplateFromURL(t *testing.T) {
	dir := setup(t)
	data, err := os.ReadFile(filepath.Join(dir, "letter.zip"))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	b, err := loadTemplate(context.Background(), srv.URL+"/letter.zip")
	if err != nil {
		t.Fatalf("loadTemplate: %v", err)
	}
	if _, ok := b.Files.Lookup("assets/a.png"); !ok {
		t.Errorf("wrapper folder not stripped: %v", b.Files)
	}
}

func TestPrintTree(t *testing.T) {
	var out bytes.Buffer
	printTree(&out, core.Tree{
		"Quill.toml": &core.FileEntry{Contents: "ab"},
		"assets":     core.Tree{"a.png": &core.FileEntry{Contents: []int{1, 2, 3}}},
	})
	want := "text          2  Quill.toml\n" +
		"binary        3  assets/a.png\n" +
		"✓ 2 files, 5 bytes\n"
	if out.String() != want {
		t.Errorf("printTree:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestTemplateName(t *testing.T) {
	tests := map[string]string{
		"letter.zip":                           "letter",
		"/tmp/templates/memo.zip":              "memo",
		"https://example.com/t/report.zip?v=2": "report",
	}
	for in, want := range tests {
		if got := templateName(in); got != want {
			t.Errorf("templateName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBlobOrigin(t *testing.T) {
	if got := blobOrigin(":8080", ""); got != "http://localhost:8080" {
		t.Errorf("got %q", got)
	}
	if got := blobOrigin("0.0.0.0:9000", ""); got != "http://0.0.0.0:9000" {
		t.Errorf("got %q", got)
	}
	if got := blobOrigin(":8080", "https://preview.example.com/"); got != "https://preview.example.com" {
		t.Errorf("got %q", got)
	}
}

func TestCheckPreviewTarget(t *testing.T) {
	tests := []struct {
		format  core.Format
		addr    string
		wantErr bool
	}{
		{core.FormatPDF, "", true},
		{"", "", true},
		{core.FormatPDF, ":8080", false},
		{core.FormatSVG, "", false},
		{core.FormatTXT, "", false},
	}
	for _, tt := range tests {
		err := checkPreviewTarget(tt.format, tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkPreviewTarget(%q, %q) = %v, wantErr %v", tt.format, tt.addr, err, tt.wantErr)
		}
	}
}

func TestPreviewHandler(t *testing.T) {
	blobs := blobstore.New("http://localhost/blob/")
	url := blobs.Create(core.NewBlob([]byte("%PDF-1.4"), "application/pdf"))

	srv := httptest.NewServer(previewHandler("<html>page</html>", blobs))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "<html>page</html>" {
		t.Errorf("page = %q", body)
	}

	resp, err = http.Get(srv.URL + "/blob/" + filepath.Base(url))
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Content-Type") != "application/pdf" || string(body) != "%PDF-1.4" {
		t.Errorf("blob = %q (%s)", body, resp.Header.Get("Content-Type"))
	}

	resp, err = http.Get(srv.URL + "/other")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
