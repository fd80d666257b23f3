package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/gaurav-prasanna/quillpipe/core/blobstore"
	"github.com/gaurav-prasanna/quillpipe/core/bytesrc"
	"github.com/gaurav-prasanna/quillpipe/core/output"
)

var pdfMagic = []byte{0x25, 0x50, 0x44, 0x46}

func TestPrimaryArtifactShapes(t *testing.T) {
	tests := []struct {
		name      string
		artifacts any
		want      []byte
	}{
		{"list of maps", []any{map[string]any{"bytes": pdfMagic}, map[string]any{"bytes": []byte("second")}}, pdfMagic},
		{"typed list", []core.Artifact{{Bytes: []int{1, 2}}, {Bytes: []int{3}}}, []byte{1, 2}},
		{"main key", map[string]any{"main": map[string]any{"bytes": "JVBERg=="}, "other": []byte("x")}, pdfMagic},
		{"typed main", map[string]core.Artifact{"main": {Bytes: pdfMagic}}, pdfMagic},
		{"single wrapper", map[string]any{"bytes": []byte("<svg></svg>")}, []byte("<svg></svg>")},
		{"raw bytes", pdfMagic, pdfMagic},
		{"empty list", []any{}, []byte{}},
		{"nil", nil, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrimaryArtifact(&core.RenderResult{Artifacts: tt.artifacts})
			if err != nil {
				t.Fatalf("PrimaryArtifact: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrimaryArtifactListBeatsMain(t *testing.T) {
	// A list never consults "main"; element 0 wins.
	result := &core.RenderResult{Artifacts: []any{map[string]any{"main": "ignored", "bytes": []int{7}}}}
	got, err := PrimaryArtifact(result)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{7}) {
		t.Errorf("got %v, want [7]", got)
	}
}

func TestPrimaryArtifactUnsupported(t *testing.T) {
	_, err := PrimaryArtifact(&core.RenderResult{Artifacts: []any{struct{}{}}})
	if !errors.Is(err, bytesrc.ErrUnsupportedSource) {
		t.Fatalf("err = %v, want ErrUnsupportedSource", err)
	}
}

func TestToBlobMIMEMapping(t *testing.T) {
	result := &core.RenderResult{Artifacts: []any{map[string]any{"bytes": pdfMagic}}}
	tests := map[core.Format]string{
		core.FormatPDF: "application/pdf",
		core.FormatSVG: "image/svg+xml",
		core.FormatTXT: "text/plain",
		"":             "application/pdf",
	}
	for format, want := range tests {
		blob, err := ToBlob(result, format)
		if err != nil {
			t.Fatalf("ToBlob(%q): %v", format, err)
		}
		if blob.Type != want {
			t.Errorf("ToBlob(%q).Type = %q, want %q", format, blob.Type, want)
		}
	}
}

func TestToBlobScenario(t *testing.T) {
	result := &core.RenderResult{Artifacts: []any{map[string]any{"bytes": []byte{0x25, 0x50, 0x44, 0x46}}}}
	blob, err := ToBlob(result, core.FormatPDF)
	if err != nil {
		t.Fatal(err)
	}
	if blob.Size() != 4 || blob.Type != "application/pdf" {
		t.Errorf("blob = size %d type %q, want 4 application/pdf", blob.Size(), blob.Type)
	}
}

func TestToBlobCopiesBytes(t *testing.T) {
	payload := []byte("abc")
	blob, err := ToBlob(&core.RenderResult{Artifacts: payload}, core.FormatTXT)
	if err != nil {
		t.Fatal(err)
	}
	payload[0] = 'X'
	if got := string(blob.Bytes()); got != "abc" {
		t.Errorf("blob changed with its source: %q", got)
	}
}

func TestToDataURL(t *testing.T) {
	svg := []byte("<svg></svg>")
	result := &core.RenderResult{Artifacts: map[string]any{"bytes": svg}}

	url, err := New(Config{}).ToDataURL(context.Background(), result, core.FormatSVG)
	if err != nil {
		t.Fatalf("ToDataURL: %v", err)
	}
	if !regexp.MustCompile(`^data:image/svg\+xml;base64,`).MatchString(url) {
		t.Errorf("url = %q", url)
	}
	want := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestToDataURLEncodersAgree(t *testing.T) {
	payload := bytes.Repeat([]byte{0, 1, 2, 3, 250, 251, 252}, 20000)
	blob := core.NewBlob(payload, "application/pdf")

	streamed, err := StreamEncoder{}.Encode(context.Background(), blob)
	if err != nil {
		t.Fatal(err)
	}
	buffered, err := BufferEncoder{Encoding: base64.StdEncoding}.Encode(context.Background(), blob)
	if err != nil {
		t.Fatal(err)
	}
	if streamed != buffered {
		t.Errorf("stream and buffer encodings differ")
	}
}

func TestToDataURLFallback(t *testing.T) {
	e := New(Config{Encoders: []Encoder{BufferEncoder{}, BufferEncoder{Encoding: base64.StdEncoding}}})
	url, err := e.ToDataURL(context.Background(), &core.RenderResult{Artifacts: []byte("hi")}, core.FormatTXT)
	if err != nil {
		t.Fatalf("ToDataURL: %v", err)
	}
	if url != "data:text/plain;base64,aGk=" {
		t.Errorf("url = %q", url)
	}
}

func TestToDataURLUnavailable(t *testing.T) {
	for name, encoders := range map[string][]Encoder{
		"none":      {},
		"declining": {BufferEncoder{}},
	} {
		e := New(Config{Encoders: encoders})
		_, err := e.ToDataURL(context.Background(), &core.RenderResult{Artifacts: []byte("x")}, core.FormatPDF)
		if !errors.Is(err, ErrDataURLUnavailable) {
			t.Errorf("%s: err = %v, want ErrDataURLUnavailable", name, err)
		}
	}
}

func TestToDataURLCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).ToDataURL(ctx, &core.RenderResult{Artifacts: []byte("x")}, core.FormatPDF)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func newContainer(t *testing.T) (*Page, *Element) {
	t.Helper()
	page, err := NewPage("test")
	if err != nil {
		t.Fatal(err)
	}
	return page, page.Container()
}

func TestToElementPDF(t *testing.T) {
	store := blobstore.New("")
	e := New(Config{Blobs: store})
	_, target := newContainer(t)

	if err := e.ToElement(&core.RenderResult{Artifacts: []any{map[string]any{"bytes": pdfMagic}}}, core.FormatPDF, target); err != nil {
		t.Fatalf("ToElement: %v", err)
	}
	markup, err := target.HTML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(markup, `<embed`) || !strings.Contains(markup, `type="application/pdf"`) {
		t.Errorf("markup = %q", markup)
	}
	src := regexp.MustCompile(`src="([^"]+)"`).FindStringSubmatch(markup)
	if src == nil {
		t.Fatalf("no src in %q", markup)
	}
	blob, ok := store.Get(src[1])
	if !ok {
		t.Fatalf("embed url %q not live", src[1])
	}
	if !bytes.Equal(blob.Bytes(), pdfMagic) {
		t.Errorf("embedded blob = %v", blob.Bytes())
	}
}

func TestToElementSVG(t *testing.T) {
	_, target := newContainer(t)
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><text>hi</text></svg>`
	if err := New(Config{}).ToElement(&core.RenderResult{Artifacts: []byte(svg)}, core.FormatSVG, target); err != nil {
		t.Fatal(err)
	}
	markup, _ := target.HTML()
	if !strings.HasPrefix(markup, "<svg") || !strings.Contains(markup, "<text>hi</text>") {
		t.Errorf("markup = %q", markup)
	}
}

func TestToElementText(t *testing.T) {
	_, target := newContainer(t)
	if err := New(Config{}).ToElement(&core.RenderResult{Artifacts: []byte("a < b")}, core.FormatTXT, target); err != nil {
		t.Fatal(err)
	}
	markup, _ := target.HTML()
	if markup != "<pre>a &lt; b</pre>" {
		t.Errorf("markup = %q", markup)
	}
}

func TestToElementFailureKeepsContent(t *testing.T) {
	page, target := newContainer(t)
	target.SetMarkup("<p>previous</p>")

	err := New(Config{}).ToElement(&core.RenderResult{Artifacts: []any{42}}, core.FormatSVG, target)
	if err == nil {
		t.Fatal("ToElement succeeded on an unsupported artifact")
	}
	doc, _ := page.HTML()
	if !strings.Contains(doc, "<p>previous</p>") {
		t.Errorf("container was modified: %q", doc)
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	w, err := output.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	store := blobstore.New("")
	e := New(Config{Blobs: store, Saver: w, RevokeDelay: 10 * time.Millisecond})

	path, err := e.Download(&core.RenderResult{Artifacts: []any{map[string]any{"bytes": pdfMagic}}}, core.FormatPDF, "")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != filepath.Join(dir, "document.pdf") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, pdfMagic) {
		t.Errorf("saved %v", data)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("transient url was never revoked")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDownloadNamedFile(t *testing.T) {
	w, err := output.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e := New(Config{Saver: w})
	path, err := e.Download(&core.RenderResult{Artifacts: []byte("text")}, core.FormatTXT, "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "notes.txt" {
		t.Errorf("path = %q", path)
	}
}

// recordingSaver keeps what it was given and whether the download URL was
// live while saving.
type recordingSaver struct {
	store *blobstore.Store
	data  []byte
	live  int
}

func (r *recordingSaver) Save(name string, data []byte) (string, error) {
	r.data = data
	r.live = r.store.Len()
	return name, nil
}

func TestDownloadSavesArtifactBytes(t *testing.T) {
	store := blobstore.New("")
	saver := &recordingSaver{store: store}
	e := New(Config{Blobs: store, Saver: saver, RevokeDelay: time.Hour})

	src := []int{0x25, 0x50, 0x44, 0x46}
	if _, err := e.Download(&core.RenderResult{Artifacts: map[string]any{"main": src}}, core.FormatPDF, ""); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(saver.data, pdfMagic) {
		t.Errorf("saved %v, want %v", saver.data, pdfMagic)
	}
	if saver.live != 1 {
		t.Errorf("live urls during save = %d, want 1", saver.live)
	}
}

type failingSaver struct{}

func (failingSaver) Save(string, []byte) (string, error) { return "", fmt.Errorf("disk full") }

func TestDownloadSaveFailureRevokes(t *testing.T) {
	store := blobstore.New("")
	e := New(Config{Blobs: store, Saver: failingSaver{}})
	if _, err := e.Download(&core.RenderResult{Artifacts: []byte("x")}, core.FormatTXT, ""); err == nil {
		t.Fatal("Download succeeded with a failing saver")
	}
	if store.Len() != 0 {
		t.Errorf("transient url leaked after failure")
	}
}

func TestDownloadWithoutSaver(t *testing.T) {
	_, err := New(Config{}).Download(&core.RenderResult{Artifacts: []byte("x")}, core.FormatTXT, "")
	if !errors.Is(err, ErrNoSaver) {
		t.Errorf("err = %v, want ErrNoSaver", err)
	}
}

func TestDefaultFilename(t *testing.T) {
	for format, want := range map[core.Format]string{
		core.FormatPDF: "document.pdf",
		core.FormatSVG: "document.svg",
		core.FormatTXT: "document.txt",
	} {
		if got := DefaultFilename(format); got != want {
			t.Errorf("DefaultFilename(%q) = %q, want %q", format, got, want)
		}
	}
}

type fakeInformer struct {
	info *core.TemplateInfo
	err  error
}

func (f fakeInformer) TemplateInfo(context.Context, string) (*core.TemplateInfo, error) {
	return f.info, f.err
}

func TestResolveFormat(t *testing.T) {
	ctx := context.Background()
	formats := func(fs ...core.Format) fakeInformer {
		return fakeInformer{info: &core.TemplateInfo{SupportedFormats: fs}}
	}
	tests := []struct {
		name      string
		info      TemplateInformer
		requested core.Format
		want      core.Format
	}{
		{"explicit wins", formats(core.FormatSVG), core.FormatTXT, core.FormatTXT},
		{"prefers svg", formats(core.FormatPDF, core.FormatSVG), "", core.FormatSVG},
		{"then pdf", formats(core.FormatTXT, core.FormatPDF), "", core.FormatPDF},
		{"then txt", formats(core.FormatTXT), "", core.FormatTXT},
		{"empty list", formats(), "", core.FormatSVG},
		{"lookup error", fakeInformer{err: errors.New("unknown template")}, "", core.FormatSVG},
		{"no informer", nil, "", core.FormatSVG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveFormat(ctx, tt.info, "demo", tt.requested, nil); got != tt.want {
				t.Errorf("ResolveFormat = %q, want %q", got, tt.want)
			}
		})
	}
}
