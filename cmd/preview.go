// Package cmd — preview command.
// Renders into an HTML page and optionally serves it with its blob URLs.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/gaurav-prasanna/quillpipe/core/blobstore"
	"github.com/gaurav-prasanna/quillpipe/core/export"
	"github.com/spf13/cobra"
)

var (
	flagPreviewTemplate string
	flagPreviewFormat   string
	flagPreviewOut      string
	flagServe           bool
	flagAddr            string
)

var previewCmd = &cobra.Command{
	Use:   "preview <input>",
	Short: "Render a document into an HTML preview page",
	Long: `Preview renders like the render command, then injects the document into an
HTML page: SVG inline, PDF through an embed tag pointing at a blob URL, text
in a <pre> block. With --serve the page and its blob URLs are served over HTTP
until interrupted. A PDF preview needs --serve: a page written to a file has
no server behind its blob URL.

Examples:
  quillpipe preview letter.md --template letter.zip --out preview.html
  quillpipe preview letter.md --template letter.zip --format pdf --serve --addr :8080`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	addTemplateFlags(previewCmd.Flags(), &flagPreviewTemplate, &flagPreviewFormat)
	previewCmd.Flags().StringVar(&flagPreviewOut, "out", "", "Write the page to this file (default: stdout)")
	previewCmd.Flags().BoolVar(&flagServe, "serve", false, "Serve the page and its blob URLs over HTTP")
	previewCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address for --serve (default: config preview.addr)")
	previewCmd.MarkFlagRequired("template")
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, release, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	doc, err := renderDocument(ctx, engine, flagPreviewTemplate, args[0], flagPreviewFormat)
	if err != nil {
		return err
	}

	addr := ""
	if flagServe {
		addr = flagAddr
		if addr == "" {
			addr = cfg.Preview.Addr
		}
	}
	if err := checkPreviewTarget(doc.format, addr); err != nil {
		return err
	}
	prefix := ""
	if addr != "" {
		prefix = blobOrigin(addr, cfg.Preview.Origin) + "/blob/"
	}
	blobs := blobstore.New(prefix)
	exporter := export.New(export.Config{Blobs: blobs, Logger: logger})

	page, err := export.NewPage(doc.name)
	if err != nil {
		return err
	}
	if err := exporter.ToElement(doc.result, doc.format, page.Container()); err != nil {
		return err
	}
	html, err := page.HTML()
	if err != nil {
		return fmt.Errorf("serializing preview: %w", err)
	}

	if addr == "" {
		return writePage(html)
	}
	return servePreview(ctx, addr, html, blobs)
}

// checkPreviewTarget rejects a PDF preview that nothing will serve.
func checkPreviewTarget(format core.Format, addr string) error {
	if addr == "" && (format == core.FormatPDF || format == "") {
		return fmt.Errorf("a pdf preview embeds a blob URL and needs --serve (or use --format svg or txt)")
	}
	return nil
}

// blobOrigin returns the origin blob URLs are served from.
func blobOrigin(addr, origin string) string {
	if origin != "" {
		return strings.TrimSuffix(origin, "/")
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func writePage(html string) error {
	if flagPreviewOut == "" {
		_, err := fmt.Fprintln(os.Stdout, html)
		return err
	}
	if err := os.WriteFile(flagPreviewOut, []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", flagPreviewOut)
	return nil
}

// previewHandler serves the page at / and live blobs under /blob/.
func previewHandler(html string, blobs *blobstore.Store) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/blob/", blobs)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	})
	return mux
}

func servePreview(ctx context.Context, addr, html string, blobs *blobstore.Store) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           previewHandler(html, blobs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Fprintf(os.Stdout, "✓ Serving preview on %s (Ctrl-C to stop)\n", blobOrigin(addr, cfg.Preview.Origin))

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving preview: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
