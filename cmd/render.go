// Package cmd — render command.
// template + input → engine → download or data URL.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gaurav-prasanna/quillpipe/core/export"
	"github.com/gaurav-prasanna/quillpipe/core/output"
	"github.com/spf13/cobra"
)

// Flag variables.
var (
	flagTemplate  string
	flagFormat    string
	flagDataURL   bool
	flagOutput    string
	flagOutputDir string
)

var renderCmd = &cobra.Command{
	Use:   "render <input>",
	Short: "Render a markdown or HTML document through a template",
	Long: `Render loads the template archive, registers it with the engine, renders the
input, and writes the document. HTML input is reduced to its main content and
converted to markdown first. Without --format the template's supported
formats decide (svg, then pdf, then txt).

Examples:
  quillpipe render letter.md --template letter.zip
  quillpipe render page.html --template letter.zip --format svg --output_dir ./out
  quillpipe render letter.md --template letter.zip --format txt --data-url`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	addTemplateFlags(renderCmd.Flags(), &flagTemplate, &flagFormat)
	renderCmd.Flags().BoolVar(&flagDataURL, "data-url", false, "Print a data URL instead of writing a file")
	renderCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file name (default: <input>.<format>)")
	renderCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: config output_dir or current directory)")
	renderCmd.MarkFlagRequired("template")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	engine, release, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	doc, err := renderDocument(ctx, engine, flagTemplate, args[0], flagFormat)
	if err != nil {
		return err
	}

	if flagDataURL {
		url, err := export.New(export.Config{Logger: logger}).ToDataURL(ctx, doc.result, doc.format)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, url)
		return nil
	}

	dir := flagOutputDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	writer, err := output.New(dir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	exporter := export.New(export.Config{
		Saver:       writer,
		RevokeDelay: cfg.RevokeAfter(),
		Logger:      logger,
	})

	name := flagOutput
	if name == "" {
		name = doc.name + doc.format.Extension()
	}
	path, err := exporter.Download(doc.result, doc.format, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	return nil
}
