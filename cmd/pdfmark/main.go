// Command pdfmark is a small CLI over the annotation engine: it inspects
// memdoc documents, replays saved drafts through the export pipeline, and
// manages the draft store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shockz09/pdfmark/doc/memdoc"
	"github.com/shockz09/pdfmark/draft"
	"github.com/shockz09/pdfmark/editor"
	"github.com/shockz09/pdfmark/export"
	"github.com/shockz09/pdfmark/observability"
	"github.com/shockz09/pdfmark/ocr"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var draftDir string
	var verbose bool

	root := &cobra.Command{
		Use:           "pdfmark",
		Short:         "Annotate, fill and flatten documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&draftDir, "draft-dir", defaultDraftDir(), "directory holding saved drafts")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline details")

	logger := func() observability.Logger {
		if verbose {
			return &observability.TextLogger{W: os.Stderr}
		}
		return observability.NopLogger{}
	}
	store := func() (*draft.DiskStore, error) { return draft.NewDiskStore(draftDir) }

	root.AddCommand(newInspectCmd(logger, store))
	root.AddCommand(newExportCmd(logger, store))
	root.AddCommand(newClearCmd(store))
	return root
}

func defaultDraftDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "pdfmark", "drafts")
}

func newInspectCmd(logger func() observability.Logger, store func() (*draft.DiskStore, error)) *cobra.Command {
	var draftKey string
	var runOCR bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Describe a document's pages, form fields and detected text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := sessionForExport(ctx, data, draftKey, store, log)
			if err != nil {
				return err
			}
			defer s.Close()

			if runOCR {
				detectRegions(ctx, s, log)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pages: %d\n", s.PageCount())
			for _, st := range s.PageStates() {
				extra := ""
				if n := len(s.Objects(st.PageNumber)); n > 0 {
					extra += fmt.Sprintf("  annotations: %d", n)
				}
				if n := len(s.TextRegions(st.PageNumber)); n > 0 {
					extra += fmt.Sprintf("  text regions: %d", n)
				}
				if st.Rotation != 0 {
					extra += fmt.Sprintf("  rotated %d", st.Rotation)
				}
				if st.Deleted {
					extra += "  deleted"
				}
				fmt.Fprintf(out, "  page %d (source %d)%s\n", st.PageNumber, st.Source, extra)
			}
			if n := s.CountRedactions(); n > 0 {
				fmt.Fprintf(out, "redactions: %d\n", n)
			}
			fields := s.FormFields()
			if len(fields) == 0 {
				return nil
			}
			fmt.Fprintf(out, "form fields: %d\n", len(fields))
			for _, f := range fields {
				flags := ""
				if f.Required {
					flags += " required"
				}
				if f.ReadOnly {
					flags += " read-only"
				}
				fmt.Fprintf(out, "  %s (%s, page %d)%s\n", f.Name, f.Kind, f.Page+1, flags)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&draftKey, "draft", "", "inspect the saved draft instead of the raw file")
	cmd.Flags().BoolVar(&runOCR, "ocr", false, "detect text regions with Tesseract before reporting")
	return cmd
}

// detectRegions runs the OCR detector over every page, installing regions
// where detection succeeds. Failures degrade to no regions for that page.
func detectRegions(ctx context.Context, s *editor.Session, log observability.Logger) {
	det := ocr.New(ocr.WithLogger(log))
	for page := 1; page <= s.PageCount(); page++ {
		rp, err := s.RenderPage(ctx, editor.RenderTicket{Page: page, Zoom: 1.0})
		if err != nil {
			log.Warn("ocr render failed", observability.Int("page", page), observability.Error("err", err))
			continue
		}
		regions, err := det.DetectRegions(ctx, rp.Image, 1.0)
		if err != nil {
			log.Warn("ocr detection failed", observability.Int("page", page), observability.Error("err", err))
			continue
		}
		if len(regions) > 0 {
			s.SetTextRegions(page, regions)
		}
	}
}

func newExportCmd(logger func() observability.Logger, store func() (*draft.DiskStore, error)) *cobra.Command {
	var outPath string
	var draftKey string
	var supersample float64

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Flatten a document, replaying a saved draft if one exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			s, err := sessionForExport(ctx, data, draftKey, store, log)
			if err != nil {
				return err
			}
			defer s.Close()

			if n := s.CountRedactions(); n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "baking %d redaction(s): covered content will be unrecoverable\n", n)
			}
			out, err := s.Export(ctx, export.Config{Supersample: supersample})
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "out.memdoc", "output file")
	cmd.Flags().StringVar(&draftKey, "draft", "", "draft key to replay before exporting")
	cmd.Flags().Float64Var(&supersample, "supersample", 0, "annotation raster supersampling (default 2.0)")
	return cmd
}

// sessionForExport opens a session, preferring the saved draft when a key is
// given and a draft exists.
func sessionForExport(ctx context.Context, data []byte, draftKey string, store func() (*draft.DiskStore, error), log observability.Logger) (*editor.Session, error) {
	if draftKey != "" {
		st, err := store()
		if err != nil {
			return nil, err
		}
		d, err := draft.Load(st, draftKey)
		switch {
		case err == nil:
			return editor.NewSessionFromDraft(ctx, memdoc.New(), memdoc.NewRenderer(), d,
				editor.WithLogger(log))
		case errors.Is(err, draft.ErrNoDraft):
			log.Warn("no draft found, exporting the original", observability.String("key", draftKey))
		default:
			return nil, err
		}
	}
	return editor.NewSession(ctx, memdoc.New(), memdoc.NewRenderer(), data,
		editor.WithLogger(log))
}

func newClearCmd(store func() (*draft.DiskStore, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <draft-key>",
		Short: "Delete a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store()
			if err != nil {
				return err
			}
			if err := st.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "draft %q cleared\n", args[0])
			return nil
		},
	}
}
