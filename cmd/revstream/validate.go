package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/revstream"
	"github.com/reoring/revstream/i18n"
	yamlsrc "github.com/reoring/revstream/source/yaml"
)

var (
	validateFormat      string
	validateConcurrency int
	validateLang        string
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate revenue stream documents",
	Long:  "Validates JSON (.json) and YAML (.yaml, .yml) files. Use - to read JSON from stdin. Exits 1 when any document is invalid.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateFormat != "text" && validateFormat != "json" {
			return eris.Errorf("unknown --format %q (want text or json)", validateFormat)
		}
		opt := cfg.Validation.ParseOpt(cfg.Server.MaxBodyBytes)
		lang := cfg.Validation.Language
		if validateLang != "" {
			lang = validateLang
		}

		reports, err := validateFiles(cmd.Context(), args, opt, validateConcurrency, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := printReports(cmd.OutOrStdout(), reports, validateFormat, i18n.For(lang)); err != nil {
			return err
		}
		for _, r := range reports {
			if !r.Valid() {
				return errInvalid
			}
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "output format: text or json")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 4, "files validated in parallel")
	validateCmd.Flags().StringVar(&validateLang, "lang", "", "message language (default from config)")
	rootCmd.AddCommand(validateCmd)
}

// docResult is the outcome for one document of a file.
type docResult struct {
	Index      int                  `json:"index"`
	StreamType revstream.StreamType `json:"stream_type,omitempty"`
	Name       string               `json:"name,omitempty"`
	Issues     revstream.Issues     `json:"issues,omitempty"`
}

type fileReport struct {
	File string      `json:"file"`
	Docs []docResult `json:"documents"`
}

func (r fileReport) Valid() bool {
	for _, d := range r.Docs {
		if len(d.Issues) > 0 {
			return false
		}
	}
	return true
}

// validateFiles validates every file with at most concurrency workers. Reports
// keep the order of files. Only I/O failures are returned as errors.
func validateFiles(ctx context.Context, files []string, opt revstream.ParseOpt, concurrency int, stdin io.Reader) ([]fileReport, error) {
	reports := make([]fileReport, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, file := range files {
		g.Go(func() error {
			rep, err := validateFile(gctx, file, opt, stdin)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func validateFile(ctx context.Context, file string, opt revstream.ParseOpt, stdin io.Reader) (fileReport, error) {
	rep := fileReport{File: file}
	var r io.Reader
	if file == "-" {
		r = stdin
	} else {
		f, err := os.Open(file)
		if err != nil {
			return rep, eris.Wrapf(err, "open %s", file)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		for _, res := range yamlsrc.ParseAll(ctx, r, opt) {
			rep.Docs = append(rep.Docs, newDocResult(res.Index, res.Stream, res.Err))
		}
	default:
		s, err := revstream.ParseReader(ctx, r, opt)
		rep.Docs = append(rep.Docs, newDocResult(0, s, err))
	}
	return rep, nil
}

func newDocResult(index int, s revstream.RevenueStream, err error) docResult {
	d := docResult{Index: index}
	if err != nil {
		if iss, ok := revstream.AsIssues(err); ok {
			d.Issues = iss
		} else {
			d.Issues = revstream.Issues{{Path: "/", Code: revstream.CodeParseError, Message: err.Error(), Cause: err}}
		}
		return d
	}
	d.StreamType = s.StreamType()
	d.Name = s.Name()
	return d
}

func printReports(w io.Writer, reports []fileReport, format string, tr i18n.Translator) error {
	for i := range reports {
		for j := range reports[i].Docs {
			reports[i].Docs[j].Issues = reports[i].Docs[j].Issues.Localize(tr)
		}
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, rep := range reports {
		for _, d := range rep.Docs {
			label := rep.File
			if len(rep.Docs) > 1 {
				label = fmt.Sprintf("%s#%d", rep.File, d.Index)
			}
			if len(d.Issues) == 0 {
				fmt.Fprintf(w, "ok    %s (%s %q)\n", label, d.StreamType, d.Name)
				continue
			}
			fmt.Fprintf(w, "FAIL  %s\n", label)
			for _, it := range d.Issues {
				fmt.Fprintf(w, "      %s  %s: %s\n", it.Path, it.Code, it.Message)
			}
		}
	}
	return nil
}
