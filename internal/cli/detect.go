package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/app"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/validity"
)

var (
	published  string
	detectJSON bool
)

// detectCmd explains the validity inference for one article
var detectCmd = &cobra.Command{
	Use:   "detect [file]",
	Short: "Infer until when an article's promotion is valid",
	Long: `Detect reads article text from a file (or stdin) and prints the candidate
paragraphs, the date each one yielded and the chosen expiration.

Example:
  flywise detect artigo.txt --published 2025-09-10T09:00:00-03:00
  pbpaste | flywise detect --published "2025-09-10 09:00" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVar(&published, "published", "", "publication time of the article (default: now)")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the report as JSON")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	loc := cfg.Scheduler.Location()

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open article: %w", err)
		}
		defer f.Close()
		in = f
	}
	text, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read article: %w", err)
	}

	anchor := time.Now().In(loc)
	if published != "" {
		anchor, err = dateparse.ParseIn(published, loc)
		if err != nil {
			return fmt.Errorf("parse --published %q: %w", published, err)
		}
	}

	report := app.NewDetector(cfg).Explain(string(text), anchor)
	if detectJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	writeReport(cmd.OutOrStdout(), report)
	return nil
}

func writeReport(w io.Writer, report validity.Report) {
	const layout = "2006-01-02 15:04:05 -07:00"

	fmt.Fprintf(w, "published:   %s\n", report.Anchor.Format(layout))
	fmt.Fprintf(w, "candidates:  %d\n", len(report.Candidates))
	for i, hit := range report.Hits {
		window := "in window"
		if !hit.InWindow {
			window = "out of window"
		}
		fmt.Fprintf(w, "  [%d] %-10s %s (%s)\n      %s\n", i+1, hit.Matcher, hit.At.Format(layout), window, hit.Snippet)
	}
	if !report.Found {
		fmt.Fprintln(w, "valid until: not found")
		return
	}
	fmt.Fprintf(w, "valid until: %s\n", report.ValidUntil.Format(layout))
}
