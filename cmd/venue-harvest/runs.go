package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pdiddy/venue-harvest/internal/output"
	"github.com/pdiddy/venue-harvest/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored crawl runs or show a run manifest",
	Long: `Runs reads back what earlier crawls recorded. With --db it lists the runs
kept in a harvest database, most recent first, or the papers of one run with
--run. With --manifest it prints the summary of a YAML run manifest.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	addRunsFlags(runsCmd.Flags())
	rootCmd.AddCommand(runsCmd)
}

func addRunsFlags(f *pflag.FlagSet) {
	f.String("db", "", "SQLite database written by crawl --db")
	f.String("run", "", "list the papers of this run ID instead of the runs")
	f.String("manifest", "", "YAML manifest written by crawl --manifest")
}

func runRuns(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	runID, _ := cmd.Flags().GetString("run")
	manifestPath, _ := cmd.Flags().GetString("manifest")

	if dbPath == "" && manifestPath == "" {
		return errors.New("runs needs --db or --manifest")
	}
	w := cmd.OutOrStdout()

	if manifestPath != "" {
		if err := printManifest(w, manifestPath); err != nil {
			return err
		}
	}
	if dbPath == "" {
		return nil
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if runID != "" {
		return printPapers(cmd.Context(), w, s, runID)
	}
	return printRuns(cmd.Context(), w, s)
}

func printRuns(ctx context.Context, w io.Writer, s *store.Store) error {
	runs, err := s.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs stored")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %6d papers  venues=%s keywords=%s\n",
			r.ID, r.Started.Format(time.RFC3339), r.Accepted,
			strings.Join(r.Venues, ","), strings.Join(r.Keywords, ","))
	}
	return nil
}

func printPapers(ctx context.Context, w io.Writer, s *store.Store, runID string) error {
	papers, err := s.Papers(ctx, runID)
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		return fmt.Errorf("no papers stored for run %s", runID)
	}
	for _, p := range papers {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", p.ID, p.Year, p.Venue, p.Title)
	}
	return nil
}

func printManifest(w io.Writer, path string) error {
	m, err := output.ReadManifest(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s (%s, %s)\n", m.RunID, m.Started.Format(time.RFC3339), m.Finished.Sub(m.Started).Round(time.Second))
	fmt.Fprintf(w, "  venues:     %s\n", strings.Join(m.Input.Venues, ", "))
	fmt.Fprintf(w, "  keywords:   %s\n", strings.Join(m.Input.Keywords, ", "))
	fmt.Fprintf(w, "  endpoint:   %s, year_from %d\n", m.Config.Endpoint, m.Config.YearFrom)
	fmt.Fprintf(w, "  queries:    %d (%d failed)\n", m.Summary.Queries, len(m.Summary.Failures))
	fmt.Fprintf(w, "  accepted:   %d of %d candidates\n", m.Summary.Accepted, m.Summary.Candidates)
	fmt.Fprintf(w, "  csv:        %s\n", m.Outputs.CSV)
	return nil
}
