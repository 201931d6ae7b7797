package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/bounty-scope-crawler/internal/config"
	"github.com/JakeFAU/bounty-scope-crawler/internal/crawler"
	csvstore "github.com/JakeFAU/bounty-scope-crawler/internal/storage/csv"
)

func newShowCmd() *cobra.Command {
	var byProgram bool
	cmd := &cobra.Command{
		Use:   "show [csv]",
		Short: "Prints a crawl output as a table",
		Long: `Reads a domain CSV written by crawl and prints it as a table. Without an
argument the configured crawler.output file is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := showPath(args)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			domains, err := csvstore.New().Load(path)
			if err != nil {
				return err
			}
			if byProgram {
				renderByProgram(cmd.OutOrStdout(), domains)
				return nil
			}
			renderDomains(cmd.OutOrStdout(), domains)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byProgram, "by-program", false, "show domain counts per program")
	return cmd
}

func showPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Crawler.Output, nil
}

func renderDomains(w io.Writer, domains *crawler.DomainTable) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Domain", "Program"})
	for _, rec := range domains.Records() {
		t.AppendRow(table.Row{rec.Domain, rec.SourceURL})
	}
	t.AppendFooter(table.Row{"Total", domains.Len()})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderByProgram(w io.Writer, domains *crawler.DomainTable) {
	counts := make(map[string]int)
	for _, rec := range domains.Records() {
		counts[rec.SourceURL]++
	}
	programs := make([]string, 0, len(counts))
	for p := range counts {
		programs = append(programs, p)
	}
	// Most domains first, then by URL.
	sort.Slice(programs, func(i, j int) bool {
		if counts[programs[i]] != counts[programs[j]] {
			return counts[programs[i]] > counts[programs[j]]
		}
		return programs[i] < programs[j]
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Program", "Domains"})
	for _, p := range programs {
		t.AppendRow(table.Row{p, counts[p]})
	}
	t.AppendFooter(table.Row{"Programs", len(programs)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
