package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mergeprep/internal/config"
	"mergeprep/internal/domain"
	"mergeprep/internal/pairfile"
)

func (a *app) countsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Run the script's verification counts against the database",
		Long: `Reads --pairs_csv and prints, for the unique merge sources, the unique keep
targets and their union, how many dated encounters each set owns today.
Nothing is written to the database.`,
		Args: cobra.NoArgs,
		RunE: a.step("counts", a.runCounts),
	}
}

func (a *app) runCounts(cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.ApplyJobFile(cmd.Flags(), a.getenv); err != nil {
		return err
	}
	if err := a.validate(config.StageCounts); err != nil {
		return err
	}
	pairs, err := pairfile.ReadFile(cfg.PairsCSV, pairfile.ReadOptions{StrictUUID: cfg.StrictUUID})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, closeCounter, err := a.openCounter(ctx)
	if err != nil {
		return err
	}
	defer closeCounter()

	merges := domain.MergeSources(pairs)
	keeps := domain.KeepTargets(pairs)
	all := domain.Unique(append(append([]string{}, merges...), keeps...))

	sets := []struct {
		name string
		ids  []string
	}{
		{"merge_sources", merges},
		{"keep_targets", keeps},
		{"union", all},
	}
	totals := make([]int64, len(sets))
	for i, s := range sets {
		n, err := c.CountEncounters(ctx, s.ids)
		if err != nil {
			return fmt.Errorf("count %s: %w", s.name, err)
		}
		totals[i] = n
	}

	counts := domain.Counts{Affected: totals[0], Retained: totals[1], Known: true}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "set\tindividuals\tencounters")
	for i, s := range sets {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", s.name, len(s.ids), totals[i])
	}
	fmt.Fprintf(tw, "expected_after\t\t%d\n", counts.ExpectedAfter())
	return tw.Flush()
}
