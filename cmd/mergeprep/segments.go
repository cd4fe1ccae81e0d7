package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mergeprep/internal/config"
	"mergeprep/internal/metrics"
	"mergeprep/internal/pairfile"
	"mergeprep/internal/segment"
	"mergeprep/internal/skiplog"
	"mergeprep/internal/textio"
)

func (a *app) segmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "Parse the keep/merge review file into the merge pair CSV",
		Long: `Reads --input, splits it into record groups on --group_delimiter and pairs
every Merge line with its group's Keep line. Lines that cannot be read are
skipped and written to --skipped_path. The result goes to --pairs_csv.`,
		Args: cobra.NoArgs,
		RunE: a.step("segments", a.runSegments),
	}
}

func (a *app) runSegments(cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.ApplyJobFile(cmd.Flags(), a.getenv); err != nil {
		return err
	}
	if err := a.validate(config.StageSegments); err != nil {
		return err
	}
	delim, err := cfg.Delimiter()
	if err != nil {
		return err
	}

	// Read before creating any output so a missing input leaves nothing behind.
	content, err := textio.ReadFile(cfg.InputPath)
	if err != nil {
		return err
	}

	skips, closeSkips, err := skiplog.New(cfg.SkippedPath)
	if err != nil {
		return err
	}
	res := segment.Parse(content, segment.Options{
		Delimiter:  delim,
		StrictUUID: cfg.StrictUUID,
		Skips:      skips,
		Logger:     a.logger,
	})
	if err := closeSkips(); err != nil {
		return fmt.Errorf("skip log: %w", err)
	}

	if err := pairfile.WriteFile(cfg.PairsCSV, res.Pairs); err != nil {
		return err
	}

	metrics.RecordRow(cfg.JobName, "groups", int64(len(res.Groups)))
	metrics.RecordRow(cfg.JobName, "pairs", int64(len(res.Pairs)))
	metrics.RecordRow(cfg.JobName, "skipped_lines", int64(res.SkippedLines))
	metrics.RecordRow(cfg.JobName, "groups_without_keep", int64(res.GroupsWithoutKeep))

	fields := []zap.Field{
		zap.String("input", cfg.InputPath),
		zap.String("pairs_csv", cfg.PairsCSV),
		zap.Int("pairs", len(res.Pairs)),
	}
	for _, reason := range skips.Reasons() {
		fields = append(fields, zap.Int("skipped_"+reason, skips.Count(reason)))
	}
	if cfg.SkippedPath != "" && skips.Total() > 0 {
		fields = append(fields, zap.String("skipped_path", cfg.SkippedPath))
	}
	a.logger.Info("wrote merge pairs", fields...)
	return nil
}
