package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mergeprep/internal/config"
	"mergeprep/internal/db"
	"mergeprep/internal/domain"
	"mergeprep/internal/metrics"
	"mergeprep/internal/pairfile"
	"mergeprep/internal/sqlgen"
)

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Generate the merge SQL script from the pair CSV",
		Long: `Reads --pairs_csv and writes --output_sql: a single transaction that counts,
copies encounters from merge sources onto keep targets, counts again and
rolls back. Expected counts come from --expected_affected and
--expected_retained, from the [expected] table of a --job file, or from the
database with --probe.`,
		Args: cobra.NoArgs,
		RunE: a.step("query", a.runQuery),
	}
}

func (a *app) runQuery(cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.ApplyJobFile(cmd.Flags(), a.getenv); err != nil {
		return err
	}
	if err := a.validate(config.StageQuery); err != nil {
		return err
	}

	pairs, err := pairfile.ReadFile(cfg.PairsCSV, pairfile.ReadOptions{StrictUUID: cfg.StrictUUID})
	if err != nil {
		return err
	}

	counts := cfg.Counts()
	if cfg.Probe {
		if counts, err = a.probe(cmd.Context(), pairs); err != nil {
			return err
		}
	}

	doc, err := sqlgen.Generate(pairs, sqlgen.Params{
		Role:         cfg.Role,
		Organisation: cfg.Organisation,
		Username:     cfg.Username,
		HistoryNote:  cfg.HistoryNote,
		Ticket:       cfg.Ticket,
		Counts:       counts,
	})
	if err != nil {
		return err
	}
	if err := sqlgen.WriteFile(cfg.OutputSQL, doc); err != nil {
		return err
	}

	merges := len(domain.MergeSources(pairs))
	keeps := len(domain.KeepTargets(pairs))
	metrics.RecordRow(cfg.JobName, "pairs", int64(len(pairs)))
	metrics.RecordRow(cfg.JobName, "merge_sources", int64(merges))
	metrics.RecordRow(cfg.JobName, "keep_targets", int64(keeps))

	fields := []zap.Field{
		zap.String("output_sql", cfg.OutputSQL),
		zap.Int("pairs", len(pairs)),
		zap.Int("merge_sources", merges),
		zap.Int("keep_targets", keeps),
		zap.String("fingerprint", sqlgen.Fingerprint(pairs)),
	}
	if counts.Known {
		fields = append(fields,
			zap.Int64("expected_affected", counts.Affected),
			zap.Int64("expected_retained", counts.Retained),
			zap.Int64("expected_after", counts.ExpectedAfter()))
	}
	a.logger.Info("wrote merge script", fields...)
	return nil
}

// probe measures the expected counts against the configured database.
func (a *app) probe(ctx context.Context, pairs []domain.MergePair) (counts domain.Counts, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(a.cfg.JobName, "probe", err, time.Since(start)) }()

	c, closeCounter, err := a.openCounter(ctx)
	if err != nil {
		return domain.Counts{}, err
	}
	defer closeCounter()

	counts, err = db.Probe(ctx, c, pairs)
	if err != nil {
		return domain.Counts{}, err
	}
	a.logger.Info("probed expected counts",
		zap.String("driver", a.cfg.DBDriver),
		zap.Int64("affected", counts.Affected),
		zap.Int64("retained", counts.Retained))
	return counts, nil
}
