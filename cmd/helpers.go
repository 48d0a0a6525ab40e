package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/pipeline"
	"github.com/sells-group/funnel-cli/internal/store"
	"github.com/sells-group/funnel-cli/pkg/monday"
)

// initStore opens and migrates the configured snapshot store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func newBoardClient() monday.Client {
	opts := []monday.Option{monday.WithRateLimit(cfg.Monday.RateLimit)}
	if cfg.Monday.APIURL != "" {
		opts = append(opts, monday.WithBaseURL(cfg.Monday.APIURL))
	}
	return monday.NewClient(cfg.Monday.Token, opts...)
}

// pipelineConfig translates the loaded config into a pipeline run config.
// SLA overrides are applied to the classifier table here, once per process.
func pipelineConfig(boardID string) (pipeline.Config, error) {
	cutoff, err := parseCutoff(cfg.Pipeline.IntroCutoff)
	if err != nil {
		return pipeline.Config{}, err
	}
	sellers := cfg.Roster.Sellers
	if cfg.Roster.File != "" {
		rf, err := classify.LoadRosterFile(cfg.Roster.File)
		if err != nil {
			return pipeline.Config{}, err
		}
		sellers = rf.Sellers
		for stage, days := range rf.SLADays {
			classify.SLADays[classify.Norm(stage)] = days
		}
	}
	for stage, days := range cfg.Pipeline.SLADays {
		classify.SLADays[classify.Norm(stage)] = days
	}
	if boardID == "" {
		boardID = cfg.Monday.BoardID
	}
	return pipeline.Config{
		BoardID:                 boardID,
		AccountsBoardID:         cfg.Monday.AccountsBoardID,
		AccountLinkColumnID:     cfg.Monday.AccountLinkColumnID,
		AccountIndustryColumnID: cfg.Monday.AccountIndustryColumnID,
		Sellers:                 sellers,
		Cutoff:                  cutoff,
		Retention:               cfg.Pipeline.Retention,
	}, nil
}

func parseCutoff(s string) (model.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return model.Date{}, eris.Wrapf(err, "parse intro cutoff %q", s)
	}
	return model.DateOf(t), nil
}
