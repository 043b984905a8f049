package cli

import (
	"context"

	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/config"
	"github.com/harrisonrobin/qplan/pkg/index"
	"github.com/harrisonrobin/qplan/pkg/pending"
	"github.com/harrisonrobin/qplan/pkg/planner"
	"github.com/harrisonrobin/qplan/pkg/sheets"
	"go.uber.org/zap"
)

// app is everything a command needs to talk to the planning spreadsheet.
type app struct {
	cfg      *config.Config
	planner  *planner.Planner
	capacity *capacity.Store
}

func defaultTeam(cfg *config.Config) capacity.Team {
	return capacity.Team{People: cfg.Capacity.People, Days: cfg.Capacity.Days}
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	idx, err := index.Open(dir)
	if err != nil {
		return nil, err
	}
	client, err := sheets.NewClient(ctx, cfg, idx, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened spreadsheet", zap.String("id", client.SpreadsheetID()))

	table, err := pending.New(dir)
	if err != nil {
		return nil, err
	}
	caps := capacity.NewStore(capacity.NewSettings(cfg.Departments, defaultTeam(cfg)))

	p := planner.New(client, table, caps, planner.Options{
		JiraSheet:      cfg.Spreadsheet.JiraSheet,
		AnalyticsSheet: cfg.Spreadsheet.AnalyticsSheet,
		PendingTTL:     cfg.Pending.TTL,
	}, logger)

	return &app{cfg: cfg, planner: p, capacity: caps}, nil
}
