// Package planner implements the planning flow over the backing spreadsheet:
// loading and repairing the task sheet, appending submissions, the P0
// conflict branch, and re-deriving the Jira and analytics worksheets.
//
// Every operation is a read-modify-write against the sheet. A Planner
// serialises its own writes; separate processes are not coordinated.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harrisonrobin/qplan/pkg/analytics"
	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/jira"
	"github.com/harrisonrobin/qplan/pkg/metrics"
	"github.com/harrisonrobin/qplan/pkg/model"
	"github.com/harrisonrobin/qplan/pkg/pending"
	"github.com/harrisonrobin/qplan/pkg/sheets"
	"go.uber.org/zap"
)

// ErrDerivedSync wraps a failure to rewrite the Jira or analytics worksheet
// after the task rows themselves were written. The rows are saved; a retry
// must not write them again.
var ErrDerivedSync = errors.New("task rows saved, but derived worksheets were not updated")

const (
	jiraRows = 1000
	jiraCols = 20

	analyticsMinRows = 100
	analyticsCols    = 12
)

// Sheet is the subset of the spreadsheet API the planner needs.
type Sheet interface {
	MainSheet(ctx context.Context) (string, error)
	Values(ctx context.Context, sheet string) ([][]string, error)
	Update(ctx context.Context, rng string, values [][]any, input sheets.ValueInput) error
	Clear(ctx context.Context, sheet string) error
	EnsureSheet(ctx context.Context, title string, rows, cols int64) error
}

type Options struct {
	JiraSheet      string
	AnalyticsSheet string
	// PendingTTL bounds how long an unresolved conflict can be resolved.
	PendingTTL time.Duration
}

type Planner struct {
	sheet    Sheet
	pending  *pending.Table
	capacity *capacity.Store
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	mu sync.Mutex
}

func New(sheet Sheet, pendingTable *pending.Table, capStore *capacity.Store, opts Options, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.JiraSheet == "" {
		opts.JiraSheet = "csv"
	}
	if opts.AnalyticsSheet == "" {
		opts.AnalyticsSheet = "Analytics"
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 24 * time.Hour
	}
	return &Planner{
		sheet:    sheet,
		pending:  pendingTable,
		capacity: capStore,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Result describes what a submission or resolution did.
type Result struct {
	Saved    []model.TaskRow
	Warnings []string
	// Conflict is set when nothing was written because the executor already
	// has a P0 own task; resolve it with Planner.Resolve.
	Conflict *pending.Entry
}

// Load reads the task rows. An empty sheet gets a header row; a sheet whose
// header differs from the expected one has it rewritten.
func (p *Planner) Load(ctx context.Context) ([]model.TaskRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadMain(ctx)
}

func (p *Planner) loadMain(ctx context.Context) ([]model.TaskRow, error) {
	title, err := p.sheet.MainSheet(ctx)
	if err != nil {
		return nil, err
	}
	return p.load(ctx, title)
}

func (p *Planner) load(ctx context.Context, title string) ([]model.TaskRow, error) {
	values, err := p.sheet.Values(ctx, title)
	if err != nil {
		return nil, err
	}

	if len(values) == 0 {
		p.logger.Info("planning sheet is empty, writing header row", zap.String("sheet", title))
		if err := p.writeHeaders(ctx, title); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if !model.HeadersMatch(values[0]) {
		p.logger.Warn("planning sheet header mismatch, rewriting", zap.Strings("found", values[0]))
		if err := p.writeHeaders(ctx, title); err != nil {
			return nil, err
		}
		if values, err = p.sheet.Values(ctx, title); err != nil {
			return nil, err
		}
	}

	rows := make([]model.TaskRow, 0, len(values)-1)
	for i, v := range values[1:] {
		if blank(v) {
			continue
		}
		rows = append(rows, model.RowFromValues(v, i+2))
	}
	return rows, nil
}

func (p *Planner) writeHeaders(ctx context.Context, title string) error {
	header := make([]any, len(model.Headers))
	for i, h := range model.Headers {
		header[i] = h
	}
	last := sheets.ColumnLetter(len(model.Headers))
	return p.sheet.Update(ctx, sheets.Cell(title, "A1:"+last+"1"), [][]any{header}, sheets.Raw)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Save writes rows directly below the last row with a task name and then
// re-derives the auxiliary sheets. If only the second step fails the error
// wraps ErrDerivedSync.
func (p *Planner) Save(ctx context.Context, rows []model.TaskRow) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save(ctx, rows)
}

func (p *Planner) save(ctx context.Context, rows []model.TaskRow) error {
	if len(rows) == 0 {
		return nil
	}
	title, err := p.sheet.MainSheet(ctx)
	if err != nil {
		return err
	}
	values, err := p.sheet.Values(ctx, title)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		if err := p.writeHeaders(ctx, title); err != nil {
			return err
		}
	}

	lastFilled := 0
	for i, v := range values {
		if len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			lastFilled = i + 1
		}
	}
	target := max(lastFilled+1, 2)

	cells := make([][]any, len(rows))
	for i, r := range rows {
		cells[i] = r.Cells()
	}
	if err := p.sheet.Update(ctx, sheets.Cell(title, fmt.Sprintf("A%d", target)), cells, sheets.Raw); err != nil {
		return err
	}
	metrics.RecordRowsWritten(len(rows))
	p.logger.Info("saved task rows", zap.Int("rows", len(rows)), zap.Int("first_row", target))

	if err := p.syncDerived(ctx, title); err != nil {
		p.logger.Warn("derived worksheets not updated", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrDerivedSync, err)
	}
	return nil
}

// DowngradeExisting demotes the first P0 own task of executor to P1.
// It reports whether a row was changed.
func (p *Planner) DowngradeExisting(ctx context.Context, executor string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downgrade(ctx, executor)
}

func (p *Planner) downgrade(ctx context.Context, executor string) (bool, error) {
	title, err := p.sheet.MainSheet(ctx)
	if err != nil {
		return false, err
	}
	values, err := p.sheet.Values(ctx, title)
	if err != nil {
		return false, err
	}
	for i, v := range values {
		if i == 0 || len(v) <= model.IdxType {
			continue
		}
		row := model.RowFromValues(v, i+1)
		if !IsCriticalOwnTask(row, executor) {
			continue
		}
		cell := sheets.Cell(title, fmt.Sprintf("%s%d", sheets.ColumnLetter(model.IdxPriority+1), row.Row))
		if err := p.sheet.Update(ctx, cell, [][]any{{model.P1.Label()}}, sheets.Raw); err != nil {
			return false, err
		}
		p.logger.Info("downgraded existing P0", zap.String("executor", executor), zap.String("task", row.Name), zap.Int("row", row.Row))
		return true, nil
	}
	return false, nil
}

func (p *Planner) hasCritical(ctx context.Context, executor string) (bool, error) {
	rows, err := p.loadMain(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if IsCriticalOwnTask(r, executor) {
			return true, nil
		}
	}
	return false, nil
}

// Submit validates a form and stores its rows. A P0 submission for a team
// that already has a P0 own task is parked instead and returned as a
// conflict. An ErrDerivedSync error comes with a non-nil Result: the rows
// were saved.
func (p *Planner) Submit(ctx context.Context, s Submission) (*Result, error) {
	rows, warnings, err := BuildRows(s)
	if err != nil {
		metrics.RecordSubmission("invalid")
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Priority == model.P0 {
		conflict, err := p.hasCritical(ctx, s.Team)
		if err != nil {
			metrics.RecordSubmission("error")
			return nil, err
		}
		if conflict {
			p.sweep()
			entry := p.pending.Add(s.Team, rows, p.now())
			if err := p.pending.Save(); err != nil {
				p.logger.Warn("could not persist pending conflict", zap.Error(err))
			}
			metrics.RecordSubmission("conflict")
			p.logger.Info("P0 conflict", zap.String("executor", s.Team), zap.String("pending_id", entry.ID))
			return &Result{Warnings: warnings, Conflict: &entry}, nil
		}
	}

	err = p.save(ctx, rows)
	if err != nil && !errors.Is(err, ErrDerivedSync) {
		metrics.RecordSubmission("error")
		return nil, err
	}
	metrics.RecordSubmission("saved")
	return &Result{Saved: rows, Warnings: warnings}, err
}

// Pending returns a parked submission that has not expired.
func (p *Planner) Pending(id string) (pending.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweep()
	return p.pending.Get(id)
}

// Resolve answers a parked conflict and writes its rows. The conflict is
// consumed once the rows are written, so an ErrDerivedSync error comes with
// a non-nil Result and the conflict cannot be resolved a second time.
func (p *Planner) Resolve(ctx context.Context, id string, res Resolution) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweep()
	entry, err := p.pending.Get(id)
	if err != nil {
		return nil, err
	}

	rows := append([]model.TaskRow(nil), entry.Rows...)
	switch res {
	case Downgrade:
		changed, err := p.downgrade(ctx, entry.Executor)
		if err != nil {
			return nil, err
		}
		if !changed {
			p.logger.Info("no P0 left to downgrade", zap.String("executor", entry.Executor))
		}
	case Keep:
		for i := range rows {
			rows[i].Priority = model.P1.Label()
		}
	default:
		return nil, fmt.Errorf("unknown resolution %q", res)
	}

	err = p.save(ctx, rows)
	if err != nil && !errors.Is(err, ErrDerivedSync) {
		return nil, err
	}

	p.pending.Remove(id)
	if perr := p.pending.Save(); perr != nil {
		p.logger.Warn("could not persist pending table", zap.Error(perr))
	}
	metrics.RecordResolution(string(res))
	return &Result{Saved: rows}, err
}

func (p *Planner) sweep() {
	swept := p.pending.Sweep(p.now(), p.opts.PendingTTL)
	for _, e := range swept {
		p.logger.Info("expired pending conflict", zap.String("pending_id", e.ID), zap.String("executor", e.Executor))
	}
}

// Refresh reloads the rows and rewrites the derived worksheets.
func (p *Planner) Refresh(ctx context.Context) ([]model.TaskRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	title, err := p.sheet.MainSheet(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := p.load(ctx, title)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(p.syncJira(ctx, rows), p.syncAnalytics(ctx, title)); err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *Planner) syncDerived(ctx context.Context, title string) error {
	rows, err := p.load(ctx, title)
	if err != nil {
		return err
	}
	return errors.Join(
		p.syncJira(ctx, rows),
		p.syncAnalytics(ctx, title),
	)
}

// syncJira rewrites the Jira export worksheet. Nothing is written for an
// empty plan.
func (p *Planner) syncJira(ctx context.Context, rows []model.TaskRow) error {
	if len(rows) == 0 {
		return nil
	}
	ws := p.opts.JiraSheet
	if err := p.sheet.EnsureSheet(ctx, ws, jiraRows, jiraCols); err != nil {
		return err
	}
	if err := p.sheet.Clear(ctx, ws); err != nil {
		return err
	}
	if err := p.sheet.Update(ctx, sheets.Cell(ws, "A1"), jira.Table(rows), sheets.Raw); err != nil {
		return fmt.Errorf("jira export: %w", err)
	}
	p.logger.Debug("synced jira sheet", zap.String("sheet", ws), zap.Int("rows", len(rows)))
	return nil
}

func (p *Planner) syncAnalytics(ctx context.Context, mainTitle string) error {
	if p.capacity == nil {
		return nil
	}
	ws := p.opts.AnalyticsSheet
	table := analytics.Table(mainTitle, p.capacity.Snapshot())
	if err := p.sheet.EnsureSheet(ctx, ws, int64(max(analyticsMinRows, len(table))), analyticsCols); err != nil {
		return err
	}
	if err := p.sheet.Clear(ctx, ws); err != nil {
		return err
	}
	if err := p.sheet.Update(ctx, sheets.Cell(ws, "A1"), table, sheets.UserEntered); err != nil {
		return fmt.Errorf("analytics sheet: %w", err)
	}
	return nil
}

// SyncAnalytics rewrites the analytics worksheet, e.g. after capacity changes.
func (p *Planner) SyncAnalytics(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	title, err := p.sheet.MainSheet(ctx)
	if err != nil {
		return err
	}
	return p.syncAnalytics(ctx, title)
}
