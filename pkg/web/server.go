// Package web serves the planning form and team-load dashboard.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/chart"
	"github.com/harrisonrobin/qplan/pkg/jira"
	"github.com/harrisonrobin/qplan/pkg/metrics"
	"github.com/harrisonrobin/qplan/pkg/model"
	"github.com/harrisonrobin/qplan/pkg/pending"
	"github.com/harrisonrobin/qplan/pkg/planner"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"points": model.FormatPoints,
}).ParseFS(templateFS, "templates/index.html"))

// Planner is the planning backend the handlers drive.
type Planner interface {
	Load(ctx context.Context) ([]model.TaskRow, error)
	Submit(ctx context.Context, s planner.Submission) (*planner.Result, error)
	Pending(id string) (pending.Entry, error)
	Resolve(ctx context.Context, id string, res planner.Resolution) (*planner.Result, error)
	Refresh(ctx context.Context) ([]model.TaskRow, error)
	SyncAnalytics(ctx context.Context) error
}

type Options struct {
	Addr        string
	Departments []string
	Clients     []string
}

type Server struct {
	planner  Planner
	capacity *capacity.Store
	opts     Options
	logger   *zap.Logger
}

func New(p Planner, caps *capacity.Store, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{planner: p, capacity: caps, opts: opts, logger: logger}
}

// Handler returns the routed handler with logging and body limits applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /tasks", s.handleSubmit)
	mux.HandleFunc("POST /conflicts/{id}", s.handleResolve)
	mux.HandleFunc("POST /capacity", s.handleCapacity)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /chart", s.handleChart)
	mux.HandleFunc("GET /export/jira.csv", s.handleExport)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	return logRequests(s.logger, limitBody(maxBodyBytes, mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type dependencyField struct {
	Field string
	Noun  string
	Title string
}

var dependencyFields = []dependencyField{
	{Field: "blocker", Noun: "blocker", Title: "Blocker"},
	{Field: "enabler", Noun: "enabler", Title: "Enabler"},
}

type capacityField struct {
	Name   string
	People int
	Days   int
}

type page struct {
	Flashes      []flash
	Conflict     *pending.Entry
	Departments  []string
	Clients      []string
	Priorities   []model.Priority
	StoryPoints  []int
	Dependencies []dependencyField
	Capacity     []capacityField

	LoadError string
	Rows      []model.TaskRow
	Summary   []capacity.Line
	Types     []model.TaskType
	Headers   []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	settings := s.capacity.Snapshot()
	pg := page{
		Flashes:      popFlashes(w, r),
		Departments:  s.opts.Departments,
		Clients:      s.opts.Clients,
		Priorities:   model.Priorities,
		StoryPoints:  model.StoryPointOptions,
		Dependencies: dependencyFields,
		Types:        model.TaskTypes,
		Headers:      model.Headers,
	}
	for _, d := range settings.Departments {
		t := settings.Team(d)
		pg.Capacity = append(pg.Capacity, capacityField{Name: d, People: t.People, Days: t.Days})
	}

	if id := r.URL.Query().Get("conflict"); id != "" {
		entry, err := s.planner.Pending(id)
		if err == nil {
			pg.Conflict = &entry
		} else {
			pg.Flashes = append(pg.Flashes, flash{levelError, "This conflict has expired or was already resolved. Submit the task again."})
		}
	}

	if pg.Conflict == nil {
		rows, err := s.planner.Load(r.Context())
		if err != nil {
			s.logger.Error("load tasks", zap.Error(err))
			pg.LoadError = err.Error()
		} else {
			pg.Rows = rows
			pg.Summary = capacity.Summarize(settings, rows)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, pg); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target string, flashes ...flash) {
	setFlashes(w, flashes)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func submissionFromForm(r *http.Request) (planner.Submission, error) {
	prio, err := model.ParsePriority(r.PostFormValue("priority"))
	if err != nil {
		return planner.Submission{}, err
	}
	est, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("estimate")))
	if err != nil {
		return planner.Submission{}, fmt.Errorf("%w: %q", planner.ErrInvalidEstimate, r.PostFormValue("estimate"))
	}
	dep := func(field string) planner.Dependency {
		return planner.Dependency{
			Team:        r.PostFormValue(field + "_team"),
			Name:        strings.TrimSpace(r.PostFormValue(field + "_name")),
			Description: r.PostFormValue(field + "_description"),
		}
	}
	return planner.Submission{
		Team:        r.PostFormValue("team"),
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Description: r.PostFormValue("description"),
		Client:      r.PostFormValue("client"),
		Priority:    prio,
		Estimate:    est,
		Blocker:     dep("blocker"),
		Enabler:     dep("enabler"),
	}, nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sub, err := submissionFromForm(r)
	if err != nil {
		s.redirect(w, r, "/", flash{levelError, err.Error()})
		return
	}
	if err := sub.CheckTeams(s.opts.Departments); err != nil {
		s.redirect(w, r, "/", flash{levelError, err.Error()})
		return
	}

	res, err := s.planner.Submit(r.Context(), sub)
	var syncErr error
	switch {
	case errors.Is(err, planner.ErrMissingTaskName):
		s.redirect(w, r, "/", flash{levelError, "Enter a name for the main task!"})
		return
	case errors.Is(err, planner.ErrDerivedSync):
		s.logger.Warn("submit task", zap.Error(err))
		syncErr = err
	case err != nil:
		s.logger.Error("submit task", zap.Error(err))
		s.redirect(w, r, "/", flash{levelError, "Save error: " + err.Error()})
		return
	}

	flashes := warningFlashes(res.Warnings)
	if res.Conflict != nil {
		s.redirect(w, r, "/?conflict="+url.QueryEscape(res.Conflict.ID), flashes...)
		return
	}
	if syncErr != nil {
		flashes = append(flashes, syncFlash(syncErr), flash{levelSuccess, "Task saved!"})
	} else {
		flashes = append(flashes, flash{levelSuccess, "Task saved! (Jira sheet updated)"})
	}
	s.redirect(w, r, "/", flashes...)
}

func syncFlash(err error) flash {
	return flash{levelWarning, "Jira and analytics sheets were not updated, use Refresh to retry. " + err.Error()}
}

func warningFlashes(warnings []string) []flash {
	out := make([]flash, 0, len(warnings)+1)
	for _, w := range warnings {
		out = append(out, flash{levelWarning, w})
	}
	return out
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := planner.ParseResolution(r.PostFormValue("resolution"))
	if err != nil {
		s.redirect(w, r, "/?conflict="+url.QueryEscape(id), flash{levelError, err.Error()})
		return
	}

	var flashes []flash
	if _, err := s.planner.Resolve(r.Context(), id, res); errors.Is(err, planner.ErrDerivedSync) {
		s.logger.Warn("resolve conflict", zap.String("pending_id", id), zap.Error(err))
		flashes = append(flashes, syncFlash(err))
	} else if err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			s.redirect(w, r, "/", flash{levelError, "This conflict has expired or was already resolved. Submit the task again."})
			return
		}
		s.logger.Error("resolve conflict", zap.String("pending_id", id), zap.Error(err))
		s.redirect(w, r, "/?conflict="+url.QueryEscape(id), flash{levelError, "Save error: " + err.Error()})
		return
	}

	msg := "Done! The new task was saved as P1."
	if res == planner.Downgrade {
		msg = "Done! The old critical task is now P1, the new one was saved as P0."
	}
	s.redirect(w, r, "/", append(flashes, flash{levelSuccess, msg})...)
}

// handleCapacity applies the sidebar form. Fields arrive as parallel
// dept/people/days lists.
func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	depts, people, days := r.PostForm["dept"], r.PostForm["people"], r.PostForm["days"]
	if len(people) != len(depts) || len(days) != len(depts) {
		http.Error(w, "mismatched capacity fields", http.StatusBadRequest)
		return
	}

	var flashes []flash
	for i, d := range depts {
		p, perr := strconv.Atoi(people[i])
		n, derr := strconv.Atoi(days[i])
		if perr != nil || derr != nil {
			flashes = append(flashes, flash{levelError, fmt.Sprintf("%s: people and days must be whole numbers", d)})
			continue
		}
		if err := s.capacity.Set(d, capacity.Team{People: p, Days: n}); err != nil {
			flashes = append(flashes, flash{levelError, err.Error()})
		}
	}

	if err := s.planner.SyncAnalytics(r.Context()); err != nil {
		s.logger.Warn("sync analytics after capacity change", zap.Error(err))
		flashes = append(flashes, flash{levelWarning, "Analytics sheet not updated: " + err.Error()})
	}
	if len(flashes) == 0 {
		flashes = append(flashes, flash{levelSuccess, "Capacity updated."})
	}
	s.redirect(w, r, "/", flashes...)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.planner.Refresh(r.Context()); err != nil {
		s.logger.Error("refresh", zap.Error(err))
		s.redirect(w, r, "/", flash{levelError, "Refresh error: " + err.Error()})
		return
	}
	s.redirect(w, r, "/", flash{levelInfo, "Data refreshed."})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rows, err := s.planner.Load(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(w, capacity.Summarize(s.capacity.Snapshot(), rows)); err != nil {
		s.logger.Error("render chart", zap.Error(err))
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.planner.Load(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="jira_import.csv"`)
	if err := jira.WriteCSV(w, rows); err != nil {
		s.logger.Error("write jira csv", zap.Error(err))
	}
}
