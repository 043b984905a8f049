package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/importer"
	"github.com/harrisonrobin/qplan/pkg/model"
	"github.com/harrisonrobin/qplan/pkg/planner"
	"github.com/spf13/cobra"
)

type dependencyFlags struct {
	team        string
	name        string
	description string
}

type submitFlags struct {
	team        string
	name        string
	description string
	client      string
	priority    string
	estimate    int
	blocker     dependencyFlags
	enabler     dependencyFlags
}

func (f submitFlags) submission() (planner.Submission, error) {
	prio, err := model.ParsePriority(strings.TrimSpace(f.priority))
	if err != nil {
		return planner.Submission{}, err
	}
	return planner.Submission{
		Team:        f.team,
		Name:        strings.TrimSpace(f.name),
		Description: f.description,
		Client:      f.client,
		Priority:    prio,
		Estimate:    f.estimate,
		Blocker:     planner.Dependency{Team: f.blocker.team, Name: strings.TrimSpace(f.blocker.name), Description: f.blocker.description},
		Enabler:     planner.Dependency{Team: f.enabler.team, Name: strings.TrimSpace(f.enabler.name), Description: f.enabler.description},
	}, nil
}

var submitOpts submitFlags

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Add a task (with optional blocker and enabler) to the plan",
	Long: `Add a task to the plan.

A P0 task for a team that already has a P0 own task is not written. Its id is
printed instead; answer it with "qplan resolve <id> --downgrade" or "--keep".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := submitOpts.submission()
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := sub.CheckTeams(a.cfg.Departments); err != nil {
			return err
		}
		res, err := a.planner.Submit(cmd.Context(), sub)
		if err := syncWarning(cmd.ErrOrStderr(), err); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printWarnings(cmd.ErrOrStderr(), res.Warnings)
		if res.Conflict != nil {
			fmt.Fprintf(out, "Team %s already has a P0 (Critical) task. Nothing was saved.\n", res.Conflict.Executor)
			fmt.Fprintf(out, "  qplan resolve %s --downgrade   # old task becomes P1, new task saved as P0\n", res.Conflict.ID)
			fmt.Fprintf(out, "  qplan resolve %s --keep        # new task saved as P1\n", res.Conflict.ID)
			return nil
		}
		fmt.Fprintf(out, "Saved %d row(s).\n", len(res.Saved))
		return nil
	},
}

var (
	resolveDowngrade bool
	resolveKeep      bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Answer a P0 conflict left by submit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res planner.Resolution
		switch {
		case resolveDowngrade:
			res = planner.Downgrade
		case resolveKeep:
			res = planner.Keep
		default:
			return errors.New("one of --downgrade or --keep is required")
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		result, err := a.planner.Resolve(cmd.Context(), args[0], res)
		if err := syncWarning(cmd.ErrOrStderr(), err); err != nil {
			return err
		}
		if res == planner.Downgrade {
			fmt.Fprintf(cmd.OutOrStdout(), "Done! The old critical task is now P1; saved %d row(s) as P0.\n", len(result.Saved))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Done! Saved %d row(s) as P1.\n", len(result.Saved))
		}
		return nil
	},
}

// syncWarning downgrades planner.ErrDerivedSync to a printed warning: the
// task rows are already written, so the command still succeeds.
func syncWarning(w io.Writer, err error) error {
	if errors.Is(err, planner.ErrDerivedSync) {
		printWarnings(w, []string{err.Error() + ` (run "qplan refresh" to rebuild them)`})
		return nil
	}
	return err
}

var listExecutor string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the planned tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		rows, err := a.planner.Load(cmd.Context())
		if err != nil {
			return err
		}
		renderTasks(cmd.OutOrStdout(), filterExecutor(rows, listExecutor))
		return nil
	},
}

func filterExecutor(rows []model.TaskRow, executor string) []model.TaskRow {
	if executor == "" {
		return rows
	}
	var out []model.TaskRow
	for _, r := range rows {
		if r.Executor == executor {
			out = append(out, r)
		}
	}
	return out
}

var (
	loadPeople int
	loadDays   int
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Show team capacity against planned load",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		team := defaultTeam(a.cfg)
		if cmd.Flags().Changed("people") {
			team.People = loadPeople
		}
		if cmd.Flags().Changed("days") {
			team.Days = loadDays
		}
		if err := team.Validate(); err != nil {
			return err
		}
		rows, err := a.planner.Load(cmd.Context())
		if err != nil {
			return err
		}
		renderLoad(cmd.OutOrStdout(), capacity.Summarize(capacity.NewSettings(a.cfg.Departments, team), rows))
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload the plan and rewrite the Jira and analytics worksheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		rows, err := a.planner.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d task(s).\n", len(rows))
		return nil
	},
}

var (
	importFile   string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Append task rows from newline-delimited JSON",
	Long: `Append task rows read from newline-delimited JSON (stdin by default).

Each line is one object:
  {"name": "...", "executor": "DE", "client": "Casino", "priority": "P1", "estimate": 3}

Optional fields are description, requester (defaults to executor) and type
(defaults to "Own Task"). Nothing is written if any line is invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if importFile != "" && importFile != "-" {
			f, err := os.Open(importFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		rows, err := importer.ParseRows(in)
		if err != nil {
			return err
		}
		if importDryRun || len(rows) == 0 {
			renderTasks(cmd.OutOrStdout(), rows)
			return nil
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := syncWarning(cmd.ErrOrStderr(), a.planner.Save(cmd.Context(), rows)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d row(s).\n", len(rows))
		return nil
	},
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitOpts.team, "team", "", "executor team")
	f.StringVar(&submitOpts.name, "name", "", "task name")
	f.StringVar(&submitOpts.description, "description", "", "task description")
	f.StringVar(&submitOpts.client, "client", "", "client (stream/product)")
	f.StringVar(&submitOpts.priority, "priority", model.P2.Label(), "priority, e.g. P0 or \"P1 (High)\"")
	f.IntVar(&submitOpts.estimate, "estimate", model.StoryPointOptions[0], "estimate in story points (1, 2, 3, 5 or 8)")
	f.StringVar(&submitOpts.blocker.team, "blocker-team", "", "team that must unblock this task")
	f.StringVar(&submitOpts.blocker.name, "blocker-name", "", "blocker task name")
	f.StringVar(&submitOpts.blocker.description, "blocker-description", "", "blocker requirements")
	f.StringVar(&submitOpts.enabler.team, "enabler-team", "", "team whose work this task enables")
	f.StringVar(&submitOpts.enabler.name, "enabler-name", "", "enabler task name")
	f.StringVar(&submitOpts.enabler.description, "enabler-description", "", "enabler requirements")
	_ = submitCmd.MarkFlagRequired("team")
	_ = submitCmd.MarkFlagRequired("name")

	resolveCmd.Flags().BoolVar(&resolveDowngrade, "downgrade", false, "downgrade the existing P0 to P1 and save the new task as P0")
	resolveCmd.Flags().BoolVar(&resolveKeep, "keep", false, "keep the existing P0 and save the new task as P1")
	resolveCmd.MarkFlagsMutuallyExclusive("downgrade", "keep")
	resolveCmd.MarkFlagsOneRequired("downgrade", "keep")

	listCmd.Flags().StringVar(&listExecutor, "executor", "", "only show tasks for this team")

	loadCmd.Flags().IntVar(&loadPeople, "people", 0, "override people per team")
	loadCmd.Flags().IntVar(&loadDays, "days", 0, "override working days per team")

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "read from file instead of stdin")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate and print the rows without writing")

	rootCmd.AddCommand(submitCmd, resolveCmd, listCmd, loadCmd, refreshCmd, importCmd)
}
