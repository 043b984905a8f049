package planner

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/harrisonrobin/qplan/pkg/model"
)

var (
	ErrMissingTaskName = errors.New("task name is required")
	ErrMissingTeam     = errors.New("executor team is required")
	ErrInvalidEstimate = errors.New("estimate must be one of the story point options")
	ErrUnknownTeam     = errors.New("unknown team")
)

// Dependency is an optional task the submitting team needs from another team.
type Dependency struct {
	Team        string
	Name        string
	Description string
}

// Submission is one filled-in task form.
type Submission struct {
	Team        string
	Name        string
	Description string
	Client      string
	Priority    model.Priority
	Estimate    int

	Blocker Dependency
	Enabler Dependency
}

// CheckTeams reports ErrUnknownTeam when the executor or a dependency team
// is set but is not one of departments. A missing executor is left to
// BuildRows.
func (s Submission) CheckTeams(departments []string) error {
	for _, team := range []struct{ field, name string }{
		{"team", s.Team},
		{"blocker team", s.Blocker.Team},
		{"enabler team", s.Enabler.Team},
	} {
		if team.name == "" {
			continue
		}
		if !slices.Contains(departments, team.name) {
			return fmt.Errorf("%w: %s %q", ErrUnknownTeam, team.field, team.name)
		}
	}
	return nil
}

// BuildRows maps a submission to the rows it produces: the team's own task
// followed by at most one blocker and one enabler. Dependency rows inherit
// priority and client and are left unestimated for the executing team.
// Dependencies that cannot be created are reported as warnings.
func BuildRows(s Submission) ([]model.TaskRow, []string, error) {
	if strings.TrimSpace(s.Team) == "" {
		return nil, nil, ErrMissingTeam
	}
	if strings.TrimSpace(s.Name) == "" {
		return nil, nil, ErrMissingTaskName
	}
	if !slices.Contains(model.StoryPointOptions, s.Estimate) {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidEstimate, s.Estimate)
	}

	rows := []model.TaskRow{{
		Name:        s.Name,
		Description: s.Description,
		Requester:   s.Team,
		Executor:    s.Team,
		Client:      s.Client,
		Priority:    s.Priority.Label(),
		Estimate:    strconv.Itoa(s.Estimate),
		Type:        model.OwnTask,
	}}

	var warnings []string
	for _, dep := range []struct {
		d    Dependency
		kind model.TaskType
		noun string
	}{
		{s.Blocker, model.IncomingBlocker, "Blocker"},
		{s.Enabler, model.IncomingEnabler, "Enabler"},
	} {
		switch {
		case dep.d.Team == "":
			continue
		case dep.d.Team == s.Team:
			warnings = append(warnings, fmt.Sprintf("%s team is the task's own team. %s not created.", dep.noun, dep.noun))
			continue
		case strings.TrimSpace(dep.d.Name) == "":
			warnings = append(warnings, fmt.Sprintf("%s name is empty. %s not created.", dep.noun, dep.noun))
			continue
		}
		rows = append(rows, model.TaskRow{
			Name:        dep.d.Name,
			Description: dep.d.Description,
			Requester:   s.Team,
			Executor:    dep.d.Team,
			Client:      s.Client,
			Priority:    s.Priority.Label(),
			Estimate:    "",
			Type:        dep.kind,
		})
	}
	return rows, warnings, nil
}

// Resolution is the user's answer to a P0 conflict.
type Resolution string

const (
	// Downgrade demotes the team's existing P0 to P1 and stores the new task as P0.
	Downgrade Resolution = "downgrade"
	// Keep leaves the existing P0 alone and stores the new task as P1.
	Keep Resolution = "keep"
)

// Resolutions are the only two answers a conflict accepts.
var Resolutions = []Resolution{Downgrade, Keep}

func ParseResolution(s string) (Resolution, error) {
	for _, r := range Resolutions {
		if string(r) == strings.ToLower(strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown resolution %q (want downgrade or keep)", s)
}

// IsCriticalOwnTask reports whether row is a team's own P0 task.
func IsCriticalOwnTask(row model.TaskRow, executor string) bool {
	return row.Executor == executor &&
		row.Priority == model.P0.Label() &&
		row.Type == model.OwnTask
}
