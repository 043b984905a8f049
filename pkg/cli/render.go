package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	overStyle   = cellStyle.Foreground(lipgloss.Color("9")).Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// renderTasks prints the planning rows with their sheet row numbers.
func renderTasks(w io.Writer, rows []model.TaskRow) {
	t := newTable("Row", "Task", "Requester", "Executor", "Client", "Priority", "SP", "Type").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(strconv.Itoa(r.Row), r.Name, r.Requester, r.Executor, r.Client, r.Priority, r.Estimate, string(r.Type))
	}
	fmt.Fprintln(w, t)
}

// renderLoad prints the capacity summary. Teams over capacity have their
// free column highlighted; executors outside the department list are marked.
func renderLoad(w io.Writer, lines []capacity.Line) {
	headers := []string{"Team", "Capacity"}
	for _, typ := range model.TaskTypes {
		headers = append(headers, string(typ))
	}
	headers = append(headers, "Total", "Free")
	freeCol := len(headers) - 1

	t := newTable(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == freeCol && row < len(lines) && lines[row].Over():
				return overStyle
			}
			return cellStyle
		})

	for _, l := range lines {
		name := l.Team
		if !l.Known {
			name += " (?)"
		}
		cells := []string{name, model.FormatPoints(l.Capacity)}
		for _, typ := range model.TaskTypes {
			cells = append(cells, model.FormatPoints(l.Load[typ]))
		}
		cells = append(cells, model.FormatPoints(l.Total), model.FormatPoints(l.Free))
		t.Row(cells...)
	}
	fmt.Fprintln(w, t)
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintln(w, warnStyle.Render("warning: "+msg))
	}
}
