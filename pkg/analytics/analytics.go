// Package analytics generates the formula-driven summary worksheet. The
// sheet recalculates on its own as rows are edited in the spreadsheet, so
// it only needs rewriting when departments or capacity settings change.
package analytics

import (
	"fmt"

	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/model"
	"github.com/harrisonrobin/qplan/pkg/sheets"
)

// Headers of the analytics worksheet.
var Headers = []string{
	"Team",
	"People",
	"Days",
	"Capacity (SP)",
	"Own Task SP",
	"Incoming Blocker SP",
	"Incoming Enabler SP",
	"Total Load",
	"Free (SP)",
}

// Main sheet columns referenced by the formulas.
var (
	estimateCol = sheets.ColumnLetter(model.IdxEstimate + 1)
	executorCol = sheets.ColumnLetter(model.IdxExecutor + 1)
	typeCol     = sheets.ColumnLetter(model.IdxType + 1)
)

// SumIfs returns a SUMIFS formula adding the main sheet's estimates for
// the executor named in cell A<row> and the given task type.
func SumIfs(mainSheet string, row int, t model.TaskType) string {
	q := sheets.Quote(mainSheet)
	return fmt.Sprintf(`=SUMIFS(%s!$%s:$%s,%s!$%s:$%s,$A%d,%s!$%s:$%s,"%s")`,
		q, estimateCol, estimateCol,
		q, executorCol, executorCol,
		row,
		q, typeCol, typeCol,
		t)
}

// Table builds the worksheet: a header row, one formula row per department
// and a totals row.
func Table(mainSheet string, s capacity.Settings) [][]any {
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	out := [][]any{header}

	for i, dept := range s.Departments {
		r := i + 2
		team := s.Team(dept)
		out = append(out, []any{
			dept,
			team.People,
			team.Days,
			fmt.Sprintf("=B%d*C%d", r, r),
			SumIfs(mainSheet, r, model.OwnTask),
			SumIfs(mainSheet, r, model.IncomingBlocker),
			SumIfs(mainSheet, r, model.IncomingEnabler),
			fmt.Sprintf("=SUM(E%d:G%d)", r, r),
			fmt.Sprintf("=D%d-H%d", r, r),
		})
	}

	if n := len(s.Departments); n > 0 {
		last := n + 1
		total := []any{"Total"}
		for col := 2; col <= len(Headers); col++ {
			c := sheets.ColumnLetter(col)
			total = append(total, fmt.Sprintf("=SUM(%s2:%s%d)", c, c, last))
		}
		out = append(out, total)
	}
	return out
}
