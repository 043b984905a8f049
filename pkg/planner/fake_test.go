package planner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harrisonrobin/qplan/pkg/sheets"
)

type update struct {
	Range string
	Input sheets.ValueInput
	Rows  int
}

// fakeSheet is an in-memory spreadsheet: worksheet title -> cells.
type fakeSheet struct {
	order   []string
	tabs    map[string][][]string
	updates []update
	failGet error
	// failEnsure makes every worksheet creation fail, as when the API
	// quota runs out between the main write and the derived sheets.
	failEnsure error
}

func newFakeSheet(main string, rows ...[]string) *fakeSheet {
	return &fakeSheet{
		order: []string{main},
		tabs:  map[string][][]string{main: rows},
	}
}

func (f *fakeSheet) MainSheet(context.Context) (string, error) {
	return f.order[0], nil
}

func (f *fakeSheet) Values(_ context.Context, sheet string) ([][]string, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	tab, ok := f.tabs[sheet]
	if !ok {
		return nil, fmt.Errorf("no sheet %q", sheet)
	}
	// Mimic the API: trailing empty rows and cells are trimmed.
	out := make([][]string, 0, len(tab))
	for _, r := range tab {
		out = append(out, append([]string(nil), r...))
	}
	for len(out) > 0 && blank(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeSheet) Update(_ context.Context, rng string, values [][]any, input sheets.ValueInput) error {
	title, row, col, err := parseRange(rng)
	if err != nil {
		return err
	}
	if _, ok := f.tabs[title]; !ok {
		return fmt.Errorf("no sheet %q", title)
	}
	f.updates = append(f.updates, update{Range: rng, Input: input, Rows: len(values)})

	tab := f.tabs[title]
	for i, vr := range values {
		r := row + i
		for len(tab) <= r {
			tab = append(tab, nil)
		}
		for j, v := range vr {
			c := col + j
			for len(tab[r]) <= c {
				tab[r] = append(tab[r], "")
			}
			tab[r][c] = fmt.Sprint(v)
		}
	}
	f.tabs[title] = tab
	return nil
}

func (f *fakeSheet) Clear(_ context.Context, sheet string) error {
	if _, ok := f.tabs[sheet]; !ok {
		return fmt.Errorf("no sheet %q", sheet)
	}
	f.tabs[sheet] = nil
	return nil
}

func (f *fakeSheet) EnsureSheet(_ context.Context, title string, _, _ int64) error {
	if f.failEnsure != nil {
		return f.failEnsure
	}
	if _, ok := f.tabs[title]; !ok {
		f.order = append(f.order, title)
		f.tabs[title] = nil
	}
	return nil
}

// parseRange splits "'Title'!B7" or "'Title'!A1:H1" into title and the
// zero-based row/column of the top-left cell.
func parseRange(rng string) (string, int, int, error) {
	bang := strings.LastIndex(rng, "!")
	if bang < 0 {
		return "", 0, 0, errors.New("range without sheet: " + rng)
	}
	title := strings.ReplaceAll(strings.Trim(rng[:bang], "'"), "''", "'")
	ref := strings.SplitN(rng[bang+1:], ":", 2)[0]

	i := 0
	col := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	row, err := strconv.Atoi(ref[i:])
	if err != nil {
		return "", 0, 0, err
	}
	return title, row - 1, col - 1, nil
}
