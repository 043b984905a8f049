package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/qplan/pkg/metrics"
	"go.uber.org/zap"
	gsheets "google.golang.org/api/sheets/v4"
)

// ValueInput controls how Sheets interprets written values.
type ValueInput string

const (
	// Raw stores values as given.
	Raw ValueInput = "RAW"
	// UserEntered parses values as if typed into the UI, so formulas are evaluated.
	UserEntered ValueInput = "USER_ENTERED"
)

// Client is a Google Sheets API client bound to one spreadsheet.
type Client struct {
	srv           *gsheets.Service
	spreadsheetID string
	logger        *zap.Logger
}

func NewSheetsClient(srv *gsheets.Service, spreadsheetID string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID, logger: logger}
}

// SpreadsheetID returns the ID of the bound spreadsheet.
func (c *Client) SpreadsheetID() string {
	return c.spreadsheetID
}

// Titles returns the worksheet titles in tab order.
func (c *Client) Titles(ctx context.Context) ([]string, error) {
	start := time.Now()
	ss, err := c.srv.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	metrics.ObserveSheetCall("spreadsheets.get", start, err)
	if err != nil {
		return nil, fmt.Errorf("unable to read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

// MainSheet returns the title of the first worksheet, which holds the task rows.
func (c *Client) MainSheet(ctx context.Context) (string, error) {
	titles, err := c.Titles(ctx)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", c.spreadsheetID)
	}
	return titles[0], nil
}

// Values returns every non-empty row of a worksheet as formatted strings.
func (c *Client) Values(ctx context.Context, sheet string) ([][]string, error) {
	start := time.Now()
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, Quote(sheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	metrics.ObserveSheetCall("values.get", start, err)
	if err != nil {
		return nil, fmt.Errorf("unable to read values of %q: %w", sheet, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		row := make([]string, len(r))
		for j, v := range r {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	c.logger.Debug("read values", zap.String("sheet", sheet), zap.Int("rows", len(rows)))
	return rows, nil
}

// Update writes values starting at the top-left of rng (A1 notation).
func (c *Client) Update(ctx context.Context, rng string, values [][]any, input ValueInput) error {
	vr := &gsheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         values,
	}
	start := time.Now()
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(string(input)).
		Context(ctx).
		Do()
	metrics.ObserveSheetCall("values.update", start, err)
	if err != nil {
		return fmt.Errorf("unable to update %s: %w", rng, err)
	}
	c.logger.Debug("updated range", zap.String("range", rng), zap.Int("rows", len(values)))
	return nil
}

// Clear empties every cell of a worksheet.
func (c *Client) Clear(ctx context.Context, sheet string) error {
	start := time.Now()
	_, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, Quote(sheet), &gsheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	metrics.ObserveSheetCall("values.clear", start, err)
	if err != nil {
		return fmt.Errorf("unable to clear %q: %w", sheet, err)
	}
	return nil
}

// EnsureSheet adds a worksheet with the given grid size unless one with the
// same title already exists.
func (c *Client) EnsureSheet(ctx context.Context, title string, rows, cols int64) error {
	titles, err := c.Titles(ctx)
	if err != nil {
		return err
	}
	for _, t := range titles {
		if t == title {
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{
					Title: title,
					GridProperties: &gsheets.GridProperties{
						RowCount:    rows,
						ColumnCount: cols,
					},
				},
			},
		}},
	}
	start := time.Now()
	_, err = c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	metrics.ObserveSheetCall("spreadsheets.batch_update", start, err)
	if err != nil {
		return fmt.Errorf("unable to add worksheet %q: %w", title, err)
	}
	c.logger.Info("created worksheet", zap.String("title", title))
	return nil
}

// Quote returns a worksheet title usable in A1 notation and formulas.
func Quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// Cell returns an A1 reference such as 'Sheet1'!F7.
func Cell(sheet, cell string) string {
	return Quote(sheet) + "!" + cell
}

// ColumnLetter converts a 1-based column number to its A1 letter(s).
func ColumnLetter(col int) string {
	var s []byte
	for col > 0 {
		col--
		s = append([]byte{byte('A' + col%26)}, s...)
		col /= 26
	}
	return string(s)
}
