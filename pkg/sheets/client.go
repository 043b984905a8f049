package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/harrisonrobin/qplan/pkg/auth"
	"github.com/harrisonrobin/qplan/pkg/config"
	"github.com/harrisonrobin/qplan/pkg/index"
	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	gsheets "google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// ErrSpreadsheetNotFound is returned when no spreadsheet with the configured
// title is visible to the credentials.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// NewClient authenticates and opens the planning spreadsheet. The spreadsheet
// is taken from cfg.Spreadsheet.ID, or looked up by title through Drive
// (cached in idx).
func NewClient(ctx context.Context, cfg *config.Config, idx *index.Spreadsheets, logger *zap.Logger) (*Client, error) {
	opt, err := auth.ClientOption(ctx, cfg.Credentials, logger)
	if err != nil {
		return nil, err
	}

	srv, err := gsheets.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	if cfg.Spreadsheet.ID != "" {
		return NewSheetsClient(srv, cfg.Spreadsheet.ID, logger), nil
	}

	drv, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}
	return openByTitle(ctx, srv, drv, cfg.Spreadsheet.Title, idx, logger)
}

// openByTitle opens the cached spreadsheet for title, or searches Drive when
// there is none. A cached ID that Sheets reports as not found (deleted, or
// access revoked) is forgotten and the search is run again.
func openByTitle(ctx context.Context, srv *gsheets.Service, drv *drive.Service, title string, idx *index.Spreadsheets, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idx != nil {
		if e, ok := idx.Lookup(title); ok {
			c := NewSheetsClient(srv, e.ID, logger)
			_, err := c.Titles(ctx)
			if err == nil {
				return c, nil
			}
			if !isNotFound(err) {
				return nil, err
			}
			logger.Info("cached spreadsheet no longer resolves, searching Drive",
				zap.String("title", title), zap.String("id", e.ID), zap.Time("resolved_at", e.ResolvedAt))
			idx.Forget(title)
			if err := idx.Flush(); err != nil {
				logger.Warn("could not save spreadsheet index", zap.Error(err))
			}
		}
	}

	id, err := FindSpreadsheet(ctx, drv, title)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved spreadsheet", zap.String("title", title), zap.String("id", id))

	if idx != nil {
		idx.Remember(title, id)
		if err := idx.Flush(); err != nil {
			logger.Warn("could not save spreadsheet index", zap.Error(err))
		}
	}
	return NewSheetsClient(srv, id, logger), nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// FindSpreadsheet searches Drive for a non-trashed spreadsheet named title.
func FindSpreadsheet(ctx context.Context, drv *drive.Service, title string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(title, "'", `\'`), spreadsheetMimeType)

	files, err := drv.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to search Drive for %q: %w", title, err)
	}
	for _, f := range files.Files {
		if f.Name == title {
			return f.Id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, title)
}
