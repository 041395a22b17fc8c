// Package google mirrors the transaction ledger to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"nzql/internal/core"
	"nzql/internal/log"
	ports "nzql/internal/sheets"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Transactions"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.SnapshotMirror = (*Client)(nil)

// New creates a mirror on top of an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// NewFromEnv creates a mirror authenticated with service account credentials
// taken from the environment.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetName, logger)
}

// credentialsFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON, then
// GOOGLE_SERVICE_ACCOUNT_FILE, then GOOGLE_APPLICATION_CREDENTIALS.
func credentialsFromEnv() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Mirror replaces the sheet contents with the header and every transaction.
func (c *Client) Mirror(ctx context.Context, d core.AppData) error {
	rng := c.ledgerRange()

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	rows := ports.LedgerRows(d)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.quotedSheet()+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Mirrored ledger to sheet",
		log.FieldOperation, log.OpSync,
		log.FieldTarget, c.sheetName,
		log.FieldCount, len(rows)-1)
	return nil
}

func (c *Client) ledgerRange() string {
	return fmt.Sprintf("%s!A:%c", c.quotedSheet(), 'A'+len(ports.LedgerHeader)-1)
}

// quotedSheet escapes the sheet name for A1 notation.
func (c *Client) quotedSheet() string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'"
}
