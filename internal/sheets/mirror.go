// Package sheets mirrors the ledger into a Google Sheets worksheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"docsweep/internal/ledger"
	"docsweep/internal/logger"
)

// ErrMissingCredentials is returned when neither inline nor file credentials are set.
var ErrMissingCredentials = errors.New("no Google service account credentials configured")

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Config selects the target sheet and the service account used to write it.
type Config struct {
	SheetURL        string
	Worksheet       string
	CredentialsJSON string
	CredentialsFile string
}

// Mirror replaces the worksheet contents with the ledger snapshot on every push.
type Mirror struct {
	sheetsService *sheets.Service
	spreadsheetID string
	worksheet     string
	log           zerolog.Logger
}

// NewMirror creates a mirror authenticated with a service account.
func NewMirror(ctx context.Context, cfg Config) (*Mirror, error) {
	const op = "NewMirror"

	creds, err := readCredentials(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return NewMirrorWithService(sheetsService, cfg.SheetURL, cfg.Worksheet)
}

// NewMirrorWithService creates a mirror over an existing Sheets client.
func NewMirrorWithService(sheetsService *sheets.Service, sheetURL, worksheet string) (*Mirror, error) {
	const op = "NewMirrorWithService"

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}
	if worksheet == "" {
		worksheet = "Analises"
	}

	log := logger.WithComponent("sheets")
	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Str("worksheet", worksheet).
		Msg("Sheets mirror configured")

	return &Mirror{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		log:           log,
	}, nil
}

func readCredentials(cfg Config) ([]byte, error) {
	if cfg.CredentialsJSON != "" {
		return []byte(cfg.CredentialsJSON), nil
	}
	if cfg.CredentialsFile != "" {
		creds, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return creds, nil
	}
	return nil, ErrMissingCredentials
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// Name implements ledger.Mirror.
func (m *Mirror) Name() string {
	return "sheets"
}

// Push implements ledger.Mirror. The drive token is not used.
func (m *Mirror) Push(ctx context.Context, _ string, snap *ledger.Snapshot) error {
	const op = "Push"

	if snap.ParseErr != nil {
		return fmt.Errorf("%s: %w", op, snap.ParseErr)
	}

	sheetID, created, err := m.ensureSheet(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	_, err = m.sheetsService.Spreadsheets.Values.Clear(
		m.spreadsheetID,
		m.worksheet,
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to clear sheet: %w", op, err)
	}

	values := make([][]interface{}, 0, len(snap.Rows)+1)
	values = append(values, toValues(snap.Header))
	for _, row := range snap.Rows {
		values = append(values, toValues(row))
	}

	_, err = m.sheetsService.Spreadsheets.Values.Update(
		m.spreadsheetID,
		m.worksheet+"!A1",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to write values: %w", op, err)
	}

	if created {
		if err := m.formatHeaders(ctx, sheetID, int64(len(snap.Header))); err != nil {
			m.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	m.log.Info().
		Str("worksheet", m.worksheet).
		Int("rows_written", len(snap.Rows)).
		Msg("Ledger mirrored to Google Sheet")

	return nil
}

// ensureSheet returns the worksheet's id, creating the worksheet when it is missing.
func (m *Mirror) ensureSheet(ctx context.Context) (int64, bool, error) {
	spreadsheet, err := m.sheetsService.Spreadsheets.Get(m.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == m.worksheet {
			return sheet.Properties.SheetId, false, nil
		}
	}

	m.log.Info().Str("worksheet", m.worksheet).Msg("Creating new sheet")

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: m.worksheet}}},
		},
	}
	resp, err := m.sheetsService.Spreadsheets.BatchUpdate(m.spreadsheetID, batchUpdateReq).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sheet: %w", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, false, fmt.Errorf("create sheet: empty reply")
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, true, nil
}

// formatHeaders makes the header row bold and resizes the columns
func (m *Mirror) formatHeaders(ctx context.Context, sheetID, columns int64) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	_, err := m.sheetsService.Spreadsheets.BatchUpdate(m.spreadsheetID, batchUpdateReq).Context(ctx).Do()
	return err
}

func toValues(row []string) []interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return values
}
