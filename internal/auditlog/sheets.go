package auditlog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

// DefaultSheetName is the tab that receives audit rows.
const DefaultSheetName = "Logs"

// SheetsConfig holds Google Sheets sink configuration.
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
	// WritesPerSecond paces append calls to stay under the API quota.
	WritesPerSecond float64
}

// Enabled reports whether enough is configured to build a sink.
func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != "" && (c.CredentialsFile != "" || c.CredentialsJSON != "")
}

// SheetsSink appends audit rows to a Google Sheets tab.
type SheetsSink struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
	limiter       *rate.Limiter
}

// NewSheetsSink creates a sink authenticated with a service account.
func NewSheetsSink(ctx context.Context, cfg SheetsConfig) (*SheetsSink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}

	data := []byte(cfg.CredentialsJSON)
	if len(data) == 0 {
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewSheetsSinkWithService(svc, cfg), nil
}

// NewSheetsSinkWithService creates a sink over an existing service client.
func NewSheetsSinkWithService(svc *sheets.Service, cfg SheetsConfig) *SheetsSink {
	name := cfg.SheetName
	if name == "" {
		name = DefaultSheetName
	}

	limit := rate.Inf
	if cfg.WritesPerSecond > 0 {
		limit = rate.Limit(cfg.WritesPerSecond)
	}

	return &SheetsSink{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		writeRange:    name + "!A:C",
		limiter:       rate.NewLimiter(limit, 1),
	}
}

// Append writes events as rows of [timestamp, identity, action].
func (s *SheetsSink) Append(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, span := otel.Tracer("auditlog").Start(ctx, "audit.append")
	defer span.End()
	span.SetAttributes(attribute.Int("audit.events", len(events)))

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for write slot: %w", err)
	}

	rows := make([][]interface{}, len(events))
	for i, e := range events {
		rows[i] = e.Row()
	}

	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.writeRange, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return fmt.Errorf("append rows: %w", err)
	}

	return nil
}
