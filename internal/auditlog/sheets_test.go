package auditlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

func newTestSheetsSink(t *testing.T, handler http.HandlerFunc) *SheetsSink {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	return NewSheetsSinkWithService(svc, SheetsConfig{SpreadsheetID: "sheet-1"})
}

func TestSheetsSinkAppend(t *testing.T) {
	var (
		path  string
		query string
		body  sheets.ValueRange
	)
	sink := newTestSheetsSink(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	})

	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	err := sink.Append(context.Background(), []model.AuditEvent{
		{Timestamp: at, Identity: "alice", Action: "start"},
		{Timestamp: at, Identity: "42", Action: "search: button"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/v4/spreadsheets/sheet-1/values/"), path)
	assert.True(t, strings.HasSuffix(path, ":append"), path)
	assert.Contains(t, path, "Logs!A:C")
	assert.Contains(t, query, "valueInputOption=USER_ENTERED")
	assert.Contains(t, query, "insertDataOption=INSERT_ROWS")

	require.Len(t, body.Values, 2)
	assert.Equal(t, []interface{}{"2025-03-01 09:30:00", "alice", "start"}, body.Values[0])
	assert.Equal(t, []interface{}{"2025-03-01 09:30:00", "42", "search: button"}, body.Values[1])
}

func TestSheetsSinkAppendError(t *testing.T) {
	sink := newTestSheetsSink(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := sink.Append(context.Background(), []model.AuditEvent{{Identity: "alice", Action: "start"}})
	assert.Error(t, err)
}

func TestSheetsConfigEnabled(t *testing.T) {
	assert.False(t, SheetsConfig{}.Enabled())
	assert.False(t, SheetsConfig{SpreadsheetID: "x"}.Enabled())
	assert.True(t, SheetsConfig{SpreadsheetID: "x", CredentialsFile: "/etc/creds.json"}.Enabled())
	assert.True(t, SheetsConfig{SpreadsheetID: "x", CredentialsJSON: "{}"}.Enabled())
}
