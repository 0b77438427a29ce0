package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func testTerms() model.Terms {
	return model.Terms{
		"pvalue": {
			Column: []string{"pvalue", "P Value"},
			Metadata: []model.TermMetadata{
				{Process: model.Wildcard, File: model.Wildcard, Name: "P-value", Desc: "Nominal p"},
				{Process: "Differential Expression", File: "data/results.csv"},
			},
		},
		"gene_id": {
			Column: []string{"Gene ID"},
			Metadata: []model.TermMetadata{
				{Process: model.Wildcard, File: model.Wildcard, Name: "gene_id"},
			},
		},
	}
}

func TestPrepareTermsData(t *testing.T) {
	values := prepareTermsData(testTerms())

	require.Len(t, values, 4)
	assert.Equal(t, Header, values[0])
	assert.Equal(t, []any{"gene_id", "Gene ID", "*", "*", "gene_id", ""}, values[1])
	assert.Equal(t, []any{"pvalue", "pvalue; P Value", "*", "*", "P-value", "Nominal p"}, values[2])
	assert.Equal(t, []any{"pvalue", "pvalue; P Value", "Differential Expression", "data/results.csv", "", ""}, values[3])
}

func TestPrepareTermsData_Empty(t *testing.T) {
	values := prepareTermsData(model.Terms{})
	assert.Equal(t, [][]any{Header}, values)
}

type fakeSheets struct {
	updates map[string]int
	// tab is the sheet title GET reports; empty means "Terms".
	tab string
	// clearStatus, when set, is returned by every clear call.
	clearStatus   int
	requests      []string
	formatSheetID []int64
	mu            sync.Mutex
	failGet       bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && f.failGet:
		f.requests = append(f.requests, "get")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "missing"}}`))
	case r.Method == http.MethodGet:
		f.requests = append(f.requests, "get")
		tab := f.tab
		if tab == "" {
			tab = "Terms"
		}
		_, _ = fmt.Fprintf(w, `{"spreadsheetId": "sheet-1", "sheets": [{"properties": {"sheetId": 7, "title": %q}}]}`, tab)
	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		f.requests = append(f.requests, "create")
		_, _ = w.Write([]byte(`{"spreadsheetId": "new-sheet", "spreadsheetUrl": "https://example.test/new-sheet",
			"sheets": [{"properties": {"sheetId": 0, "title": "Terms"}}]}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.requests = append(f.requests, "clear")
		if f.clearStatus != 0 {
			w.WriteHeader(f.clearStatus)
			_, _ = fmt.Fprintf(w, `{"error": {"code": %d, "message": "clear failed"}}`, f.clearStatus)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Requests) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Requests[0].AddSheet != nil {
			f.requests = append(f.requests, "add-sheet")
			_, _ = w.Write([]byte(`{"replies": [{"addSheet": {"properties": {"sheetId": 9, "title": "Terms"}}}]}`))
			return
		}
		f.requests = append(f.requests, "format")
		for _, item := range req.Requests {
			if item.SetBasicFilter != nil {
				f.formatSheetID = append(f.formatSheetID, item.SetBasicFilter.Filter.Range.SheetId)
			}
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.requests = append(f.requests, "update:"+r.URL.Query().Get("valueInputOption"))
		f.updates[path[strings.LastIndex(path, "/")+1:]] = len(vr.Values)
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestWriter(t *testing.T, fake *fakeSheets, config Config) *Writer {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return newWriter(svc, config, nil)
}

func TestWriteTerms_ExistingSpreadsheet(t *testing.T) {
	fake := &fakeSheets{updates: map[string]int{}}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-1"
	config.BatchSize = 3
	config.RetryAttempts = 1
	w := newTestWriter(t, fake, config)

	id, err := w.WriteTerms(context.Background(), testTerms())
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", id)

	assert.Equal(t, []string{"get", "clear", "update:RAW", "update:RAW", "format"}, fake.requests)
	assert.Equal(t, map[string]int{"'Terms'!A1": 3, "'Terms'!A4": 1}, fake.updates)
	assert.Equal(t, []int64{7}, fake.formatSheetID)
}

func TestWriteTerms_AddsMissingTab(t *testing.T) {
	fake := &fakeSheets{updates: map[string]int{}, tab: "Sheet1"}
	config := DefaultConfig()
	config.SpreadsheetID = "sheet-1"
	config.RetryAttempts = 1
	w := newTestWriter(t, fake, config)

	_, err := w.WriteTerms(context.Background(), testTerms())
	require.NoError(t, err)
	assert.Equal(t, []string{"get", "add-sheet", "clear", "update:RAW", "format"}, fake.requests)
	assert.Equal(t, []int64{9}, fake.formatSheetID)
}

func TestWriteTerms_CreatesSpreadsheet(t *testing.T) {
	fake := &fakeSheets{updates: map[string]int{}}
	config := DefaultConfig()
	config.EnableFormatting = false
	config.RetryAttempts = 1
	w := newTestWriter(t, fake, config)

	id, err := w.WriteTerms(context.Background(), testTerms())
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)
	assert.Equal(t, []string{"create", "clear", "update:RAW"}, fake.requests)
}

func TestWriteTerms_MissingSpreadsheet(t *testing.T) {
	fake := &fakeSheets{updates: map[string]int{}, failGet: true}
	config := DefaultConfig()
	config.SpreadsheetID = "gone"
	w := newTestWriter(t, fake, config)

	_, err := w.WriteTerms(context.Background(), testTerms())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to access spreadsheet gone")
	assert.Equal(t, []string{"get"}, fake.requests)
}

func TestWriteTerms_ClearRetries(t *testing.T) {
	tests := []struct {
		name   string
		status int
		calls  int
	}{
		{name: "bad request is permanent", status: http.StatusBadRequest, calls: 1},
		{name: "server error is retried", status: http.StatusServiceUnavailable, calls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSheets{updates: map[string]int{}, clearStatus: tt.status}
			config := DefaultConfig()
			config.SpreadsheetID = "sheet-1"
			config.RetryAttempts = 3
			config.RetryDelay = time.Millisecond
			w := newTestWriter(t, fake, config)

			_, err := w.WriteTerms(context.Background(), testTerms())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to clear sheet")

			clears := 0
			for _, req := range fake.requests {
				if req == "clear" {
					clears++
				}
			}
			assert.Equal(t, tt.calls, clears)
		})
	}
}

func TestRetryClass(t *testing.T) {
	assert.NoError(t, retryClass(nil))
	assert.ErrorIs(t, retryClass(&googleapi.Error{Code: http.StatusTooManyRequests}), common.ErrRateLimit)

	plain := errors.New("reset by peer")
	assert.Equal(t, plain, retryClass(plain))

	var re *common.RetryableError
	require.ErrorAs(t, retryClass(&googleapi.Error{Code: http.StatusForbidden}), &re)
	assert.False(t, re.Retryable)
	assert.False(t, errors.As(retryClass(&googleapi.Error{Code: http.StatusBadGateway}), &re))

	// A request that ran out of time stays retryable whatever status came with it.
	timedOut := fmt.Errorf("%w: %w", context.DeadlineExceeded, &googleapi.Error{Code: http.StatusBadRequest})
	assert.Equal(t, timedOut, retryClass(timedOut))
	assert.True(t, common.IsRetryable(retryClass(timedOut)))

	rateLimited := retryClass(&googleapi.Error{Code: http.StatusTooManyRequests})
	assert.Equal(t, rateLimited, retryClass(rateLimited))
}
