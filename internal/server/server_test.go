package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/pkg/constants"
	"github.com/iwvelando/contract-forecast/pkg/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"
)

type stubLoader struct {
	snapshots map[string]*snapshot.ProjectSnapshot
}

func (l *stubLoader) Load(_ context.Context, projectID string, _ bool) (*snapshot.ProjectSnapshot, error) {
	snap, ok := l.snapshots[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, snapshot.ErrProjectNotFound)
	}
	return snap, nil
}

func newTestHandler(t *testing.T, opts forecast.Options) http.Handler {
	t.Helper()
	broken := testutil.ConcreteScenario()
	broken.ProjectID = "P-BAD"
	broken.Commitments[0].CommittedAmount = testutil.Dec("-1")

	loader := &stubLoader{snapshots: map[string]*snapshot.ProjectSnapshot{
		"P-200": testutil.MixedScenario(),
		"P-BAD": broken,
	}}
	service := forecast.NewService(loader, zap.NewNop(), opts)
	return NewHandler(zap.NewNop(), service, constants.DefaultMaxUploadSizeBytes, "test")
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) forecastResponse {
	t.Helper()
	var resp forecastResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandleProjectForecast(t *testing.T) {
	handler := newTestHandler(t, forecast.Options{IncludePending: true})

	tests := []struct {
		name        string
		target      string
		wantStatus  int
		wantTotalN  string
		wantPending bool
		wantChecks  bool
	}{
		{
			name:        "Service default includes pending",
			target:      "/api/projects/P-200/forecast",
			wantStatus:  http.StatusOK,
			wantTotalN:  "74174.75",
			wantPending: true,
		},
		{
			name:       "Posted change orders only",
			target:     "/api/projects/P-200/forecast?includePending=false",
			wantStatus: http.StatusOK,
			wantTotalN: "74874.50",
		},
		{
			name:        "With verification",
			target:      "/api/projects/P-200/forecast?verify=true",
			wantStatus:  http.StatusOK,
			wantTotalN:  "74174.75",
			wantPending: true,
			wantChecks:  true,
		},
		{
			name:       "Unknown project",
			target:     "/api/projects/P-404/forecast",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Invalid snapshot",
			target:     "/api/projects/P-BAD/forecast",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Invalid flag",
			target:     "/api/projects/P-200/forecast?includePending=maybe",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if rr.Header().Get(RequestIDHeader) == "" {
				t.Error("expected a request id header")
			}
			if tt.wantStatus != http.StatusOK {
				var payload map[string]string
				if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
					t.Fatalf("failed to decode error payload: %v", err)
				}
				if payload["error"] == "" {
					t.Error("expected error message in payload")
				}
				return
			}

			resp := decodeResponse(t, rr)
			if resp.ProjectID != "P-200" || len(resp.Lines) != 3 {
				t.Fatalf("unexpected document: %+v", resp.Document)
			}
			if resp.Totals["N"] != tt.wantTotalN {
				t.Errorf("expected total N %s, got %s", tt.wantTotalN, resp.Totals["N"])
			}
			if resp.IncludePending != tt.wantPending {
				t.Errorf("expected includePending %v, got %v", tt.wantPending, resp.IncludePending)
			}
			if tt.wantChecks {
				if resp.Verification == nil || resp.Verification.Passed != resp.Verification.Total {
					t.Errorf("expected every check to pass, got %+v", resp.Verification)
				}
			} else if resp.Verification != nil {
				t.Error("expected no verification section")
			}
			if resp.Duration == "" {
				t.Error("expected duration in response")
			}
		})
	}
}

func TestHandleProjectForecastDefaultsFromService(t *testing.T) {
	handler := newTestHandler(t, forecast.Options{IncludePending: false})

	req := httptest.NewRequest(http.MethodGet, "/api/projects/P-200/forecast", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp.IncludePending || resp.Totals["N"] != "74874.50" {
		t.Errorf("expected posted-only forecast, got includePending=%v N=%s", resp.IncludePending, resp.Totals["N"])
	}
}

func TestHandleProjectExportCSV(t *testing.T) {
	handler := newTestHandler(t, forecast.Options{IncludePending: true})

	req := httptest.NewRequest(http.MethodGet, "/api/projects/P-200/forecast.csv", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "forecast-P-200.csv") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header, 3 lines and totals, got %d records", len(records))
	}
	totals := records[4]
	if totals[0] != "Totals" || totals[len(totals)-1] != "74174.75" {
		t.Errorf("unexpected totals row: %v", totals)
	}
}

func TestHandleProjectExportXLSX(t *testing.T) {
	handler := newTestHandler(t, forecast.Options{IncludePending: true})

	req := httptest.NewRequest(http.MethodGet, "/api/projects/P-200/forecast.xlsx?verify=1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if idx, err := f.GetSheetIndex("Verification"); err != nil || idx < 0 {
		t.Errorf("expected a verification sheet, got index %d err %v", idx, err)
	}
}

func TestHandleProjectExportNotFound(t *testing.T) {
	handler := newTestHandler(t, forecast.Options{IncludePending: true})

	req := httptest.NewRequest(http.MethodGet, "/api/projects/P-404/forecast.csv", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got content type %q", ct)
	}
}

func TestProjectEndpointsWithoutService(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/api/projects/P-200/forecast", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func uploadRequest(t *testing.T, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if data != nil {
		part, err := writer.CreateFormFile("file", "snapshot.yaml")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write form data: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/forecast", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleForecastUpload(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, constants.DefaultMaxUploadSizeBytes, "test")

	data, err := yaml.Marshal(testutil.MixedScenario())
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}

	tests := []struct {
		name       string
		fields     map[string]string
		wantTotalN string
		wantChecks bool
	}{
		{name: "Default options", wantTotalN: "74174.75"},
		{name: "Posted only", fields: map[string]string{"includePending": "false"}, wantTotalN: "74874.50"},
		{name: "Verified", fields: map[string]string{"verify": "true"}, wantTotalN: "74174.75", wantChecks: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, uploadRequest(t, data, tt.fields))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			resp := decodeResponse(t, rr)
			if resp.Totals["N"] != tt.wantTotalN {
				t.Errorf("expected total N %s, got %s", tt.wantTotalN, resp.Totals["N"])
			}
			if tt.wantChecks != (resp.Verification != nil) {
				t.Errorf("unexpected verification section: %+v", resp.Verification)
			}
		})
	}
}

func TestHandleForecastUploadErrors(t *testing.T) {
	invalid := testutil.ConcreteScenario()
	invalid.Overrides = []snapshot.Override{{CostCode: "C-100", Column: "F", Value: "ten"}}
	invalidData, err := yaml.Marshal(invalid)
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		limit      int64
		wantStatus int
	}{
		{name: "Missing file", wantStatus: http.StatusBadRequest},
		{name: "Malformed YAML", data: []byte("projectId: [unterminated\n"), wantStatus: http.StatusBadRequest},
		{name: "Unknown field", data: []byte("projectId: P-1\nbogus: 1\n"), wantStatus: http.StatusBadRequest},
		{name: "Bad override", data: invalidData, wantStatus: http.StatusUnprocessableEntity},
		{name: "Too large", data: bytes.Repeat([]byte("a"), 4096), limit: 512, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit := tt.limit
			if limit == 0 {
				limit = constants.DefaultMaxUploadSizeBytes
			}
			handler := NewHandler(zap.NewNop(), nil, limit, "test")

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, uploadRequest(t, tt.data, nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleForecastMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/api/forecast", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, 0, " v1.2.3 ")

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if payload["version"] != "v1.2.3" {
		t.Errorf("expected version v1.2.3, got %q", payload["version"])
	}
}

func TestRequestIDPropagation(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := NewHandler(zap.New(core), nil, 0, "")

	req := httptest.NewRequest(http.MethodGet, "/api/projects/P-1/forecast", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	failed := logs.FilterMessage("forecast request failed").All()
	if len(failed) != 1 {
		t.Fatalf("expected one failure log, got %d", len(failed))
	}
	fields := failed[0].ContextMap()
	if fields["requestId"] != "req-42" || fields["op"] != "server.handleProjectForecast" {
		t.Errorf("unexpected failure log fields: %v", fields)
	}

	handled := logs.FilterMessage("handled request").All()
	if len(handled) != 1 || handled[0].ContextMap()["status"] != int64(http.StatusServiceUnavailable) {
		t.Errorf("unexpected request log: %+v", handled)
	}
}
