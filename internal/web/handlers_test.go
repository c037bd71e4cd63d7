package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/staffimport/internal/config"
	"github.com/JonMunkholm/staffimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	batches   []core.Batch
	engineers []core.Engineer
}

func (f *fakeStore) InsertBatch(_ context.Context, b core.Batch, es []core.Engineer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, b)
	f.engineers = append(f.engineers, es...)
	return nil
}

func (f *fakeStore) ListEngineers(_ context.Context, filter core.EngineerFilter) ([]core.Engineer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Engineer
	for _, e := range f.engineers {
		if filter.Status != "" && e.Status != core.NormalizeStatus(filter.Status) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) ListBatches(context.Context, int) ([]core.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.batches), nil
}

func (f *fakeStore) DeleteBatch(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.batches, func(b core.Batch) bool { return b.ID == id })
	if i < 0 {
		return 0, core.ErrBatchNotFound
	}
	f.batches = slices.Delete(f.batches, i, i+1)
	n := len(f.engineers)
	f.engineers = slices.DeleteFunc(f.engineers, func(e core.Engineer) bool { return e.BatchID == id })
	return int64(n - len(f.engineers)), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	svc := core.NewService(store, nil, cfg.Import)
	srv := NewServer(svc, cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, store
}

func uploadRequest(t *testing.T, path, fileName, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", "handler-test")
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

const goodCSV = `name,email,position,project_name,planner,skills,engineer_status,phase
Taro,taro@example.com,Lead,SiteA,Sato,"React,AWS",assigned,"design,dev"
Hanako,hanako@example.com,,SiteB,Suzuki,Python;Go,稼働予定,dev
`

const badCSV = `name,email,project_name,planner,skills,engineer_status,phase
Taro,taro@example.com,SiteA,Sato,"React,AWS",assigned,dev
,<b>nope</b>,SiteB,Yamada,Python,waiting,dev
`

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestTemplateDownload(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/import/template", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="engineer_template.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "name,email,position,"))
}

func TestPreview_JSON(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	rec := serve(srv, uploadRequest(t, "/api/import/preview", "team.csv", goodCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p struct {
		CanSubmit bool            `json:"can_submit"`
		TotalRows int             `json:"total_rows"`
		Engineers []core.Engineer `json:"engineers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.True(t, p.CanSubmit)
	assert.Equal(t, 2, p.TotalRows)
	require.Len(t, p.Engineers, 2)
	assert.Equal(t, []string{"React", "AWS"}, p.Engineers[0].Skills)
	assert.Equal(t, core.StatusUpcoming, p.Engineers[1].Status)
	assert.Empty(t, store.engineers, "preview must not store anything")
}

func TestPreview_HTMXFragment(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	req := uploadRequest(t, "/api/import/preview", "team.csv", badCSV)
	req.Header.Set("HX-Request", "true")
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `data-can-submit="false"`)
	assert.Contains(t, body, `<li data-line="3">`)
	assert.Contains(t, body, "<button type=\"submit\" disabled>")
	assert.NotContains(t, body, "<b>nope</b>")
}

func TestPreview_HTMXImportButton(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	req := uploadRequest(t, "/api/import/preview", "team.csv", goodCSV)
	req.Header.Set("HX-Request", "true")
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-can-submit="true"`)
	assert.Contains(t, body, `hx-post="/api/import"`)
	assert.Contains(t, body, `hx-include="input[type=file][name=file]"`)
	assert.Contains(t, body, `hx-encoding="multipart/form-data"`)
	assert.Contains(t, body, `<span class="tag">React</span><span class="tag">AWS</span>`)
	assert.Contains(t, body, `<td>Taro</td>`)
}

func TestSubmit_HTMXResult(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	req := uploadRequest(t, "/api/import", "team.csv", goodCSV)
	req.Header.Set("HX-Request", "true")
	rec := serve(srv, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Len(t, store.batches, 1)
	assert.Contains(t, rec.Body.String(), `data-batch-id="`+store.batches[0].ID+`"`)
	assert.Contains(t, rec.Body.String(), "Imported 2 engineers from team.csv")
}

func TestSubmit_HTMXRowErrorsAlert(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	req := uploadRequest(t, "/api/import", "team.csv", badCSV)
	req.Header.Set("HX-Request", "true")
	rec := serve(srv, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `role="alert"`)
	assert.Contains(t, body, `<li data-line="3">`)
	assert.Contains(t, body, "Code: VAL002")
}

func TestPreview_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		body     string
		status   int
		code     string
		detail   string
	}{
		{"no file", "", "", http.StatusBadRequest, "FILE003", ""},
		{"wrong type", "team.txt", goodCSV, http.StatusBadRequest, "FILE002", ""},
		{"no data rows", "team.csv", "name,email\n\n", http.StatusBadRequest, "FILE004", ""},
		{"missing columns", "team.csv", "name,email\nA,a@example.com\n", http.StatusBadRequest, "VAL001", "project_name"},
	}

	srv, _ := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, uploadRequest(t, "/api/import/preview", tt.fileName, tt.body))
			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
			if tt.detail != "" {
				assert.Contains(t, resp.Detail, tt.detail)
			}
		})
	}
}

func TestPreview_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 32
	srv, _ := newTestServer(t, cfg)

	rec := serve(srv, uploadRequest(t, "/api/import/preview", "team.csv", goodCSV))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestSubmit(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	rec := serve(srv, uploadRequest(t, "/api/import", "team.csv", goodCSV))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		BatchID  string `json:"batch_id"`
		Inserted int    `json:"inserted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Inserted)

	require.Len(t, store.batches, 1)
	assert.Equal(t, resp.BatchID, store.batches[0].ID)
	assert.Equal(t, "192.0.2.1", store.batches[0].IPAddress)
	assert.Equal(t, "handler-test", store.batches[0].UserAgent)
	assert.Len(t, store.engineers, 2)
}

func TestSubmit_RowErrorsBlockImport(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	rec := serve(srv, uploadRequest(t, "/api/import", "team.csv", badCSV))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VAL002", resp.Code)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, 3, resp.Errors[0].Line)
	assert.Equal(t, "name", resp.Errors[0].Field)
	assert.Equal(t, "email", resp.Errors[1].Field)
	assert.Empty(t, store.batches)
	assert.Empty(t, store.engineers)
}

func TestEngineersAndRollback(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := serve(srv, uploadRequest(t, "/api/import", "team.csv", goodCSV))
	require.Equal(t, http.StatusCreated, rec.Code)
	var submitted struct {
		BatchID string `json:"batch_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/engineers?status=upcoming", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var engineers []core.Engineer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &engineers))
	require.Len(t, engineers, 1)
	assert.Equal(t, "Hanako", engineers[0].Name)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/engineers/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"React,AWS"`)

	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), submitted.BatchID)

	rec = serve(srv, httptest.NewRequest(http.MethodPost, "/api/batches/"+submitted.BatchID+"/rollback", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows_deleted":2`)

	rec = serve(srv, httptest.NewRequest(http.MethodPost, "/api/batches/"+submitted.BatchID+"/rollback", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "IMP002", decodeError(t, rec).Code)
}

func TestSubmit_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	srv, store := newTestServer(t, cfg)

	rec := serve(srv, uploadRequest(t, "/api/import", "team.csv", goodCSV))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "/api/import", "team.csv", goodCSV)
	req.Header.Set("X-API-Key", "secret")
	rec = serve(srv, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.batches, 1)

	// preview stays open
	rec = serve(srv, uploadRequest(t, "/api/import/preview", "team.csv", goodCSV))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ImportLimit: 2}
	srv, _ := newTestServer(t, cfg)

	for range 2 {
		rec := serve(srv, uploadRequest(t, "/api/import/preview", "team.csv", goodCSV))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(srv, uploadRequest(t, "/api/import/preview", "team.csv", goodCSV))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// other routes use the general limit
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
