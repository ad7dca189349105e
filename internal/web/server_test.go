package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/hobo/internal/config"
	"github.com/JonMunkholm/hobo/internal/core"
	"github.com/JonMunkholm/hobo/internal/store"
	"github.com/JonMunkholm/hobo/internal/table"
)

const sampleExport = "\"Plot Title: Dock\",,,\n" +
	"\"#\",\"Date Time, GMT+00:00\",\"Temp, °C (LGR S/N: 10811111, SEN S/N: 10811111)\",\"Batt, V (LGR S/N: 10811111)\"\n" +
	"1,03/15/24 08:00:00 AM,12.25,3.60\n" +
	"2,03/15/24 08:30:00 AM,12.50,3.59\n"

type fakeRepo struct {
	mu     sync.Mutex
	files  map[uuid.UUID]store.File
	tables map[uuid.UUID]*table.Table
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{files: map[uuid.UUID]store.File{}, tables: map[uuid.UUID]*table.Table{}}
}

func (f *fakeRepo) SaveTable(_ context.Context, nf store.NewFile, t *table.Table) (store.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file := store.File{
		ID:           uuid.New(),
		FileName:     nf.FileName,
		SerialNumber: nf.SerialNumber,
		RowCount:     t.Len(),
		QCApplied:    nf.QCApplied,
		SourceIP:     nf.SourceIP,
		UserAgent:    nf.UserAgent,
		ParsedAt:     time.Now(),
	}
	f.files[file.ID] = file
	f.tables[file.ID] = t
	return file, nil
}

func (f *fakeRepo) ListFiles(context.Context, int, int) ([]store.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.File
	for _, file := range f.files {
		out = append(out, file)
	}
	return out, nil
}

func (f *fakeRepo) GetFile(_ context.Context, id uuid.UUID) (store.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return store.File{}, store.ErrNotFound
	}
	return file, nil
}

func (f *fakeRepo) LoadTable(ctx context.Context, id uuid.UUID) (store.File, *table.Table, error) {
	file, err := f.GetFile(ctx, id)
	if err != nil {
		return store.File{}, nil, err
	}
	return file, f.tables[id], nil
}

func (f *fakeRepo) DeleteFile(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, repo core.Repository, db Pinger, vars map[string]string) *Server {
	t.Helper()
	cfg, err := config.LoadFrom(func(name string) string { return vars[name] })
	if err != nil {
		t.Fatalf("config.LoadFrom: %v", err)
	}
	svc, err := core.NewService(repo, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s := NewServer(svc, cfg, db)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

// uploadRequest builds a multipart POST /api/parse request.
func uploadRequest(t *testing.T, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if content != "" {
		fw, err := mw.CreateFormFile("file", "dock.csv")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/parse", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleParse_Summary(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	rec := serve(s, uploadRequest(t, sampleExport, map[string]string{"qc": "true"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Rows     int           `json:"rows"`
		Channels []ChannelInfo `json:"channels"`
		Identity struct {
			SerialNumber string `json:"serial_number"`
		} `json:"identity"`
		QC *struct{} `json:"qc"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Rows != 2 {
		t.Errorf("rows = %d, want 2", resp.Rows)
	}
	if resp.Identity.SerialNumber != "10811111" {
		t.Errorf("serial = %q", resp.Identity.SerialNumber)
	}
	if len(resp.Channels) != 2 || resp.Channels[0].Slot != "temperature" || resp.Channels[1].Slot != "battery" {
		t.Errorf("channels = %+v", resp.Channels)
	}
	if resp.QC == nil {
		t.Error("qc report missing")
	}
}

func TestHandleParse_Download(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	rec := serve(s, uploadRequest(t, sampleExport, map[string]string{"format": "csv"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="dock.csv"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "Time,") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		fields  map[string]string
		status  int
		code    string
	}{
		{"no file", "", nil, http.StatusBadRequest, "FILE004"},
		{"no header", "just,some\n1,2\n", nil, http.StatusUnprocessableEntity, "HDR001"},
		{"bad format", sampleExport, map[string]string{"format": "pdf"}, http.StatusBadRequest, "FILE007"},
		{"store without db", sampleExport, map[string]string{"store": "true"}, http.StatusNotImplemented, "DB001"},
	}
	s := newTestServer(t, nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, uploadRequest(t, tt.content, tt.fields))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			var er ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&er); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if er.Code != tt.code {
				t.Errorf("code = %q, want %q", er.Code, tt.code)
			}
		})
	}
}

func TestHandleParse_TooLarge(t *testing.T) {
	s := newTestServer(t, nil, nil, map[string]string{"PARSE_MAX_FILE_SIZE": "64"})

	rec := serve(s, uploadRequest(t, sampleExport, nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413 (body %s)", rec.Code, rec.Body)
	}
}

func TestFilesLifecycle(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(t, repo, fakePinger{}, nil)

	req := uploadRequest(t, sampleExport, map[string]string{"store": "true"})
	req.Header.Set("User-Agent", "uploader/1.0")
	rec := serve(s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("parse status = %d, body = %s", rec.Code, rec.Body)
	}
	var parsed struct {
		Stored store.File `json:"stored"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&parsed); err != nil {
		t.Fatal(err)
	}
	id := parsed.Stored.ID.String()
	if parsed.Stored.UserAgent != "uploader/1.0" {
		t.Errorf("user agent = %q", parsed.Stored.UserAgent)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), id) {
		t.Errorf("list: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get: status = %d", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/export?format=json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("export Content-Type = %q", ct)
	}

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d", rec.Code)
	}

	for _, path := range []string{"/api/files/" + id, "/api/files/not-a-uuid"} {
		rec = serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: status = %d, want 404", path, rec.Code)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name    string
		repo    core.Repository
		db      Pinger
		status  int
		storage string
	}{
		{"storage disabled", nil, nil, http.StatusOK, "disabled"},
		{"database up", newFakeRepo(), fakePinger{}, http.StatusOK, "ok"},
		{"database down", newFakeRepo(), fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.repo, tt.db, nil)
			rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var hr HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&hr); err != nil {
				t.Fatal(err)
			}
			if hr.Storage != tt.storage {
				t.Errorf("storage = %q, want %q", hr.Storage, tt.storage)
			}
		})
	}
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, nil, nil, map[string]string{"REQUIRE_API_KEY": "true", "API_KEYS": "secret"})

	rec := serve(s, uploadRequest(t, sampleExport, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d, want 401", rec.Code)
	}

	req := uploadRequest(t, sampleExport, nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("with key: status = %d, body = %s", rec.Code, rec.Body)
	}

	// Non-API routes stay open.
	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	repo := newFakeRepo()
	repo.files[uuid.New()] = store.File{FileName: "<script>x</script>.csv", SerialNumber: "123"}
	s := newTestServer(t, repo, fakePinger{}, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>x</script>") {
		t.Error("file name not escaped")
	}
	for _, want := range []string{`name="file"`, `name="store"`, "Stored files", "format=arrow"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
}

func TestDashboard_APIKeyRequired(t *testing.T) {
	repo := newFakeRepo()
	repo.files[uuid.New()] = store.File{FileName: "private.csv"}
	s := newTestServer(t, repo, fakePinger{}, map[string]string{"REQUIRE_API_KEY": "true", "API_KEYS": "secret"})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, absent := range []string{`name="file"`, "private.csv", "Stored files"} {
		if strings.Contains(body, absent) {
			t.Errorf("body contains %q", absent)
		}
	}
	if !strings.Contains(body, "X-API-Key") {
		t.Error("API key notice missing")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	now := time.Now()

	for i := 0; i < 2; i++ {
		if ok, _ := rl.allow("1.2.3.4", now); !ok {
			t.Fatalf("request %d denied", i+1)
		}
	}
	ok, wait := rl.allow("1.2.3.4", now.Add(10*time.Second))
	if ok || wait != 50*time.Second {
		t.Errorf("third request: ok=%v wait=%v", ok, wait)
	}
	if ok, _ := rl.allow("5.6.7.8", now); !ok {
		t.Error("other client denied")
	}
	if ok, _ := rl.allow("1.2.3.4", now.Add(61*time.Second)); !ok {
		t.Error("request after window denied")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, nil, nil, map[string]string{"RATE_LIMIT_ENABLED": "true", "RATE_LIMIT_REQUESTS_PER_MINUTE": "1"})

	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("first: status = %d", rec.Code)
	}
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
}
