package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	appanalysis "github.com/verdantlab/plantscan/internal/application/analysis"
	appreports "github.com/verdantlab/plantscan/internal/application/reports"
	domain "github.com/verdantlab/plantscan/internal/domain/analysis"
	domreports "github.com/verdantlab/plantscan/internal/domain/reports"
)

type fakeStore struct {
	objects map[string][]byte
	removed int
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return data, "image/png", nil
}

func (f *fakeStore) Remove(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.removed++
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

type fakeVision struct {
	result string
	err    error
	calls  int
}

func (f *fakeVision) Analyze(ctx context.Context, image []byte, contentType string) (string, error) {
	f.calls++
	return f.result, f.err
}

type fakeHistory struct {
	records []*domain.Analysis
}

func (f *fakeHistory) Save(ctx context.Context, a *domain.Analysis) error {
	f.records = append(f.records, a)
	return nil
}

func (f *fakeHistory) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	return f.records, nil
}

// fakeRenderer emits a recognizable PDF-shaped payload without pulling the
// real renderer into route tests.
type fakeRenderer struct{ renderErr error }

func (f *fakeRenderer) Render(ctx context.Context, rep domreports.Report, w io.Writer) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	fmt.Fprintf(w, "%%PDF-fake title=%s body=%s pages=%d", rep.Title, rep.Body, pageCount(rep))
	return nil
}

func (f *fakeRenderer) RenderProbe(ctx context.Context, w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-fake probe")
	return err
}

func pageCount(rep domreports.Report) int {
	if rep.Image != nil {
		return 2
	}
	return 1
}

type clock struct{}

func (clock) Now() time.Time { return time.Unix(1756000000, 0) }

func newTestRouter(store domain.ObjectStore, vision domain.Vision, history domain.History) http.Handler {
	analysisSvc := &appanalysis.Service{
		Store:   store,
		Vision:  vision,
		History: history,
		Clock:   clock{},
		Log:     zerolog.Nop(),
	}
	reportsSvc := appreports.NewService(&fakeRenderer{})
	return NewRouter(analysisSvc, reportsSvc, zerolog.Nop(), Options{})
}

func multipartImage(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestAnalyze_OK(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	vision := &fakeVision{result: "This is a rose."}
	history := &fakeHistory{}
	router := newTestRouter(store, vision, history)

	body, contentType := multipartImage(t, "image", "rose.png", []byte("pngdata"))
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Result      string `json:"result"`
		Image       string `json:"image"`
		ImageFileID string `json:"imageFileId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp.Result != "This is a rose." {
		t.Errorf("result = %q", resp.Result)
	}
	if resp.ImageFileID == "" {
		t.Error("empty imageFileId")
	}
	if !strings.HasPrefix(resp.Image, "data:image/png;base64,") {
		t.Errorf("image is not a data URL: %.40q", resp.Image)
	}
	if len(store.objects) != 1 {
		t.Errorf("expected exactly one new object, got %d", len(store.objects))
	}
}

func TestAnalyze_NoFile(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	vision := &fakeVision{}
	router := newTestRouter(store, vision, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no image here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json error body: %v", err)
	}
	if resp["error"] == "" {
		t.Error("missing error message")
	}
	if len(store.objects) != 0 {
		t.Errorf("store written despite missing file")
	}
	if vision.calls != 0 {
		t.Errorf("vision called despite missing file")
	}
}

func TestAnalyze_StoreUninitialized(t *testing.T) {
	vision := &fakeVision{}
	router := newTestRouter(nil, vision, nil)

	body, contentType := multipartImage(t, "image", "rose.png", []byte("pngdata"))
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if vision.calls != 0 {
		t.Errorf("vision called although the store blocks first")
	}
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	vision := &fakeVision{err: errors.New("model unavailable")}
	router := newTestRouter(store, vision, nil)

	body, contentType := multipartImage(t, "image", "rose.png", []byte("pngdata"))
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(store.objects) != 0 {
		t.Errorf("orphan object left in store after upstream failure")
	}
	if store.removed != 1 {
		t.Errorf("expected one compensating delete, got %d", store.removed)
	}
}

func TestDownload_TextOnly(t *testing.T) {
	router := newTestRouter(&fakeStore{objects: map[string][]byte{}}, &fakeVision{}, nil)

	payload, _ := json.Marshal(map[string]string{"result": "Rose"})
	req := httptest.NewRequest(http.MethodPost, "/download", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename=Plant_Report.pdf` {
		t.Errorf("content disposition = %q", got)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "title=Plant Analysis Report") || !strings.Contains(out, "body=Rose") {
		t.Errorf("report content missing: %q", out)
	}
	if !strings.Contains(out, "pages=1") {
		t.Errorf("text-only report should have one page: %q", out)
	}
}

func TestDownload_WithImage(t *testing.T) {
	router := newTestRouter(&fakeStore{objects: map[string][]byte{}}, &fakeVision{}, nil)

	dataURL := domreports.EncodeDataURL("image/png", []byte("pngdata"))
	payload, _ := json.Marshal(map[string]string{"result": "Rose", "image": dataURL})
	req := httptest.NewRequest(http.MethodPost, "/download", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "pages=2") {
		t.Errorf("image report should have two pages: %q", rec.Body.String())
	}
}

func TestDownload_MalformedDataURL(t *testing.T) {
	router := newTestRouter(&fakeStore{objects: map[string][]byte{}}, &fakeVision{}, nil)

	payload, _ := json.Marshal(map[string]string{"result": "Rose", "image": "data:image/png;base64,@@@"})
	req := httptest.NewRequest(http.MethodPost, "/download", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("error response content type = %q", got)
	}
}

func TestTestPDF(t *testing.T) {
	// a nil store and vision must not matter on this route
	router := newTestRouter(nil, nil, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test-pdf", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
			t.Errorf("content type = %q", got)
		}
		if !strings.HasPrefix(rec.Body.String(), "%PDF") {
			t.Errorf("body does not look like a PDF: %.20q", rec.Body.String())
		}
	}
}

func TestGetImage(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{"abc-rose.png": []byte("bytes")}}
	router := newTestRouter(store, &fakeVision{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/images/abc-rose.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/images/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAnalyses(t *testing.T) {
	history := &fakeHistory{records: []*domain.Analysis{
		{ID: "1", ImageFileID: "1-rose.png", Result: "Rose"},
	}}
	router := newTestRouter(&fakeStore{objects: map[string][]byte{}}, &fakeVision{}, history)

	req := httptest.NewRequest(http.MethodGet, "/analyses?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []*domain.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(list) != 1 || list[0].Result != "Rose" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestAnalyses_HistoryDisabled(t *testing.T) {
	router := newTestRouter(&fakeStore{objects: map[string][]byte{}}, &fakeVision{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/analyses", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
