package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"resistorserver/internal/config"
	"resistorserver/internal/dto"
	"resistorserver/internal/logger"
	"resistorserver/internal/model"
	"resistorserver/internal/repository/sqlite"
	"resistorserver/internal/resistor"
	"resistorserver/internal/services"
	"resistorserver/internal/services/ai"
	"resistorserver/internal/services/storage"
	"resistorserver/internal/services/websocket"
)

// ========================================
// Test Setup Helpers
// ========================================

type stubDetector struct {
	detections []resistor.RawDetection
	err        error
}

func (d *stubDetector) Detect([]byte) ([]resistor.RawDetection, error) { return d.detections, d.err }
func (d *stubDetector) Close() error                                   { return nil }

type testServer struct {
	cfg        *config.Config
	log        *logger.Logger
	manager    *services.Manager
	buffer     *storage.BufferService
	readings   *sqlite.ReadingRepository
	components *sqlite.ComponentRepository
}

func setupServer(t *testing.T, detector ai.BandDetector) *testServer {
	t.Helper()

	tmp := t.TempDir()
	db, err := sqlite.New(filepath.Join(tmp, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Password:           "secret",
		ImageDirectory:     filepath.Join(tmp, "images"),
		ImageBufferLimit:   10,
		ImageFlushInterval: 60,
		ThumbnailSize:      32,
		QueueSize:          4,
		FallbackResistance: 100,
	}
	log := logger.NewDiscard()

	ts := &testServer{
		cfg:        cfg,
		log:        log,
		readings:   sqlite.NewReadingRepository(db),
		components: sqlite.NewComponentRepository(db),
	}
	ts.buffer = storage.NewBufferService(cfg, ts.readings, sqlite.NewBandRepository(db), ts.components, log)

	var detectors []ai.BandDetector
	if detector != nil {
		detectors = append(detectors, detector)
	}
	ts.manager = services.NewManager(detectors, ts.buffer, websocket.NewHubService(log), cfg, log)
	t.Cleanup(ts.manager.Stop)

	return ts
}

func band(c resistor.Color, x float64) resistor.RawDetection {
	return resistor.RawDetection{Color: c, BBox: resistor.BBox{X1: x - 1, Y1: 0, X2: x + 1, Y2: 30}, Confidence: 0.9}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func multipartImage(t *testing.T, image []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.jpg")
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		fw.Write(image)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

// ========================================
// Decode Tests
// ========================================

func TestDecodeHandler(t *testing.T) {
	ts := setupServer(t, nil)
	handler := DecodeHandler(ts.manager, ts.log)

	tests := []struct {
		name       string
		method     string
		body       string
		status     int
		resistance float64
		fallback   bool
	}{
		{
			name:   "categories",
			method: http.MethodPost,
			body: `{"detections":[
				{"category":2,"bbox":[10,0,12,30],"confidence":0.9},
				{"category":0,"bbox":[20,0,22,30],"confidence":0.9},
				{"category":5,"bbox":[30,0,32,30],"confidence":0.9},
				{"category":6,"bbox":[50,0,52,30],"confidence":0.8}]}`,
			status:     http.StatusOK,
			resistance: 1000,
		},
		{
			name:   "color names",
			method: http.MethodPost,
			body: `{"detections":[
				{"color":"yellow","bbox":[10,0,12,30],"confidence":0.9},
				{"color":"black","bbox":[20,0,22,30],"confidence":0.9},
				{"color":"orange","bbox":[30,0,32,30],"confidence":0.9}]}`,
			status:     http.StatusOK,
			resistance: 40000,
		},
		{"empty", http.MethodPost, `{"detections":[]}`, http.StatusOK, 100, true},
		{"unknown category", http.MethodPost, `{"detections":[{"category":9,"bbox":[0,0,1,1],"confidence":0.5}]}`, http.StatusBadRequest, 0, false},
		{"bad confidence", http.MethodPost, `{"detections":[{"color":"red","bbox":[0,0,1,1],"confidence":1.5}]}`, http.StatusBadRequest, 0, false},
		{"invalid json", http.MethodPost, `{`, http.StatusBadRequest, 0, false},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/decode", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("got status %d, expected %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}

			var resp dto.DecodeResponse
			decodeBody(t, rec, &resp)
			if resp.Resistance != tt.resistance || resp.Fallback != tt.fallback {
				t.Errorf("got %v (fallback %v), expected %v (fallback %v)", resp.Resistance, resp.Fallback, tt.resistance, tt.fallback)
			}
			if !tt.fallback && len(resp.Colors) != resistor.BandCount {
				t.Errorf("Expected %d colors, got %v", resistor.BandCount, resp.Colors)
			}
		})
	}
}

// ========================================
// Measure Tests
// ========================================

func TestMeasureHandler_Sync(t *testing.T) {
	detector := &stubDetector{detections: []resistor.RawDetection{
		band(resistor.Red, 10), band(resistor.Red, 20), band(resistor.Brown, 30), band(resistor.SideSilver, 50),
	}}
	ts := setupServer(t, detector)

	body, contentType := multipartImage(t, []byte("jpeg bytes"), map[string]string{"source": "bench", "component": "R4"})
	req := httptest.NewRequest(http.MethodPost, "/api/measure", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	MeasureHandler(ts.manager, ts.log)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, expected 200 (%s)", rec.Code, rec.Body.String())
	}
	var resp dto.DecodeResponse
	decodeBody(t, rec, &resp)
	if resp.Resistance != 220 || resp.Source != "bench" || resp.Bands != 4 {
		t.Errorf("Unexpected response: %+v", resp)
	}

	ts.buffer.Flush()
	list, _ := ts.components.List()
	if len(list) != 1 || list[0].Name != "R4" || list[0].Value != 220 {
		t.Errorf("Expected R4 = 220, got %+v", list)
	}
}

func TestMeasureHandler_Async(t *testing.T) {
	ts := setupServer(t, &stubDetector{})

	body, contentType := multipartImage(t, []byte("jpeg bytes"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/measure?async=1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	MeasureHandler(ts.manager, ts.log)(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, expected 202 (%s)", rec.Code, rec.Body.String())
	}
}

func TestMeasureHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		detector ai.BandDetector
		image    []byte
		status   int
	}{
		{"no image", &stubDetector{}, nil, http.StatusBadRequest},
		{"invalid image", &stubDetector{err: ai.ErrInvalidImage}, []byte("x"), http.StatusBadRequest},
		{"model not ready", &stubDetector{err: ai.ErrModelNotReady}, []byte("x"), http.StatusServiceUnavailable},
		{"no detectors", nil, []byte("x"), http.StatusServiceUnavailable},
		{"internal", &stubDetector{err: errors.New("boom")}, []byte("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t, tt.detector)

			body, contentType := multipartImage(t, tt.image, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/measure", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			MeasureHandler(ts.manager, ts.log)(rec, req)

			if rec.Code != tt.status {
				t.Errorf("got status %d, expected %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

// ========================================
// Readings Tests
// ========================================

func seedReadings(t *testing.T, ts *testServer) []model.Reading {
	t.Helper()

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	var out []model.Reading
	for i, v := range []float64{100, 1000, 4700} {
		source := "bench"
		if i == 2 {
			source = "phone"
		}
		r := model.Reading{Source: source, Resistance: v, Multiplier: 1, CreatedAt: base.AddDate(0, 0, i)}
		if _, err := ts.readings.Insert(&r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func TestGetReadingsHandler(t *testing.T) {
	ts := setupServer(t, nil)
	seedReadings(t, ts)
	handler := GetReadingsHandler(ts.readings, ts.cfg, ts.log)

	tests := []struct {
		query    string
		expected int
		pages    int
	}{
		{"", 3, 1},
		{"?source=bench", 2, 1},
		{"?minResistance=500", 2, 1},
		{"?maxResistance=500", 1, 1},
		{"?dateBefore=2025-05-02", 2, 1},
		{"?dateAfter=2025-05-03", 1, 1},
		{"?limit=2", 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/api/readings"+tt.query, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("got status %d", rec.Code)
			}
			var data dto.ReadingsData
			decodeBody(t, rec, &data)
			if data.Length != tt.expected || data.TotalPages != tt.pages {
				t.Errorf("got %d readings on %d pages, expected %d on %d", data.Length, data.TotalPages, tt.expected, tt.pages)
			}
		})
	}
}

func TestDeleteReadingHandler(t *testing.T) {
	ts := setupServer(t, nil)
	seeded := seedReadings(t, ts)
	handler := DeleteReadingHandler(ts.readings, ts.buffer, ts.log)

	id := strconv.FormatInt(seeded[0].ID, 10)
	tests := []struct {
		method string
		query  string
		status int
	}{
		{http.MethodGet, "?id=" + id, http.StatusMethodNotAllowed},
		{http.MethodDelete, "", http.StatusBadRequest},
		{http.MethodDelete, "?id=" + id, http.StatusOK},
		{http.MethodDelete, "?id=" + id, http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(tt.method, "/api/readings/delete"+tt.query, nil))
		if rec.Code != tt.status {
			t.Errorf("%s %s: got status %d, expected %d", tt.method, tt.query, rec.Code, tt.status)
		}
	}
}

func TestViewReadingHandler(t *testing.T) {
	ts := setupServer(t, nil)

	os.MkdirAll(ts.cfg.ImageDirectory, 0755)
	os.WriteFile(filepath.Join(ts.cfg.ImageDirectory, "photo.jpg"), []byte("photo"), 0644)
	withPhoto := model.Reading{Source: "bench", Filename: "photo.jpg", CreatedAt: time.Now()}
	ts.readings.Insert(&withPhoto)
	withoutPhoto := model.Reading{Source: "bench", CreatedAt: time.Now()}
	ts.readings.Insert(&withoutPhoto)

	handler := ViewReadingHandler(ts.readings, ts.buffer)
	tests := []struct {
		query  string
		status int
	}{
		{"?id=" + strconv.FormatInt(withPhoto.ID, 10), http.StatusOK},
		{"?id=" + strconv.FormatInt(withPhoto.ID, 10) + "&thumb=1", http.StatusNotFound},
		{"?id=" + strconv.FormatInt(withoutPhoto.ID, 10), http.StatusNotFound},
		{"?id=999", http.StatusNotFound},
		{"?id=abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/readings/view"+tt.query, nil))
		if rec.Code != tt.status {
			t.Errorf("%s: got status %d, expected %d", tt.query, rec.Code, tt.status)
		}
	}
}

func TestClearAndStatsHandlers(t *testing.T) {
	ts := setupServer(t, nil)
	seedReadings(t, ts)

	rec := httptest.NewRecorder()
	GetStatsHandler(ts.readings, ts.log)(rec, httptest.NewRequest(http.MethodGet, "/api/readings/stats", nil))
	var stats model.ReadingStats
	decodeBody(t, rec, &stats)
	if stats.TotalReadings != 3 || stats.PerSource["bench"] != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	rec = httptest.NewRecorder()
	GetFiltersHandler(ts.readings, ts.log)(rec, httptest.NewRequest(http.MethodGet, "/api/readings/filters", nil))
	var filters struct {
		Sources []string `json:"sources"`
	}
	decodeBody(t, rec, &filters)
	if len(filters.Sources) != 2 {
		t.Errorf("Expected 2 sources, got %v", filters.Sources)
	}

	rec = httptest.NewRecorder()
	ClearReadingsHandler(ts.readings, ts.buffer, ts.log)(rec, httptest.NewRequest(http.MethodPost, "/api/readings/clear", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("got status %d, expected 204", rec.Code)
	}
	count, _ := ts.readings.GetTotalCount(nil)
	if count != 0 {
		t.Errorf("Expected no readings after clear, got %d", count)
	}
}

// ========================================
// Components Tests
// ========================================

func TestComponentsHandler(t *testing.T) {
	ts := setupServer(t, nil)
	handler := ComponentsHandler(ts.components, ts.log)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/api/resistors", strings.NewReader(body)))
		return rec
	}

	rec := post(`[{"name":"R0","value":220},{"name":"R1","value":1000}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d (%s)", rec.Code, rec.Body.String())
	}

	rec = post(`[{"name":"R0","value":330}]`)
	var list []model.Component
	decodeBody(t, rec, &list)
	if len(list) != 2 || list[0].Name != "R0" || list[0].Value != 330 {
		t.Errorf("Unexpected components: %+v", list)
	}

	for _, body := range []string{
		`[{"name":"","value":1}]`,
		`[{"name":"R2","value":-1}]`,
		`[{"name":"R5","value":5},{"name":"R6","value":-1}]`,
		`nope`,
	} {
		if rec := post(body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, expected 400", body, rec.Code)
		}
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/resistors", nil))
	list = nil
	decodeBody(t, rec, &list)
	if len(list) != 2 {
		t.Errorf("Expected 2 components, got %d", len(list))
	}
}

// ========================================
// Misc Handler Tests
// ========================================

func TestHealthHandler(t *testing.T) {
	ts := setupServer(t, nil)

	rec := httptest.NewRecorder()
	HealthHandler(ts.manager)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["model"] != "uninitialized" {
		t.Errorf("Unexpected health: %v", body)
	}
}

func TestLoginHandler(t *testing.T) {
	ts := setupServer(t, nil)
	handler := LoginHandler(ts.cfg, ts.log)

	tests := []struct {
		password string
		status   int
	}{
		{"secret", http.StatusSeeOther},
		{"wrong", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("password="+tt.password))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != tt.status {
			t.Errorf("%s: got status %d, expected %d", tt.password, rec.Code, tt.status)
		}
		hasCookie := len(rec.Result().Cookies()) > 0
		if hasCookie != (tt.status == http.StatusSeeOther) {
			t.Errorf("%s: unexpected cookies %v", tt.password, rec.Result().Cookies())
		}
	}
}

func TestLogoutHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LogoutHandler(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	cookies := rec.Result().Cookies()
	if rec.Code != http.StatusSeeOther || len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("Expected cookie removal and redirect, got %d %v", rec.Code, cookies)
	}
}

func TestLogsHandlers(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewLogger(&config.Config{LogDirectory: dir})
	log.Warning("low battery")

	rec := httptest.NewRecorder()
	ShowLogsHandler(log, logger.LevelWarning)(rec, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "low battery") {
		t.Errorf("Unexpected log response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ClearLogsHandler(log, logger.LevelWarning)(rec, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, expected 204", rec.Code)
	}
	data, _ := os.ReadFile(filepath.Join(dir, logger.LevelWarning.FileName()))
	if len(data) != 0 {
		t.Errorf("Expected empty log file, got %q", data)
	}

	rec = httptest.NewRecorder()
	ShowLogsHandler(logger.NewDiscard(), logger.LevelError)(rec, httptest.NewRequest(http.MethodGet, "/logs/error", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, expected 404", rec.Code)
	}
}
