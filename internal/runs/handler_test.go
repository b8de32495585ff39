package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
)

type stubSets struct{}

func (stubSets) Get(ctx context.Context, ownerID, id string) (catalog.QuestionSet, error) {
	if id == "" || id == catalog.DefaultSetID {
		return catalog.Default(), nil
	}
	return catalog.QuestionSet{}, catalog.ErrNotFound
}

func newRunsRouter(t *testing.T, runner Runner) (*gin.Engine, *Manager) {
	t.Helper()
	quiet(t)
	gin.SetMode(gin.TestMode)
	m := NewManager(runner, nil, 0)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "guest:abc")
		c.Next()
	})
	NewHandler(m, stubSets{}).RegisterRoutes(r.Group("/api/v1"))
	return r, m
}

func uploadRequest(t *testing.T, fileName, questionSetID string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if questionSetID != "" {
		if err := mw.WriteField("questionSetId", questionSetID); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code
}

func TestHandlerStartThenConflict(t *testing.T) {
	runner := newGatedRunner()
	r, m := newRunsRouter(t, runner)
	defer func() {
		close(runner.release)
		waitFor(t, m)
	}()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "notes.txt", "", []byte("hello")))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var snap Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !snap.Active || snap.Job.FileName != "notes.txt" || snap.QuestionSetID != catalog.DefaultSetID {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "other.txt", "", []byte("hello")))
	if resp.Code != http.StatusConflict || errorCode(t, resp) != "run_active" {
		t.Fatalf("expected 409 run_active, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHandlerStartMapsCheckErrors(t *testing.T) {
	runner := newGatedRunner()
	runner.checkErr = &pipeline.Error{Kind: pipeline.KindUnsupportedFileType, Stage: pipeline.StageUpload}
	r, _ := newRunsRouter(t, runner)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "tool.exe", "", []byte{0x4d, 0x5a}))
	if resp.Code != http.StatusUnsupportedMediaType || errorCode(t, resp) != "unsupported_file_type" {
		t.Fatalf("expected 415, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHandlerStartUnknownQuestionSet(t *testing.T) {
	r, _ := newRunsRouter(t, newGatedRunner())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "notes.txt", "missing", []byte("hello")))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHandlerStartRequiresFile(t *testing.T) {
	r, _ := newRunsRouter(t, newGatedRunner())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandlerCurrentWithoutRun(t *testing.T) {
	r, _ := newRunsRouter(t, newGatedRunner())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHandlerLifecycle(t *testing.T) {
	runner := newGatedRunner()
	r, m := newRunsRouter(t, runner)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "call.txt", "", []byte("hello")))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("start: %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current/report?format=txt", nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 before completion, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/runs/current", nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 resetting active run, got %d", resp.Code)
	}

	close(runner.release)
	waitFor(t, m)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("current: %d", resp.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Active || snap.Result == nil || snap.Job.Stage != pipeline.StageDone {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current/report?format=txt", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("report: %d %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Disposition"); got == "" {
		t.Fatalf("expected attachment header")
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current/report?format=xls", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad format, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/runs/current", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("reset: %d", resp.Code)
	}
}

func TestHandlerCancel(t *testing.T) {
	runner := newGatedRunner()
	r, m := newRunsRouter(t, runner)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "call.txt", "", []byte("hello")))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("start: %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/runs/current/cancel", nil))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("cancel: %d", resp.Code)
	}
	waitFor(t, m)

	cur, err := m.Current("guest:abc")
	if err != nil || cur.Job.Stage != pipeline.StageFailed {
		t.Fatalf("expected failed run, got %+v %v", cur, err)
	}
}

func TestHandlerEventsStreamsUntilDone(t *testing.T) {
	runner := newGatedRunner()
	r, m := newRunsRouter(t, runner)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "call.txt", "", []byte("hello")))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("start: %d", resp.Code)
	}
	close(runner.release)
	waitFor(t, m)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs/current/events", nil))
	body := resp.Body.String()
	if !bytes.Contains([]byte(body), []byte("event:job")) {
		t.Fatalf("expected job events, got %q", body)
	}
	if !bytes.Contains([]byte(body), []byte(`"stage":"done"`)) {
		t.Fatalf("expected final done snapshot, got %q", body)
	}
}

func TestHandlerStartRejectsFileOverConfiguredLimit(t *testing.T) {
	quiet(t)
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewManager(newGatedRunner(), nil, 0), stubSets{})
	h.MaxUploadBytes = 2 << 10
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "notes.txt", "", bytes.Repeat([]byte("a"), 3<<10)))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "file_too_large" || !strings.Contains(payload.Error.Message, "2KB") {
		t.Fatalf("unexpected error %+v", payload.Error)
	}
}
