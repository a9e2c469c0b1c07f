package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsletteradmin/internal/testutil"
)

func TestLogging_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/newsletters/new", nil))

	testutil.AssertTrue(t, seen != "", "request id should be on the context")
	testutil.AssertEqual(t, rec.Header().Get(RequestIDHeader), seen)
	testutil.AssertContains(t, buf.String(), `"status":418`)
	testutil.AssertContains(t, buf.String(), `"path":"/newsletters/new"`)
}

func TestLogging_KeepsValidIncomingID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1f7a0e-3c1b-4d8e-9a55-2f0b8c1d9e7a")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	testutil.AssertEqual(t, rec.Header().Get(RequestIDHeader), "6f1f7a0e-3c1b-4d8e-9a55-2f0b8c1d9e7a")
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/newsletters", nil))

	testutil.AssertEqual(t, rec.Code, http.StatusInternalServerError)
	testutil.AssertContains(t, rec.Body.String(), "INTERNAL_ERROR")
	testutil.AssertContains(t, buf.String(), "boom")
}
