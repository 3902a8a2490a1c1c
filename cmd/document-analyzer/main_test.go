package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ansonhele/docanalysisflow/internal/models"
)

func TestWriteJSONSetsHeaderAndStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]string{"status": "ok"})

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, expected %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, expected application/json", ct)
	}
}

func TestWriteErrorBodyIsValidJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusBadRequest, "missing object parameter", "")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected %d", rr.Code, http.StatusBadRequest)
	}

	var body models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not valid JSON: %v", err)
	}
	if body.Error != "missing object parameter" {
		t.Errorf("error = %q, expected the detail to pass through", body.Error)
	}
}

func TestWriteErrorIncludesUpstreamDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusInternalServerError, "rpc error: deadline exceeded", "Failed to process document")

	var body models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not valid JSON: %v", err)
	}
	if body.Error != "rpc error: deadline exceeded" {
		t.Errorf("upstream detail was transformed: %q", body.Error)
	}
	if body.Message != "Failed to process document" {
		t.Errorf("message = %q", body.Message)
	}
}
