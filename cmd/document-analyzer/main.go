package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/ansonhele/docanalysisflow/internal/models"
	"github.com/ansonhele/docanalysisflow/internal/services"
	"github.com/joho/godotenv"
)

var (
	analyzerInstance *services.AnalyzerFunction
	once             sync.Once
	initErr          error
)

func init() {
	// Local runs pick up a .env file; deployed functions get real env vars.
	_ = godotenv.Load()

	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	// "AnalyzeDocument" is the entry point name we'll see in GCP.
	functions.HTTP("AnalyzeDocument", handleAnalyzeDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// handleAnalyzeDocument is the HTTP handler.
func handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		analyzerInstance, initErr = services.NewAnalyzer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		writeError(w, http.StatusInternalServerError, initErr.Error(), "failed to initialize service")
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse JSON request body", "")
		return
	}

	res, err := analyzerInstance.Process(r.Context(), &req)
	if err != nil {
		if services.IsRequestError(err) {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		// Upstream failure detail is passed through to the caller unchanged.
		writeError(w, http.StatusInternalServerError, err.Error(), "Failed to process document")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: detail, Message: message})
}
