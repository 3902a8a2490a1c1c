package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/ansonhele/docanalysisflow/internal/gcp"
	"github.com/ansonhele/docanalysisflow/internal/models"
)

// IngestConfig holds configuration for the storage-event ingest path.
type IngestConfig struct {
	ProjectID      string
	CollectionName string
}

// IngestFunction wires the storage-triggered path: a finalized document
// object gets a Firestore record and runs through the same analysis core as
// the HTTP relay.
type IngestFunction struct {
	firestoreClient *firestore.Client
	analyzer        *AnalyzerFunction
	config          IngestConfig
}

// GCSEvent is the payload of a storage object-finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NewIngest creates a new IngestFunction instance.
func NewIngest(ctx context.Context) (*IngestFunction, error) {
	analyzer, err := NewAnalyzer(ctx)
	if err != nil {
		return nil, err
	}

	config := IngestConfig{
		ProjectID:      analyzer.config.ProjectID,
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	f := &IngestFunction{
		firestoreClient: firestoreClient,
		analyzer:        analyzer,
		config:          config,
	}
	slog.Info("Document ingest logic initialized.", "collection", config.CollectionName)
	return f, nil
}

// Process handles one finalized storage object.
func (f *IngestFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if isRelayArtifact(e.Name, f.analyzer.config.ResultsPrefix) {
		logCtx.Info("Skipping relay-written object.")
		return nil
	}
	if !supportedFormats[documentFormat(e.Name)] {
		logCtx.Info("Skipping object with unsupported format.")
		return nil
	}
	logCtx.Info("Processing new document object.")

	fileHash, err := f.hashObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to hash object", "error", err)
		return err
	}
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate document detected. Skipping.", "existingDocId", docID)
		return nil // Clean exit for a duplicate
	}

	docRef, err := f.createInitialDocument(ctx, fileHash, e.Name)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created document record.")

	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "status", Value: models.StatusAnalyzing}}); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to ANALYZING", err)
	}

	result, err := f.analyzer.AnalyzeObject(ctx, e.Bucket, e.Name)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "analysis failed", err)
	}

	resultObject, err := f.analyzer.SaveResult(ctx, e.Bucket, e.Name, result)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to persist result", err)
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusAnalyzed},
		{Path: "pageCount", Value: result.DocumentInfo.PageCount},
		{Path: "wordCount", Value: result.Statistics.Words},
		{Path: "formCount", Value: result.Statistics.FormsFound},
		{Path: "tableCount", Value: result.Statistics.TablesFound},
		{Path: "resultObject", Value: resultObject},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to record analysis outcome", err)
	}

	logCtx.Info("Document ingested and analyzed.", "resultObject", resultObject)
	return nil
}

// isRelayArtifact reports whether the object was written by the relay
// itself. Analyzing those again would loop the pipeline through its own
// output: uploads/ objects are analyzed inline by the HTTP path, and the
// results prefix holds result JSON.
func isRelayArtifact(object, resultsPrefix string) bool {
	return strings.HasPrefix(object, uploadsPrefix) || strings.HasPrefix(object, resultsPrefix)
}

func (f *IngestFunction) hashObject(ctx context.Context, bucket, object string) (string, error) {
	reader, err := f.analyzer.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, reader); err != nil {
		return "", fmt.Errorf("failed to read object for hashing: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func (f *IngestFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *IngestFunction) createInitialDocument(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	newDoc := models.Document{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           models.StatusReceived,
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}
	return docRef, nil
}

func (f *IngestFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (f *IngestFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}
