package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"
	"github.com/ansonhele/docanalysisflow/internal/gcp"
	"github.com/ansonhele/docanalysisflow/internal/models"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// uploadsPrefix is where inline payloads are stored. The ingest trigger
// skips this prefix: those objects are analyzed inline by the HTTP path.
const uploadsPrefix = "uploads/"

const previewLimit = 500

// supportedFormats are the document formats the analysis provider accepts.
// The provider's size and page limits are not re-validated here.
var supportedFormats = map[string]bool{
	"pdf":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"tif":  true,
	"tiff": true,
}

// AnalyzerConfig holds all configuration for the analyzer service.
type AnalyzerConfig struct {
	ProjectID      string
	VertexAIRegion string
	ModelName      string
	DocumentBucket string
	ResultsBucket  string
	ResultsPrefix  string
}

// AnalyzerFunction holds the dependencies for the document analysis logic.
type AnalyzerFunction struct {
	storageClient *storage.Client
	vertexClient  *gcp.VertexClient
	config        AnalyzerConfig
}

// loadAnalyzerConfig loads and validates the environment for this service.
// DOCUMENT_BUCKET may stay empty when every request names its own bucket.
func loadAnalyzerConfig() (*AnalyzerConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	documentBucket := gcp.GetEnv("DOCUMENT_BUCKET", "")
	return &AnalyzerConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ModelName:      gcp.GetEnv("ANALYZER_MODEL", "gemini-1.5-pro"),
		DocumentBucket: documentBucket,
		ResultsBucket:  gcp.GetEnv("RESULTS_BUCKET", ""),
		ResultsPrefix:  gcp.GetEnv("RESULTS_PREFIX", "results/"),
	}, nil
}

// NewAnalyzer creates a new AnalyzerFunction instance.
func NewAnalyzer(ctx context.Context) (*AnalyzerFunction, error) {
	config, err := loadAnalyzerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	return &AnalyzerFunction{
		storageClient: storageClient,
		vertexClient:  vertexClient,
		config:        *config,
	}, nil
}

// Process handles one analysis request end to end: resolve the document,
// store an inline payload if one was sent, run both analysis passes, persist
// the result JSON and build the HTTP response. Each request is independent;
// no state is held between invocations.
func (f *AnalyzerFunction) Process(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	bucket := req.Bucket
	if bucket == "" {
		bucket = f.config.DocumentBucket
	}
	if bucket == "" {
		return nil, NewRequestError("missing bucket parameter and no default document bucket is configured")
	}

	object := req.Object
	var pageHint int

	if req.Content != "" {
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return nil, NewRequestError("content is not valid base64: %v", err)
		}
		if len(data) == 0 {
			return nil, NewRequestError("content is empty")
		}
		if object == "" {
			object, err = inlineObjectName(req.Filename, data)
			if err != nil {
				return nil, err
			}
		}
		format := documentFormat(object)
		if !supportedFormats[format] {
			return nil, NewRequestError("unsupported file type %q: expected pdf, png, jpg, jpeg, tif or tiff", format)
		}
		if format == "pdf" {
			pageHint, err = pdfPageCount(data)
			if err != nil {
				return nil, NewRequestError("document is not a readable PDF: %v", err)
			}
		}
		if err := gcp.SaveObjectOnce(ctx, f.storageClient.Bucket(bucket), object, mimeTypeFor(format), data); err != nil {
			return nil, err
		}
	}

	if object == "" {
		return nil, NewRequestError("missing object parameter: provide a storage object name or inline content")
	}
	if format := documentFormat(object); !supportedFormats[format] {
		return nil, NewRequestError("unsupported file type %q: expected pdf, png, jpg, jpeg, tif or tiff", format)
	}

	logCtx := slog.With("gcsBucket", bucket, "gcsObject", object)
	logCtx.Info("Starting document analysis.")

	result, err := f.AnalyzeObject(ctx, bucket, object)
	if err != nil {
		logCtx.Error("Analysis failed", "error", err)
		return nil, err
	}
	if result.DocumentInfo.PageCount == 0 && pageHint > 0 {
		result.DocumentInfo.PageCount = pageHint
	}

	resultObject, err := f.SaveResult(ctx, bucket, object, result)
	if err != nil {
		logCtx.Error("Failed to persist result", "error", err)
		return nil, err
	}
	resultLocation := fmt.Sprintf("gs://%s/%s", f.resultsBucketFor(bucket), resultObject)

	logCtx.Info("Analysis complete.",
		"resultLocation", resultLocation,
		"lines", result.Statistics.Lines,
		"forms", result.Statistics.FormsFound,
		"tables", result.Statistics.TablesFound,
	)

	return &models.AnalyzeResponse{
		Message:        "Document processing completed",
		ResultLocation: resultLocation,
		DocumentInfo:   result.DocumentInfo,
		ExtractedText:  result.ExtractedText,
		Lines:          result.Lines,
		Forms:          result.Forms,
		Tables:         result.Tables,
		Statistics:     result.Statistics,
		Preview:        previewOf(result.ExtractedText),
	}, nil
}

// AnalyzeObject runs both analysis passes against a stored document and
// shapes the provider output. The passes are independent provider calls and
// run concurrently; the provider reads the document from storage by URI.
func (f *AnalyzerFunction) AnalyzeObject(ctx context.Context, bucket, object string) (*models.ExtractionResult, error) {
	source := fmt.Sprintf("gs://%s/%s", bucket, object)
	filePart := genai.FileData{
		MIMEType: mimeTypeFor(documentFormat(object)),
		FileURI:  source,
	}

	var text textPayload
	var layout layoutPayload

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		resp, err := f.vertexClient.TextModel.GenerateContent(gctx, filePart, genai.Text(gcp.TextUserPrompt))
		if err != nil {
			return fmt.Errorf("text recognition call failed: %w", err)
		}
		return parseModelJSON(resp, &text)
	})
	eg.Go(func() error {
		resp, err := f.vertexClient.LayoutModel.GenerateContent(gctx, filePart, genai.Text(gcp.LayoutUserPrompt))
		if err != nil {
			return fmt.Errorf("layout analysis call failed: %w", err)
		}
		return parseModelJSON(resp, &layout)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return buildResult(source, object, &text, &layout), nil
}

// SaveResult persists the full result JSON under the results prefix, keyed
// by the document's base name, and returns the result object name.
func (f *AnalyzerFunction) SaveResult(ctx context.Context, bucket, object string, result *models.ExtractionResult) (string, error) {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal extraction result: %w", err)
	}

	resultObject := f.resultObjectName(object)
	resultsBucket := f.resultsBucketFor(bucket)
	if err := gcp.SaveObject(ctx, f.storageClient.Bucket(resultsBucket), resultObject, "application/json", payload); err != nil {
		return "", err
	}
	return resultObject, nil
}

// resultsBucketFor returns the configured results bucket, falling back to
// the bucket the document itself lives in.
func (f *AnalyzerFunction) resultsBucketFor(documentBucket string) string {
	if f.config.ResultsBucket != "" {
		return f.config.ResultsBucket
	}
	return documentBucket
}

func (f *AnalyzerFunction) resultObjectName(object string) string {
	return f.config.ResultsPrefix + path.Base(object) + ".json"
}

// inlineObjectName picks the storage key for an inline payload. A filename
// keeps its base name under a fresh upload folder; without one the payload
// is sniffed for a known format.
func inlineObjectName(filename string, data []byte) (string, error) {
	name := path.Base(strings.TrimSpace(filename))
	if name == "." || name == "/" {
		name = ""
	}
	if name != "" {
		return uploadsPrefix + uuid.NewString() + "/" + name, nil
	}

	ext := extensionForContent(data)
	if ext == "" {
		return "", NewRequestError("cannot determine document type: provide a filename with a supported extension")
	}
	return uploadsPrefix + uuid.NewString() + ext, nil
}

// extensionForContent sniffs the payload when no filename was given.
func extensionForContent(data []byte) string {
	switch http.DetectContentType(data) {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ""
	}
}

// documentFormat returns the lower-cased extension without its dot.
func documentFormat(object string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(object)), ".")
}

func mimeTypeFor(format string) string {
	switch format {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// pdfPageCount validates an inline PDF and counts its pages locally.
// A payload pdfcpu cannot read is a client error, not a provider failure.
func pdfPageCount(data []byte) (int, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// previewOf truncates extracted text for the response body.
func previewOf(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}
