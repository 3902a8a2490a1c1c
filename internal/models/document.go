package models

import "time"

// Document represents the record for one ingested document in Firestore.
// It tracks the status and outcome of the analysis triggered by the storage
// event path. The blob itself lives in GCS, written once and never mutated.
type Document struct {
	FileHash         string    `firestore:"fileHash,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	Status           string    `firestore:"status,omitempty"`
	ErrorDetails     string    `firestore:"errorDetails,omitempty"`
	PageCount        int       `firestore:"pageCount,omitempty"`
	WordCount        int       `firestore:"wordCount,omitempty"`
	FormCount        int       `firestore:"formCount,omitempty"`
	TableCount       int       `firestore:"tableCount,omitempty"`
	ResultObject     string    `firestore:"resultObject,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}

// Document status values, in lifecycle order.
const (
	StatusReceived  = "RECEIVED"
	StatusAnalyzing = "ANALYZING"
	StatusAnalyzed  = "ANALYZED"
	StatusFailed    = "FAILED"
)
