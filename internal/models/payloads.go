package models

// These structs define the JSON payloads of the document-analyzer HTTP
// function. A document is identified either by a storage reference (Bucket +
// Object) or by an inline base64 payload (Content, optionally Filename).

// AnalyzeRequest is the input for the document-analyzer function. Bucket
// falls back to the configured default document bucket when empty.
type AnalyzeRequest struct {
	Bucket   string `json:"bucket,omitempty"`
	Object   string `json:"object,omitempty"`
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content,omitempty"`
}

// AnalyzeResponse is the output of the document-analyzer function. It carries
// the full extraction result plus the storage location it was persisted to
// and a short text preview.
type AnalyzeResponse struct {
	Message        string       `json:"message"`
	ResultLocation string       `json:"result_location"`
	DocumentInfo   DocumentInfo `json:"document_info"`
	ExtractedText  string       `json:"extracted_text"`
	Lines          []string     `json:"lines"`
	Forms          FormFields   `json:"forms"`
	Tables         []Table      `json:"tables"`
	Statistics     Statistics   `json:"statistics"`
	Preview        string       `json:"preview"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
