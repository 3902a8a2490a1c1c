package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Text Model Prompts ---
const TextSystemPrompt = "You are a document text recognition engine. Your task is to read a scanned document and return every line of text it contains. You must output your response as a single valid JSON object."
const TextUserPrompt = `Read the provided document and extract its text content.

Follow these rules precisely:
1.  Read every page in natural reading order (top to bottom, left to right).
2.  Produce one entry per printed line of text. Do not merge, split, or reflow lines.
3.  Do not translate, correct, or paraphrase. Preserve the text exactly as printed.
4.  The output MUST be a single valid JSON object with exactly two keys:
    - "pages": the number of pages in the document.
    - "lines": an array of strings, one per recognized line, in reading order.

Example output format:
{"pages": 2, "lines": ["INVOICE", "Date: 2024-01-15", "Total Due: $100.00"]}`

// --- Layout Model Prompts ---
const LayoutSystemPrompt = "You are a document layout analysis engine. Your task is to detect the form fields and tables in a scanned document. You must output your response as a single valid JSON object."
const LayoutUserPrompt = `Analyze the provided document and extract its form fields and tables.

Follow these rules precisely:
1.  Forms: find label/value pairs such as "Invoice Number: INV-001" or labelled boxes. Create one JSON object per pair with exactly two keys, "key" and "value". List the pairs in the order they appear in the document.
2.  Tables: for every table, create one JSON object with a single "cells" key. Each cell is an object with "row", "column" (both 1-based) and "text". For merged cells, repeat the parent cell's text in every spanned position so that no information is lost.
3.  Do not invent fields or cells that are not present in the document. A document with no forms or tables yields empty arrays.
4.  The output MUST be a single valid JSON object with exactly two keys, "forms" and "tables". Do not include any text before or after the JSON object.

Example output format:
{
  "forms": [
    {"key": "Invoice Number", "value": "INV-001"},
    {"key": "Date", "value": "2024-01-15"}
  ],
  "tables": [
    {"cells": [
      {"row": 1, "column": 1, "text": "Item"},
      {"row": 1, "column": 2, "text": "Price"},
      {"row": 2, "column": 1, "text": "Widget"},
      {"row": 2, "column": 2, "text": "$4.00"}
    ]}
  ]
}`

// VertexClient holds the pre-configured generative models for document analysis.
// The text model handles the OCR pass, the layout model the forms/tables pass.
type VertexClient struct {
	TextModel   *genai.GenerativeModel
	LayoutModel *genai.GenerativeModel
	baseClient  *genai.Client
}

// NewVertexClient creates a new client holding both analysis models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	textModel := baseClient.GenerativeModel(modelName)
	textModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TextSystemPrompt)},
	}
	configureForExtraction(textModel)

	layoutModel := baseClient.GenerativeModel(modelName)
	layoutModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(LayoutSystemPrompt)},
	}
	configureForExtraction(layoutModel)

	return &VertexClient{
		TextModel:   textModel,
		LayoutModel: layoutModel,
		baseClient:  baseClient,
	}, nil
}

// configureForExtraction forces deterministic JSON output. Scanned documents
// routinely trip the default safety filters (medical forms, legal notices),
// so all categories are set to block-none.
func configureForExtraction(model *genai.GenerativeModel) {
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
