package services

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/ansonhele/docanalysisflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleTableOrdersAndPads(t *testing.T) {
	cells := []tableCell{
		{Row: 2, Column: 2, Text: "$4.00"},
		{Row: 1, Column: 1, Text: "Item"},
		{Row: 1, Column: 3, Text: "Qty"},
		{Row: 2, Column: 1, Text: "Widget"},
	}

	table := assembleTable(cells)
	require.Len(t, table, 2)
	assert.Equal(t, []string{"Item", "", "Qty"}, table[0])
	assert.Equal(t, []string{"Widget", "$4.00", ""}, table[1])
}

func TestAssembleTableSkipsInvalidIndices(t *testing.T) {
	cells := []tableCell{
		{Row: 0, Column: 1, Text: "header artifact"},
		{Row: 1, Column: 0, Text: "gutter artifact"},
		{Row: 1, Column: 1, Text: "real"},
	}

	table := assembleTable(cells)
	require.Len(t, table, 1)
	assert.Equal(t, []string{"real"}, table[0])
}

func TestAssembleTablesDropsEmptyTables(t *testing.T) {
	tables := assembleTables([]tableCells{
		{Cells: []tableCell{{Row: 1, Column: 1, Text: "   "}, {Row: 1, Column: 2, Text: ""}}},
		{Cells: nil},
		{Cells: []tableCell{{Row: 1, Column: 1, Text: "kept"}}},
	})

	require.Len(t, tables, 1)
	assert.Equal(t, models.Table{{"kept"}}, tables[0])
}

func TestNormalizeFormsDropsEmptyPairs(t *testing.T) {
	fields := normalizeForms([]formPair{
		{Key: "Name", Value: "Jane Doe"},
		{Key: "   ", Value: "orphan value"},
		{Key: "orphan label", Value: ""},
		{Key: "Date", Value: "2024-01-15"},
	})

	require.Len(t, fields, 2)
	assert.Equal(t, "Name", fields[0].Label)
	assert.Equal(t, "Date", fields[1].Label)
}

func TestNormalizeFormsCollapsesWhitespace(t *testing.T) {
	fields := normalizeForms([]formPair{
		{Key: "  Invoice \t Number ", Value: " INV-001\n"},
	})

	require.Len(t, fields, 1)
	assert.Equal(t, "Invoice Number", fields[0].Label)
	assert.Equal(t, "INV-001", fields[0].Value)
}

func TestNormalizeFormsDuplicateLabelKeepsPositionTakesLastValue(t *testing.T) {
	fields := normalizeForms([]formPair{
		{Key: "Name", Value: "first"},
		{Key: "Date", Value: "2024-01-15"},
		{Key: "Name", Value: "second"},
	})

	require.Len(t, fields, 2)
	assert.Equal(t, models.FormField{Label: "Name", Value: "second"}, fields[0])
	assert.Equal(t, "Date", fields[1].Label)
}

func TestBuildResult(t *testing.T) {
	text := &textPayload{
		Pages: 2,
		Lines: []string{"INVOICE", "", "  Date: 2024-01-15  ", "Total Due: $100.00"},
	}
	layout := &layoutPayload{
		Forms: []formPair{{Key: "Date", Value: "2024-01-15"}},
		Tables: []tableCells{
			{Cells: []tableCell{
				{Row: 1, Column: 1, Text: "Item"},
				{Row: 1, Column: 2, Text: "Price"},
			}},
		},
	}

	result := buildResult("gs://docs/in/invoice.pdf", "in/invoice.pdf", text, layout)

	assert.Equal(t, []string{"INVOICE", "Date: 2024-01-15", "Total Due: $100.00"}, result.Lines)
	assert.Equal(t, "INVOICE\nDate: 2024-01-15\nTotal Due: $100.00", result.ExtractedText)
	assert.Equal(t, "gs://docs/in/invoice.pdf", result.DocumentInfo.Source)
	assert.Equal(t, "pdf", result.DocumentInfo.FileType)
	assert.Equal(t, 2, result.DocumentInfo.PageCount)
	assert.False(t, result.DocumentInfo.ProcessedAt.IsZero())

	assert.Equal(t, 3, result.Statistics.Lines)
	assert.Equal(t, 6, result.Statistics.Words)
	assert.Equal(t, 1, result.Statistics.FormsFound)
	assert.Equal(t, 1, result.Statistics.TablesFound)
}

func TestBuildResultEmptyDocument(t *testing.T) {
	result := buildResult("gs://docs/blank.png", "blank.png", &textPayload{}, &layoutPayload{})

	assert.NotNil(t, result.Lines)
	assert.NotNil(t, result.Forms)
	assert.NotNil(t, result.Tables)
	assert.Empty(t, result.ExtractedText)
	assert.Equal(t, models.Statistics{}, result.Statistics)
}

func modelResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func TestExtractJSONContentTrimsFences(t *testing.T) {
	resp := modelResponse("```json\n{\"pages\": 1, \"lines\": [\"hi\"]}\n```")
	assert.Equal(t, `{"pages": 1, "lines": ["hi"]}`, extractJSONContent(resp))
}

func TestExtractJSONContentEmptyResponses(t *testing.T) {
	assert.Empty(t, extractJSONContent(nil))
	assert.Empty(t, extractJSONContent(&genai.GenerateContentResponse{}))
}

func TestParseModelJSON(t *testing.T) {
	var payload textPayload
	err := parseModelJSON(modelResponse(`{"pages": 3, "lines": ["a", "b"]}`), &payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Pages)
	assert.Equal(t, []string{"a", "b"}, payload.Lines)

	assert.Error(t, parseModelJSON(modelResponse(""), &payload))
	assert.Error(t, parseModelJSON(modelResponse("not json"), &payload))
}
