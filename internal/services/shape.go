package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/ansonhele/docanalysisflow/internal/models"
)

// textPayload is the JSON shape the text model is prompted to return.
type textPayload struct {
	Pages int      `json:"pages"`
	Lines []string `json:"lines"`
}

// layoutPayload is the JSON shape the layout model is prompted to return.
type layoutPayload struct {
	Forms  []formPair   `json:"forms"`
	Tables []tableCells `json:"tables"`
}

type formPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type tableCells struct {
	Cells []tableCell `json:"cells"`
}

// tableCell is one provider-reported cell. Row and Column are 1-based.
type tableCell struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Text   string `json:"text"`
}

// buildResult shapes the two provider payloads into the Extraction Result
// returned to callers.
func buildResult(source, object string, text *textPayload, layout *layoutPayload) *models.ExtractionResult {
	result := models.NewExtractionResult()

	for _, line := range text.Lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.Lines = append(result.Lines, line)
	}
	result.ExtractedText = strings.Join(result.Lines, "\n")
	result.Forms = normalizeForms(layout.Forms)
	result.Tables = assembleTables(layout.Tables)

	result.DocumentInfo = models.DocumentInfo{
		Source:      source,
		FileType:    documentFormat(object),
		ProcessedAt: time.Now().UTC(),
		PageCount:   text.Pages,
	}
	result.Statistics = models.Statistics{
		Words:       countWords(result.Lines),
		Lines:       len(result.Lines),
		FormsFound:  len(result.Forms),
		TablesFound: len(result.Tables),
	}
	return result
}

// normalizeForms trims and collapses whitespace in every pair, drops pairs
// with an empty label or value, and folds duplicate labels into one entry:
// the first occurrence keeps its position, the last detection keeps its value.
func normalizeForms(pairs []formPair) models.FormFields {
	fields := models.FormFields{}
	index := make(map[string]int)

	for _, pair := range pairs {
		label := collapseSpace(pair.Key)
		value := collapseSpace(pair.Value)
		if label == "" || value == "" {
			continue
		}
		if i, ok := index[label]; ok {
			fields[i].Value = value
			continue
		}
		index[label] = len(fields)
		fields = append(fields, models.FormField{Label: label, Value: value})
	}
	return fields
}

// assembleTables turns the provider's flat cell lists into row/cell grids.
// Tables whose every cell is empty after trimming are dropped.
func assembleTables(tables []tableCells) []models.Table {
	out := []models.Table{}
	for _, t := range tables {
		if table := assembleTable(t.Cells); len(table) > 0 {
			out = append(out, table)
		}
	}
	return out
}

// assembleTable orders cells by their row and column indices. Rows keep the
// order of their indices, positions the provider never reported are padded
// with empty strings so every row has the table's full width.
func assembleTable(cells []tableCell) models.Table {
	rows := make(map[int]map[int]string)
	maxColumn := 0
	empty := true

	for _, cell := range cells {
		if cell.Row < 1 || cell.Column < 1 {
			continue
		}
		text := collapseSpace(cell.Text)
		if text != "" {
			empty = false
		}
		row, ok := rows[cell.Row]
		if !ok {
			row = make(map[int]string)
			rows[cell.Row] = row
		}
		row[cell.Column] = text
		if cell.Column > maxColumn {
			maxColumn = cell.Column
		}
	}
	if empty || len(rows) == 0 {
		return nil
	}

	rowIndexes := make([]int, 0, len(rows))
	for idx := range rows {
		rowIndexes = append(rowIndexes, idx)
	}
	sort.Ints(rowIndexes)

	table := make(models.Table, 0, len(rows))
	for _, idx := range rowIndexes {
		row := make([]string, maxColumn)
		for column, text := range rows[idx] {
			row[column-1] = text
		}
		table = append(table, row)
	}
	return table
}

func countWords(lines []string) int {
	var words int
	for _, line := range lines {
		words += len(strings.Fields(line))
	}
	return words
}

// collapseSpace trims s and collapses inner whitespace runs to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseModelJSON extracts the raw text of a model response and unmarshals it
// into v. The models are configured for JSON output; markdown fences are
// stripped in case the model wraps the payload anyway.
func parseModelJSON(resp *genai.GenerateContentResponse, v any) error {
	raw := extractJSONContent(resp)
	if raw == "" {
		return fmt.Errorf("model returned an empty response instead of JSON")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse JSON from model response: %w", err)
	}
	return nil
}

// extractJSONContent robustly gets the raw text content from the model response.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	clean := strings.TrimSpace(sb.String())
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
