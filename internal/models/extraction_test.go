package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormFieldsMarshalPreservesOrder(t *testing.T) {
	fields := FormFields{
		{Label: "Invoice Number", Value: "INV-001"},
		{Label: "Date", Value: "2024-01-15"},
		{Label: "Total Due", Value: "$100.00"},
	}

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.Equal(t, `{"Invoice Number":"INV-001","Date":"2024-01-15","Total Due":"$100.00"}`, string(data))
}

func TestFormFieldsMarshalEscapesSpecialCharacters(t *testing.T) {
	fields := FormFields{
		{Label: `Name ("as printed")`, Value: "O'Brien\nJr."},
	}

	data, err := json.Marshal(fields)
	require.NoError(t, err)

	// The output must still be a valid JSON object.
	var roundTrip map[string]string
	require.NoError(t, json.Unmarshal(data, &roundTrip))
	assert.Equal(t, "O'Brien\nJr.", roundTrip[`Name ("as printed")`])
}

func TestFormFieldsMarshalEmpty(t *testing.T) {
	for _, fields := range []FormFields{nil, {}} {
		data, err := json.Marshal(fields)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))
	}
}

func TestFormFieldsUnmarshalRoundTrip(t *testing.T) {
	original := FormFields{
		{Label: "Patient Name", Value: "Jane Doe"},
		{Label: "DOB", Value: "1990-06-01"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded FormFields
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestFormFieldsUnmarshalRejectsNonObject(t *testing.T) {
	var fields FormFields
	assert.Error(t, json.Unmarshal([]byte(`["not","an","object"]`), &fields))
}

func TestNewExtractionResultSerializesTopLevelFields(t *testing.T) {
	data, err := json.Marshal(NewExtractionResult())
	require.NoError(t, err)

	// The three extraction fields must be present and empty, never null.
	body := string(data)
	assert.Contains(t, body, `"lines":[]`)
	assert.Contains(t, body, `"forms":{}`)
	assert.Contains(t, body, `"tables":[]`)
	assert.NotContains(t, body, "null")
}
