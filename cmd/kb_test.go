package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curasense/triage-cli/internal/kb"
	"github.com/curasense/triage-cli/internal/model"
	"github.com/curasense/triage-cli/internal/triage"
)

func triageRequest(text string) triage.Request {
	return triage.Request{Text: text, AgeRange: "30s"}
}

func TestReportIssues_Clean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, reportIssues(&buf, "kb.json", testRecords()))
	assert.Contains(t, buf.String(), "kb.json: 2 conditions, 0 issues (0 errors)")
}

func TestReportIssues_Errors(t *testing.T) {
	records := append(testRecords(), model.ConditionRecord{Name: ""})

	var buf bytes.Buffer
	err := reportIssues(&buf, "kb.json", records)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "empty name")
	assert.Contains(t, err.Error(), "1 validation errors")
}

func TestConvertKB_JSONToXLSXAndBack(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "conditions.json")
	require.NoError(t, kb.WriteJSON(src, testRecords()))

	var out bytes.Buffer
	xlsxPath := filepath.Join(dir, "conditions.xlsx")
	require.NoError(t, convertKB(&out, src, xlsxPath, kb.WriteXLSX))
	assert.Contains(t, out.String(), "wrote 2 conditions")

	jsonPath := filepath.Join(dir, "roundtrip.json")
	require.NoError(t, convertKB(&out, xlsxPath, jsonPath, kb.WriteJSON))

	got, err := kb.LoadFile(jsonPath)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Influenza", got[0].Name)
	assert.Equal(t, []string{"fever", "cough", "fatigue"}, got[0].CommonSymptoms)
	assert.Equal(t, []string{"blue lips"}, got[0].RedFlags)
	require.NotNil(t, got[0].SeverityScore)
	assert.InDelta(t, 0.6, *got[0].SeverityScore, 1e-9)
}

func TestConvertKB_MissingSource(t *testing.T) {
	var out bytes.Buffer
	err := convertKB(&out, filepath.Join(t.TempDir(), "nope.json"), "out.json", kb.WriteJSON)
	require.Error(t, err)
}
