package kb

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/curasense/triage-cli/internal/model"
)

// listSep separates multi-valued spreadsheet cells.
const listSep = ";"

// Spreadsheet column headers understood by the xlsx loader.
var xlsxColumns = []string{
	"name",
	"description",
	"aliases",
	"common_symptoms",
	"follow_up_questions",
	"severity_score",
	"urgency",
	"red_flags",
}

// loadXLSX reads the first sheet of a workbook. The first row is a header;
// columns are matched by name, case-insensitively, and unknown columns are
// ignored.
func loadXLSX(path string) ([]model.ConditionRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "kb: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("kb: xlsx %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("kb: xlsx %s has no header row", path)
	}

	cols := make(map[string]int)
	for i, cell := range sheet.Rows[0].Cells {
		cols[strings.ToLower(strings.TrimSpace(cell.String()))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, eris.Errorf("kb: xlsx %s missing %q column", path, "name")
	}

	var records []model.ConditionRecord
	for rowNum, row := range sheet.Rows[1:] {
		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[i].String())
		}

		name := get("name")
		if name == "" {
			continue
		}
		rec := model.ConditionRecord{
			Name:           name,
			Description:    get("description"),
			Aliases:        splitList(get("aliases")),
			CommonSymptoms: splitList(get("common_symptoms")),
			RedFlags:       splitList(get("red_flags")),
			Urgency:        model.Urgency(get("urgency")),
		}
		for _, q := range splitList(get("follow_up_questions")) {
			rec.FollowUpQuestions = append(rec.FollowUpQuestions, model.FollowUpQuestion{Text: q})
		}
		if raw := get("severity_score"); raw != "" {
			sev, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "kb: xlsx %s row %d: severity_score %q", path, rowNum+2, raw)
			}
			rec.SeverityScore = &sev
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteXLSX writes records to a workbook using the same layout loadXLSX reads.
func WriteXLSX(path string, records []model.ConditionRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("conditions")
	if err != nil {
		return eris.Wrap(err, "kb: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range xlsxColumns {
		header.AddCell().SetString(col)
	}

	for _, rec := range records {
		questions := make([]string, 0, len(rec.FollowUpQuestions))
		for _, q := range rec.FollowUpQuestions {
			questions = append(questions, q.Text)
		}
		severity := ""
		if rec.SeverityScore != nil {
			severity = strconv.FormatFloat(*rec.SeverityScore, 'f', -1, 64)
		}

		row := sheet.AddRow()
		for _, v := range []string{
			rec.Name,
			rec.Description,
			strings.Join(rec.Aliases, listSep),
			strings.Join(rec.CommonSymptoms, listSep),
			strings.Join(questions, listSep),
			severity,
			string(rec.Urgency),
			strings.Join(rec.RedFlags, listSep),
		} {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "kb: save xlsx %s", path)
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, listSep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
