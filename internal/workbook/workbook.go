// Package workbook renders a reshaped quiz export as a grading workbook: one
// sheet per question that still needs grading, plus a "Total Scores" sheet
// whose totals and comments are live formulas over the question sheets.
package workbook

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"gradesheet/internal/canvas"
	"gradesheet/internal/i18n"
)

// SummarySheet is the name of the aggregating sheet. Question sheets are
// named by their canonical labels, which the formulas reference.
const SummarySheet = "Total Scores"

// dataStartRow is the first row holding student data on every sheet; rows 1
// and 2 are headers.
const dataStartRow = 3

const (
	fillLight = "FFFFFF"
	fillDark  = "DDDDDD"
)

type styleSet struct {
	italic int
	bold   int
	wrap   int
	center int
	// Summary data-row styles by alternating fill: [0] light, [1] dark.
	name  [2]int
	plain [2]int
	total [2]int
}

// Write renders the export and saves it at path, overwriting any existing
// file.
func Write(ctx context.Context, export *canvas.Export, path string) error {
	f, err := Render(ctx, export)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Render builds the workbook in memory. The caller owns the returned file and
// must Close it.
func Render(ctx context.Context, export *canvas.Export) (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	styles, err := newStyleSet(f)
	if err != nil {
		return nil, err
	}

	// Every formula takes its row number from this map, recorded once at
	// the position each student is written. Sheets never recompute offsets.
	rowIndex := make(map[string]int, len(export.Students))
	for i, s := range export.Students {
		rowIndex[s.FullName] = dataStartRow + i
	}

	for _, label := range export.NeedsGrading {
		if _, err := f.NewSheet(label); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", label, err)
		}
		if err := writeQuestionSheet(ctx, f, export, label, rowIndex, styles); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", label, err)
		}
	}

	if err := writeSummarySheet(ctx, f, export, rowIndex, styles); err != nil {
		return nil, fmt.Errorf("sheet %s: %w", SummarySheet, err)
	}

	// Open on the first question that needs grading; with nothing to grade
	// the summary is all there is.
	active := SummarySheet
	if len(export.NeedsGrading) > 0 {
		active = export.NeedsGrading[0]
	}
	idx, err := f.GetSheetIndex(active)
	if err != nil {
		return nil, fmt.Errorf("locate sheet %s: %w", active, err)
	}
	f.SetActiveSheet(idx)

	ok = true
	return f, nil
}

func newStyleSet(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	if s.italic, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true}}); err != nil {
		return s, fmt.Errorf("italic style: %w", err)
	}
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("bold style: %w", err)
	}
	if s.wrap, err = f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true}}); err != nil {
		return s, fmt.Errorf("wrap style: %w", err)
	}
	numFmt := "0.0"
	if s.center, err = f.NewStyle(&excelize.Style{
		Alignment:    &excelize.Alignment{Horizontal: "center"},
		CustomNumFmt: &numFmt,
	}); err != nil {
		return s, fmt.Errorf("center style: %w", err)
	}

	for i, color := range []string{fillLight, fillDark} {
		fill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
		if s.name[i], err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, Fill: fill}); err != nil {
			return s, fmt.Errorf("name style: %w", err)
		}
		if s.plain[i], err = f.NewStyle(&excelize.Style{Fill: fill}); err != nil {
			return s, fmt.Errorf("fill style: %w", err)
		}
		if s.total[i], err = f.NewStyle(&excelize.Style{
			Alignment:    &excelize.Alignment{Horizontal: "center"},
			CustomNumFmt: &numFmt,
			Fill:         fill,
		}); err != nil {
			return s, fmt.Errorf("total style: %w", err)
		}
	}
	return s, nil
}

// writeQuestionSheet lays out one grading sheet: the question text in C1,
// column labels on row 2 (two adjacent header-styled rows, kept as the
// product ships them), then one row per student.
func writeQuestionSheet(ctx context.Context, f *excelize.File, export *canvas.Export, label string, rowIndex map[string]int, styles styleSet) error {
	if err := f.SetCellValue(label, "C1", export.QuestionText[label]); err != nil {
		return err
	}

	header := []any{
		i18n.T(ctx, "StudentName"),
		i18n.T(ctx, "Response"),
		i18n.T(ctx, "Score"),
		i18n.T(ctx, "MaxScore"),
		i18n.T(ctx, "Comments"),
	}
	if err := f.SetSheetRow(label, "A2", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(label, "A1", "E1", styles.italic); err != nil {
		return err
	}
	if err := f.SetCellStyle(label, "A2", "E2", styles.bold); err != nil {
		return err
	}

	lastRow := 2
	for _, s := range export.Students {
		row := rowIndex[s.FullName]
		data := []any{s.FullName, s.Responses[label], s.Scores[label], export.MaxScores[label], ""}
		if err := f.SetSheetRow(label, fmt.Sprintf("A%d", row), &data); err != nil {
			return err
		}
		if row > lastRow {
			lastRow = row
		}
	}

	if err := f.SetColWidth(label, "B", "B", 50); err != nil {
		return err
	}
	if lastRow >= dataStartRow {
		if err := f.SetCellStyle(label, fmt.Sprintf("B%d", dataStartRow), fmt.Sprintf("B%d", lastRow), styles.wrap); err != nil {
			return err
		}
	}
	if err := f.SetPanes(label, &excelize.Panes{
		Freeze:      true,
		YSplit:      dataStartRow - 1,
		TopLeftCell: fmt.Sprintf("A%d", dataStartRow),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	return f.SetColVisible(label, "A", false)
}

// writeSummarySheet lays out the aggregating sheet. Total Score and Comments
// are formulas, not values, so score edits on question sheets propagate.
func writeSummarySheet(ctx context.Context, f *excelize.File, export *canvas.Export, rowIndex map[string]int, styles styleSet) error {
	if err := f.SetCellValue(SummarySheet, "D1",
		i18n.Td(ctx, "MaxScoreHeader", map[string]any{"Sum": export.TotalMaxScore()})); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "D1", "D1", styles.center); err != nil {
		return err
	}

	header := []any{
		i18n.T(ctx, "FullStudentName"),
		i18n.T(ctx, "LastName"),
		i18n.T(ctx, "FirstName"),
		i18n.T(ctx, "TotalScore"),
		i18n.T(ctx, "Comments"),
	}
	if err := f.SetSheetRow(SummarySheet, "A2", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A2", "E2", styles.bold); err != nil {
		return err
	}

	for i, s := range export.Students {
		row := rowIndex[s.FullName]
		data := []any{s.FullName, s.LastName, s.FirstName}
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", row), &data); err != nil {
			return err
		}
		if len(export.NeedsGrading) > 0 {
			if err := f.SetCellFormula(SummarySheet, fmt.Sprintf("D%d", row), totalFormula(export.NeedsGrading, row)); err != nil {
				return err
			}
			if err := f.SetCellFormula(SummarySheet, fmt.Sprintf("E%d", row), commentsFormula(export.NeedsGrading, row)); err != nil {
				return err
			}
		}

		alt := i % 2
		if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.name[alt]); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("C%d", row), styles.plain[alt]); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("D%d", row), fmt.Sprintf("D%d", row), styles.total[alt]); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), styles.plain[alt]); err != nil {
			return err
		}
	}

	for col, width := range map[string]float64{"A": 15, "D": 15, "E": 50} {
		if err := f.SetColWidth(SummarySheet, col, col, width); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SummarySheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		TopLeftCell: "B1",
		ActivePane:  "topRight",
	}); err != nil {
		return err
	}
	return f.SetColVisible(SummarySheet, "B:C", false)
}

// totalFormula sums the score cell of every question sheet for the student
// written at row.
func totalFormula(labels []string, row int) string {
	refs := make([]string, len(labels))
	for i, label := range labels {
		refs[i] = fmt.Sprintf("'%s'!C%d", label, row)
	}
	return fmt.Sprintf("SUM(%s)", strings.Join(refs, ","))
}

// commentsFormula concatenates "<label> (<score>/<max>) <comment>" per
// question needing grading, separated by a piped line break.
func commentsFormula(labels []string, row int) string {
	segments := make([]string, len(labels))
	for i, label := range labels {
		segments[i] = fmt.Sprintf(`"%s (",'%s'!C%d,"/",'%s'!D%d,") ",'%s'!E%d`,
			label, label, row, label, row, label, row)
	}
	return fmt.Sprintf("CONCATENATE(%s)", strings.Join(segments, `,CHAR(10),"|",CHAR(10),`))
}
