// Package canvas parses quiz CSV exports into a normalized record for
// rendering. The export layout is positional: the first column is the student
// name, followed by five informational columns, one (response, score) column
// pair per question, and three trailing informational columns. All knowledge
// of that layout lives in this package.
package canvas

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	leadingInfoColumns  = 5 // id, section, section_id, submitted, attempt
	trailingInfoColumns = 3 // n correct, n incorrect, score
)

// SchemaError reports an export whose column count does not match the
// expected positional layout. Columns is the count excluding the name column.
type SchemaError struct {
	Columns int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unexpected number of columns: %d", e.Columns)
}

// Parse reads the quiz export at path and reshapes it.
func Parse(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	export, err := ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return export, nil
}

// ParseReader reshapes a quiz export read from r.
func ParseReader(r io.Reader) (*Export, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty export: missing header row")
	}

	header := records[0]
	numColumns := len(header) - 1 // the name column is the row key, not data
	infoColumns := leadingInfoColumns + trailingInfoColumns
	if numColumns < infoColumns || (numColumns-infoColumns)%2 != 0 {
		return nil, &SchemaError{Columns: numColumns}
	}
	numQuestions := (numColumns - infoColumns) / 2

	export := &Export{
		Labels:       make([]string, 0, numQuestions),
		QuestionText: make(map[string]string, numQuestions),
		MaxScores:    make(map[string]int, numQuestions),
	}

	for q := 0; q < numQuestions; q++ {
		label := fmt.Sprintf("Question %d", q+1)
		responseHeader := header[1+leadingInfoColumns+2*q]
		scoreHeader := header[1+leadingInfoColumns+2*q+1]

		// Response headers look like "<id>: <question text>".
		_, text, found := strings.Cut(responseHeader, ": ")
		if !found {
			return nil, fmt.Errorf("%s: response header %q has no %q separator", label, responseHeader, ": ")
		}

		// Score headers carry the max score; duplicates get a ".1", ".2"
		// suffix appended upstream, so only the leading integer counts.
		lead, _, _ := strings.Cut(scoreHeader, ".")
		max, err := strconv.Atoi(strings.TrimSpace(lead))
		if err != nil {
			return nil, fmt.Errorf("%s: parse max score from header %q: %w", label, scoreHeader, err)
		}

		export.Labels = append(export.Labels, label)
		export.QuestionText[label] = text
		export.MaxScores[label] = max
	}

	sums := make(map[string]float64, numQuestions)
	for _, row := range records[1:] {
		student, err := parseStudent(row, export.Labels)
		if err != nil {
			return nil, err
		}
		for label, score := range student.Scores {
			sums[label] += score
		}
		export.Students = append(export.Students, student)
	}

	for _, label := range export.Labels {
		if sums[label] == 0 {
			export.NeedsGrading = append(export.NeedsGrading, label)
		}
	}

	// Stable, so students sharing a last name keep their input order.
	sort.SliceStable(export.Students, func(i, j int) bool {
		return export.Students[i].LastName < export.Students[j].LastName
	})

	return export, nil
}

func parseStudent(row []string, labels []string) (Student, error) {
	fullName := row[0]
	last, first := splitName(fullName)
	student := Student{
		FullName:  fullName,
		LastName:  last,
		FirstName: first,
		Responses: make(map[string]string, len(labels)),
		Scores:    make(map[string]float64, len(labels)),
	}

	for q, label := range labels {
		student.Responses[label] = row[1+leadingInfoColumns+2*q]

		// Unanswered questions are exported with a blank score.
		score := 0.0
		raw := strings.TrimSpace(row[1+leadingInfoColumns+2*q+1])
		if raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Student{}, fmt.Errorf("%s: parse score %q for student %q: %w", label, raw, fullName, err)
			}
			score = parsed
		}
		student.Scores[label] = score
	}
	return student, nil
}

// splitName derives the name parts from a full name: the last whitespace
// token is the surname, everything before it is the given name.
func splitName(fullName string) (last, first string) {
	i := strings.LastIndexByte(fullName, ' ')
	if i < 0 {
		return fullName, ""
	}
	return fullName[i+1:], fullName[:i]
}
