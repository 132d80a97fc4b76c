package canvas

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// question describes one (response, score) column pair for test fixtures.
type question struct {
	text        string
	scoreHeader string
}

func exportHeader(questions []question) []string {
	header := []string{"name", "id", "section", "section_id", "submitted", "attempt"}
	for _, q := range questions {
		header = append(header, "1234: "+q.text, q.scoreHeader)
	}
	return append(header, "n correct", "n incorrect", "score")
}

// exportRow builds a data row for one student: each answer is a
// (response, score) pair matching the header's question order.
func exportRow(name string, answers [][2]string) []string {
	row := []string{name, "101", "A", "7", "2024-09-12", "1"}
	for _, a := range answers {
		row = append(row, a[0], a[1])
	}
	return append(row, "0", "0", "0")
}

func writeExport(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quiz.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
	return path
}

func TestParseReshapesExport(t *testing.T) {
	questions := []question{
		{text: "Explain recursion.", scoreHeader: "3"},
		{text: "What is a pointer?", scoreHeader: "5.1"},
	}
	path := writeExport(t, [][]string{
		exportHeader(questions),
		exportRow("Charlie Young", [][2]string{{"Base case plus...", "0"}, {"An address", "4.5"}}),
		exportRow("Alice Baker", [][2]string{{"A function calling itself", "0"}, {"A memory address", "5"}}),
	})

	got, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := &Export{
		Labels: []string{"Question 1", "Question 2"},
		QuestionText: map[string]string{
			"Question 1": "Explain recursion.",
			"Question 2": "What is a pointer?",
		},
		MaxScores: map[string]int{
			"Question 1": 3,
			"Question 2": 5, // ".1" duplicate suffix ignored
		},
		NeedsGrading: []string{"Question 1"},
		Students: []Student{
			{
				FullName:  "Alice Baker",
				LastName:  "Baker",
				FirstName: "Alice",
				Responses: map[string]string{"Question 1": "A function calling itself", "Question 2": "A memory address"},
				Scores:    map[string]float64{"Question 1": 0, "Question 2": 5},
			},
			{
				FullName:  "Charlie Young",
				LastName:  "Young",
				FirstName: "Charlie",
				Responses: map[string]string{"Question 1": "Base case plus...", "Question 2": "An address"},
				Scores:    map[string]float64{"Question 1": 0, "Question 2": 4.5},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}

	if got.TotalMaxScore() != 8 {
		t.Errorf("TotalMaxScore = %d, want 8", got.TotalMaxScore())
	}
}

func TestParseColumnCountMismatch(t *testing.T) {
	// 13 columns after the name column cannot hold an integer number of
	// (response, score) pairs.
	header := exportHeader([]question{
		{text: "Q1", scoreHeader: "1"},
		{text: "Q2", scoreHeader: "1"},
		{text: "Q3", scoreHeader: "1"},
	})
	header = header[:len(header)-1] // drop one trailing column

	path := writeExport(t, [][]string{header})
	_, err := Parse(path)
	if err == nil {
		t.Fatal("Parse succeeded on a malformed column count")
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %v, want a *SchemaError", err)
	}
	if schemaErr.Columns != 13 {
		t.Errorf("SchemaError.Columns = %d, want 13", schemaErr.Columns)
	}
	if !strings.Contains(err.Error(), "13") {
		t.Errorf("error %q does not name the actual column count", err)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		fullName  string
		wantLast  string
		wantFirst string
	}{
		{"Mary Jane Smith", "Smith", "Mary Jane"},
		{"Alice Baker", "Baker", "Alice"},
		{"Cher", "Cher", ""},
	}
	for _, tt := range tests {
		t.Run(tt.fullName, func(t *testing.T) {
			last, first := splitName(tt.fullName)
			if last != tt.wantLast || first != tt.wantFirst {
				t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)",
					tt.fullName, last, first, tt.wantLast, tt.wantFirst)
			}
		})
	}
}

func TestParseNeedsGrading(t *testing.T) {
	questions := []question{
		{text: "Q1", scoreHeader: "2"},
		{text: "Q2", scoreHeader: "2"},
		{text: "Q3", scoreHeader: "2"},
	}
	path := writeExport(t, [][]string{
		exportHeader(questions),
		// Q1 all zero, Q2 partially scored, Q3 blank (counts as zero).
		exportRow("Ann Lee", [][2]string{{"a", "0"}, {"b", "2"}, {"c", ""}}),
		exportRow("Bob Moore", [][2]string{{"d", "0"}, {"e", "0"}, {"f", ""}}),
	})

	got, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"Question 1", "Question 3"}
	if diff := cmp.Diff(want, got.NeedsGrading); diff != "" {
		t.Errorf("NeedsGrading mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSortIsStable(t *testing.T) {
	questions := []question{{text: "Q1", scoreHeader: "1"}}
	path := writeExport(t, [][]string{
		exportHeader(questions),
		exportRow("Zoe Smith", [][2]string{{"z", "0"}}),
		exportRow("Ann Brown", [][2]string{{"a", "0"}}),
		exportRow("Amy Smith", [][2]string{{"y", "0"}}),
	})

	got, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var names []string
	for _, s := range got.Students {
		names = append(names, s.FullName)
	}
	// Brown first; the two Smiths keep their input order.
	want := []string{"Ann Brown", "Zoe Smith", "Amy Smith"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("student order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
	}{
		{
			name: "response header missing separator",
			rows: [][]string{{
				"name", "id", "section", "section_id", "submitted", "attempt",
				"no separator here", "1",
				"n correct", "n incorrect", "score",
			}},
		},
		{
			name: "non-numeric max score header",
			rows: [][]string{
				exportHeader([]question{{text: "Q1", scoreHeader: "lots"}}),
			},
		},
		{
			name: "non-numeric score cell",
			rows: [][]string{
				exportHeader([]question{{text: "Q1", scoreHeader: "1"}}),
				exportRow("Ann Lee", [][2]string{{"a", "oops"}}),
			},
		},
		{
			name: "empty file",
			rows: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeExport(t, tt.rows)
			if _, err := Parse(path); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("Parse succeeded on a missing file")
	}
}
