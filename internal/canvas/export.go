package canvas

// Export is the reshaped quiz export: one record per invocation, consumed once
// by the workbook renderer. It holds independent copies of the source data.
type Export struct {
	// Labels are the canonical question labels "Question 1".."Question Q",
	// in source column order.
	Labels []string
	// QuestionText maps a label to the question text parsed from the
	// response column header.
	QuestionText map[string]string
	// MaxScores maps a label to the question's maximum score.
	MaxScores map[string]int
	// NeedsGrading lists, in label order, the questions whose score column
	// sums to zero across all students.
	NeedsGrading []string
	// Students holds one entry per row of the export, sorted by last name.
	Students []Student
}

// Student is one row of the export with derived name parts.
type Student struct {
	FullName  string
	LastName  string
	FirstName string
	// Responses maps a question label to the student's free-text response.
	Responses map[string]string
	// Scores maps a question label to the student's score for it.
	Scores map[string]float64
}

// TotalMaxScore returns the sum of all questions' maximum scores.
func (e *Export) TotalMaxScore() int {
	total := 0
	for _, label := range e.Labels {
		total += e.MaxScores[label]
	}
	return total
}
