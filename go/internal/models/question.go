package models

// QuestionKind defines how a question is revealed.
type QuestionKind string

const (
	QuestionKindPyramidal QuestionKind = "pyramidal"
	QuestionKindFlat      QuestionKind = "flat"
)

// Question is immutable once loaded into a packet session.
type Question struct {
	ID       string       `json:"id"`
	Kind     QuestionKind `json:"kind"`
	Clues    []string     `json:"clues,omitempty"` // hardest first
	Text     string       `json:"text,omitempty"`
	Answer   string       `json:"answer"`
	Category Category     `json:"category,omitempty"`
}

// ClueCount is 1 for flat questions.
func (q Question) ClueCount() int {
	if q.Kind == QuestionKindFlat {
		return 1
	}
	return len(q.Clues)
}
