package game

import (
	"strings"

	"github.com/mcdev12/quizbowl/go/internal/models"
)

// Phase is the lifecycle of the current question.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseQuestionActive Phase = "question_active"
	PhaseClueRevealed   Phase = "clue_revealed"
	PhaseResolved       Phase = "resolved"
)

// RevealState describes what participants can currently see.
type RevealState struct {
	QuestionIndex int    `json:"question_index"`
	QuestionID    string `json:"question_id,omitempty"`
	RevealedCount int    `json:"revealed_count"`
	TotalClues    int    `json:"total_clues"`
	Text          string `json:"text"`
	Phase         Phase  `json:"phase"`
}

// PacketSession walks an ordered question list. For pyramidal questions
// revealed is the index of the last shown clue, -1 when none; it is always
// below the clue count. Flat questions are fully shown once set.
type PacketSession struct {
	questions []models.Question
	index     int
	revealed  int
	phase     Phase
}

func NewPacketSession(questions []models.Question) *PacketSession {
	return &PacketSession{questions: questions, index: -1, revealed: -1, phase: PhaseIdle}
}

// Len is the number of questions in the session.
func (p *PacketSession) Len() int { return len(p.questions) }

func (p *PacketSession) Phase() Phase { return p.phase }

// Current returns the active question.
func (p *PacketSession) Current() (models.Question, bool) {
	if p.index < 0 || p.index >= len(p.questions) {
		return models.Question{}, false
	}
	return p.questions[p.index], true
}

// SetCurrentQuestion makes index the active question and resets the reveal
// cursor. Indexes wrap around the session length.
func (p *PacketSession) SetCurrentQuestion(index int) (RevealState, error) {
	n := len(p.questions)
	if n == 0 {
		return RevealState{}, ErrNoQuestionsLoaded
	}
	p.index = ((index % n) + n) % n
	p.revealed = -1
	if p.questions[p.index].Kind == models.QuestionKindFlat {
		p.revealed = 0
	}
	p.phase = PhaseQuestionActive
	return p.State(), nil
}

// RevealNextClue shows one more clue of a pyramidal question and returns the
// clues shown so far, hardest first, joined by newlines.
func (p *PacketSession) RevealNextClue() (RevealState, error) {
	q, ok := p.Current()
	if !ok || p.phase == PhaseIdle {
		return RevealState{}, ErrNoActiveQuestion
	}
	if q.Kind != models.QuestionKindPyramidal {
		return RevealState{}, ErrNotPyramidal
	}
	if p.revealed+1 >= len(q.Clues) {
		return RevealState{}, ErrAllCluesRevealed
	}
	p.revealed++
	if p.phase != PhaseResolved {
		p.phase = PhaseClueRevealed
	}
	return p.State(), nil
}

// AdvanceQuestion moves to the next question, wrapping to the first.
func (p *PacketSession) AdvanceQuestion() (RevealState, error) {
	if len(p.questions) == 0 {
		return RevealState{}, ErrNoQuestionsLoaded
	}
	return p.SetCurrentQuestion(p.index + 1)
}

// MarkResolved records that the active question was answered.
func (p *PacketSession) MarkResolved() {
	if p.phase != PhaseIdle {
		p.phase = PhaseResolved
	}
}

// Cursor returns the question index and the revealed clue index.
func (p *PacketSession) Cursor() (question, revealed int) {
	return p.index, p.revealed
}

func (p *PacketSession) State() RevealState {
	q, ok := p.Current()
	if !ok {
		return RevealState{QuestionIndex: p.index, Phase: p.phase}
	}
	s := RevealState{
		QuestionIndex: p.index,
		QuestionID:    q.ID,
		TotalClues:    q.ClueCount(),
		Phase:         p.phase,
	}
	if q.Kind == models.QuestionKindFlat {
		s.RevealedCount = 1
		s.Text = q.Text
		return s
	}
	s.RevealedCount = p.revealed + 1
	s.Text = strings.Join(q.Clues[:p.revealed+1], "\n")
	return s
}
