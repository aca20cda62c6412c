package game

import (
	"errors"

	"triviarena/internal/trivia"
)

// PointsPerCorrect is the fixed award for a correct answer.
const PointsPerCorrect = 10

var (
	// ErrAlreadyAnswered is returned for a second answer to the same question
	// from the same connection; only the first answer is ever scored.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrInvalidState is returned for an action issued outside the phase it
	// requires, e.g. answering a finished game.
	ErrInvalidState = errors.New("action not valid in current game state")
)

type Phase string

const (
	PhaseAwaiting   = Phase("awaiting")
	PhaseInProgress = Phase("inprogress")
	PhaseFinished   = Phase("finished")
)

// TickEvent describes what a countdown tick did to the session.
type TickEvent int

const (
	TickCountdown TickEvent = iota // time decremented, same question
	TickAdvanced                   // countdown hit zero, moved to next question
	TickFinished                   // countdown hit zero on the last question
	TickIgnored                    // session not in progress
)

// Session is the per-room question progression. It carries no lock of its
// own: the room registry serializes all access, so a check here is never
// separated from its mutation.
type Session struct {
	Phase     Phase
	Questions []trivia.Question
	Current   int
	TimeLeft  int

	duration int
	answered map[int]map[string]bool // question index -> connection IDs that answered
}

func NewSession(questionDuration int) *Session {
	return &Session{
		Phase:    PhaseAwaiting,
		Current:  -1,
		duration: questionDuration,
		answered: make(map[int]map[string]bool),
	}
}

// Deal installs a freshly fetched batch and starts the first question. Used
// both for initial creation and for restart; any previous progress and
// answer bookkeeping is discarded.
func (s *Session) Deal(questions []trivia.Question) {
	s.Questions = questions
	s.Current = 0
	s.TimeLeft = s.duration
	s.Phase = PhaseInProgress
	s.answered = make(map[int]map[string]bool)
}

// Tick advances the countdown by one second. At zero the session moves to
// the next question, or to PhaseFinished when none remain.
func (s *Session) Tick() TickEvent {
	if s.Phase != PhaseInProgress {
		return TickIgnored
	}
	if s.TimeLeft > 0 {
		s.TimeLeft--
		return TickCountdown
	}
	if s.Current+1 < len(s.Questions) {
		s.Current++
		s.TimeLeft = s.duration
		return TickAdvanced
	}
	s.Phase = PhaseFinished
	return TickFinished
}

// Answer evaluates connID's answer to the current question. First answer
// wins: repeats get ErrAlreadyAnswered regardless of correctness. Correct
// means the index matches a known answer key; a question with no key (-1)
// accepts answers but never credits them.
func (s *Session) Answer(connID string, optionIndex int) (correct bool, err error) {
	if s.Phase != PhaseInProgress {
		return false, ErrInvalidState
	}
	q := s.Questions[s.Current]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return false, ErrInvalidState
	}
	if s.answered[s.Current] == nil {
		s.answered[s.Current] = make(map[string]bool)
	}
	if s.answered[s.Current][connID] {
		return false, ErrAlreadyAnswered
	}
	s.answered[s.Current][connID] = true

	return q.CorrectIndex != -1 && optionIndex == q.CorrectIndex, nil
}

// CurrentQuestion returns the question in play, or nil outside PhaseInProgress.
func (s *Session) CurrentQuestion() *trivia.Question {
	if s.Phase != PhaseInProgress {
		return nil
	}
	return &s.Questions[s.Current]
}
