package game

import (
	"errors"
	"testing"

	"triviarena/internal/trivia"
)

func twoQuestions() []trivia.Question {
	return []trivia.Question{
		{Prompt: "2+2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
		{Prompt: "capital of France?", Options: []string{"Paris", "Lyon"}, CorrectIndex: 0},
	}
}

func TestNewSession_Awaiting(t *testing.T) {
	s := NewSession(30)
	if s.Phase != PhaseAwaiting {
		t.Errorf("Phase = %q, want %q", s.Phase, PhaseAwaiting)
	}
	if s.CurrentQuestion() != nil {
		t.Error("CurrentQuestion() should be nil before a deal")
	}
	if got := s.Tick(); got != TickIgnored {
		t.Errorf("Tick() = %v, want TickIgnored", got)
	}
}

func TestDeal_StartsFirstQuestion(t *testing.T) {
	s := NewSession(30)
	s.Deal(twoQuestions())

	if s.Phase != PhaseInProgress {
		t.Errorf("Phase = %q, want %q", s.Phase, PhaseInProgress)
	}
	if s.Current != 0 {
		t.Errorf("Current = %d, want 0", s.Current)
	}
	if s.TimeLeft != 30 {
		t.Errorf("TimeLeft = %d, want 30", s.TimeLeft)
	}
}

func TestTick_CountsDownThenAdvances(t *testing.T) {
	s := NewSession(2)
	s.Deal(twoQuestions())

	if got := s.Tick(); got != TickCountdown {
		t.Fatalf("Tick() = %v, want TickCountdown", got)
	}
	if got := s.Tick(); got != TickCountdown {
		t.Fatalf("Tick() = %v, want TickCountdown", got)
	}
	if s.TimeLeft != 0 {
		t.Fatalf("TimeLeft = %d, want 0", s.TimeLeft)
	}

	if got := s.Tick(); got != TickAdvanced {
		t.Fatalf("Tick() = %v, want TickAdvanced", got)
	}
	if s.Current != 1 {
		t.Errorf("Current = %d, want 1", s.Current)
	}
	if s.TimeLeft != 2 {
		t.Errorf("TimeLeft = %d, want full duration 2", s.TimeLeft)
	}
}

func TestTick_FinishesAfterLastQuestion(t *testing.T) {
	s := NewSession(1)
	s.Deal(twoQuestions())

	events := []TickEvent{}
	for i := 0; i < 5; i++ {
		events = append(events, s.Tick())
	}
	want := []TickEvent{TickCountdown, TickAdvanced, TickCountdown, TickFinished, TickIgnored}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("tick %d = %v, want %v", i, events[i], want[i])
		}
	}
	if s.Phase != PhaseFinished {
		t.Errorf("Phase = %q, want %q", s.Phase, PhaseFinished)
	}
}

func TestTick_IndexAlwaysInRange(t *testing.T) {
	s := NewSession(1)
	s.Deal(twoQuestions())

	for s.Phase == PhaseInProgress {
		if s.Current < 0 || s.Current >= len(s.Questions) {
			t.Fatalf("Current = %d out of range [0,%d)", s.Current, len(s.Questions))
		}
		s.Tick()
	}
}

func TestAnswer_CorrectAndIncorrect(t *testing.T) {
	s := NewSession(30)
	s.Deal(twoQuestions())

	correct, err := s.Answer("conn-1", 1)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if !correct {
		t.Error("Answer(1) should be correct")
	}

	correct, err = s.Answer("conn-2", 0)
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if correct {
		t.Error("Answer(0) should be incorrect")
	}
}

func TestAnswer_FirstAnswerWins(t *testing.T) {
	s := NewSession(30)
	s.Deal(twoQuestions())

	if _, err := s.Answer("conn-1", 0); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := s.Answer("conn-1", 1); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("second answer error = %v, want ErrAlreadyAnswered", err)
	}

	// A new question resets the slate.
	s.TimeLeft = 0
	if got := s.Tick(); got != TickAdvanced {
		t.Fatalf("Tick() = %v, want TickAdvanced", got)
	}
	if _, err := s.Answer("conn-1", 0); err != nil {
		t.Fatalf("answer on next question: %v", err)
	}
}

func TestAnswer_NoAnswerKeyNeverCredits(t *testing.T) {
	s := NewSession(30)
	s.Deal([]trivia.Question{
		{Prompt: "scraped", Options: []string{"a", "b"}, CorrectIndex: -1},
	})

	for i, conn := range []string{"c1", "c2"} {
		correct, err := s.Answer(conn, i)
		if err != nil {
			t.Fatalf("Answer() error: %v", err)
		}
		if correct {
			t.Error("question without answer key must never credit")
		}
	}
}

func TestAnswer_OutsideInProgress(t *testing.T) {
	s := NewSession(30)
	if _, err := s.Answer("c1", 0); !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState before deal", err)
	}

	s.Deal([]trivia.Question{{Prompt: "q", Options: []string{"a", "b"}, CorrectIndex: 0}})
	s.TimeLeft = 0
	s.Tick() // finishes
	if _, err := s.Answer("c1", 0); !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState after finish", err)
	}
}

func TestAnswer_OptionIndexOutOfRange(t *testing.T) {
	s := NewSession(30)
	s.Deal(twoQuestions())

	if _, err := s.Answer("c1", 7); !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState for out-of-range index", err)
	}
	if _, err := s.Answer("c1", -1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState for negative index", err)
	}
	// A rejected index does not burn the participant's answer.
	if _, err := s.Answer("c1", 1); err != nil {
		t.Errorf("valid answer after rejected index: %v", err)
	}
}

func TestDeal_RestartClearsAnswers(t *testing.T) {
	s := NewSession(30)
	s.Deal(twoQuestions())
	s.Answer("c1", 1)

	s.Deal(twoQuestions())
	if _, err := s.Answer("c1", 1); err != nil {
		t.Errorf("answer after redeal: %v", err)
	}
}
