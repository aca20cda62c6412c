package rooms

import (
	"errors"
	"time"

	"triviarena/internal/game"
	"triviarena/internal/trivia"
	"triviarena/internal/wshub"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrNameTaken      = errors.New("display name already taken in this room")
	ErrQuestionSupply = errors.New("failed to fetch questions")
	ErrNotHost        = errors.New("only the host may do that")
)

// Participant is one connected player. It exists only inside a room's member
// list and is dropped on leave or disconnect.
type Participant struct {
	ConnID string
	Name   string
	Avatar string
	Score  int
}

// Room is a single live trivia session. Members are kept in join order; the
// host is always Members[0], so host reassignment on leave is implicit.
type Room struct {
	Code      string
	Name      string
	Members   []*Participant
	Session   *game.Session
	Supplier  trivia.Supplier
	Filters   trivia.Filters
	Hub       *wshub.Hub
	CreatedAt time.Time

	// timerGen identifies the one countdown allowed to tick this room.
	// Bumped on every transition that starts or kills a countdown, so a
	// stale ticker observes the mismatch and exits.
	timerGen uint64
}

// Host returns the longest-tenured member still present, or nil for an empty
// room (which the registry destroys immediately anyway).
func (r *Room) Host() *Participant {
	if len(r.Members) == 0 {
		return nil
	}
	return r.Members[0]
}

func (r *Room) member(connID string) *Participant {
	for _, p := range r.Members {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) nameTaken(name string) bool {
	for _, p := range r.Members {
		if p.Name == name {
			return true
		}
	}
	return false
}
