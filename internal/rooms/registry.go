package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"triviarena/internal/game"
	"triviarena/internal/trivia"
	"triviarena/internal/wshub"
)

// ScoreRecorder persists final scores when a game ends. Implementations must
// not block; the registry calls it while holding its lock.
type ScoreRecorder interface {
	RecordScore(name string, score int)
}

type Config struct {
	MaxPlayers       int
	QuestionDuration int // seconds per question
	QuestionCount    int // questions per game
	TickInterval     time.Duration
}

// Registry owns every live room. All mutations funnel through its single
// mutex, so a capacity or uniqueness check is never separated from the
// mutation it guards. Question fetches are the one slow operation and always
// run outside the lock on the caller's goroutine.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	byConn map[string]string // connection ID -> room code

	cfg         Config
	newSupplier func() trivia.Supplier
	lobby       *wshub.Hub // every connection; receives directory updates
	scores      ScoreRecorder
	logger      *slog.Logger
}

func NewRegistry(cfg Config, newSupplier func() trivia.Supplier, lobby *wshub.Hub, scores ScoreRecorder) *Registry {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		byConn:      make(map[string]string),
		cfg:         cfg,
		newSupplier: newSupplier,
		lobby:       lobby,
		scores:      scores,
		logger:      slog.Default(),
	}
}

// Create fetches a question batch, then creates a room with the requester as
// its sole member and starts the countdown. No room exists if the fetch
// fails. The fetch happens before any lock is taken, so a slow upstream only
// stalls the requesting connection.
func (r *Registry) Create(ctx context.Context, client *wshub.Client, displayName, avatar, roomName string, f trivia.Filters) (*wshub.RoomInfo, error) {
	if r.inRoom(client.ConnID) {
		return nil, game.ErrInvalidState
	}

	supplier := r.newSupplier()
	questions, err := supplier.Fetch(ctx, r.cfg.QuestionCount, f)
	if err != nil || len(questions) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrQuestionSupply, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The connection may have joined elsewhere while we were fetching.
	if _, taken := r.byConn[client.ConnID]; taken {
		return nil, game.ErrInvalidState
	}

	code, err := r.freshCode()
	if err != nil {
		return nil, err
	}
	if roomName == "" {
		roomName = "Room " + code
	}

	room := &Room{
		Code:      code,
		Name:      roomName,
		Session:   game.NewSession(r.cfg.QuestionDuration),
		Supplier:  supplier,
		Filters:   f,
		Hub:       wshub.NewHub(),
		CreatedAt: time.Now(),
	}
	room.Members = append(room.Members, &Participant{ConnID: client.ConnID, Name: displayName, Avatar: avatar})
	room.Session.Deal(questions)

	r.rooms[code] = room
	r.byConn[client.ConnID] = code
	room.Hub.Register(client)
	r.startCountdown(room)

	r.logger.Info("room created", "code", code, "host", displayName)
	snap := r.snapshot(room)
	room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgRoomInfo, Room: &snap})
	r.broadcastDirectory()
	return &snap, nil
}

// Join adds a participant to an existing room. Capacity and name-uniqueness
// checks happen under the same lock as the insertion, so two near-
// simultaneous joins cannot both pass the check for one free slot.
func (r *Registry) Join(code string, client *wshub.Client, displayName, avatar string) (*wshub.RoomInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if _, taken := r.byConn[client.ConnID]; taken {
		return nil, game.ErrInvalidState
	}
	if len(room.Members) >= r.cfg.MaxPlayers {
		return nil, ErrRoomFull
	}
	if room.nameTaken(displayName) {
		return nil, ErrNameTaken
	}

	room.Members = append(room.Members, &Participant{ConnID: client.ConnID, Name: displayName, Avatar: avatar})
	r.byConn[client.ConnID] = code
	room.Hub.Register(client)

	snap := r.snapshot(room)
	room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgRoomInfo, Room: &snap})
	r.broadcastDirectory()
	return &snap, nil
}

// Leave removes the connection from whatever room it is in. Idempotent: an
// untracked connection is a no-op. The last member leaving destroys the room
// and invalidates its countdown.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)

	room := r.rooms[code]
	room.Hub.Unregister(connID)
	for i, p := range room.Members {
		if p.ConnID == connID {
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			break
		}
	}

	if len(room.Members) == 0 {
		room.timerGen++ // orphan any in-flight tick
		delete(r.rooms, code)
		r.logger.Info("room destroyed", "code", code)
	} else {
		snap := r.snapshot(room)
		room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgRoomInfo, Room: &snap})
	}
	r.broadcastDirectory()
}

// Answer evaluates connID's answer to its room's current question. A correct
// first answer awards fixed points; answering never advances the question.
func (r *Registry) Answer(connID string, optionIndex int) (*wshub.AnswerResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, p, err := r.roomFor(connID)
	if err != nil {
		return nil, err
	}

	correct, err := room.Session.Answer(connID, optionIndex)
	if err != nil {
		return nil, err
	}
	if correct {
		p.Score += game.PointsPerCorrect
		snap := r.snapshot(room)
		room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgRoomInfo, Room: &snap})
	}
	return &wshub.AnswerResult{Correct: correct, Score: p.Score}, nil
}

// Restart deals a fresh batch into a finished room. Host-only. A failed
// fetch leaves the room exactly as it was — prior questions and scores
// intact — and surfaces as a transient supply error.
func (r *Registry) Restart(ctx context.Context, connID string) error {
	r.mu.Lock()
	room, _, err := r.roomFor(connID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if room.Session.Phase != game.PhaseFinished {
		r.mu.Unlock()
		return game.ErrInvalidState
	}
	if room.Host().ConnID != connID {
		r.mu.Unlock()
		return ErrNotHost
	}
	code, supplier, filters := room.Code, room.Supplier, room.Filters
	r.mu.Unlock()

	questions, err := supplier.Fetch(ctx, r.cfg.QuestionCount, filters)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Revalidate: the room may have emptied out, or the host may have left,
	// while the fetch was in flight.
	room, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if err != nil || len(questions) == 0 {
		room.Hub.Broadcast(wshub.ServerMessage{
			Type:  wshub.MsgError,
			Error: &wshub.ErrorInfo{Code: "QuestionSupplyFailure", Message: "could not fetch a new round, try again"},
		})
		return fmt.Errorf("%w: %v", ErrQuestionSupply, err)
	}
	if room.Host().ConnID != connID {
		return ErrNotHost
	}
	if room.Session.Phase != game.PhaseFinished {
		return game.ErrInvalidState
	}

	for _, p := range room.Members {
		p.Score = 0
	}
	room.Session.Deal(questions)
	r.startCountdown(room)

	r.logger.Info("room restarted", "code", code)
	snap := r.snapshot(room)
	room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgRoomInfo, Room: &snap})
	return nil
}

// List returns the directory of all live rooms, oldest first.
func (r *Registry) List() []wshub.RoomListing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

// Tick drives one countdown step for a room. It reports whether the ticker
// that called it is still the room's live countdown; a stale generation or a
// destroyed room is a silent no-op. Exported so tests can drive time
// directly.
func (r *Registry) Tick(code string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok || room.timerGen != gen {
		return false
	}

	switch room.Session.Tick() {
	case game.TickCountdown:
		snap := r.snapshot(room)
		room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgRoomInfo, Room: &snap})
		return true

	case game.TickAdvanced:
		snap := r.snapshot(room)
		room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgNextQuestion, Question: snap.Question, Room: &snap})
		return true

	case game.TickFinished:
		room.timerGen++ // no countdown while finished
		ranking := r.ranking(room)
		room.Hub.Broadcast(wshub.ServerMessage{Type: wshub.MsgGameOver, Ranking: ranking})
		if r.scores != nil {
			for _, p := range room.Members {
				r.scores.RecordScore(p.Name, p.Score)
			}
		}
		r.logger.Info("game over", "code", code, "players", len(room.Members))
		return false

	default:
		return false
	}
}

// RoomCode reports which room a connection is in, for reconnect-free clients
// that ask. Empty string when not in a room.
func (r *Registry) RoomCode(connID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byConn[connID]
}

func (r *Registry) inRoom(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byConn[connID]
	return ok
}

// roomFor resolves a connection to its room and participant. Callers hold
// the lock.
func (r *Registry) roomFor(connID string) (*Room, *Participant, error) {
	code, ok := r.byConn[connID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	room := r.rooms[code]
	return room, room.member(connID), nil
}

// freshCode generates a code unused by any live room. Collisions are real at
// this code length, so regenerate rather than reuse; bounded attempts keep a
// pathological RNG from spinning forever.
func (r *Registry) freshCode() (string, error) {
	for range 10 {
		code, err := GenerateCode()
		if err != nil {
			return "", fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := r.rooms[code]; exists {
			continue
		}
		return code, nil
	}
	return "", fmt.Errorf("failed to generate unique room code after 10 attempts")
}

// startCountdown hands the room to a new ticker goroutine. Bumping the
// generation first guarantees any previous ticker sees a mismatch on its
// next tick and exits: at most one live countdown per room.
func (r *Registry) startCountdown(room *Room) {
	room.timerGen++
	gen := room.timerGen
	code := room.Code
	go func() {
		ticker := time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()
		for range ticker.C {
			if !r.Tick(code, gen) {
				return
			}
		}
	}()
}

// snapshot builds the broadcastable room state. The answer key never leaves
// the server: QuestionView carries prompt and options only.
func (r *Registry) snapshot(room *Room) wshub.RoomInfo {
	members := make([]wshub.MemberView, len(room.Members))
	for i, p := range room.Members {
		members[i] = wshub.MemberView{Name: p.Name, Score: p.Score, Avatar: p.Avatar, Host: i == 0}
	}

	info := wshub.RoomInfo{
		ID:            room.Code,
		Name:          room.Name,
		Members:       members,
		Phase:         string(room.Session.Phase),
		QuestionTotal: len(room.Session.Questions),
		TimeLeft:      room.Session.TimeLeft,
	}
	if q := room.Session.CurrentQuestion(); q != nil {
		info.QuestionNum = room.Session.Current + 1
		info.Question = &wshub.QuestionView{Prompt: q.Prompt, Options: q.Options, Category: q.Category}
	}
	return info
}

// ranking sorts members by score descending; the stable sort keeps join
// order as the tiebreak.
func (r *Registry) ranking(room *Room) []wshub.RankEntry {
	ordered := make([]*Participant, len(room.Members))
	copy(ordered, room.Members)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	entries := make([]wshub.RankEntry, len(ordered))
	for i, p := range ordered {
		entries[i] = wshub.RankEntry{Name: p.Name, Score: p.Score}
	}
	return entries
}

func (r *Registry) listLocked() []wshub.RoomListing {
	list := make([]wshub.RoomListing, 0, len(r.rooms))
	for _, room := range r.rooms {
		list = append(list, wshub.RoomListing{
			ID:         room.Code,
			Name:       room.Name,
			Players:    len(room.Members),
			MaxPlayers: r.cfg.MaxPlayers,
			Host:       room.Host().Name,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *Registry) broadcastDirectory() {
	if r.lobby == nil {
		return
	}
	r.lobby.Broadcast(wshub.ServerMessage{Type: wshub.MsgRoomListUpdate, Rooms: r.listLocked()})
}
