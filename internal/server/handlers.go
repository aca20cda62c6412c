package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"triviarena/internal/db"
	"triviarena/internal/game"
	"triviarena/internal/identity"
	"triviarena/internal/rooms"
	"triviarena/internal/trivia"
	"triviarena/internal/wshub"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

type Server struct {
	Registry *rooms.Registry
	Lobby    *wshub.Hub
	Resolver identity.Resolver
	DB       *db.DB // nil if no database configured

	scoreBuffer chan db.ScoreEvent
}

// RecordScore implements rooms.ScoreRecorder. Non-blocking: a full buffer
// drops the event rather than stalling the game loop.
func (s *Server) RecordScore(name string, score int) {
	select {
	case s.scoreBuffer <- db.ScoreEvent{Name: name, Score: score, EndedAt: time.Now()}:
	default:
		slog.Warn("score buffer full, dropping event", "player", name)
	}
}

// handleWS runs one client's whole session: accept, identity resolution,
// then a read loop dispatching tagged messages until disconnect. Disconnect
// is not an error — it folds into Leave.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ident, err := s.Resolver.Resolve(ctx, r.URL.Query().Get("session"))
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "identity resolution failed")
		return
	}

	client := wshub.NewClient(uuid.New().String(), conn)
	s.Lobby.Register(client)
	go client.WritePump(ctx)
	defer func() {
		s.Registry.Leave(client.ConnID)
		s.Lobby.Unregister(client.ConnID)
	}()

	slog.Info("client connected", "conn", client.ConnID, "name", ident.DisplayName)
	client.Deliver(wshub.ServerMessage{Type: wshub.MsgRoomListUpdate, Rooms: s.Registry.List()})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			slog.Info("client disconnected", "conn", client.ConnID)
			return
		}
		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.Deliver(errorMessage("BadMessage", "malformed message"))
			continue
		}
		s.dispatch(ctx, client, ident, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, client *wshub.Client, ident identity.Identity, msg wshub.ClientMessage) {
	switch msg.Type {
	case wshub.MsgCreateRoom:
		name := displayName(msg.Name, ident, client.ConnID)
		filters := trivia.Filters{Category: msg.Category, Difficulty: msg.Difficulty}
		if _, err := s.Registry.Create(ctx, client, name, ident.AvatarRef, msg.RoomName, filters); err != nil {
			client.Deliver(errorFor(err))
		}

	case wshub.MsgJoinRoom:
		name := displayName(msg.Name, ident, client.ConnID)
		code := strings.ToUpper(strings.TrimSpace(msg.RoomID))
		if _, err := s.Registry.Join(code, client, name, ident.AvatarRef); err != nil {
			client.Deliver(errorFor(err))
		}

	case wshub.MsgAnswer:
		res, err := s.Registry.Answer(client.ConnID, msg.OptionIndex)
		if err != nil {
			client.Deliver(errorFor(err))
			return
		}
		client.Deliver(wshub.ServerMessage{Type: wshub.MsgAnswerResult, Answer: res})

	case wshub.MsgRestart:
		if err := s.Registry.Restart(ctx, client.ConnID); err != nil {
			client.Deliver(errorFor(err))
		}

	case wshub.MsgLeaveRoom:
		s.Registry.Leave(client.ConnID)

	case wshub.MsgListRooms:
		client.Deliver(wshub.ServerMessage{Type: wshub.MsgRoomListUpdate, Rooms: s.Registry.List()})

	default:
		client.Deliver(errorMessage("BadMessage", "unknown message type "+msg.Type))
	}
}

// displayName prefers the name the client asked for, then the resolved
// identity, then a generated guest handle.
func displayName(requested string, ident identity.Identity, connID string) string {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	if ident.DisplayName != "" {
		return ident.DisplayName
	}
	return "Guest-" + connID[:5]
}

// errorFor maps registry and game errors onto the wire taxonomy.
func errorFor(err error) wshub.ServerMessage {
	var code string
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		code = "RoomNotFound"
	case errors.Is(err, rooms.ErrRoomFull):
		code = "RoomFull"
	case errors.Is(err, rooms.ErrNameTaken):
		code = "NameTaken"
	case errors.Is(err, rooms.ErrQuestionSupply):
		code = "QuestionSupplyFailure"
	case errors.Is(err, rooms.ErrNotHost):
		code = "NotAuthorizedForAction"
	case errors.Is(err, game.ErrAlreadyAnswered):
		code = "AlreadyAnswered"
	case errors.Is(err, game.ErrInvalidState):
		code = "InvalidState"
	default:
		code = "Internal"
	}
	return errorMessage(code, err.Error())
}

func errorMessage(code, message string) wshub.ServerMessage {
	return wshub.ServerMessage{Type: wshub.MsgError, Error: &wshub.ErrorInfo{Code: code, Message: message}}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"db_error","error":%q}`, err.Error())
			return
		}
	}
	fmt.Fprintf(w, `{"status":%q}`, status)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Registry.List()); err != nil {
		slog.Error("encoding room list", "error", err)
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.DB == nil {
		w.Write([]byte("[]"))
		return
	}
	top, err := s.DB.Top(10)
	if err != nil {
		slog.Error("reading leaderboard", "error", err)
		http.Error(w, `{"error":"leaderboard unavailable"}`, http.StatusInternalServerError)
		return
	}
	if top == nil {
		top = []db.LeaderboardEntry{}
	}
	if err := json.NewEncoder(w).Encode(top); err != nil {
		slog.Error("encoding leaderboard", "error", err)
	}
}
