package wshub

// ClientMessage is the tagged envelope received from clients. Type selects
// the action; unrelated fields are ignored.
type ClientMessage struct {
	Type        string `json:"t"`
	RoomID      string `json:"roomId,omitempty"`
	RoomName    string `json:"roomName,omitempty"`
	Name        string `json:"name,omitempty"`
	Category    string `json:"category,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	OptionIndex int    `json:"index"`
}

// Client message types.
const (
	MsgCreateRoom = "createRoom"
	MsgJoinRoom   = "joinRoom"
	MsgAnswer     = "answerQuestion"
	MsgRestart    = "restartGame"
	MsgLeaveRoom  = "leaveRoom"
	MsgListRooms  = "listRooms"
)

// ServerMessage is the tagged envelope sent to clients.
type ServerMessage struct {
	Type     string        `json:"t"`
	Room     *RoomInfo     `json:"room,omitempty"`
	Question *QuestionView `json:"question,omitempty"`
	Ranking  []RankEntry   `json:"ranking,omitempty"`
	Rooms    []RoomListing `json:"rooms,omitempty"`
	Answer   *AnswerResult `json:"answer,omitempty"`
	Error    *ErrorInfo    `json:"error,omitempty"`
}

// Server message types.
const (
	MsgRoomInfo       = "roomInfo"
	MsgNextQuestion   = "nextQuestion"
	MsgGameOver       = "gameOver"
	MsgRoomListUpdate = "roomListUpdate"
	MsgAnswerResult   = "answerResult"
	MsgError          = "error"
)

// RoomInfo is the complete broadcastable state of a room. The answer key is
// deliberately absent: answers are validated server-side only.
type RoomInfo struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Members       []MemberView  `json:"members"`
	Phase         string        `json:"phase"`
	QuestionNum   int           `json:"questionNum"` // 1-based, 0 outside play
	QuestionTotal int           `json:"questionTotal"`
	TimeLeft      int           `json:"timeLeft"`
	Question      *QuestionView `json:"question,omitempty"`
}

// MemberView lists members in join order; index 0 is the host.
type MemberView struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Avatar string `json:"avatar,omitempty"`
	Host   bool   `json:"host"`
}

type QuestionView struct {
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
	Category string   `json:"category,omitempty"`
}

type RankEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type RoomListing struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Host       string `json:"host"`
}

type AnswerResult struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
