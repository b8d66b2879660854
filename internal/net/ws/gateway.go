package ws

import (
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sakshee44566/4-IN-A-ROW/internal/auth"
	"github.com/sakshee44566/4-IN-A-ROW/internal/game"
	"github.com/sakshee44566/4-IN-A-ROW/internal/lobby"
	"github.com/sakshee44566/4-IN-A-ROW/internal/match"
	"github.com/sakshee44566/4-IN-A-ROW/internal/net/proto"
	"github.com/sakshee44566/4-IN-A-ROW/internal/session"
)

// DefaultBotWait is how long a queued player waits for a human opponent
// before a bot match is started instead.
const DefaultBotWait = 10 * time.Second

// GatewayConfig carries the gateway's collaborators. A zero BotWait falls
// back to the default.
type GatewayConfig struct {
	Auth     *auth.Service
	Sessions *session.Registry
	Queue    *lobby.Queue
	Matches  *match.Coordinator
	Logger   *log.Logger
	BotWait  time.Duration
}

// Gateway accepts websocket connections and routes their messages: token
// authentication, matchmaking joins, and moves for running games. It also
// owns the per-player bot fallback timers.
type Gateway struct {
	auth     *auth.Service
	sessions *session.Registry
	queue    *lobby.Queue
	matches  *match.Coordinator
	logger   *log.Logger
	upgrader websocket.Upgrader
	botWait  time.Duration

	mu        sync.Mutex
	botTimers map[string]*time.Timer
}

// NewGateway wires a gateway from cfg.
func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	botWait := cfg.BotWait
	if botWait == 0 {
		botWait = DefaultBotWait
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Gateway{
		auth:      cfg.Auth,
		sessions:  cfg.Sessions,
		queue:     cfg.Queue,
		matches:   cfg.Matches,
		logger:    logger,
		upgrader:  upgrader,
		botWait:   botWait,
		botTimers: make(map[string]*time.Timer),
	}
}

// ServeHTTP upgrades the request and pumps inbound messages until the
// connection drops.
func (g *Gateway) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	raw, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Printf("upgrade failed: %v", err)
		return
	}
	conn := newWSConn(raw)

	for {
		_, payload, err := raw.ReadMessage()
		if err != nil {
			g.HandleDisconnect(conn)
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			g.logger.Printf("discarding malformed message from %s: %v", conn.ID(), err)
			continue
		}
		g.HandleMessage(conn, msg)
	}
}

// HandleMessage dispatches one inbound client message.
func (g *Gateway) HandleMessage(conn session.Conn, msg proto.ClientMessage) {
	switch msg.Type {
	case "authenticate":
		g.handleAuthenticate(conn, msg)
	case "join":
		g.handleJoin(conn, msg)
	case "makeMove":
		g.handleMakeMove(conn, msg)
	default:
		g.logger.Printf("unknown message type %q from %s", msg.Type, conn.ID())
	}
}

func (g *Gateway) handleAuthenticate(conn session.Conn, msg proto.ClientMessage) {
	claims, err := g.auth.Verify(msg.Token)
	if err != nil {
		g.sendTo(conn, proto.AuthError{Type: proto.TypeAuthError, Message: "Invalid or expired token"})
		return
	}

	g.sessions.Bind(claims.Username, conn)
	g.sendTo(conn, proto.Authenticated{Type: proto.TypeAuthenticated, Username: claims.Username})
}

func (g *Gateway) handleJoin(conn session.Conn, msg proto.ClientMessage) {
	identity, ok := g.sessions.IdentityFor(conn.ID())
	if !ok {
		g.sendTo(conn, proto.NewError("Not authenticated"))
		return
	}
	if msg.Username != "" && msg.Username != identity {
		g.sendTo(conn, proto.NewError("Identity mismatch"))
		return
	}

	// A surviving match binding means this is a reconnect, not a fresh
	// queue request. A binding whose game is gone is stale; clear it and
	// fall through to matchmaking.
	if matchID, active := g.sessions.ActiveMatch(identity); active {
		if err := g.matches.Rejoin(identity, matchID, conn); err == nil {
			return
		}
		g.sessions.ClearActiveMatch(identity, matchID)
	}

	res := g.queue.Enqueue(identity)
	g.sendTo(conn, proto.Matchmaking{Type: proto.TypeMatchmaking, Status: "waiting"})

	if res.Paired {
		g.cancelBotFallback(res.Player1)
		g.cancelBotFallback(res.Player2)
		g.matches.CreateMatch(res.Player1, res.Player2, res.MatchID)
		return
	}
	g.scheduleBotFallback(identity)
}

func (g *Gateway) handleMakeMove(conn session.Conn, msg proto.ClientMessage) {
	identity, ok := g.sessions.IdentityFor(conn.ID())
	if !ok {
		g.sendTo(conn, proto.NewError("Not authenticated"))
		return
	}
	if msg.GameID == "" || msg.Column == nil {
		g.sendTo(conn, proto.NewError("Invalid move"))
		return
	}

	err := g.matches.SubmitMove(identity, msg.GameID, *msg.Column)
	if err == nil {
		return
	}
	g.sendTo(conn, proto.NewError(moveErrorMessage(err)))
}

func moveErrorMessage(err error) string {
	switch {
	case errors.Is(err, match.ErrNotFound):
		return "Game not found"
	case errors.Is(err, match.ErrForbidden):
		return "You are not a player in this game"
	case errors.Is(err, match.ErrOutOfTurn):
		return "Not your turn"
	case errors.Is(err, game.ErrColumnFull):
		return "Column is full"
	case errors.Is(err, game.ErrInvalidColumn):
		return "Invalid column"
	case errors.Is(err, game.ErrInvalidPhase):
		return "Game is not in progress"
	default:
		return "Move failed"
	}
}

// HandleDisconnect tears down everything tied to a dropped connection. A
// connection that was already superseded by a newer login unbinds nothing
// and the newer session is left untouched.
func (g *Gateway) HandleDisconnect(conn session.Conn) {
	identity, ok := g.sessions.Unbind(conn)
	if !ok {
		return
	}
	g.cancelBotFallback(identity)
	g.queue.Cancel(identity)
	g.matches.OnDisconnect(identity)
}

// scheduleBotFallback arms the bot timer for a queued player, replacing any
// earlier one. When it fires the queue is re-checked: a player who was
// paired or left in the meantime gets nothing.
func (g *Gateway) scheduleBotFallback(identity string) {
	g.mu.Lock()
	if prev, ok := g.botTimers[identity]; ok {
		prev.Stop()
	}
	g.botTimers[identity] = time.AfterFunc(g.botWait, func() {
		g.mu.Lock()
		delete(g.botTimers, identity)
		g.mu.Unlock()

		if !g.queue.Cancel(identity) {
			return
		}
		g.logger.Printf("no opponent for %s after %s, starting bot match", identity, g.botWait)
		g.matches.CreateMatch(identity, match.BotIdentity, uuid.NewString())
	})
	g.mu.Unlock()
}

func (g *Gateway) cancelBotFallback(identity string) {
	g.mu.Lock()
	if timer, ok := g.botTimers[identity]; ok {
		timer.Stop()
		delete(g.botTimers, identity)
	}
	g.mu.Unlock()
}

func (g *Gateway) sendTo(conn session.Conn, msg any) {
	if err := conn.Send(msg); err != nil {
		g.logger.Printf("failed to send to %s: %v", conn.ID(), err)
	}
}
