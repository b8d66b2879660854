// Package match owns the lifecycle of active games: move application, bot
// turns, disconnect forfeiture, and handoff of finished games to the
// persistence collaborator.
package match

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sakshee44566/4-IN-A-ROW/internal/game"
	"github.com/sakshee44566/4-IN-A-ROW/internal/net/proto"
	"github.com/sakshee44566/4-IN-A-ROW/internal/session"
)

// BotIdentity is the sentinel opponent used when no human shows up in time.
const BotIdentity = "BOT"

const (
	// DefaultBotDelay is the pause before a bot answers a human move.
	DefaultBotDelay = 500 * time.Millisecond
	// DefaultGraceWindow is how long a disconnected player has to return
	// before the game is forfeited.
	DefaultGraceWindow = 30 * time.Second
)

var (
	ErrNotFound  = errors.New("game not found")
	ErrForbidden = errors.New("you are not a player in this game")
	ErrOutOfTurn = errors.New("not your turn")
)

// Completed is the immutable record of a finished game handed to the
// persistence collaborator.
type Completed struct {
	ID        string
	Player1   string
	Player2   string
	Moves     []game.Move
	Winner    string
	Status    game.Status
	StartedAt time.Time
	EndedAt   time.Time
}

// Recorder persists finished games and leaderboard tallies. Calls are
// fire-and-forget from the coordinator's point of view: failures are logged
// and never block or roll back an outcome.
type Recorder interface {
	RecordCompletedMatch(c Completed) error
	AddWin(identity string) error
	AddLoss(identity string) error
}

// Match is one active game. The engine and timer are guarded by mu; the seat
// assignments and id are immutable after creation.
type Match struct {
	ID        string
	Player1   string
	Player2   string
	CreatedAt time.Time

	mu      sync.Mutex
	engine  *game.Engine
	forfeit *time.Timer
	retired bool
}

// seatOf maps an identity to its mark, if it plays in this match.
func (m *Match) seatOf(identity string) (game.Cell, bool) {
	switch identity {
	case m.Player1:
		return game.PlayerOne, true
	case m.Player2:
		return game.PlayerTwo, true
	default:
		return game.Empty, false
	}
}

// identityOf maps a mark back to the seated identity.
func (m *Match) identityOf(mark game.Cell) string {
	switch mark {
	case game.PlayerOne:
		return m.Player1
	case game.PlayerTwo:
		return m.Player2
	default:
		return ""
	}
}

func (m *Match) stateLocked() proto.GameState {
	state := proto.GameState{
		Type:          proto.TypeGameState,
		GameID:        m.ID,
		Board:         m.engine.Board(),
		CurrentPlayer: m.engine.CurrentPlayer(),
		Status:        m.engine.Status(),
		Players:       proto.Players{Player1: m.Player1, Player2: m.Player2},
	}
	if winner := m.engine.Winner(); winner != game.Empty {
		state.Winner = m.identityOf(winner)
	}
	return state
}

// State returns a snapshot of the current game state.
func (m *Match) State() proto.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Config carries the coordinator's collaborators. Zero durations fall back
// to the defaults.
type Config struct {
	Sessions    *session.Registry
	Recorder    Recorder
	Logger      *log.Logger
	BotDelay    time.Duration
	GraceWindow time.Duration
}

// Coordinator tracks every active match and serializes all mutation of each
// one. Finished matches are persisted, broadcast, and retired exactly once.
type Coordinator struct {
	sessions *session.Registry
	recorder Recorder
	logger   *log.Logger
	botDelay time.Duration
	grace    time.Duration

	mu      sync.Mutex
	matches map[string]*Match
}

// NewCoordinator wires a coordinator from cfg.
func NewCoordinator(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	botDelay := cfg.BotDelay
	if botDelay == 0 {
		botDelay = DefaultBotDelay
	}
	grace := cfg.GraceWindow
	if grace == 0 {
		grace = DefaultGraceWindow
	}
	return &Coordinator{
		sessions: cfg.Sessions,
		recorder: cfg.Recorder,
		logger:   logger,
		botDelay: botDelay,
		grace:    grace,
		matches:  make(map[string]*Match),
	}
}

// CreateMatch starts a fresh game between the two identities and announces
// it to whoever is reachable. Delivery is best-effort: a player whose
// connection cannot be resolved can still rejoin with the match token.
func (c *Coordinator) CreateMatch(player1, player2, id string) *Match {
	m := &Match{
		ID:        id,
		Player1:   player1,
		Player2:   player2,
		CreatedAt: time.Now(),
		engine:    game.NewEngine(),
	}

	c.mu.Lock()
	c.matches[id] = m
	c.mu.Unlock()

	for _, identity := range []string{player1, player2} {
		if identity != BotIdentity {
			c.sessions.SetActiveMatch(identity, id)
		}
	}

	c.logger.Printf("match %s started: %s vs %s", id, player1, player2)

	state := m.State()
	c.send(player1, proto.MatchFound{
		Type: proto.TypeMatchFound, GameID: id, Opponent: player2, IsPlayer1: true,
	})
	c.send(player2, proto.MatchFound{
		Type: proto.TypeMatchFound, GameID: id, Opponent: player1, IsPlayer1: false,
	})
	c.send(player1, state)
	c.send(player2, state)
	return m
}

// Lookup returns the active match with the given id.
func (c *Coordinator) Lookup(id string) (*Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.matches[id]
	return m, ok
}

// ActiveCount reports how many matches are currently running.
func (c *Coordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

// SubmitMove validates and applies one move for the requesting identity.
// Validation failures leave the match untouched and are reported only to the
// caller. On success the new state is broadcast to both seats; a terminal
// move retires the match, while a still-running bot match schedules the
// bot's reply.
func (c *Coordinator) SubmitMove(identity, matchID string, column int) error {
	m, ok := c.Lookup(matchID)
	if !ok {
		return ErrNotFound
	}
	seat, ok := m.seatOf(identity)
	if !ok {
		return ErrForbidden
	}

	m.mu.Lock()
	if m.engine.Status().Terminal() {
		m.mu.Unlock()
		return game.ErrInvalidPhase
	}
	if m.engine.CurrentPlayer() != seat {
		m.mu.Unlock()
		return ErrOutOfTurn
	}
	if _, err := m.engine.Apply(column); err != nil {
		m.mu.Unlock()
		return err
	}
	state := m.stateLocked()
	botToMove := !state.Status.Terminal() &&
		m.Player2 == BotIdentity && m.engine.CurrentPlayer() == game.PlayerTwo
	m.mu.Unlock()

	c.broadcast(m, state)

	if state.Status.Terminal() {
		c.finish(m, state)
	} else if botToMove {
		c.scheduleBotTurn(m)
	}
	return nil
}

// scheduleBotTurn queues the bot's reply after the think delay. The callback
// re-validates the match before acting so late or duplicate timers are
// harmless.
func (c *Coordinator) scheduleBotTurn(m *Match) {
	time.AfterFunc(c.botDelay, func() {
		m.mu.Lock()
		if m.retired || m.engine.Status().Terminal() ||
			m.Player2 != BotIdentity || m.engine.CurrentPlayer() != game.PlayerTwo {
			m.mu.Unlock()
			return
		}
		column, err := game.BotMove(m.engine)
		if err != nil {
			m.mu.Unlock()
			c.logger.Printf("bot has no move in match %s: %v", m.ID, err)
			return
		}
		if _, err := m.engine.Apply(column); err != nil {
			m.mu.Unlock()
			c.logger.Printf("bot move rejected in match %s: %v", m.ID, err)
			return
		}
		state := m.stateLocked()
		m.mu.Unlock()

		c.broadcast(m, state)
		if state.Status.Terminal() {
			c.finish(m, state)
		}
	})
}

// OnDisconnect reacts to a player's connection dropping. If the identity is
// mid-game the opponent is told and a forfeiture timer is armed; the timer
// re-checks live state when it fires, so a reconnection inside the grace
// window makes it a no-op.
func (c *Coordinator) OnDisconnect(identity string) {
	matchID, ok := c.sessions.ActiveMatch(identity)
	if !ok {
		return
	}
	m, ok := c.Lookup(matchID)
	if !ok {
		return
	}

	m.mu.Lock()
	playing := !m.retired && m.engine.Status() == game.StatusPlaying
	if playing && m.forfeit == nil {
		m.forfeit = time.AfterFunc(c.grace, func() { c.forfeitIfAbandoned(m) })
	}
	m.mu.Unlock()

	if !playing {
		return
	}

	c.logger.Printf("%s disconnected from match %s; grace window %s", identity, m.ID, c.grace)
	c.send(m.opponentOf(identity), proto.PlayerPresence{
		Type: proto.TypePlayerDisconnected, Username: identity,
	})
}

// forfeitIfAbandoned runs when the grace window elapses. Acting on stale
// state here would be a correctness bug, so everything is re-checked: the
// match must still be running and one seat must still be unreachable.
func (c *Coordinator) forfeitIfAbandoned(m *Match) {
	missing := ""
	if m.Player1 != BotIdentity {
		if _, ok := c.sessions.ResolveConnection(m.Player1); !ok {
			missing = m.Player1
		}
	}
	if missing == "" && m.Player2 != BotIdentity {
		if _, ok := c.sessions.ResolveConnection(m.Player2); !ok {
			missing = m.Player2
		}
	}

	m.mu.Lock()
	m.forfeit = nil
	if m.retired || m.engine.Status() != game.StatusPlaying || missing == "" {
		m.mu.Unlock()
		return
	}
	winner := m.opponentOf(missing)
	seat, _ := m.seatOf(winner)
	m.engine.Forfeit(seat)
	state := m.stateLocked()
	m.mu.Unlock()

	c.logger.Printf("match %s forfeited: %s never returned, %s wins", m.ID, missing, winner)
	c.broadcast(m, state)
	c.finish(m, state)
}

// Rejoin rebinds a returning player to their running match: they get the
// full current state and the opponent hears about the reconnection.
func (c *Coordinator) Rejoin(identity, matchID string, conn session.Conn) error {
	m, ok := c.Lookup(matchID)
	if !ok {
		return ErrNotFound
	}
	if _, ok := m.seatOf(identity); !ok {
		return ErrForbidden
	}

	c.sessions.SetActiveMatch(identity, matchID)

	if err := conn.Send(m.State()); err != nil {
		c.logger.Printf("failed to deliver state to rejoining %s: %v", identity, err)
	}
	c.send(m.opponentOf(identity), proto.PlayerPresence{
		Type: proto.TypePlayerReconnected, Username: identity,
	})
	return nil
}

// opponentOf returns the other seat's identity.
func (m *Match) opponentOf(identity string) string {
	if identity == m.Player1 {
		return m.Player2
	}
	return m.Player1
}

// finish persists the outcome, clears the players' match bindings, and
// retires the match from the active index. Safe to call at most once per
// match; the retired flag makes racing callers no-ops.
func (c *Coordinator) finish(m *Match, state proto.GameState) {
	m.mu.Lock()
	if m.retired {
		m.mu.Unlock()
		return
	}
	m.retired = true
	if m.forfeit != nil {
		m.forfeit.Stop()
		m.forfeit = nil
	}
	completed := Completed{
		ID:        m.ID,
		Player1:   m.Player1,
		Player2:   m.Player2,
		Moves:     m.engine.Moves(),
		Winner:    state.Winner,
		Status:    state.Status,
		StartedAt: m.CreatedAt,
		EndedAt:   time.Now(),
	}
	m.mu.Unlock()

	c.persist(completed)

	for _, identity := range []string{m.Player1, m.Player2} {
		if identity != BotIdentity {
			c.sessions.ClearActiveMatch(identity, m.ID)
		}
	}

	c.mu.Lock()
	delete(c.matches, m.ID)
	c.mu.Unlock()

	c.logger.Printf("match %s finished: status=%s winner=%q", m.ID, state.Status, state.Winner)
}

// persist hands the outcome to the recorder. The in-memory result is
// authoritative for gameplay, so recorder failures are only logged.
func (c *Coordinator) persist(completed Completed) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordCompletedMatch(completed); err != nil {
		c.logger.Printf("failed to record match %s: %v", completed.ID, err)
	}

	switch completed.Status {
	case game.StatusWon, game.StatusForfeited:
		loser := completed.Player1
		if loser == completed.Winner {
			loser = completed.Player2
		}
		if completed.Winner != BotIdentity {
			if err := c.recorder.AddWin(completed.Winner); err != nil {
				c.logger.Printf("failed to record win for %s: %v", completed.Winner, err)
			}
		}
		if loser != BotIdentity {
			if err := c.recorder.AddLoss(loser); err != nil {
				c.logger.Printf("failed to record loss for %s: %v", loser, err)
			}
		}
	case game.StatusDraw:
		for _, identity := range []string{completed.Player1, completed.Player2} {
			if identity != BotIdentity {
				if err := c.recorder.AddLoss(identity); err != nil {
					c.logger.Printf("failed to record draw for %s: %v", identity, err)
				}
			}
		}
	}
}

// broadcast delivers state to both seats, best-effort per connection.
func (c *Coordinator) broadcast(m *Match, state proto.GameState) {
	c.send(m.Player1, state)
	c.send(m.Player2, state)
}

// send delivers one message to the identity's bound connection if there is
// one. The bot sentinel and unreachable players are silently skipped.
func (c *Coordinator) send(identity string, msg any) {
	if identity == BotIdentity {
		return
	}
	conn, ok := c.sessions.ResolveConnection(identity)
	if !ok {
		return
	}
	if err := conn.Send(msg); err != nil {
		c.logger.Printf("failed to send to %s: %v", identity, err)
	}
}
