package game

import (
	"errors"
	"time"
)

const (
	// Rows and Cols fix the classic Connect-Four grid. Row 0 is the top of
	// the board; discs settle toward row Rows-1.
	Rows = 6
	Cols = 7

	// winLength is the run of same-mark cells that decides a game.
	winLength = 4
)

// Cell is the occupancy of one board position.
type Cell uint8

const (
	Empty Cell = iota
	PlayerOne
	PlayerTwo
)

// Opponent returns the other mark. Empty maps to Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case PlayerOne:
		return PlayerTwo
	case PlayerTwo:
		return PlayerOne
	default:
		return Empty
	}
}

// Status is the lifecycle phase of one game. The values double as the wire
// representation, so they never change once clients depend on them.
type Status string

const (
	StatusPlaying   Status = "playing"
	StatusWon       Status = "won"
	StatusDraw      Status = "draw"
	StatusForfeited Status = "forfeited"
)

// Terminal reports whether the game can accept no further moves.
func (s Status) Terminal() bool {
	return s != StatusPlaying
}

// Board is a value type: assigning or passing one copies the whole grid, so a
// snapshot can never alias live state.
type Board [Rows][Cols]Cell

// Move records one accepted placement. The ordered move log is the
// authoritative replay record of a game.
type Move struct {
	Player    Cell  `json:"player"`
	Column    int   `json:"column"`
	Row       int   `json:"row"`
	Index     int   `json:"index"`
	Timestamp int64 `json:"timestamp"`
}

var (
	ErrInvalidPhase  = errors.New("game is not in playing state")
	ErrInvalidColumn = errors.New("invalid column")
	ErrColumnFull    = errors.New("column is full")
)

// Engine is the rules state machine for one game. It is not safe for
// concurrent use; the owning coordinator serializes access.
type Engine struct {
	board   Board
	current Cell
	status  Status
	winner  Cell
	moves   []Move
}

// NewEngine returns an empty board with PlayerOne to move.
func NewEngine() *Engine {
	return &Engine{
		current: PlayerOne,
		status:  StatusPlaying,
	}
}

// Board returns a copy of the grid.
func (e *Engine) Board() Board { return e.board }

// CurrentPlayer returns the mark whose turn it is.
func (e *Engine) CurrentPlayer() Cell { return e.current }

// Status returns the lifecycle phase.
func (e *Engine) Status() Status { return e.status }

// Winner returns the winning mark, or Empty while undecided or drawn.
func (e *Engine) Winner() Cell { return e.winner }

// Moves returns a copy of the move log in application order.
func (e *Engine) Moves() []Move {
	out := make([]Move, len(e.moves))
	copy(out, e.moves)
	return out
}

// Apply drops the current player's disc into column. On success the move is
// appended to the log and termination is evaluated; the turn advances only if
// the game is still running. The board is untouched on any failure.
func (e *Engine) Apply(column int) (Move, error) {
	if e.status != StatusPlaying {
		return Move{}, ErrInvalidPhase
	}
	if column < 0 || column >= Cols {
		return Move{}, ErrInvalidColumn
	}

	row := -1
	for r := Rows - 1; r >= 0; r-- {
		if e.board[r][column] == Empty {
			row = r
			break
		}
	}
	if row == -1 {
		return Move{}, ErrColumnFull
	}

	e.board[row][column] = e.current
	move := Move{
		Player:    e.current,
		Column:    column,
		Row:       row,
		Index:     len(e.moves),
		Timestamp: time.Now().UnixMilli(),
	}
	e.moves = append(e.moves, move)

	if e.winsAt(row, column) {
		e.status = StatusWon
		e.winner = e.current
		return move, nil
	}
	if e.boardFull() {
		e.status = StatusDraw
		return move, nil
	}

	e.current = e.current.Opponent()
	return move, nil
}

// Forfeit ends the game in favor of winner. It is a no-op once the game has
// already reached a terminal status.
func (e *Engine) Forfeit(winner Cell) {
	if e.status.Terminal() {
		return
	}
	e.status = StatusForfeited
	e.winner = winner
}

// ColumnOpen reports whether column can accept another disc.
func (e *Engine) ColumnOpen(column int) bool {
	if column < 0 || column >= Cols {
		return false
	}
	return e.board[0][column] == Empty
}

// Clone returns an independent deep copy used for move simulation. The board
// is a value type so the grid never shares storage with the original.
func (e *Engine) Clone() *Engine {
	clone := &Engine{
		board:   e.board,
		current: e.current,
		status:  e.status,
		winner:  e.winner,
		moves:   make([]Move, len(e.moves)),
	}
	copy(clone.moves, e.moves)
	return clone
}

// forceTurn hands the turn to the given mark. Only simulation code uses it,
// to ask "what could the opponent do from here".
func (e *Engine) forceTurn(mark Cell) {
	e.current = mark
}

// winsAt scans the four axis directions through the just-placed cell. The
// count extends both ways from the placement because a winning line may grow
// on either side of the new disc.
func (e *Engine) winsAt(row, column int) bool {
	player := e.board[row][column]
	directions := [4][2]int{
		{0, 1},  // horizontal
		{1, 0},  // vertical
		{1, 1},  // diagonal down-right
		{1, -1}, // diagonal down-left
	}

	for _, dir := range directions {
		count := 1
		for i := 1; i < winLength; i++ {
			r, c := row+dir[0]*i, column+dir[1]*i
			if r < 0 || r >= Rows || c < 0 || c >= Cols || e.board[r][c] != player {
				break
			}
			count++
		}
		for i := 1; i < winLength; i++ {
			r, c := row-dir[0]*i, column-dir[1]*i
			if r < 0 || r >= Rows || c < 0 || c >= Cols || e.board[r][c] != player {
				break
			}
			count++
		}
		if count >= winLength {
			return true
		}
	}
	return false
}

// boardFull checks the top row only; gravity guarantees every cell below an
// occupied top cell is occupied.
func (e *Engine) boardFull() bool {
	for c := 0; c < Cols; c++ {
		if e.board[0][c] == Empty {
			return false
		}
	}
	return true
}

// Replay rebuilds an engine by applying the recorded columns in order.
// It fails if the log is inconsistent with the rules.
func Replay(moves []Move) (*Engine, error) {
	e := NewEngine()
	for _, m := range moves {
		if _, err := e.Apply(m.Column); err != nil {
			return nil, err
		}
	}
	return e, nil
}
