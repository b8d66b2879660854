package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// play applies a sequence of columns and fails the test on any rejection.
func play(t *testing.T, e *Engine, columns ...int) {
	t.Helper()
	for _, col := range columns {
		_, err := e.Apply(col)
		require.NoError(t, err, "column %d", col)
	}
}

func TestApplyStacksFromBottom(t *testing.T) {
	e := NewEngine()

	move, err := e.Apply(3)
	require.NoError(t, err)
	assert.Equal(t, Rows-1, move.Row)
	assert.Equal(t, PlayerOne, move.Player)

	move, err = e.Apply(3)
	require.NoError(t, err)
	assert.Equal(t, Rows-2, move.Row)
	assert.Equal(t, PlayerTwo, move.Player)
}

func TestGravityInvariant(t *testing.T) {
	e := NewEngine()
	play(t, e, 0, 1, 0, 2, 6, 6, 3, 0, 5, 4, 2, 2, 1)

	board := e.Board()
	for col := 0; col < Cols; col++ {
		for row := 0; row < Rows-1; row++ {
			if board[row][col] != Empty {
				assert.NotEqual(t, Empty, board[row+1][col],
					"occupied cell at row=%d col=%d rests on an empty cell", row, col)
			}
		}
	}
}

func TestApplyRejectsInvalidColumn(t *testing.T) {
	e := NewEngine()

	_, err := e.Apply(-1)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = e.Apply(Cols)
	assert.ErrorIs(t, err, ErrInvalidColumn)
	assert.Equal(t, PlayerOne, e.CurrentPlayer(), "turn must not advance on failure")
}

func TestApplyRejectsFullColumn(t *testing.T) {
	e := NewEngine()
	for i := 0; i < Rows; i++ {
		play(t, e, 2)
	}

	before := e.Board()
	_, err := e.Apply(2)
	assert.ErrorIs(t, err, ErrColumnFull)
	assert.Equal(t, before, e.Board(), "board must be unchanged after a rejected move")
	assert.Len(t, e.Moves(), Rows)
}

func TestApplyRejectsAfterTerminal(t *testing.T) {
	e := NewEngine()
	// PlayerOne stacks column 3, PlayerTwo answers in column 2.
	play(t, e, 3, 2, 3, 2, 3, 2, 3)
	require.Equal(t, StatusWon, e.Status())

	_, err := e.Apply(0)
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestVerticalWinScenario(t *testing.T) {
	e := NewEngine()
	play(t, e, 3, 2, 3, 2, 3, 2, 3)

	assert.Equal(t, StatusWon, e.Status())
	assert.Equal(t, PlayerOne, e.Winner())
	assert.Equal(t, PlayerOne, e.CurrentPlayer(), "turn does not advance on a terminal move")
}

func TestHorizontalWin(t *testing.T) {
	e := NewEngine()
	play(t, e, 0, 0, 1, 1, 2, 2, 3)

	assert.Equal(t, StatusWon, e.Status())
	assert.Equal(t, PlayerOne, e.Winner())
}

// The winning disc lands in the middle of the line, so detection has to count
// outward in both directions from the placement.
func TestWinCompletedInMiddleOfLine(t *testing.T) {
	e := NewEngine()
	// PlayerOne builds 0,1,_,3 then fills column 2 last.
	play(t, e, 0, 0, 1, 1, 3, 3, 2)

	assert.Equal(t, StatusWon, e.Status())
	assert.Equal(t, PlayerOne, e.Winner())
}

func TestDiagonalWins(t *testing.T) {
	t.Run("up-right", func(t *testing.T) {
		e := NewEngine()
		// Staircase for PlayerOne at (5,0) (4,1) (3,2) (2,3).
		play(t, e,
			0,    // P1 bottom of the stairs
			1, 1, // P2 base, P1 step two
			2, 2, 0, 2, // builds column 2 to height three
			3, 3, 0, 3, 5, 3, // column 3 to height four
		)
		assert.Equal(t, StatusWon, e.Status())
		assert.Equal(t, PlayerOne, e.Winner())
	})

	t.Run("up-left", func(t *testing.T) {
		e := NewEngine()
		play(t, e,
			6,
			5, 5,
			4, 4, 6, 4,
			3, 3, 6, 3, 1, 3,
		)
		assert.Equal(t, StatusWon, e.Status())
		assert.Equal(t, PlayerOne, e.Winner())
	})
}

func TestDrawOnFullBoard(t *testing.T) {
	e := NewEngine()
	// Column fill order chosen so no four-in-a-row ever forms.
	pattern := []int{
		5, 3, 2, 3, 1, 5, 3, 1, 0, 1, 4, 1, 2, 5,
		0, 5, 6, 6, 2, 0, 6, 0, 4, 2, 3, 0, 3, 4,
		2, 3, 2, 6, 0, 4, 1, 1, 5, 4, 4, 5, 6, 6,
	}
	for _, col := range pattern {
		_, err := e.Apply(col)
		require.NoError(t, err)
	}

	assert.Equal(t, StatusDraw, e.Status())
	assert.Equal(t, Empty, e.Winner())
	assert.Len(t, e.Moves(), Rows*Cols)
}

func TestReplayReproducesBoard(t *testing.T) {
	e := NewEngine()
	play(t, e, 3, 3, 2, 4, 2, 1, 5, 0, 2, 6, 4, 4)

	replayed, err := Replay(e.Moves())
	require.NoError(t, err)

	assert.Equal(t, e.Board(), replayed.Board())
	assert.Equal(t, e.Status(), replayed.Status())
	assert.Equal(t, e.CurrentPlayer(), replayed.CurrentPlayer())
}

func TestCloneDoesNotAliasLiveState(t *testing.T) {
	e := NewEngine()
	play(t, e, 3, 4)

	clone := e.Clone()
	play(t, clone, 3, 3, 3)

	assert.NotEqual(t, e.Board(), clone.Board())
	assert.Len(t, e.Moves(), 2)
	assert.Len(t, clone.Moves(), 5)
	assert.Equal(t, StatusPlaying, e.Status())
}

func TestForfeit(t *testing.T) {
	e := NewEngine()
	play(t, e, 3)

	e.Forfeit(PlayerTwo)
	assert.Equal(t, StatusForfeited, e.Status())
	assert.Equal(t, PlayerTwo, e.Winner())

	// Terminal state sticks; a late forfeit must not flip the winner.
	e.Forfeit(PlayerOne)
	assert.Equal(t, PlayerTwo, e.Winner())
}
