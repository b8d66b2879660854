package game

import "errors"

// ErrNoLegalMove signals a completely full board. Callers should have
// detected the draw before asking the bot to move.
var ErrNoLegalMove = errors.New("no legal move available")

// centerOrder is the fixed column preference for heuristic play. Central
// columns intersect more potential lines, so they are tried first.
var centerOrder = [Cols]int{3, 2, 4, 1, 5, 0, 6}

// BotMove picks a column for the side currently to move, using a
// deterministic single-ply lookahead evaluated in priority order:
//
//  1. win immediately if any column does it
//  2. block an opponent win one move out
//  3. build an open three-in-a-row, preferring central columns
//  4. otherwise the first playable central column, then any playable column
//
// Every probe runs on a clone; the live engine is never mutated here.
func BotMove(e *Engine) (int, error) {
	bot := e.CurrentPlayer()

	// 1. Take any immediate win.
	for col := 0; col < Cols; col++ {
		probe := e.Clone()
		if _, err := probe.Apply(col); err != nil {
			continue
		}
		if probe.Winner() == bot {
			return col, nil
		}
	}

	// 2. Deny the opponent's immediate win by playing that column first.
	opponent := bot.Opponent()
	for col := 0; col < Cols; col++ {
		probe := e.Clone()
		probe.forceTurn(opponent)
		if _, err := probe.Apply(col); err != nil {
			continue
		}
		if probe.Winner() == opponent {
			return col, nil
		}
	}

	// 3. Work toward a line of our own.
	for _, col := range centerOrder {
		probe := e.Clone()
		if _, err := probe.Apply(col); err != nil {
			continue
		}
		if hasOpenThree(probe.Board(), bot) {
			return col, nil
		}
	}

	// 4. Fall back to position, center first.
	for _, col := range centerOrder {
		if e.ColumnOpen(col) {
			return col, nil
		}
	}
	for col := 0; col < Cols; col++ {
		if e.ColumnOpen(col) {
			return col, nil
		}
	}

	return 0, ErrNoLegalMove
}

// hasOpenThree reports whether player holds three marks inside some
// four-cell window that can still become four. Horizontal windows require
// the empty cell to be playable right now (bottom row, or supported by a
// filled cell beneath). Vertical windows need no support check: gravity
// means the open cell always sits on top of the stack.
//
// Diagonal windows are deliberately not examined; the heuristic is known to
// be weaker for it and that bias is kept as-is.
func hasOpenThree(board Board, player Cell) bool {
	// Horizontal windows.
	for row := 0; row < Rows; row++ {
		for col := 0; col+winLength <= Cols; col++ {
			count := 0
			emptyCol := -1
			blocked := false
			for i := 0; i < winLength; i++ {
				switch board[row][col+i] {
				case player:
					count++
				case Empty:
					emptyCol = col + i
				default:
					blocked = true
				}
				if blocked {
					break
				}
			}
			if blocked || count != winLength-1 || emptyCol == -1 {
				continue
			}
			if row == Rows-1 || board[row+1][emptyCol] != Empty {
				return true
			}
		}
	}

	// Vertical windows.
	for col := 0; col < Cols; col++ {
		for row := 0; row+winLength <= Rows; row++ {
			count := 0
			blocked := false
			for i := 0; i < winLength; i++ {
				switch board[row+i][col] {
				case player:
					count++
				case Empty:
				default:
					blocked = true
				}
				if blocked {
					break
				}
			}
			if !blocked && count == winLength-1 {
				return true
			}
		}
	}

	return false
}
