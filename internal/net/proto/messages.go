// Package proto defines the JSON messages exchanged with clients. Field
// names are part of the client contract and never change shape.
package proto

import "github.com/sakshee44566/4-IN-A-ROW/internal/game"

// Outbound message type tags.
const (
	TypeAuthenticated      = "authenticated"
	TypeAuthError          = "authError"
	TypeMatchmaking        = "matchmaking"
	TypeMatchFound         = "matchFound"
	TypeGameState          = "gameState"
	TypePlayerDisconnected = "playerDisconnected"
	TypePlayerReconnected  = "playerReconnected"
	TypeError              = "error"
)

// ClientMessage is the envelope for everything a client sends. Unused fields
// stay zero; Type selects which ones matter.
type ClientMessage struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Username string `json:"username"`
	GameID   string `json:"gameId"`
	Column   *int   `json:"column"`
}

type Authenticated struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type AuthError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Matchmaking struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type MatchFound struct {
	Type      string `json:"type"`
	GameID    string `json:"gameId"`
	Opponent  string `json:"opponent"`
	IsPlayer1 bool   `json:"isPlayer1"`
}

// Players names both seats of a match. Player2 may be the bot sentinel.
type Players struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// GameState is the full board snapshot broadcast after every accepted move
// and on (re)join. Winner carries the winning identity once the game ends in
// a win or forfeit; it is omitted while playing and on draws.
type GameState struct {
	Type          string      `json:"type"`
	GameID        string      `json:"gameId"`
	Board         game.Board  `json:"board"`
	CurrentPlayer game.Cell   `json:"currentPlayer"`
	Status        game.Status `json:"status"`
	Winner        string      `json:"winner,omitempty"`
	Players       Players     `json:"players"`
}

type PlayerPresence struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError wraps a message in the error envelope delivered only to the
// originating connection.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}
