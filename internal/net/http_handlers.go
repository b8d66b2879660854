// Package net assembles the HTTP surface: REST endpoints for accounts and
// archived games, a diagnostics snapshot, and the websocket entry point.
package net

import (
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sakshee44566/4-IN-A-ROW/internal/auth"
	"github.com/sakshee44566/4-IN-A-ROW/internal/lobby"
	"github.com/sakshee44566/4-IN-A-ROW/internal/match"
	"github.com/sakshee44566/4-IN-A-ROW/internal/session"
	"github.com/sakshee44566/4-IN-A-ROW/internal/store"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// Authenticator is the account surface the REST layer needs.
type Authenticator interface {
	Register(username, password string) (auth.User, string, error)
	Login(username, password string) (auth.User, string, error)
}

// GameStore serves archived games and standings.
type GameStore interface {
	Leaderboard(limit int) ([]store.Standing, error)
	FindGame(id string) (store.GameRecord, bool, error)
}

// Services bundles everything the HTTP surface talks to. Socket handles
// websocket upgrades and may be nil when the realtime surface is not
// mounted.
type Services struct {
	Auth     Authenticator
	Records  GameStore
	Sessions *session.Registry
	Matches  *match.Coordinator
	Queue    *lobby.Queue
	Socket   nethttp.Handler
}

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    *log.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func NewHTTPHandler(svc Services, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status        string `json:"status"`
			ServerTime    int64  `json:"serverTime"`
			Connections   int    `json:"connections"`
			ActiveMatches int    `json:"activeMatches"`
			WaitingQueue  int    `json:"waitingQueue"`
		}{
			Status:        "ok",
			ServerTime:    time.Now().UnixMilli(),
			Connections:   svc.Sessions.ConnectionCount(),
			ActiveMatches: svc.Matches.ActiveCount(),
			WaitingQueue:  svc.Queue.Len(),
		}
		writeJSON(w, nethttp.StatusOK, payload, logger)
	})

	mux.HandleFunc("/api/auth/register", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		req, ok := decodeCredentials(w, r)
		if !ok {
			return
		}
		user, token, err := svc.Auth.Register(req.Username, req.Password)
		if err != nil {
			writeAuthError(w, err, logger)
			return
		}
		writeJSON(w, nethttp.StatusCreated, tokenResponse{Token: token, Username: user.Username}, logger)
	})

	mux.HandleFunc("/api/auth/login", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		req, ok := decodeCredentials(w, r)
		if !ok {
			return
		}
		user, token, err := svc.Auth.Login(req.Username, req.Password)
		if err != nil {
			writeAuthError(w, err, logger)
			return
		}
		writeJSON(w, nethttp.StatusOK, tokenResponse{Token: token, Username: user.Username}, logger)
	})

	mux.HandleFunc("/api/leaderboard", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		limit := defaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				writeJSONError(w, "invalid limit", nethttp.StatusBadRequest)
				return
			}
			limit = parsed
		}
		if limit > maxLeaderboardLimit {
			limit = maxLeaderboardLimit
		}

		standings, err := svc.Records.Leaderboard(limit)
		if err != nil {
			logger.Printf("leaderboard query failed: %v", err)
			writeJSONError(w, "failed to load leaderboard", nethttp.StatusInternalServerError)
			return
		}
		payload := struct {
			Leaderboard []store.Standing `json:"leaderboard"`
		}{Leaderboard: standings}
		writeJSON(w, nethttp.StatusOK, payload, logger)
	})

	mux.HandleFunc("/api/game/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/game/")
		if id == "" || strings.Contains(id, "/") {
			writeJSONError(w, "invalid game id", nethttp.StatusBadRequest)
			return
		}

		record, found, err := svc.Records.FindGame(id)
		if err != nil {
			logger.Printf("game lookup failed for %s: %v", id, err)
			writeJSONError(w, "failed to load game", nethttp.StatusInternalServerError)
			return
		}
		if !found {
			writeJSONError(w, "game not found", nethttp.StatusNotFound)
			return
		}

		moves, err := store.DecodeMoves(record.Moves)
		if err != nil {
			logger.Printf("corrupt move log for game %s: %v", id, err)
			writeJSONError(w, "failed to load game", nethttp.StatusInternalServerError)
			return
		}
		payload := struct {
			ID        string    `json:"id"`
			Player1   string    `json:"player1"`
			Player2   string    `json:"player2"`
			Winner    string    `json:"winner,omitempty"`
			Status    string    `json:"status"`
			Moves     any       `json:"moves"`
			StartedAt time.Time `json:"startedAt"`
			EndedAt   time.Time `json:"endedAt"`
		}{
			ID:        record.ID,
			Player1:   record.Player1,
			Player2:   record.Player2,
			Winner:    record.Winner,
			Status:    record.Status,
			Moves:     moves,
			StartedAt: record.StartedAt,
			EndedAt:   record.EndedAt,
		}
		writeJSON(w, nethttp.StatusOK, payload, logger)
	})

	if svc.Socket != nil {
		mux.Handle("/ws", svc.Socket)
	}

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func decodeCredentials(w nethttp.ResponseWriter, r *nethttp.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if r.Body == nil {
		writeJSONError(w, "invalid payload", nethttp.StatusBadRequest)
		return req, false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid payload", nethttp.StatusBadRequest)
		return req, false
	}
	return req, true
}

func writeAuthError(w nethttp.ResponseWriter, err error, logger *log.Logger) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrPasswordTooShort):
		writeJSONError(w, err.Error(), nethttp.StatusBadRequest)
	case errors.Is(err, auth.ErrUsernameTaken):
		writeJSONError(w, err.Error(), nethttp.StatusConflict)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSONError(w, err.Error(), nethttp.StatusUnauthorized)
	default:
		logger.Printf("auth request failed: %v", err)
		writeJSONError(w, "internal error", nethttp.StatusInternalServerError)
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any, logger *log.Logger) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeJSONError(w nethttp.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
