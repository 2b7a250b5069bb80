package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/middleware"
	"github.com/aiquizzer/quizzer-backend/internal/model"
	"github.com/aiquizzer/quizzer-backend/internal/response"
	ws "github.com/aiquizzer/quizzer-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

type leaderboardStream interface {
	Top(ctx context.Context, f model.LeaderboardFilter) ([]model.LeaderboardEntry, error)
	Subscribe(ctx context.Context) *redis.PubSub
}

// WSHandler streams leaderboard snapshots over WebSocket.
type WSHandler struct {
	leaderboard leaderboardStream
	log         zerolog.Logger
	upgrader    websocket.Upgrader
	pingPeriod  time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(leaderboard leaderboardStream, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		leaderboard: leaderboard,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
		pingPeriod:  ws.PingPeriod,
	}
}

// LeaderboardStream godoc
// WS /ws/v1/leaderboard?token=...&subject=...&grade=...&quiz_id=...&limit=...
// Sends a snapshot on connect and a fresh one after every matching submission.
// Clients may send {"action":"filter",...} to change scope or {"action":"ping"}.
func (h *WSHandler) LeaderboardStream(c *gin.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	q := newQueryParser(c)
	filter := leaderboardFilter(q)
	if fields := q.Errors(); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.leaderboard.Subscribe(ctx)
	defer sub.Close()
	updates := sub.Channel()

	wsLog := h.log.With().Str("username", username).Logger()
	wsLog.Info().Msg("Leaderboard subscriber connected")

	requests := make(chan ws.RequestPayload)
	go h.readLoop(ctx, cancel, conn, wsLog, requests)

	if !h.pushSnapshot(ctx, conn, wsLog, filter, "initial") {
		return
	}

	ping := time.NewTicker(h.pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WritePing(); err != nil {
				wsLog.Debug().Err(err).Msg("Ping failed")
				return
			}
		case msg, ok := <-updates:
			if !ok {
				return
			}
			var u model.LeaderboardUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				wsLog.Warn().Err(err).Msg("Malformed leaderboard update")
				continue
			}
			if !updateMatches(filter, u) {
				continue
			}
			if !h.pushSnapshot(ctx, conn, wsLog, filter, "submission") {
				return
			}
		case req := <-requests:
			switch req.Action {
			case ws.ActionPing:
				_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			case ws.ActionFilter:
				if (req.Grade != nil && *req.Grade < 1) || (req.QuizID != nil && *req.QuizID < 1) || req.Limit < 0 {
					_ = conn.WriteError("invalid filter")
					continue
				}
				filter = model.LeaderboardFilter{
					Subject: strings.TrimSpace(req.Subject),
					Grade:   req.Grade,
					QuizID:  req.QuizID,
					Limit:   req.Limit,
				}
				if !h.pushSnapshot(ctx, conn, wsLog, filter, "filter") {
					return
				}
			default:
				wsLog.Warn().Str("action", string(req.Action)).Msg("Unknown action")
				_ = conn.WriteError("unknown action: " + string(req.Action))
			}
		}
	}
}

// readLoop forwards client messages until the connection closes.
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *ws.Conn, wsLog zerolog.Logger, out chan<- ws.RequestPayload) {
	defer cancel()
	for {
		var msg ws.RequestPayload
		if err := conn.ReadRequest(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) pushSnapshot(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, f model.LeaderboardFilter, reason string) bool {
	entries, err := h.leaderboard.Top(ctx, f)
	if err != nil {
		wsLog.Error().Err(err).Msg("Leaderboard snapshot failed")
		return conn.WriteError("leaderboard unavailable") == nil
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	err = conn.WriteTyped(ws.LeaderboardEvent{
		Event:   ws.EventLeaderboard,
		Reason:  reason,
		Entries: entries,
	})
	return err == nil
}

// updateMatches reports whether a submission can change the filtered leaderboard.
func updateMatches(f model.LeaderboardFilter, u model.LeaderboardUpdate) bool {
	if f.Subject != "" && !strings.EqualFold(f.Subject, u.Subject) {
		return false
	}
	if f.Grade != nil && *f.Grade != u.Grade {
		return false
	}
	if f.QuizID != nil && *f.QuizID != u.QuizID {
		return false
	}
	return true
}
