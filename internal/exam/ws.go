package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/auth"
	"github.com/gokatarajesh/theory-exam/internal/metrics"
	httperrors "github.com/gokatarajesh/theory-exam/pkg/http/errors"
	ws "github.com/gokatarajesh/theory-exam/pkg/http/ws"
)

// WSHandler streams the countdown of one exam and accepts answers over a websocket.
type WSHandler struct {
	service  *Service
	hub      *ws.Hub
	tokens   auth.TokenValidator
	upgrader *websocket.Upgrader
	metrics  *metrics.Metrics
	interval time.Duration
	logger   zerolog.Logger
}

func NewWSHandler(service *Service, hub *ws.Hub, tokens auth.TokenValidator, upgrader *websocket.Upgrader, m *metrics.Metrics, interval time.Duration, logger zerolog.Logger) *WSHandler {
	if interval <= 0 {
		interval = time.Second
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &WSHandler{
		service:  service,
		hub:      hub,
		tokens:   tokens,
		upgrader: upgrader,
		metrics:  m,
		interval: interval,
		logger:   logger.With().Str("component", "exam_ws").Logger(),
	}
}

// ServeHTTP handles GET /ws/exams/{id}?token=<access token>
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	examID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeExamNotFound, "Exam not found")
		return
	}

	// reject foreign or unknown exams before upgrading
	sess, err := h.service.Get(r.Context(), claims.UserID, examID)
	if err != nil {
		code, status, msg := errorCode(err)
		httperrors.RespondError(w, status, code, msg)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.HandleConnection(conn, claims.UserID, sess)
}

// HandleConnection runs the session until the peer disconnects.
func (h *WSHandler) HandleConnection(conn *websocket.Conn, userID uuid.UUID, sess *Session) {
	log := h.logger.With().Str("user_id", userID.String()).Str("exam_id", sess.ID.String()).Logger()
	wsConn := ws.NewConnection(conn, log)
	h.hub.RegisterConnection(userID, wsConn)
	h.hub.Join(sess.ID, userID)
	h.metrics.ActiveWSConns.Inc()

	go wsConn.WritePump()

	ctx, cancel := context.WithCancel(context.Background())
	go h.tickLoop(ctx, wsConn, userID, sess.ID)

	if sess.Finished() && sess.Result != nil {
		h.send(wsConn, ws.TypeExamFinished, finishedPayload(sess.ID, sess.Attempt, *sess.Result))
	} else {
		h.send(wsConn, ws.TypeExamTick, tickPayload(sess, time.Now()))
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(ctx, wsConn, userID, sess.ID, msg)
	})

	cancel()
	h.metrics.ActiveWSConns.Dec()
	h.hub.Leave(sess.ID, userID, wsConn)
	h.hub.UnregisterConnection(userID, wsConn)
}

// tickLoop pushes the countdown while the exam is active. Reading the session
// also finishes it once the deadline passes; the result then arrives as an event.
func (h *WSHandler) tickLoop(ctx context.Context, conn *ws.Connection, userID, examID uuid.UUID) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sess, err := h.service.Get(ctx, userID, examID)
			if err != nil {
				if ctx.Err() == nil {
					h.logger.Debug().Err(err).Str("exam_id", examID.String()).Msg("tick read failed")
				}
				continue
			}
			if sess.Finished() {
				continue
			}
			if err := conn.Send(mustMessage(ws.TypeExamTick, tickPayload(sess, now))); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, conn *ws.Connection, userID, examID uuid.UUID, msg ws.Message) error {
	switch msg.Type {
	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	case ws.TypeSubmitAnswer:
		var req ws.SubmitAnswerPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidRequest, "Invalid submit_answer payload")
		}

		sess, err := h.service.Answer(ctx, userID, examID, req.Index, req.Answer)
		if err != nil {
			code, _, text := errorCode(err)
			return h.sendError(conn, msg.RequestID, code, text)
		}

		reply := mustMessage(ws.TypeAnswerAck, ws.AnswerAckPayload{
			ExamID:   examID.String(),
			Index:    req.Index,
			Accepted: true,
			Next:     sess.Current,
			Finished: sess.Finished(),
		})
		reply.RequestID = msg.RequestID
		return conn.Send(reply)
	default:
		return h.sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidRequest, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *WSHandler) send(conn *ws.Connection, msgType string, payload any) {
	if err := conn.Send(mustMessage(msgType, payload)); err != nil {
		h.logger.Debug().Err(err).Str("type", msgType).Msg("send failed")
	}
}

func (h *WSHandler) sendError(conn *ws.Connection, requestID, code, text string) error {
	msg := mustMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: text})
	msg.RequestID = requestID
	return conn.Send(msg)
}

func tickPayload(sess *Session, now time.Time) ws.ExamTickPayload {
	remaining := sess.Remaining(now)
	return ws.ExamTickPayload{
		ExamID:           sess.ID.String(),
		RemainingSeconds: remaining,
		Clock:            FormatClock(remaining),
		Progress:         sess.Progress(now),
		Current:          sess.Current,
	}
}

// mustMessage builds a message from payload types that always marshal.
func mustMessage(msgType string, payload any) ws.Message {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return ws.Message{Type: ws.TypeError}
	}
	return msg
}
