package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSubmitAnswer = "submit_answer"
	TypePing         = "ping"

	// Server -> Client
	TypeExamTick     = "exam_tick"
	TypeAnswerAck    = "answer_ack"
	TypeExamFinished = "exam_finished"
	TypeExamRestart  = "exam_restarted"
	TypeError        = "error"
	TypePong         = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type SubmitAnswerPayload struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

// Server Messages (outgoing)

type ExamTickPayload struct {
	ExamID           string  `json:"exam_id"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Clock            string  `json:"clock"`
	Progress         float64 `json:"progress"`
	Current          int     `json:"current"`
}

type AnswerAckPayload struct {
	ExamID   string `json:"exam_id"`
	Index    int    `json:"index"`
	Accepted bool   `json:"accepted"`
	Next     int    `json:"next"`
	Finished bool   `json:"finished"`
}

type ExamFinishedPayload struct {
	ExamID   string `json:"exam_id"`
	Attempt  int    `json:"attempt"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Expired  bool   `json:"expired"`
}

type ExamRestartPayload struct {
	ExamID  string `json:"exam_id"`
	Attempt int    `json:"attempt"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
