//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/gokatarajesh/theory-exam/pkg/http/ws"
)

func wsBaseURL() string {
	def := strings.Replace(baseURL(), "http", "ws", 1)
	return envOrDefault("INTEGRATION_WS_URL", def)
}

func dialExamWS(t *testing.T, examID, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	u, err := url.Parse(wsBaseURL() + "/ws/exams/" + examID)
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return websocket.DefaultDialer.Dial(u.String(), nil)
}

func readMessage(t *testing.T, conn *websocket.Conn, want string, timeout time.Duration) wsmsg.Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %s failed: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
	t.Fatalf("no %s message within %s", want, timeout)
	return wsmsg.Message{}
}

func TestExamCountdownSocket(t *testing.T) {
	user := createRegisteredUser(t, uniqueEmail("ws"), testPassword)
	selectLicense(t, user.AccessToken, "B")
	view := startExam(t, user.AccessToken)

	conn, _, err := dialExamWS(t, view.ID, user.AccessToken)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	msg := readMessage(t, conn, wsmsg.TypeExamTick, 3*time.Second)
	var tick wsmsg.ExamTickPayload
	if err := json.Unmarshal(msg.Payload, &tick); err != nil {
		t.Fatalf("decode tick: %v", err)
	}
	if tick.ExamID != view.ID || tick.RemainingSeconds <= 0 {
		t.Fatalf("unexpected tick: %+v", tick)
	}

	answer, _ := wsmsg.NewMessage(wsmsg.TypeSubmitAnswer, wsmsg.SubmitAnswerPayload{
		Index:  0,
		Answer: view.Question.Detail.Options[0].Key,
	})
	answer.RequestID = "req-1"
	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("send answer: %v", err)
	}

	msg = readMessage(t, conn, wsmsg.TypeAnswerAck, 3*time.Second)
	var ack wsmsg.AnswerAckPayload
	if err := json.Unmarshal(msg.Payload, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Accepted || ack.Next != 1 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	// answering the same question again is rejected on the socket
	conn.WriteJSON(answer)
	msg = readMessage(t, conn, wsmsg.TypeError, 3*time.Second)
	var errPayload wsmsg.ErrorPayload
	json.Unmarshal(msg.Payload, &errPayload)
	if errPayload.Code != "already_answered" {
		t.Fatalf("expected already_answered, got %+v", errPayload)
	}
}

func TestExamSocketRejectsBadToken(t *testing.T) {
	user := createRegisteredUser(t, uniqueEmail("wsbad"), testPassword)
	selectLicense(t, user.AccessToken, "B")
	view := startExam(t, user.AccessToken)

	_, resp, err := dialExamWS(t, view.ID, "not-a-token")
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %v", resp)
	}
}
