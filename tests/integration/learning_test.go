//go:build integration
// +build integration

package integration

import (
	"net/http"
	"testing"
)

type learningView struct {
	License string `json:"license"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	CanPrev bool   `json:"can_prev"`
	CanNext bool   `json:"can_next"`
}

func TestLearningPositionPersists(t *testing.T) {
	email := uniqueEmail("learning")
	user := createRegisteredUser(t, email, testPassword)
	selectLicense(t, user.AccessToken, "B")

	resp := makeAuthenticatedRequest(t, http.MethodGet, baseURL()+"/v1/learning", user.AccessToken, nil)
	var view learningView
	decodeJSON(t, resp, http.StatusOK, &view)
	if view.Total < 2 {
		t.Skip("question bank has fewer than two questions for license B")
	}
	if view.Index != 0 || view.CanPrev {
		t.Fatalf("unexpected first view: %+v", view)
	}

	resp = makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/v1/learning/move", user.AccessToken, map[string]any{"action": "next"})
	decodeJSON(t, resp, http.StatusOK, &view)
	if view.Index != 1 {
		t.Fatalf("expected index 1, got %d", view.Index)
	}

	resp = makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/v1/learning/move", user.AccessToken, map[string]any{"action": "goto", "index": 1 << 20})
	decodeJSON(t, resp, http.StatusOK, &view)
	if view.Index != view.Total-1 || view.CanNext {
		t.Fatalf("goto past the end should clamp: %+v", view)
	}

	// a new sign-in resumes at the saved position
	again := loginUser(t, email, testPassword)
	resp = makeAuthenticatedRequest(t, http.MethodGet, baseURL()+"/v1/learning", again.AccessToken, nil)
	var resumed learningView
	decodeJSON(t, resp, http.StatusOK, &resumed)
	if resumed.Index != view.Index {
		t.Fatalf("expected resumed index %d, got %d", view.Index, resumed.Index)
	}

	resp = makeAuthenticatedRequest(t, http.MethodGet, baseURL()+"/v1/stats", again.AccessToken, nil)
	var stats struct {
		ViewedQuestions int `json:"viewed_questions"`
	}
	decodeJSON(t, resp, http.StatusOK, &stats)
	if stats.ViewedQuestions != view.Index+1 {
		t.Fatalf("expected %d viewed questions, got %d", view.Index+1, stats.ViewedQuestions)
	}
}

func TestPracticeTopic(t *testing.T) {
	user := createRegisteredUser(t, uniqueEmail("practice"), testPassword)
	selectLicense(t, user.AccessToken, "B")

	resp := makeAuthenticatedRequest(t, http.MethodGet, baseURL()+"/v1/practice/signs?lang=en", user.AccessToken, nil)
	var view struct {
		Topic      string `json:"topic"`
		TopicLabel string `json:"topic_label"`
		Total      int    `json:"total"`
	}
	decodeJSON(t, resp, http.StatusOK, &view)
	if view.Topic != "Znaki drogowe" || view.TopicLabel != "Road signs" {
		t.Fatalf("unexpected practice view: %+v", view)
	}
}
