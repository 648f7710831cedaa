//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type userInfo struct {
	ID           string
	AccessToken  string
	RefreshToken string
}

type sessionResponse struct {
	User struct {
		ID    string `json:"user_id"`
		Email string `json:"email"`
	} `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func makeAuthenticatedRequest(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func decodeSession(t *testing.T, resp *http.Response, wantStatus int) userInfo {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("unexpected status %d, error: %v", resp.StatusCode, errResp)
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session response failed: %v", err)
	}
	return userInfo{ID: out.User.ID, AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
}

func createRegisteredUser(t *testing.T, email, password string) userInfo {
	t.Helper()
	resp := makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	return decodeSession(t, resp, http.StatusCreated)
}

func loginUser(t *testing.T, email, password string) userInfo {
	t.Helper()
	resp := makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	return decodeSession(t, resp, http.StatusOK)
}

func selectLicense(t *testing.T, token, license string) {
	t.Helper()
	resp := makeAuthenticatedRequest(t, http.MethodPut, baseURL()+"/v1/selection", token, map[string]string{"license": license})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select license: unexpected status %d", resp.StatusCode)
	}
}

func decodeJSON(t *testing.T, resp *http.Response, wantStatus int, out any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("expected %d, got %d, error: %v", wantStatus, resp.StatusCode, errResp)
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}
