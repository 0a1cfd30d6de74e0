package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"visapath/internal/app/server"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func TestClientCaseLifecycleJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	agentEmail := fmt.Sprintf("journey-agent-%d@example.com", time.Now().UnixNano())
	agentCode := createInvite(t, client, ts.URL, adminToken, "AGENT")
	agentToken, agentID := registerAccount(t, client, ts.URL, agentCode, agentEmail, "Agent123!", "Journey Agent")

	// Agents may invite clients on their own.
	clientEmail := fmt.Sprintf("journey-client-%d@example.com", time.Now().UnixNano())
	clientCode := createInvite(t, client, ts.URL, agentToken, "CLIENT")
	clientToken, _ := registerAccount(t, client, ts.URL, clientCode, clientEmail, "Client123!", "Journey Client")

	caseResp := postJSON(t, client, ts.URL+"/api/v1/cases", clientToken, map[string]any{
		"caseType":    "work_visa",
		"country":     "CA",
		"title":       "Work permit for Toronto relocation",
		"description": "Employer sponsored transfer, start date in June.",
	})
	created := decodeMap(t, caseResp.Data)
	caseID, _ := created["id"].(string)
	if caseID == "" {
		t.Fatal("expected case id")
	}
	if status, _ := created["status"].(string); status != "draft" {
		t.Fatalf("expected new case in draft, got %s", status)
	}

	updateResp := putJSON(t, client, ts.URL+"/api/v1/cases/"+caseID, clientToken, map[string]any{
		"caseType":    "work_visa",
		"country":     "CA",
		"title":       "Work permit for Toronto relocation",
		"description": "Employer sponsored transfer, start date moved to July.",
	})
	updated := decodeMap(t, updateResp.Data)
	if desc, _ := updated["description"].(string); desc == "" || desc == created["description"] {
		t.Fatalf("expected updated description, got %q", desc)
	}

	submitResp := postJSON(t, client, ts.URL+"/api/v1/cases/"+caseID+"/submit", clientToken, nil)
	submitted := decodeMap(t, submitResp.Data)
	if status, _ := submitted["status"].(string); status != "submitted" {
		t.Fatalf("expected submitted case, got %s", status)
	}
	if submitted["submissionDate"] == nil {
		t.Fatal("expected submission date to be stamped")
	}

	assignResp := postJSON(t, client, ts.URL+"/api/v1/cases/"+caseID+"/assign", adminToken, map[string]any{
		"agentId": agentID,
	})
	assigned := decodeMap(t, assignResp.Data)
	if got, _ := assigned["assignedAgentId"].(string); got != agentID {
		t.Fatalf("expected case assigned to %s, got %v", agentID, assigned["assignedAgentId"])
	}

	reviewResp := postJSON(t, client, ts.URL+"/api/v1/cases/"+caseID+"/status", agentToken, map[string]any{
		"status": "in_review",
	})
	inReview := decodeMap(t, reviewResp.Data)
	if status, _ := inReview["status"].(string); status != "in_review" {
		t.Fatalf("expected in_review, got %s", status)
	}

	decisionResp := postJSON(t, client, ts.URL+"/api/v1/cases/"+caseID+"/status", agentToken, map[string]any{
		"status": "approved",
		"notes":  "All documents verified, application lodged with the consulate.",
	})
	decided := decodeMap(t, decisionResp.Data)
	if status, _ := decided["status"].(string); status != "approved" {
		t.Fatalf("expected approved, got %s", status)
	}
	if notes, _ := decided["decisionNotes"].(string); notes == "" {
		t.Fatal("expected decision notes on the approved case")
	}

	listResp := getJSON(t, client, ts.URL+"/api/v1/cases?limit=10&offset=0", clientToken)
	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(listResp.Data, &page); err != nil {
		t.Fatalf("failed to decode case list: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("expected exactly one case for the client, got total=%d items=%d", page.Total, len(page.Items))
	}

	// Both status changes notified the client.
	unread := decodeMap(t, getJSON(t, client, ts.URL+"/api/v1/notifications/unread-count", clientToken).Data)
	if n, _ := unread["unread"].(float64); n < 2 {
		t.Fatalf("expected status change notifications for the client, got %v", unread["unread"])
	}

	notifResp := getJSON(t, client, ts.URL+"/api/v1/notifications?limit=20&offset=0", clientToken)
	var notifs []map[string]any
	if err := json.Unmarshal(notifResp.Data, &notifs); err != nil {
		t.Fatalf("failed to decode notifications: %v", err)
	}
	if len(notifs) == 0 {
		t.Fatal("expected notifications for the client")
	}

	postJSON(t, client, ts.URL+"/api/v1/notifications/read-all", clientToken, nil)
	unread = decodeMap(t, getJSON(t, client, ts.URL+"/api/v1/notifications/unread-count", clientToken).Data)
	if n, _ := unread["unread"].(float64); n != 0 {
		t.Fatalf("expected zero unread after read-all, got %v", unread["unread"])
	}
}

func TestClientCannotAccessAnotherClientsCase(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	nano := time.Now().UnixNano()
	ownerCode := createInvite(t, client, ts.URL, adminToken, "CLIENT")
	ownerToken, _ := registerAccount(t, client, ts.URL, ownerCode, fmt.Sprintf("owner-%d@example.com", nano), "Owner123!", "Case Owner")
	otherCode := createInvite(t, client, ts.URL, adminToken, "CLIENT")
	otherToken, _ := registerAccount(t, client, ts.URL, otherCode, fmt.Sprintf("other-%d@example.com", nano), "Other123!", "Other Client")

	caseResp := postJSON(t, client, ts.URL+"/api/v1/cases", ownerToken, map[string]any{
		"caseType": "study_visa",
		"country":  "DE",
		"title":    "Masters admission in Berlin",
	})
	created := decodeMap(t, caseResp.Data)
	caseID, _ := created["id"].(string)
	if caseID == "" {
		t.Fatal("expected case id")
	}

	env := getJSONStatus(t, client, ts.URL+"/api/v1/cases/"+caseID, otherToken, http.StatusForbidden)
	if code := envelopeErrorCode(env); code != "forbidden" {
		t.Fatalf("expected forbidden error, got %+v", env.Error)
	}

	// The stranger must not see it in their list either.
	listResp := getJSON(t, client, ts.URL+"/api/v1/cases", otherToken)
	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(listResp.Data, &page); err != nil {
		t.Fatalf("failed to decode case list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected empty case list for the other client, got %d", page.Total)
	}
}

func createInvite(t *testing.T, client *http.Client, baseURL, token, role string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/invites", token, map[string]any{
		"role": role,
	})
	payload := decodeMap(t, resp.Data)
	code, _ := payload["code"].(string)
	if code == "" {
		t.Fatal("expected invite code")
	}
	return code
}

func registerAccount(t *testing.T, client *http.Client, baseURL, inviteCode, email, password, fullName string) (string, string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/register", "", map[string]any{
		"email":      email,
		"password":   password,
		"fullName":   fullName,
		"inviteCode": inviteCode,
	})
	payload := decodeMap(t, resp.Data)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected registration token")
	}
	account, _ := payload["account"].(map[string]any)
	id, _ := account["id"].(string)
	if id == "" {
		t.Fatal("expected account id")
	}
	return token, id
}

func decodeMap(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to decode object payload: %v", err)
	}
	return payload
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	payload := decodeMap(t, resp.Data)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}

func putJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBuffer(raw))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(respRaw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(respRaw))
	}
	return env
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}

func getJSONStatus(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}
