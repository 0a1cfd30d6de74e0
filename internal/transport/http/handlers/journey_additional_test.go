package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"visapath/internal/app/server"
	"visapath/internal/platform/config"
)

func TestDocumentUploadReviewAndDownloadJourney(t *testing.T) {
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

	clientEmail := fmt.Sprintf("docs-client-%d@example.com", time.Now().UnixNano())
	clientCode := createInvite(t, client, ts.URL, adminToken, "CLIENT")
	clientToken, _ := registerAccount(t, client, ts.URL, clientCode, clientEmail, "Client123!", "Docs Client")

	caseResp := postJSON(t, client, ts.URL+"/api/v1/cases", clientToken, map[string]any{
		"caseType": "family_visa",
		"country":  "AU",
		"title":    "Partner visa evidence bundle",
	})
	caseID, _ := decodeMap(t, caseResp.Data)["id"].(string)
	if caseID == "" {
		t.Fatal("expected case id")
	}

	content := []byte("passport biodata page scan")
	uploadResp := postMultipartStatus(t, client, ts.URL+"/api/v1/cases/"+caseID+"/documents", clientToken,
		"file", "passport.pdf", content, http.StatusCreated)
	uploaded := decodeMap(t, uploadResp.Data)
	docID, _ := uploaded["id"].(string)
	if docID == "" {
		t.Fatal("expected document id")
	}
	if status, _ := uploaded["status"].(string); status != "pending_review" {
		t.Fatalf("expected pending_review upload, got %s", status)
	}
	if size, _ := uploaded["fileSize"].(float64); int(size) != len(content) {
		t.Fatalf("expected fileSize %d, got %v", len(content), uploaded["fileSize"])
	}

	docsResp := getJSON(t, client, ts.URL+"/api/v1/cases/"+caseID+"/documents", clientToken)
	var docs []map[string]any
	if err := json.Unmarshal(docsResp.Data, &docs); err != nil {
		t.Fatalf("failed to decode document list: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document on the case, got %d", len(docs))
	}

	reviewResp := postJSON(t, client, ts.URL+"/api/v1/documents/"+docID+"/review", adminToken, map[string]any{
		"status": "accepted",
		"notes":  "Legible and in date.",
	})
	reviewed := decodeMap(t, reviewResp.Data)
	if status, _ := reviewed["status"].(string); status != "accepted" {
		t.Fatalf("expected accepted document, got %s", status)
	}
	if reviewed["reviewedBy"] == nil || reviewed["reviewedAt"] == nil {
		t.Fatal("expected reviewer stamp on the document")
	}

	body, disposition := getRaw(t, client, ts.URL+"/api/v1/documents/"+docID+"/download", clientToken)
	if !bytes.Equal(body, content) {
		t.Fatalf("downloaded bytes differ from upload: %q", body)
	}
	if !strings.Contains(disposition, "passport.pdf") {
		t.Fatalf("expected filename in Content-Disposition, got %q", disposition)
	}

	// Accepted documents are out of the client's hands.
	env := deleteJSONStatus(t, client, ts.URL+"/api/v1/documents/"+docID, clientToken, http.StatusForbidden)
	if code := envelopeErrorCode(env); code != "forbidden" {
		t.Fatalf("expected forbidden delete, got %+v", env.Error)
	}

	// Review left an unread notification for the uploader.
	unread := decodeMap(t, getJSON(t, client, ts.URL+"/api/v1/notifications/unread-count", clientToken).Data)
	if n, _ := unread["unread"].(float64); n < 1 {
		t.Fatalf("expected review notification, got %v", unread["unread"])
	}
}

func TestAccountDeletionRequestGraceAndCancel(t *testing.T) {
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
	email := fmt.Sprintf("leaver-%d@example.com", time.Now().UnixNano())
	code := createInvite(t, client, ts.URL, adminToken, "CLIENT")
	token, accountID := registerAccount(t, client, ts.URL, code, email, "Leaver123!", "Departing Client")

	reqResp := postJSON(t, client, ts.URL+"/api/v1/me/deletion-request", token, nil)
	scheduled := decodeMap(t, reqResp.Data)
	if scheduled["deletionScheduledFor"] == nil {
		t.Fatal("expected deletion schedule on the account")
	}
	if active, _ := scheduled["isActive"].(bool); active {
		t.Fatal("expected account deactivated during grace period")
	}

	// A second request while one is pending conflicts.
	conflict := postJSONStatus(t, client, ts.URL+"/api/v1/me/deletion-request", token, nil, http.StatusConflict)
	if code := envelopeErrorCode(conflict); code != "deletion_already_scheduled" {
		t.Fatalf("expected deletion_already_scheduled, got %+v", conflict.Error)
	}

	// Sign-in still works during the grace window so the user can change their mind.
	graceToken := login(t, client, ts.URL, email, "Leaver123!")
	me := decodeMap(t, getJSON(t, client, ts.URL+"/api/v1/me", graceToken).Data)
	if me["deletionScheduledFor"] == nil {
		t.Fatal("expected profile to surface the pending deletion")
	}

	// The admin sees the account queued for purge.
	pending := getJSON(t, client, ts.URL+"/api/v1/admin/deletions", adminToken)
	var queue []map[string]any
	if err := json.Unmarshal(pending.Data, &queue); err != nil {
		t.Fatalf("failed to decode deletion queue: %v", err)
	}
	found := false
	for _, entry := range queue {
		if id, _ := entry["id"].(string); id == accountID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected account %s in the deletion queue", accountID)
	}

	cancelResp := deleteJSONStatus(t, client, ts.URL+"/api/v1/me/deletion-request", graceToken, http.StatusOK)
	restored := decodeMap(t, cancelResp.Data)
	if restored["deletionScheduledFor"] != nil {
		t.Fatal("expected schedule cleared after cancel")
	}
	if active, _ := restored["isActive"].(bool); !active {
		t.Fatal("expected account reactivated after cancel")
	}

	again := deleteJSONStatus(t, client, ts.URL+"/api/v1/me/deletion-request", graceToken, http.StatusConflict)
	if code := envelopeErrorCode(again); code != "no_scheduled_deletion" {
		t.Fatalf("expected no_scheduled_deletion, got %+v", again.Error)
	}
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		CronSecret:         "test-cron-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		Environment:        "test",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		ReconcileMinAge:    time.Minute,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
	}
}

func postMultipartStatus(t *testing.T, client *http.Client, url, token, fileField, fileName string, content []byte, want int) envelope {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fileWriter, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		t.Fatalf("failed to create multipart file: %v", err)
	}
	if _, err := fileWriter.Write(content); err != nil {
		t.Fatalf("failed to write multipart content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
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

func getRaw(t *testing.T, client *http.Client, url, token string) ([]byte, string) {
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
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, string(raw))
	}
	return raw, resp.Header.Get("Content-Disposition")
}

func deleteJSONStatus(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
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
