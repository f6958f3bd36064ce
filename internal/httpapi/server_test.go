package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/internal/identity"
	"github.com/MarkoPoloResearchLab/loppet/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubVerifier resolves pre-registered credentials to identity claims.
type stubVerifier struct {
	claims map[string]loppet.IdentityClaims
}

func (verifier *stubVerifier) Verify(ctx context.Context, credential string) (loppet.IdentityClaims, error) {
	claims, ok := verifier.claims[credential]
	if !ok {
		return loppet.IdentityClaims{}, identity.ErrInvalidCredential
	}
	return claims, nil
}

func (verifier *stubVerifier) register(credential string, email string, name string) {
	verifier.claims[credential] = loppet.IdentityClaims{
		Subject: "google-" + credential,
		Email:   email,
		Name:    name,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *stubVerifier) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gormstore.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := gormstore.New(db)
	clock := func() time.Time { return time.Now().UTC() }

	accounts, err := loppet.NewAccountService(store, clock)
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	listings, err := loppet.NewListingService(store, clock)
	if err != nil {
		t.Fatalf("listings: %v", err)
	}
	messages, err := loppet.NewMessageService(store, clock)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	projects, err := loppet.NewProjectService(store, clock)
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	races, err := loppet.NewRaceService(store, clock)
	if err != nil {
		t.Fatalf("races: %v", err)
	}
	sessions, err := identity.NewSessions(identity.SessionConfig{
		SigningKey: []byte("test-signing-key"),
		Issuer:     "loppet",
	})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	verifier := &stubVerifier{claims: map[string]loppet.IdentityClaims{}}

	server, err := NewServer(Config{
		ListenAddr:     ":0",
		AllowedOrigins: []string{"http://localhost:3000"},
		AdminEmails:    []string{"admin@example.com"},
	}, Dependencies{
		Logger:   zap.NewNop(),
		Accounts: accounts,
		Listings: listings,
		Messages: messages,
		Projects: projects,
		Races:    races,
		Verifier: verifier,
		Sessions: sessions,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	testServer := httptest.NewServer(server.Router())
	t.Cleanup(testServer.Close)
	return testServer, verifier
}

func execRequest(t *testing.T, server *httptest.Server, method string, path string, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = response.Body.Close() }()
	decoded := map[string]any{}
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return response.StatusCode, decoded
}

func signIn(t *testing.T, server *httptest.Server, verifier *stubVerifier, email string, username string) string {
	t.Helper()
	credential := "cred-" + username
	verifier.register(credential, email, username)
	status, body := execRequest(t, server, http.MethodPost, "/auth/google", "", map[string]any{
		"credential": credential,
		"username":   username,
	})
	if status != http.StatusOK {
		t.Fatalf("sign in %s: status %d body %v", username, status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("expected session token, got %v", body)
	}
	return token
}

func createAd(t *testing.T, server *httptest.Server, token string, title string) string {
	t.Helper()
	status, body := execRequest(t, server, http.MethodPost, "/ads", token, map[string]any{
		"title":       title,
		"description": "description for " + title,
		"price_ore":   150_00,
		"category":    "Cyklar",
		"condition":   "Bra",
		"location":    "Stockholm",
	})
	if status != http.StatusCreated {
		t.Fatalf("create ad: status %d body %v", status, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("expected listing id, got %v", body)
	}
	return id
}

func TestGoogleExchangeFlow(t *testing.T) {
	server, verifier := newTestServer(t)

	verifier.register("cred-fresh", "fresh@example.com", "Fresh User")
	status, body := execRequest(t, server, http.MethodPost, "/auth/google", "", map[string]any{
		"credential": "cred-fresh",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for missing username, got %d body %v", status, body)
	}
	if body["error"] != "needs_username" {
		t.Fatalf("expected needs_username code, got %v", body)
	}

	token := signIn(t, server, verifier, "fresh@example.com", "fresh")
	status, account := execRequest(t, server, http.MethodGet, "/auth/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("auth/me: status %d body %v", status, account)
	}
	if account["username"] != "fresh" || account["email"] != "fresh@example.com" {
		t.Fatalf("unexpected account: %v", account)
	}

	status, body = execRequest(t, server, http.MethodPost, "/auth/google", "", map[string]any{
		"credential": "cred-unknown",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credential, got %d body %v", status, body)
	}
}

func TestAdsRequireAuthForWrites(t *testing.T) {
	server, _ := newTestServer(t)

	status, body := execRequest(t, server, http.MethodPost, "/ads", "", map[string]any{"title": "nope"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d body %v", status, body)
	}

	status, body = execRequest(t, server, http.MethodGet, "/ads", "", nil)
	if status != http.StatusOK {
		t.Fatalf("anonymous search must work, got %d body %v", status, body)
	}
}

func TestAdLifecycleOverHTTP(t *testing.T) {
	server, verifier := newTestServer(t)
	sellerToken := signIn(t, server, verifier, "seller@example.com", "seller")
	buyerToken := signIn(t, server, verifier, "buyer@example.com", "buyer")

	adID := createAd(t, server, sellerToken, "Pinarello racer")

	status, result := execRequest(t, server, http.MethodGet, "/ads?search=pinarello", "", nil)
	if status != http.StatusOK {
		t.Fatalf("search: status %d body %v", status, result)
	}
	items, _ := result["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 search hit, got %v", result)
	}

	status, toggle := execRequest(t, server, http.MethodPost, "/ads/"+adID+"/favorite", buyerToken, nil)
	if status != http.StatusOK || toggle["state"] != "favorited" {
		t.Fatalf("favorite: status %d body %v", status, toggle)
	}
	status, toggle = execRequest(t, server, http.MethodPost, "/ads/"+adID+"/favorite", buyerToken, nil)
	if status != http.StatusOK || toggle["state"] != "unfavorited" {
		t.Fatalf("unfavorite: status %d body %v", status, toggle)
	}

	status, body := execRequest(t, server, http.MethodPut, "/ads/"+adID, buyerToken, map[string]any{
		"title": "hijacked",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner update, got %d body %v", status, body)
	}

	status, body = execRequest(t, server, http.MethodDelete, "/ads/"+adID, sellerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: status %d body %v", status, body)
	}
	status, body = execRequest(t, server, http.MethodGet, "/ads/"+adID, "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body %v", status, body)
	}
}

func TestMessagingOverHTTP(t *testing.T) {
	server, verifier := newTestServer(t)
	sellerToken := signIn(t, server, verifier, "seller@example.com", "seller")
	buyerToken := signIn(t, server, verifier, "buyer@example.com", "buyer")
	strangerToken := signIn(t, server, verifier, "stranger@example.com", "stranger")

	adID := createAd(t, server, sellerToken, "Fischer skis")

	status, body := execRequest(t, server, http.MethodPost, "/messages/send", sellerToken, map[string]any{
		"listing_id": adID,
		"content":    "talking to myself",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for self-message, got %d body %v", status, body)
	}

	status, sent := execRequest(t, server, http.MethodPost, "/messages/send", buyerToken, map[string]any{
		"listing_id": adID,
		"content":    "Hej, är den kvar?",
	})
	if status != http.StatusCreated {
		t.Fatalf("send: status %d body %v", status, sent)
	}
	conversationID, _ := sent["conversation_id"].(string)
	if conversationID == "" {
		t.Fatalf("expected conversation id, got %v", sent)
	}

	threadPath := fmt.Sprintf("/messages/conversations/%s/messages", conversationID)
	status, body = execRequest(t, server, http.MethodGet, threadPath, strangerToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for non-participant, got %d body %v", status, body)
	}

	status, thread := execRequest(t, server, http.MethodGet, threadPath, sellerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("thread: status %d body %v", status, thread)
	}
	messages, _ := thread["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %v", thread)
	}

	status, inbox := execRequest(t, server, http.MethodGet, "/messages/conversations", sellerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("inbox: status %d body %v", status, inbox)
	}
	conversations, _ := inbox["conversations"].([]any)
	if len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %v", inbox)
	}
}

func TestUploadsUnavailableWithoutStorage(t *testing.T) {
	server, verifier := newTestServer(t)
	token := signIn(t, server, verifier, "seller@example.com", "seller")

	status, body := execRequest(t, server, http.MethodPost, "/uploads/images", token, map[string]any{})
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when storage is not configured, got %d body %v", status, body)
	}
}

func TestProjectModerationOverHTTP(t *testing.T) {
	server, verifier := newTestServer(t)
	creatorToken := signIn(t, server, verifier, "creator@example.com", "creator")
	adminToken := signIn(t, server, verifier, "admin@example.com", "admin")

	status, project := execRequest(t, server, http.MethodPost, "/projects", creatorToken, map[string]any{
		"title":          "trail-tracker",
		"description":    "GPS tracker for trail races",
		"repository_url": "https://github.com/example/trail-tracker",
	})
	if status != http.StatusCreated || project["status"] != "PENDING" {
		t.Fatalf("create project: status %d body %v", status, project)
	}
	projectID, _ := project["id"].(string)

	status, body := execRequest(t, server, http.MethodGet, "/admin/projects/pending", creatorToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d body %v", status, body)
	}

	status, pending := execRequest(t, server, http.MethodGet, "/admin/projects/pending", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("pending: status %d body %v", status, pending)
	}
	queue, _ := pending["projects"].([]any)
	if len(queue) != 1 {
		t.Fatalf("expected 1 pending project, got %v", pending)
	}

	reviewPath := "/admin/projects/" + projectID + "/review"
	status, body = execRequest(t, server, http.MethodPost, reviewPath, adminToken, map[string]any{
		"approve": false,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for rejection without reason, got %d body %v", status, body)
	}

	status, reviewed := execRequest(t, server, http.MethodPost, reviewPath, adminToken, map[string]any{
		"approve": true,
	})
	if status != http.StatusOK || reviewed["status"] != "APPROVED" {
		t.Fatalf("approve: status %d body %v", status, reviewed)
	}

	status, body = execRequest(t, server, http.MethodPost, reviewPath, adminToken, map[string]any{
		"approve": false,
		"reason":  "second thoughts",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate review, got %d body %v", status, body)
	}

	status, directory := execRequest(t, server, http.MethodGet, "/projects", "", nil)
	if status != http.StatusOK {
		t.Fatalf("directory: status %d body %v", status, directory)
	}
	approved, _ := directory["projects"].([]any)
	if len(approved) != 1 {
		t.Fatalf("expected 1 approved project, got %v", directory)
	}

	status, body = execRequest(t, server, http.MethodPost, "/projects/"+projectID+"/join", creatorToken, nil)
	if status != http.StatusOK || body["status"] != "joined" {
		t.Fatalf("join: status %d body %v", status, body)
	}
	status, members := execRequest(t, server, http.MethodGet, "/projects/"+projectID+"/members", "", nil)
	if status != http.StatusOK {
		t.Fatalf("members: status %d body %v", status, members)
	}
	roster, _ := members["members"].([]any)
	if len(roster) != 1 {
		t.Fatalf("expected 1 member, got %v", members)
	}
}
