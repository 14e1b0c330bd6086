package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetransact/escrow-api/internal/api"
	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/service"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/memory"
)

func newAPI(t *testing.T) string {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	srv := httptest.NewServer(api.NewRouter(api.Dependencies{
		Auth:         service.NewAuthService(store.Users(), "cli-secret", time.Hour, log),
		Users:        service.NewUserService(store.Users(), log),
		Transactions: service.NewTransactionService(store.Transactions(), store.Messages(), log),
		Messages:     service.NewMessageService(store.Transactions(), store.Messages(), nil, log),
		Store:        store,
		Registerer:   prometheus.NewRegistry(),
		Logger:       log,
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// execute runs the root command with args. Global flag variables survive
// between runs, so the persistent ones are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	apiURL, sessionPath, jsonOutput = "", "", false
	listAll, disputeReason = false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "escrowctl %s\n%s", strings.Join(args, " "), out)
	return out
}

func TestCLI_RegisterCreateAndChat(t *testing.T) {
	url := newAPI(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	common := []string{"--api-url", url, "--session", sessionFile}
	run := func(args ...string) string { return mustExecute(t, append(args, common...)...) }

	out := run("register", "--email", "cli@example.com", "--password", "secret123", "--name", "Cli User", "--type", "buyer")
	assert.Contains(t, out, "Logged in as Cli User")

	sess, err := loadSession(sessionFile)
	require.NoError(t, err)
	assert.Equal(t, url, sess.BaseURL)
	assert.NotEmpty(t, sess.Token)

	out = run("tx", "create", "--title", "Camera", "--description", "Mirrorless body", "--price", "499.99", "--as", "buyer", "--json")
	var tx domain.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &tx))
	assert.Equal(t, sess.UserID, tx.BuyerID)
	assert.Equal(t, domain.PlaceholderSellerID, tx.SellerID)
	assert.Equal(t, domain.StatusPendingAcceptance, tx.Status)

	out = run("tx", "list")
	assert.Contains(t, out, "Camera")
	assert.Contains(t, out, "499.99")

	out = run("tx", "actions", tx.ID)
	assert.Contains(t, out, "As buyer you can: cancel")

	run("msg", "send", tx.ID, "Is", "it", "still", "available?")
	out = run("msg", "list", tx.ID)
	assert.Contains(t, out, "[SecureTransact]")
	assert.Contains(t, out, "Is it still available?")

	out = run("stats")
	assert.Contains(t, out, "Pending")

	run("logout")
	_, err = execute(t, append([]string{"whoami"}, common...)...)
	assert.ErrorContains(t, err, "not logged in")
}

func TestCLI_ProfileRequiresAChange(t *testing.T) {
	_, err := execute(t, "profile", "--session", filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorContains(t, err, "nothing to update")
}

func TestBuildCreateRequest_PlacesCallerOnChosenSide(t *testing.T) {
	sess := &session{UserID: "u1", Name: "Una"}
	createRole, createCounterpartyID, createCounterpartyName = "seller", "u2", "Dos"
	t.Cleanup(func() { createRole, createCounterpartyID, createCounterpartyName = "buyer", "", "" })

	req, err := buildCreateRequest(sess)
	require.NoError(t, err)
	assert.Equal(t, "u1", req.SellerID)
	assert.Equal(t, "Una", req.SellerName)
	assert.Equal(t, "u2", req.BuyerID)
	assert.Equal(t, "Dos", req.BuyerName)

	createRole = "broker"
	_, err = buildCreateRequest(sess)
	assert.Error(t, err)
}

func TestSession_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	empty, err := loadSession(path)
	require.NoError(t, err)
	assert.Empty(t, empty.Token)

	require.NoError(t, saveSession(path, &session{BaseURL: "http://x", Token: "tok", UserID: "7"}))
	got, err := loadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "7", got.UserID)

	require.NoError(t, clearSession(path))
	require.NoError(t, clearSession(path))
}
