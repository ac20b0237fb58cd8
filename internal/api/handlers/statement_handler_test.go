package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subtrack/internal/api"
	"subtrack/internal/api/handlers"
	"subtrack/internal/models"
	"subtrack/internal/repository"
	"subtrack/internal/service"
	"subtrack/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExtractor struct {
	result *service.ExtractionResult
	err    error
}

func (s *stubExtractor) ExtractStatement(ctx context.Context, text string) (*service.ExtractionResult, error) {
	return s.result, s.err
}

func netflixResult() *service.ExtractionResult {
	return &service.ExtractionResult{
		Transactions: []service.TransactionData{
			{Date: "2024-01-05", Description: "NETFLIX.COM", Amount: decimal.RequireFromString("15.99")},
		},
		Subscriptions: []service.SubscriptionData{
			{
				Name:        "Netflix",
				Amount:      decimal.RequireFromString("15.99"),
				Frequency:   "monthly",
				LastCharged: "2024-01-05",
				Count:       3,
				CancelURL:   "netflix.com/cancelplan",
			},
		},
	}
}

type testEnv struct {
	app  *fiber.App
	repo *repository.SessionRepository
	svc  *service.StatementService
}

func newTestEnv(extractor service.Extractor) *testEnv {
	log := zap.NewNop()
	repo := repository.NewSessionRepository(log)
	svc := service.NewStatementService(repo, service.NewExtractService(log), extractor, log)

	cfg := &config.Config{
		Server: config.Server{
			Port:         "0",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Upload: config.Upload{MaxSizeMB: 4},
	}

	app := api.SetupRouter(handlers.NewStatementHandler(svc, log), cfg, log)
	return &testEnv{app: app, repo: repo, svc: svc}
}

func (e *testEnv) createSession(t *testing.T) uuid.UUID {
	t.Helper()
	session, err := e.repo.Create(context.Background())
	require.NoError(t, err)
	return session.ID
}

func (e *testEnv) upload(t *testing.T, sessionID string, fileName, content string) (int, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("session_id", sessionID))
	fw, err := w.CreateFormFile("files", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func formPost(t *testing.T, app *fiber.App, path, form string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestIndexCreatesSession(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})

	status, body := get(t, env.app, "/")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `name="session_id"`)
	assert.Contains(t, body, "hx-post=\"/upload\"")
}

func TestUploadRendersSubscriptionFragment(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})
	sessionID := env.createSession(t)

	status, body := env.upload(t, sessionID.String(), "statement.csv", "2024-01-05,Netflix,15.99\n")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "Netflix")
	assert.Contains(t, body, "/categorize/")
	assert.Contains(t, body, "netflix.com/cancelplan")
}

func TestUploadUnknownSession(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})

	status, _ := env.upload(t, uuid.New().String(), "statement.csv", "2024-01-05,Netflix,15.99\n")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestUploadNoSubscriptionsFound(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: &service.ExtractionResult{}})
	sessionID := env.createSession(t)

	status, body := env.upload(t, sessionID.String(), "statement.csv", "2024-01-05,One Off,12.00\n")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "No subscriptions found")
}

func TestUploadModelFailure(t *testing.T) {
	env := newTestEnv(&stubExtractor{err: assert.AnError})
	sessionID := env.createSession(t)

	status, _ := env.upload(t, sessionID.String(), "statement.csv", "2024-01-05,Netflix,15.99\n")
	assert.Equal(t, fiber.StatusBadGateway, status)
}

func TestUploadUnsupportedFile(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})
	sessionID := env.createSession(t)

	status, body := env.upload(t, sessionID.String(), "statement.xlsx", "not a statement")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "unsupported file format")
}

func TestCategorizeAndReportFlow(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})
	sessionID := env.createSession(t)
	ctx := context.Background()

	uploadStatus, _ := env.upload(t, sessionID.String(), "statement.csv", "2024-01-05,Netflix,15.99\n")
	require.Equal(t, fiber.StatusOK, uploadStatus)

	session, err := env.repo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, session.Subscriptions, 1)
	subID := session.Subscriptions[0].ID

	status, body := formPost(t, env.app, "/categorize/"+subID.String(),
		"session_id="+sessionID.String()+"&category=cancel")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "cat-cancel")

	// The category sticks and shows up in the report.
	session, err = env.repo.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryCancel, session.Subscriptions[0].Category)

	status, body = get(t, env.app, "/report?session_id="+sessionID.String())
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "Savings report")
	assert.Contains(t, body, "15.99/mo")
	assert.Contains(t, body, "191.88/yr")
}

func TestCategorizeUnknownSubscription(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})
	sessionID := env.createSession(t)
	env.upload(t, sessionID.String(), "statement.csv", "2024-01-05,Netflix,15.99\n")

	status, _ := formPost(t, env.app, "/categorize/"+uuid.New().String(),
		"session_id="+sessionID.String()+"&category=keep")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCategorizeInvalidLabel(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})
	sessionID := env.createSession(t)
	env.upload(t, sessionID.String(), "statement.csv", "2024-01-05,Netflix,15.99\n")

	session, err := env.repo.Get(context.Background(), sessionID)
	require.NoError(t, err)
	subID := session.Subscriptions[0].ID

	status, _ := formPost(t, env.app, "/categorize/"+subID.String(),
		"session_id="+sessionID.String()+"&category=destroy")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestReportUnknownSession(t *testing.T) {
	env := newTestEnv(&stubExtractor{result: netflixResult()})

	status, _ := get(t, env.app, "/report?session_id="+uuid.New().String())
	assert.Equal(t, fiber.StatusNotFound, status)
}
