package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summarize-backend/internal/analyses"
	"summarize-backend/internal/contract"
	"summarize-backend/internal/extract"
	"summarize-backend/internal/llm"
	"summarize-backend/internal/shared/auth"
	"summarize-backend/internal/shared/config"
)

type staticCompleter string

func (s staticCompleter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Text: string(s)}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens("router-secret", "test")
	require.NoError(t, err)

	repo := analyses.NewMemoryRepo()
	pipeline := &analyses.Pipeline{
		Extractor: extract.PDFExtractor{},
		Summarizer: &llm.Summarizer{
			Completer: staticCompleter("Summary.\nKEY POINTS:\n- a\nACTIONS:\n- b"),
			Contract:  contract.Default(),
			Model:     "test-model",
		},
		Repo: repo,
	}
	handler := analyses.NewHandler(pipeline, &analyses.History{Repo: repo})
	return NewRouter(RouterDeps{
		Config:          config.Config{CORSAllowOrigin: []string{"http://localhost:5173"}, RateLimitUploadsPerMin: 2},
		Tokens:          tokens,
		AnalysisHandler: handler,
	}), tokens
}

func request(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	health := request(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"ok":true,"database":"none"}`, health.Body.String())

	m := request(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, m.Code)
	assert.True(t, strings.Contains(m.Body.String(), "analysis_started_total"), m.Body.String())
}

func TestMeRequiresToken(t *testing.T) {
	router, tokens := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, request(router, http.MethodGet, "/me", "").Code)

	token, err := tokens.Sign(auth.Claims{Sub: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	me := request(router, http.MethodGet, "/me", token)
	require.Equal(t, http.StatusOK, me.Code)
	assert.JSONEq(t, `{"userId":"alice","email":"alice@example.com"}`, me.Body.String())
}

func TestHistoryRoutesRequireIdentity(t *testing.T) {
	router, tokens := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, request(router, http.MethodGet, "/analysis/history", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, http.MethodDelete, "/analysis/abc", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, http.MethodGet, "/analysis/history", "garbage").Code)

	token, err := tokens.Sign(auth.Claims{Sub: "alice"})
	require.NoError(t, err)
	list := request(router, http.MethodGet, "/analysis/history", token)
	assert.Equal(t, http.StatusOK, list.Code)
	assert.JSONEq(t, `[]`, list.Body.String())
}

func TestUploadIsRateLimited(t *testing.T) {
	router, _ := newTestRouter(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, request(router, http.MethodPost, "/analysis/upload", "").Code)
	}
	// Requests without a file fail validation until the bucket is empty.
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
