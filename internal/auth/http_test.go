// ABOUTME: Tests for the bearer-token HTTP middleware
// ABOUTME: Covers header and query tokens, rejection bodies and the disabled mode

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subjectEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SubjectFromContext(r.Context())))
	})
}

func TestBearerMiddleware(t *testing.T) {
	verifier := newTestVerifier(t)
	token, err := verifier.Generate("watcher", time.Hour)
	require.NoError(t, err)

	handler := BearerMiddleware(verifier)(subjectEcho())

	tests := []struct {
		name     string
		target   string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "header token", target: "/api/status", header: "Bearer " + token, wantCode: http.StatusOK, wantBody: "watcher"},
		{name: "query token", target: "/ws?token=" + token, wantCode: http.StatusOK, wantBody: "watcher"},
		{name: "missing", target: "/api/status", wantCode: http.StatusUnauthorized, wantBody: `{"error":"missing authorization header"}`},
		{name: "wrong scheme", target: "/api/status", header: "Basic abc", wantCode: http.StatusUnauthorized, wantBody: `{"error":"invalid authorization header format"}`},
		{name: "empty bearer", target: "/api/status", header: "Bearer ", wantCode: http.StatusUnauthorized, wantBody: `{"error":"empty token"}`},
		{name: "bad token", target: "/api/status", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantBody: `{"error":"invalid token"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestBearerMiddleware_NilVerifierPassesThrough(t *testing.T) {
	handler := BearerMiddleware(nil)(subjectEcho())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSubjectFromContext(t *testing.T) {
	assert.Empty(t, SubjectFromContext(context.Background()))
	assert.Equal(t, "abc", SubjectFromContext(WithSubject(context.Background(), "abc")))
}
