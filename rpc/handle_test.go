package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/rapidgen/sqlite"
)

type echoArgs struct {
	Name  string `json:"name"`
	Limit *int   `json:"limit"`
}

func echo(_ context.Context, args echoArgs) (echoArgs, error) {
	return args, nil
}

func serve(t *testing.T, h gin.HandlerFunc, body string) (int, APIResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/op", h)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/op", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/op", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestHandle_DecodesArgs(t *testing.T) {
	code, resp := serve(t, Handle(echo), `{"name":"ada","limit":2}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, map[string]any{"name": "ada", "limit": float64(2)}, resp.Data)
	assert.Empty(t, resp.Error)
}

func TestHandle_EmptyBodyIsZeroArgs(t *testing.T) {
	var got echoArgs
	called := false
	h := Handle(func(_ context.Context, args echoArgs) (string, error) {
		got, called = args, true
		return "ok", nil
	})
	code, resp := serve(t, h, "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, called)
	assert.Equal(t, echoArgs{}, got)
	assert.Equal(t, "ok", resp.Data)
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		code    int
		message string
	}{
		{name: "malformed body", body: `{"name":`, code: http.StatusBadRequest, message: "Invalid request body"},
		{name: "wrong field type", body: `{"limit":"x"}`, code: http.StatusBadRequest, message: "Invalid request body"},
		{name: "invalid orderBy", body: `{}`, err: sqlite.ErrInvalidOrderBy, code: http.StatusBadRequest, message: "Invalid arguments"},
		{name: "wrapped no values", body: `{}`, err: fmt.Errorf("createMany: %w", sqlite.ErrNoValues), code: http.StatusBadRequest, message: "Invalid arguments"},
		{name: "database failure", body: `{}`, err: errors.New("disk I/O error"), code: http.StatusInternalServerError, message: "Operation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Handle(func(_ context.Context, _ echoArgs) (*echoArgs, error) {
				return nil, tt.err
			})
			code, resp := serve(t, h, tt.body)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.message, resp.Message)
			assert.NotEmpty(t, resp.Error)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), resp.Error)
			}
		})
	}
}

func TestIsUsageError(t *testing.T) {
	assert.True(t, IsUsageError(sqlite.ErrColumnsMismatch))
	assert.True(t, IsUsageError(fmt.Errorf("order: %w", sqlite.ErrInvalidSortOrder)))
	assert.False(t, IsUsageError(errors.New("no values")))
	assert.False(t, IsUsageError(nil))
}
