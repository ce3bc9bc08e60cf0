package json

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 400, "Invalid state parameter")

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid state parameter", body["error"])
	_, hasAuth := body["authenticated"]
	assert.False(t, hasAuth, "plain errors should not carry the authenticated flag")
}

func TestWriteUnauthenticated(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnauthenticated(rec, "Authentication required")

	assert.Equal(t, 401, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Authentication required", body["error"])
	assert.Equal(t, false, body["authenticated"])
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Write(rec, map[string]string{"status": "ok"}))

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
