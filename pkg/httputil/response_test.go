package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusOK, map[string]string{"code": "my-project"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "my-project", body["code"])
}

func TestErrorWriters(t *testing.T) {
	cases := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
	}{
		{"BadRequest", func(w http.ResponseWriter) { WriteBadRequest(w, "bad") }, http.StatusBadRequest},
		{"Unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "who are you") }, http.StatusUnauthorized},
		{"Forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "no") }, http.StatusForbidden},
		{"NotFound", func(w http.ResponseWriter) { WriteNotFound(w, "gone") }, http.StatusNotFound},
		{"Conflict", func(w http.ResponseWriter) { WriteConflict(w, "exists") }, http.StatusConflict},
		{"Locked", func(w http.ResponseWriter) { WriteLocked(w, "read-only") }, http.StatusLocked},
		{"Internal", func(w http.ResponseWriter) { WriteInternalError(w, errors.New("boom")) }, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)

			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["message"])
		})
	}
}
