package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("role ADMIN: %w", ErrNotFound), http.StatusNotFound, CodeNotFound},
		{ErrDuplicate, http.StatusConflict, CodeDuplicate},
		{fmt.Errorf("%w: page", ErrValidation), http.StatusBadRequest, CodeValidation},
		{ErrForbidden, http.StatusForbidden, CodeForbidden},
		{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{fmt.Errorf("dial tcp: secret host"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)

		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		env := decodeEnvelope(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, tc.code, env.Code)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("dial tcp 10.0.0.5:5432: refused"))

	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestOKWritesSuccessEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, "ok", map[string]int{"count": 2})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"message":"ok","data":{"count":2}}`, rr.Body.String())
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	assert.Error(t, DecodeJSON(req, &target))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "a", target.Name)
}
