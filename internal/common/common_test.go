package common

import (
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailErrorUsesKind(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", NewAppError(KindValidation, "bad input", nil), http.StatusBadRequest, "bad input"},
		{"provider", NewAppError(KindProvider, "Insufficient funds", nil), http.StatusBadRequest, "Insufficient funds"},
		{"configuration", NewAppError(KindConfiguration, "Server configuration error", nil), http.StatusInternalServerError, "Server configuration error"},
		{"wrapped", fmt.Errorf("outer: %w", NewAppError(KindTransport, "upstream down", errors.New("dial"))), http.StatusInternalServerError, "upstream down"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			FailError(rr, tc.err, "fallback")
			require.Equal(t, tc.status, rr.Code)
			var env Envelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
			require.False(t, env.Status)
			require.Equal(t, tc.msg, env.Error)
		})
	}
}

func TestOKEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	OK(rr, "done", map[string]string{"k": "v"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":true,"message":"done","data":{"k":"v"}}`, rr.Body.String())
}

func TestAppErrorStatusOverride(t *testing.T) {
	err := &AppError{Kind: KindValidation, Message: "nope", HTTPStatus: http.StatusMethodNotAllowed}
	require.Equal(t, http.StatusMethodNotAllowed, err.Status())
	require.True(t, IsKind(err, KindValidation))
	require.False(t, IsKind(errors.New("x"), KindValidation))
}

func TestHMACHex(t *testing.T) {
	// RFC 4231 test case 2.
	got := HMACHex(sha512.New, "Jefe", []byte("what do ya want for nothing?"))
	require.Equal(t, "164b7a7bfcf819e2e395fbe73b56e0a387bd64222e831fd610270cd7ea2505549758bf75c05a994a6d034f65f8f0e6fdcaeab1a34d4a6b4b636e070a38bce737", got)
	require.True(t, EqualHex(got, got))
	require.False(t, EqualHex(got, ""))
	require.False(t, EqualHex("", ""))
}
