package core

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/types"
)

func TestErrorMapsAppErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", types.NewAppError(types.ErrCodeNotFoundMachine, "Máquina no encontrada", nil),
			http.StatusNotFound, "not_found_machine"},
		{"invalid type", types.NewAppError(types.ErrCodeValidationInvalidObligationType, "Tipo no válido", nil),
			http.StatusBadRequest, "validation_invalid_obligation_type"},
		{"wrapped upstream", fmt.Errorf("subscribe: %w",
			types.NewAppError(types.ErrCodeUpstreamPushProvider, "push provider unavailable", nil)),
			http.StatusBadGateway, "upstream_push_provider_unavailable"},
		{"generic", errors.New("pq: password authentication failed"),
			http.StatusInternalServerError, "internal_unexpected_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(types.WithRequestID(req.Context(), "rid-1"))
			rec := httptest.NewRecorder()

			Error(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			detail := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.Equal(t, "rid-1", detail.RequestID)
			assert.NotContains(t, rec.Body.String(), "password")
		})
	}
}

func TestErrorIncludesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidObligationType, "Tipo no válido", nil,
			map[string]any{"tipo": "ANUAL"}))

	assert.JSONEq(t,
		`{"error":{"code":"validation_invalid_obligation_type","message":"Tipo no válido","details":{"tipo":"ANUAL"},"request_id":""}}`,
		rec.Body.String())
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestJSONMarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, map[string]any{"ch": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_unexpected_error")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Tipo string `json:"tipo"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"tipo":"MENSUAL"}`, ""},
		{"empty", ``, "must not be empty"},
		{"syntax", `{"tipo":`, "malformed JSON"},
		{"unknown field ignored", `{"tipo":"MENSUAL","extra":1}`, ""},
		{"wrong type", `{"tipo":5}`, "invalid value for field"},
		{"two values", `{"tipo":"A"}{"tipo":"B"}`, "single JSON object"},
		{"too large", `{"tipo":"` + strings.Repeat("x", maxRequestBodySize) + `"}`, "must not exceed 1MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "MENSUAL", dst.Tipo)
				return
			}
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrCodeValidationInvalidJSON))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
