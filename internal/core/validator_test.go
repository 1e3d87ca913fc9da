package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/types"
)

type completeRequest struct {
	Tipo string `json:"tipo" validate:"required,notblank,max=64"`
}

type subscribeRequest struct {
	Token string `json:"token" validate:"required,notblank"`
	Topic string `json:"topic,omitempty" validate:"omitempty,alphanum"`
}

func TestValidateStruct(t *testing.T) {
	v := NewValidator(discardLogger())

	tests := []struct {
		name      string
		input     any
		wantCode  types.ErrorCode
		wantField string
	}{
		{"valid", completeRequest{Tipo: "MENSUAL"}, "", ""},
		{"missing", completeRequest{}, types.ErrCodeValidationMissingField, "tipo"},
		{"blank", completeRequest{Tipo: "   "}, types.ErrCodeValidationMissingField, "tipo"},
		{"too long", completeRequest{Tipo: string(make([]byte, 65))}, types.ErrCodeValidationInvalidInput, "tipo"},
		{"missing token", subscribeRequest{}, types.ErrCodeValidationMissingField, "token"},
		{"bad topic", subscribeRequest{Token: "abc", Topic: "no spaces"}, types.ErrCodeValidationInvalidInput, "topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, types.IsCode(err, tt.wantCode), "got %v", err)

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Details["field"])
		})
	}
}

func TestValidateStructNonStruct(t *testing.T) {
	v := NewValidator(nil)
	err := v.ValidateStruct("not a struct")
	assert.True(t, types.IsCode(err, types.ErrCodeValidationInvalidInput))
}
