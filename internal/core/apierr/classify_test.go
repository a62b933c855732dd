package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	var fieldErrs criterio.FieldErrorsBuilder
	fieldErrs = fieldErrs.Append("websiteUrl", errors.New("Invalid website URL"))
	validationErr := fieldErrs.ToError()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil error", nil, KindUnusable},
		{"field errors", validationErr, KindValidation},
		{"wrapped field errors", fmt.Errorf("parse merchant: %w", validationErr), KindValidation},
		{"envelope with field cause", Wrap(CodeValidationFailed, 400, "Invalid input", validationErr), KindValidation},
		{"undefined sentinel", errors.New("undefined"), KindUnusable},
		{"null sentinel", errors.New("null"), KindUnusable},
		{"envelope without message", New(CodeInternal, 500, ""), KindUnusable},
		{"envelope with sentinel", New(CodeInternal, 500, "null"), KindUnusable},
		{"plain error", errors.New("boom"), KindNormal},
		{"network error", Network(errors.New("dial tcp: connection refused")), KindNormal},
		{"sentinel as substring", errors.New("value is undefined"), KindNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	t.Run("envelope message wins over wrapping text", func(t *testing.T) {
		err := fmt.Errorf("get merchant: %w", New(CodeNotFound, 404, "Merchant not found"))
		msg, ok := Message(err)
		assert.True(t, ok)
		assert.Equal(t, "Merchant not found", msg)
	})

	t.Run("network error", func(t *testing.T) {
		msg, ok := Message(Network(errors.New("reset")))
		assert.True(t, ok)
		assert.Equal(t, NetworkErrorMessage, msg)
	})

	t.Run("empty envelope message", func(t *testing.T) {
		_, ok := Message(New(CodeInternal, 500, ""))
		assert.False(t, ok)
	})

	t.Run("nil", func(t *testing.T) {
		_, ok := Message(nil)
		assert.False(t, ok)
	})
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "normal", KindNormal.String())
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "unusable", KindUnusable.String())
}
