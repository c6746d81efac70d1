package entity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/entity"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want entity.OrderStatus
	}{
		{raw: "pending", want: entity.StatusPending},
		{raw: "Approved", want: entity.StatusApproved},
		{raw: " VOIDED ", want: entity.StatusVoided},
		{raw: "Pendiente", want: entity.StatusPending},
		{raw: "aprobado", want: entity.StatusApproved},
		{raw: "Anulado", want: entity.StatusVoided},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := entity.ParseStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus_Rejects(t *testing.T) {
	for _, raw := range []string{"", "completado", "shipped"} {
		_, err := entity.ParseStatus(raw)
		assert.True(t, errors.Is(err, entity.ErrInvalidStatus), raw)
	}
}

func TestStatuses(t *testing.T) {
	for _, s := range entity.Statuses() {
		assert.True(t, s.Valid())
	}
	assert.False(t, entity.OrderStatus("draft").Valid())
}
