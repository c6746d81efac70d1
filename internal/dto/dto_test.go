package dto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/dto"
)

func TestNumber_AcceptsStringsAndNumbers(t *testing.T) {
	var req dto.CreateOrderRequest
	body := `{"orderDate":"2026-03-14","supplierId":"7","lines":[{"productId":3,"quantity":" 2 ","unitPrice":10.5},{"productId":null}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, int64(7), req.SupplierID.Int64())
	require.Len(t, req.Lines, 2)
	assert.Equal(t, "3", req.Lines[0].ProductID.String())
	assert.Equal(t, "2", req.Lines[0].Quantity.String())
	assert.Equal(t, "10.5", req.Lines[0].UnitPrice.String())
	assert.Empty(t, req.Lines[1].ProductID)
}

func TestNumber_RejectsObjects(t *testing.T) {
	var n dto.Number
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &n))
	assert.Error(t, json.Unmarshal([]byte(`true`), &n))
}

func TestNumber_Int64(t *testing.T) {
	assert.Equal(t, int64(0), dto.Number("2.5").Int64())
	assert.Equal(t, int64(0), dto.Number("").Int64())
	assert.Equal(t, int64(-3), dto.Number("-3").Int64())
}

func TestNumber_Whole(t *testing.T) {
	tests := []struct {
		in   dto.Number
		want int64
		ok   bool
	}{
		{"5", 5, true},
		{"5.0", 5, true},
		{" 12 ", 12, true},
		{"-3", -3, true},
		{"2.5", 0, false},
		{"abc", 0, false},
		{"7x", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.in.Whole()
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
	assert.True(t, dto.Number(" ").IsBlank())
	assert.False(t, dto.Number("0").IsBlank())
}

func TestUpdateOrderRequest_MalformedLineIDIsNotBlank(t *testing.T) {
	var req dto.UpdateOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"approved","lines":[{"lineId":"abc"},{"lineId":5.0}]}`), &req))
	require.Len(t, req.Lines, 2)

	assert.False(t, req.Lines[0].LineID.IsBlank())
	_, ok := req.Lines[0].LineID.Whole()
	assert.False(t, ok)

	id, ok := req.Lines[1].LineID.Whole()
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
}

func TestUpdateOrderRequest_DistinguishesMissingLines(t *testing.T) {
	var missing, empty dto.UpdateOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"approved"}`), &missing))
	require.NoError(t, json.Unmarshal([]byte(`{"status":"approved","lines":[]}`), &empty))
	assert.Nil(t, missing.Lines)
	assert.NotNil(t, empty.Lines)
}
