package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_IsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	Init()
	OrderPlaced("buy")
	TradesObserved(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "tickbook_orders_placed_total")
	assert.Contains(t, rec.Body.String(), "tickbook_trades_total")
}
