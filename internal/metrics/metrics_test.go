package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestObserveCommissionPaid(t *testing.T) {
	before := testutil.ToFloat64(CommissionPaid.WithLabelValues("purchase", "1"))
	beforeAmount := testutil.ToFloat64(CommissionPaidAmount.WithLabelValues("purchase"))

	ObserveCommissionPaid("purchase", "1", decimal.NewFromInt(500))

	if got := testutil.ToFloat64(CommissionPaid.WithLabelValues("purchase", "1")); got != before+1 {
		t.Fatalf("expected counter %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(CommissionPaidAmount.WithLabelValues("purchase")); got != beforeAmount+500 {
		t.Fatalf("expected amount %v, got %v", beforeAmount+500, got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	KeyTransitions.WithLabelValues("purchase").Inc()

	r := gin.New()
	r.GET("/metrics", Handler())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "adreward_key_transitions_total") {
		t.Fatalf("expected key transition metric in output")
	}
}
