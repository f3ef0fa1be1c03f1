package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGateway(t *testing.T) {
	before := testutil.ToFloat64(gatewayRequests.WithLabelValues("ask", OutcomeOK))

	ObserveGateway("ask", OutcomeOK, 150*time.Millisecond)
	ObserveGateway("ask", OutcomeOK, 20*time.Millisecond)

	after := testutil.ToFloat64(gatewayRequests.WithLabelValues("ask", OutcomeOK))
	if after-before != 2 {
		t.Errorf("expected 2 new ok requests, got %v", after-before)
	}
}

func TestSessionGauge(t *testing.T) {
	before := testutil.ToFloat64(sessionsActive)

	SessionOpened()
	SessionOpened()
	SessionClosed()

	if got := testutil.ToFloat64(sessionsActive) - before; got != 1 {
		t.Errorf("expected gauge to move by 1, got %v", got)
	}
}
