package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics_test", "ok"))
	errBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics_test", "error"))
	inBefore := testutil.ToFloat64(RowsProcessed.WithLabelValues("metrics_test", "in"))

	ObserveOperation("metrics_test", time.Now(), 10, 4, nil)
	ObserveOperation("metrics_test", time.Now(), 10, 0, errors.New("boom"))

	if got := testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics_test", "ok")) - okBefore; got != 1 {
		t.Errorf("ok count delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(OperationsTotal.WithLabelValues("metrics_test", "error")) - errBefore; got != 1 {
		t.Errorf("error count delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RowsProcessed.WithLabelValues("metrics_test", "in")) - inBefore; got != 10 {
		t.Errorf("rows in delta = %v, want 10 (failed operations add none)", got)
	}
}
