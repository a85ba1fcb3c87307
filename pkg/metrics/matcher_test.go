package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMatcherMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMatcherMetrics(reg)
	metrics.ObserveTick("success", 250*time.Millisecond)
	metrics.IncExecuted("sell")
	metrics.IncFailed("insufficient_quantity")
	metrics.AddExpired(3)
	metrics.IncAllocation(75)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "matcher_orders_executed_total", "direction", "sell"); err != nil {
		t.Fatalf("fetch executed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected executed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "matcher_orders_failed_total", "reason", "insufficient_quantity"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "matcher_tick_duration_seconds", "outcome", "success"); err != nil {
		t.Fatalf("fetch tick duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got := fetchScalarCounter(mfs, "matcher_orders_expired_total"); got != 3 {
		t.Fatalf("expected expired=3, got %f", got)
	}

	if got := fetchScalarCounter(mfs, "charity_allocated_amount_total"); got != 75 {
		t.Fatalf("expected allocated amount 75, got %f", got)
	}
}

func TestMatcherMetricsNilSafe(t *testing.T) {
	var metrics *MatcherMetrics
	metrics.ObserveTick("success", time.Second)
	metrics.IncExecuted("buy")
	metrics.IncFailed("quote_unavailable")
	metrics.AddExpired(1)
	metrics.IncAllocation(1)
}

func fetchScalarCounter(mfs []*dto.MetricFamily, name string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		return 0
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("histogram %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
