package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/parkconnect-api/internal/obs"
)

func TestDomainMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("parkconnect", reg)
	obs.MustRegisterDomainMetrics("parkconnect", reg)

	obs.ObserveBooking("live", []string{"Nepal", "Nepal", "Other"})
	obs.ObserveScan("valid")
	obs.ObserveScan("not_found")
	obs.ObserveExport("daily", "empty")
	obs.ObservePricingFallback()
	obs.ObserveRateLimited()

	if v := testutil.ToFloat64(obs.BookingsCreated.WithLabelValues("live")); v != 1 {
		t.Fatalf("expected 1 booking, got %v", v)
	}
	if v := testutil.ToFloat64(obs.BookingVisitors.WithLabelValues("Nepal")); v != 2 {
		t.Fatalf("expected 2 Nepal visitors, got %v", v)
	}
	if v := testutil.ToFloat64(obs.TicketScans.WithLabelValues("not_found")); v != 1 {
		t.Fatalf("expected 1 not_found scan, got %v", v)
	}
	if v := testutil.ToFloat64(obs.ReportExports.WithLabelValues("daily", "empty")); v != 1 {
		t.Fatalf("expected 1 empty export, got %v", v)
	}
	if v := testutil.ToFloat64(obs.PricingFallbacks); v != 1 {
		t.Fatalf("expected 1 fallback, got %v", v)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected collectors registered on the supplied registry")
	}
}
