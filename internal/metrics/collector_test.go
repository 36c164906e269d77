package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/anttech/btmgrd/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.Adapters == nil {
		t.Error("Adapters is nil")
	}
	if c.Devices == nil {
		t.Error("Devices is nil")
	}
	if c.PairingAttempts == nil {
		t.Error("PairingAttempts is nil")
	}
	if c.PairingOutcomes == nil {
		t.Error("PairingOutcomes is nil")
	}
	if c.ProfileConnects == nil {
		t.Error("ProfileConnects is nil")
	}
	if c.ProfileDisconnects == nil {
		t.Error("ProfileDisconnects is nil")
	}
	if c.AVRCPRequests == nil {
		t.Error("AVRCPRequests is nil")
	}
	if c.OPPTransfers == nil {
		t.Error("OPPTransfers is nil")
	}
	if c.OPPBytesTransferred == nil {
		t.Error("OPPBytesTransferred is nil")
	}
	if c.RPCCalls == nil {
		t.Error("RPCCalls is nil")
	}
	if c.RPCDuration == nil {
		t.Error("RPCDuration is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestAdapterAndDeviceGauges(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SetAdapters(2)
	if got := gaugeValue(t, c.Adapters); got != 2 {
		t.Errorf("Adapters = %v, want 2", got)
	}

	c.SetDevices("aa:bb:cc:dd:ee:ff", 5)
	if got := gaugeVecValue(t, c.Devices, "aa:bb:cc:dd:ee:ff"); got != 5 {
		t.Errorf("Devices = %v, want 5", got)
	}

	c.SetDevices("aa:bb:cc:dd:ee:ff", 3)
	if got := gaugeVecValue(t, c.Devices, "aa:bb:cc:dd:ee:ff"); got != 3 {
		t.Errorf("Devices after update = %v, want 3", got)
	}
}

func TestPairingCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	const adapter = "aa:bb:cc:dd:ee:ff"

	c.IncPairingAttempts(adapter)
	c.IncPairingAttempts(adapter)

	if got := counterVecValue(t, c.PairingAttempts, adapter); got != 2 {
		t.Errorf("PairingAttempts = %v, want 2", got)
	}

	c.RecordPairingOutcome(adapter, "success")
	c.RecordPairingOutcome(adapter, "timeout")
	c.RecordPairingOutcome(adapter, "success")

	if got := counterVecValue(t, c.PairingOutcomes, adapter, "success"); got != 2 {
		t.Errorf("PairingOutcomes(success) = %v, want 2", got)
	}
	if got := counterVecValue(t, c.PairingOutcomes, adapter, "timeout"); got != 1 {
		t.Errorf("PairingOutcomes(timeout) = %v, want 1", got)
	}
}

func TestProfileAndAVRCPCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.IncProfileConnect("a2dp")
	c.IncProfileConnect("a2dp")
	c.IncProfileDisconnect("a2dp")

	if got := counterVecValue(t, c.ProfileConnects, "a2dp"); got != 2 {
		t.Errorf("ProfileConnects(a2dp) = %v, want 2", got)
	}
	if got := counterVecValue(t, c.ProfileDisconnects, "a2dp"); got != 1 {
		t.Errorf("ProfileDisconnects(a2dp) = %v, want 1", got)
	}

	c.IncAVRCPRequest("play")
	c.IncAVRCPRequest("play")
	c.IncAVRCPRequest("pause")

	if got := counterVecValue(t, c.AVRCPRequests, "play"); got != 2 {
		t.Errorf("AVRCPRequests(play) = %v, want 2", got)
	}
	if got := counterVecValue(t, c.AVRCPRequests, "pause"); got != 1 {
		t.Errorf("AVRCPRequests(pause) = %v, want 1", got)
	}
}

func TestOPPTransferMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordOPPTransfer("push", "success", 4096)
	c.RecordOPPTransfer("push", "failed", 0)

	if got := counterVecValue(t, c.OPPTransfers, "push", "success"); got != 1 {
		t.Errorf("OPPTransfers(push,success) = %v, want 1", got)
	}
	if got := counterVecValue(t, c.OPPTransfers, "push", "failed"); got != 1 {
		t.Errorf("OPPTransfers(push,failed) = %v, want 1", got)
	}
	if got := counterVecValue(t, c.OPPBytesTransferred, "push"); got != 4096 {
		t.Errorf("OPPBytesTransferred(push) = %v, want 4096", got)
	}
}

func TestRPCCallMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordRPCCall("adapter", "startDiscovery", "ok", 15*time.Millisecond)
	c.RecordRPCCall("adapter", "startDiscovery", "error", 5*time.Millisecond)

	if got := counterVecValue(t, c.RPCCalls, "adapter", "startDiscovery", "ok"); got != 1 {
		t.Errorf("RPCCalls(ok) = %v, want 1", got)
	}
	if got := counterVecValue(t, c.RPCCalls, "adapter", "startDiscovery", "error"); got != 1 {
		t.Errorf("RPCCalls(error) = %v, want 1", got)
	}

	hist, err := c.RPCDuration.GetMetricWithLabelValues("adapter", "startDiscovery")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	m := &dto.Metric{}
	if err := hist.(prometheus.Histogram).Write(m); err != nil {
		t.Fatalf("Write histogram: %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("RPCDuration sample count = %v, want 2", got)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func gaugeVecValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
