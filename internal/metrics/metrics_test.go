package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は名前とラベルに一致するメトリクスを返す。labelsがnilの場合は先頭を返す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	for k, v := range labels {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	if NewCollector(prometheus.NewRegistry()) == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DoubleRegistrationPanics は同じレジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}

// TestRecordGeneration は生成結果のカウンタとレイテンシが記録されることを検証する。
func TestRecordGeneration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGenerationSuccess(1500 * time.Millisecond)
	c.RecordGenerationSuccess(500 * time.Millisecond)
	c.RecordGenerationFailure("decode", time.Second)

	if v := findMetric(t, reg, "samkitchen_generation_total", map[string]string{"result": "success"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("success = %v, want 2", v)
	}
	if v := findMetric(t, reg, "samkitchen_generation_total", map[string]string{"result": "decode"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("decode = %v, want 1", v)
	}

	h := findMetric(t, reg, "samkitchen_generation_latency_seconds", nil).GetHistogram()
	if h.GetSampleCount() != 3 {
		t.Errorf("sample count = %d, want 3", h.GetSampleCount())
	}
	if h.GetSampleSum() != 3.0 {
		t.Errorf("sample sum = %v, want 3.0", h.GetSampleSum())
	}
}

// TestRecordSettings は設定解決とリモート同期のカウンタを検証する。
func TestRecordSettings(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSettingsResolution("remote")
	c.RecordRemoteSync("failure")
	c.RecordRemoteSync("failure")

	if v := findMetric(t, reg, "samkitchen_settings_resolution_total", map[string]string{"source": "remote"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("resolution = %v, want 1", v)
	}
	if v := findMetric(t, reg, "samkitchen_settings_remote_sync_total", map[string]string{"outcome": "failure"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("remote sync failure = %v, want 2", v)
	}
}

// TestRecordAdImport は取り込みの成否と件数を検証する。
func TestRecordAdImport(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAdImport(3, nil)
	c.RecordAdImport(0, errors.New("boom"))

	if v := findMetric(t, reg, "samkitchen_ad_import_total", map[string]string{"outcome": "success"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("success = %v, want 1", v)
	}
	if v := findMetric(t, reg, "samkitchen_ad_import_total", map[string]string{"outcome": "failure"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("failure = %v, want 1", v)
	}
	if v := findMetric(t, reg, "samkitchen_ads_imported_total", nil).GetCounter().GetValue(); v != 3 {
		t.Errorf("ads imported = %v, want 3", v)
	}
}

// TestRecordHTTPStatus はステータスコード別のカウンタを検証する。
func TestRecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(502)

	if v := findMetric(t, reg, "samkitchen_http_status_total", map[string]string{"status_code": "200"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("200 = %v, want 2", v)
	}
	if v := findMetric(t, reg, "samkitchen_http_status_total", map[string]string{"status_code": "502"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("502 = %v, want 1", v)
	}
}
