package bundle

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `name: groundnut
unit: quintal
aliases: [peanut]
calendar: yearly
lag_days: [7, 14, 30]
lag_alpha: 0.3
max_daily_pct: 3.0
loss_per_day: 0.25
floor:
  msp: 6377
  fraction: 0.85
seasons:
  - {name: harvest_season, peak_month: 11, sharpness: 2.0}
`

const testModelJSON = `{
  "base_score": 5000,
  "trees": [
    {"nodes": [
      {"feature": 0, "threshold": 0.5, "left": 1, "right": 2},
      {"leaf": true, "value": 100},
      {"leaf": true, "value": 200}
    ]}
  ]
}`

// writeArtifacts lays out a loadable commodity directory.
func writeArtifacts(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		fileConfig:      testConfigYAML,
		fileModel:       testModelJSON,
		fileFeatures:    `["doy_sin", "price_lag_7", "market_cat"]`,
		fileMarkets:     `["Mysuru APMC", "Hubballi"]`,
		fileBias:        `{"1": -50.5, "11": 120}`,
		fileMedians:     "market,month,median\nMysuru APMC,1,5100\nMysuru APMC,2,5150\n",
		fileLags:        "market,lag_days,price,latest_date\nMysuru APMC,7,5200,2025-06-01\nMysuru APMC,14,5100,2025-05-25\n",
		filePerformance: `{"mae": 182.4, "mape": 3.6, "cv_confidence_pct": 88, "built_at": "2025-05-01T00:00:00Z"}`,
		fileFestivals:   `[{"name": "Deepavali", "month": 10, "day": 20, "boost_pct": 8, "window_days": 5}]`,
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestLoadFullArtifactSet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "groundnut")
	writeArtifacts(t, dir)

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Config.Name != "groundnut" || b.Config.LagAlpha != 0.3 {
		t.Fatalf("unexpected config %+v", b.Config)
	}
	if got := b.Config.Floor.Value(); got != 6377*0.85 {
		t.Fatalf("floor %v", got)
	}
	if len(b.Model.Trees) != 1 || b.Model.BaseScore != 5000 {
		t.Fatalf("unexpected model %+v", b.Model)
	}
	if len(b.Features) != 3 || len(b.Markets) != 2 {
		t.Fatalf("features %v markets %v", b.Features, b.Markets)
	}
	if b.Bias[1] != -50.5 || b.Bias[11] != 120 {
		t.Fatalf("bias %v", b.Bias)
	}
	if b.Medians["Mysuru APMC"][2] != 5150 {
		t.Fatalf("medians %v", b.Medians)
	}
	snap := b.Lags["Mysuru APMC"]
	if snap.Prices[7] != 5200 || snap.Prices[14] != 5100 {
		t.Fatalf("lags %v", snap.Prices)
	}
	if snap.LatestDate.Format("2006-01-02") != "2025-06-01" {
		t.Fatalf("latest date %v", snap.LatestDate)
	}
	if b.Performance.CVConfidencePct != 88 {
		t.Fatalf("performance %+v", b.Performance)
	}
	if len(b.Festivals) != 1 || b.Festivals[0].BoostPct != 8 {
		t.Fatalf("festivals %v", b.Festivals)
	}
}

func TestLoadMissingModelFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "groundnut")
	writeArtifacts(t, dir)
	if err := os.Remove(filepath.Join(dir, fileModel)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error without model artifact")
	}
}

func TestLoadSidecarsOptional(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "groundnut")
	writeArtifacts(t, dir)
	for _, name := range []string{fileBias, fileMedians, fileLags, filePerformance, fileFestivals} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			t.Fatalf("remove %s: %v", name, err)
		}
	}
	b, err := Load(dir)
	if err != nil {
		t.Fatalf("load without sidecars: %v", err)
	}
	if len(b.Bias) != 0 || len(b.Lags) != 0 {
		t.Fatalf("expected empty sidecars")
	}
}

func TestRegistryCachesAndAliases(t *testing.T) {
	root := t.TempDir()
	writeArtifacts(t, filepath.Join(root, "groundnut"))

	r := NewRegistry(root, testLogger(t))
	b1, err := r.Get("Groundnut")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b2, err := r.Get("peanut")
	if err != nil {
		t.Fatalf("get alias: %v", err)
	}
	if b1 != b2 {
		t.Fatalf("alias lookup should hit the same cached bundle")
	}
	if _, err := r.Get("unknown"); err == nil {
		t.Fatalf("expected error for unknown commodity")
	}
	infos := r.Info(b1.Lags["Mysuru APMC"].LatestDate)
	if len(infos) != 1 || infos[0].Commodity != "groundnut" {
		t.Fatalf("unexpected info %+v", infos)
	}
}

func TestRegistryResolvesAliasBeforeCanonicalLoad(t *testing.T) {
	root := t.TempDir()
	writeArtifacts(t, filepath.Join(root, "groundnut"))

	r := NewRegistry(root, testLogger(t))
	b, err := r.Get("peanut")
	if err != nil {
		t.Fatalf("cold alias get: %v", err)
	}
	if b.Config.Name != "groundnut" {
		t.Fatalf("alias resolved to %q", b.Config.Name)
	}
	b2, err := r.Get("Peanut")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if b != b2 {
		t.Fatalf("alias lookup should hit the cached bundle")
	}
}
