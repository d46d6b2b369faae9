package bundle

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"MandiCast/pkg/util"
)

// Artifact file names within a commodity directory.
const (
	fileConfig      = "commodity.yaml"
	fileModel       = "model.json"
	fileFeatures    = "feature_list.json"
	fileMarkets     = "market_categories.json"
	fileBias        = "bias_correction.json"
	fileMedians     = "market_month_medians.csv"
	fileLags        = "price_lags_latest.csv"
	filePerformance = "model_performance.json"
	fileFestivals   = "festival_calendar.json"
)

// Load reads every artifact for one commodity from dir. The config,
// model, feature list and market vocabulary are mandatory; the sidecar
// files degrade to empty defaults when absent.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{
		Bias:    map[int]float64{},
		Medians: map[string]map[int]float64{},
		Lags:    map[string]LagSnapshot{},
	}

	raw, err := os.ReadFile(filepath.Join(dir, fileConfig))
	if err != nil {
		return nil, fmt.Errorf("read commodity config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &b.Config); err != nil {
		return nil, fmt.Errorf("parse commodity config: %w", err)
	}
	if b.Config.Name == "" {
		return nil, fmt.Errorf("commodity config %s: missing name", dir)
	}

	if err := readJSON(filepath.Join(dir, fileModel), &b.Model); err != nil {
		return nil, err
	}
	if b.Model == nil || len(b.Model.Trees) == 0 {
		return nil, fmt.Errorf("model for %s has no trees", b.Config.Name)
	}
	if err := readJSON(filepath.Join(dir, fileFeatures), &b.Features); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, fileMarkets), &b.Markets); err != nil {
		return nil, err
	}
	if len(b.Markets) == 0 {
		return nil, fmt.Errorf("market vocabulary for %s is empty", b.Config.Name)
	}

	if err := loadBias(filepath.Join(dir, fileBias), b.Bias); err != nil {
		return nil, err
	}
	if err := loadMedians(filepath.Join(dir, fileMedians), b.Medians); err != nil {
		return nil, err
	}
	if err := loadLags(filepath.Join(dir, fileLags), b.Lags); err != nil {
		return nil, err
	}
	if err := readOptionalJSON(filepath.Join(dir, fileFestivals), &b.Festivals); err != nil {
		return nil, err
	}
	if err := readOptionalJSON(filepath.Join(dir, filePerformance), &b.Performance); err != nil {
		return nil, err
	}

	return b, nil
}

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readOptionalJSON(path string, out any) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return readJSON(path, out)
}

func loadBias(path string, into map[int]float64) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	var byMonth map[string]float64
	if err := readJSON(path, &byMonth); err != nil {
		return err
	}
	for k, v := range byMonth {
		m, err := strconv.Atoi(k)
		if err != nil || m < 1 || m > 12 {
			return fmt.Errorf("bias correction: bad month %q", k)
		}
		into[m] = v
	}
	return nil
}

// loadMedians reads rows of market,month,median.
func loadMedians(path string, into map[string]map[int]float64) error {
	rows, err := readCSV(path)
	if err != nil || rows == nil {
		return err
	}
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		month, err := strconv.Atoi(row[1])
		if err != nil {
			return fmt.Errorf("medians: bad month %q", row[1])
		}
		med, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return fmt.Errorf("medians: bad value %q", row[2])
		}
		if into[row[0]] == nil {
			into[row[0]] = map[int]float64{}
		}
		into[row[0]][month] = med
	}
	return nil
}

// loadLags reads rows of market,lag_days,price,latest_date.
func loadLags(path string, into map[string]LagSnapshot) error {
	rows, err := readCSV(path)
	if err != nil || rows == nil {
		return err
	}
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		lag, err := strconv.Atoi(row[1])
		if err != nil {
			return fmt.Errorf("lags: bad horizon %q", row[1])
		}
		price, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return fmt.Errorf("lags: bad price %q", row[2])
		}
		latest, ok := util.ParseTime(row[3])
		if !ok {
			return fmt.Errorf("lags: bad date %q", row[3])
		}
		snap, ok := into[row[0]]
		if !ok {
			snap = LagSnapshot{Prices: map[int]float64{}}
		}
		snap.Prices[lag] = price
		if latest.After(snap.LatestDate) {
			snap.LatestDate = latest
		}
		into[row[0]] = snap
	}
	return nil
}

// readCSV returns data rows with the header stripped, or nil when the
// file does not exist.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}
