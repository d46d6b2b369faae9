package bundle

import (
	"strings"
	"time"
)

// StaleDays is how long a market's lag snapshot stays usable. Markets
// whose newest observed price is older than this are dropped from the
// fresh-market listing and fall back to median features.
const StaleDays = 60

// FloorConfig describes the minimum-price clamp for a commodity.
// When MSP and Fraction are both set the floor is MSP*Fraction,
// otherwise Absolute is used directly. A zero value disables the clamp.
type FloorConfig struct {
	MSP      float64 `yaml:"msp"`
	Fraction float64 `yaml:"fraction"`
	Absolute float64 `yaml:"absolute"`
}

// Value resolves the effective floor price.
func (f FloorConfig) Value() float64 {
	if f.MSP > 0 && f.Fraction > 0 {
		return f.MSP * f.Fraction
	}
	return f.Absolute
}

// SeasonalSignal is one cosine bump feature centred on a peak month.
type SeasonalSignal struct {
	Name      string  `yaml:"name"`
	PeakMonth float64 `yaml:"peak_month"`
	Sharpness float64 `yaml:"sharpness"`
}

// WeatherNormals holds per-month climate normals, index 0 is January.
// Values are pre-normalised to [0,1] at training time.
type WeatherNormals struct {
	Rainfall [12]float64 `yaml:"rainfall"`
	Tempmax  [12]float64 `yaml:"tempmax"`
}

// CommodityConfig is the per-commodity tuning block loaded from
// commodity.yaml. One forecasting engine serves every commodity; all
// behavioural differences between them live here.
type CommodityConfig struct {
	Name         string           `yaml:"name"`
	Unit         string           `yaml:"unit"`
	Aliases      []string         `yaml:"aliases"`
	Calendar     string           `yaml:"calendar"` // "yearly" or "weekly"
	LagDays      []int            `yaml:"lag_days"`
	LagAlpha     float64          `yaml:"lag_alpha"`
	DefaultPrice float64          `yaml:"default_price"`
	MaxDailyPct  float64          `yaml:"max_daily_pct"`
	LossPerDay   float64          `yaml:"loss_per_day"`
	Floor        FloorConfig      `yaml:"floor"`
	Seasons      []SeasonalSignal `yaml:"seasons"`
	Weather      *WeatherNormals  `yaml:"weather"`
}

// Festival is one calendar entry with its demand boost. A festival is
// active for dates within WindowDays of its anchor date.
type Festival struct {
	Name       string  `json:"name"`
	Month      int     `json:"month"`
	Day        int     `json:"day"`
	BoostPct   float64 `json:"boost_pct"`
	WindowDays int     `json:"window_days"`
}

// Performance is the training-time evaluation summary shipped with the
// model artifacts.
type Performance struct {
	MAE             float64   `json:"mae"`
	MAPE            float64   `json:"mape"`
	CVConfidencePct float64   `json:"cv_confidence_pct"`
	TrainRows       int       `json:"train_rows"`
	BuiltAt         time.Time `json:"built_at"`
}

// LagSnapshot is the newest observed prices for one market, keyed by
// lag horizon in days, with the date of the most recent observation.
type LagSnapshot struct {
	Prices     map[int]float64
	LatestDate time.Time
}

// Bundle is everything needed to forecast one commodity: the boosted
// ensemble plus every sidecar artifact it was trained against.
type Bundle struct {
	Config      CommodityConfig
	Model       *Ensemble
	Features    []string
	Markets     []string
	Bias        map[int]float64
	Medians     map[string]map[int]float64
	Lags        map[string]LagSnapshot
	Festivals   []Festival
	Performance Performance
}

// ResolveMarket maps a caller-supplied market name onto the training
// vocabulary: exact match first, then a substring match on the first
// token, then the first vocabulary entry as a last resort. The returned
// index is the categorical encoding used in the feature vector.
func (b *Bundle) ResolveMarket(name string) (string, int) {
	norm := strings.ToLower(strings.TrimSpace(name))
	for i, m := range b.Markets {
		if strings.ToLower(m) == norm {
			return m, i
		}
	}
	if tok := firstToken(norm); tok != "" {
		for i, m := range b.Markets {
			if strings.Contains(strings.ToLower(m), tok) {
				return m, i
			}
		}
	}
	if len(b.Markets) == 0 {
		return "", 0
	}
	return b.Markets[0], 0
}

func firstToken(s string) string {
	for _, sep := range []string{" ", "-", "_", "/"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i]
		}
	}
	return s
}

// FestivalFor returns the festival active on the given date, if any.
func (b *Bundle) FestivalFor(date time.Time) (Festival, bool) {
	for _, f := range b.Festivals {
		anchor := time.Date(date.Year(), time.Month(f.Month), f.Day, 0, 0, 0, 0, date.Location())
		diff := date.Sub(anchor).Hours() / 24
		if diff < 0 {
			diff = -diff
		}
		if diff <= float64(f.WindowDays) {
			return f, true
		}
	}
	return Festival{}, false
}

// SeasonFor labels the date with the strongest active seasonal signal,
// or "regular" when none is in effect.
func (b *Bundle) SeasonFor(date time.Time) string {
	best := ""
	bestVal := 0.0
	fm := FractionalMonth(date)
	for _, s := range b.Config.Seasons {
		v := SeasonalValue(fm, s.PeakMonth, s.Sharpness)
		if v > bestVal {
			bestVal = v
			best = s.Name
		}
	}
	if best == "" {
		return "regular"
	}
	return best
}

// MarketFresh reports whether the market's lag snapshot is recent
// enough, relative to asOf, to use for lag features.
func (b *Bundle) MarketFresh(market string, asOf time.Time) bool {
	snap, ok := b.Lags[market]
	if !ok || snap.LatestDate.IsZero() {
		return false
	}
	return asOf.Sub(snap.LatestDate).Hours()/24 <= StaleDays
}

// FreshMarkets lists the markets usable as of the given date.
func (b *Bundle) FreshMarkets(asOf time.Time) []string {
	out := make([]string, 0, len(b.Markets))
	for _, m := range b.Markets {
		if b.MarketFresh(m, asOf) {
			out = append(out, m)
		}
	}
	return out
}
