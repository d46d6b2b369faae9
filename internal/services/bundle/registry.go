package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"MandiCast/pkg/logger"
)

// ErrNotFound reports a commodity with no bundle on disk and no alias
// pointing at one.
var ErrNotFound = errors.New("model bundle not found")

// ModelInfo is the per-commodity summary exposed on the ops surface.
type ModelInfo struct {
	Commodity    string    `json:"commodity"`
	Unit         string    `json:"unit"`
	Trees        int       `json:"trees"`
	Features     int       `json:"features"`
	Markets      int       `json:"markets"`
	FreshMarkets int       `json:"fresh_markets"`
	MAE          float64   `json:"mae"`
	MAPE         float64   `json:"mape"`
	BuiltAt      time.Time `json:"built_at"`
}

// Registry loads commodity bundles from a models directory and caches
// them for the life of the process. Lookups are case-insensitive and
// follow the alias table in each bundle's config, so "rice" finds the
// paddy bundle.
type Registry struct {
	dir string
	log *logger.Logger

	mu      sync.RWMutex
	bundles map[string]*Bundle
	aliases map[string]string
}

func NewRegistry(dir string, log *logger.Logger) *Registry {
	return &Registry{
		dir:     dir,
		log:     log,
		bundles: map[string]*Bundle{},
		aliases: map[string]string{},
	}
}

// Preload eagerly loads the named commodities. Any failure is fatal to
// the caller; a half-loaded catalogue is worse than refusing to start.
func (r *Registry) Preload(names []string) error {
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return fmt.Errorf("preload %s: %w", name, err)
		}
	}
	return nil
}

// Get returns the bundle for a commodity, loading it on first use.
func (r *Registry) Get(name string) (*Bundle, error) {
	key := normalize(name)

	r.mu.RLock()
	if canon, ok := r.aliases[key]; ok {
		key = canon
	}
	b, ok := r.bundles[key]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if canon, ok := r.aliases[key]; ok {
		key = canon
	}
	if b, ok := r.bundles[key]; ok {
		return b, nil
	}

	b, err := Load(filepath.Join(r.dir, key))
	if err != nil {
		// No directory named after the key. The name may still be an
		// alias declared by a bundle that has not loaded yet.
		dir, ok := r.scanForAlias(key)
		if !ok {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
			}
			return nil, fmt.Errorf("load bundle %s: %w", key, err)
		}
		if b, err = Load(filepath.Join(r.dir, dir)); err != nil {
			return nil, fmt.Errorf("load bundle %s: %w", dir, err)
		}
	}
	canon := normalize(b.Config.Name)
	r.bundles[canon] = b
	for _, a := range b.Config.Aliases {
		r.aliases[normalize(a)] = canon
	}
	if key != canon {
		r.aliases[key] = canon
	}
	r.log.Info("model bundle loaded",
		logger.String("commodity", b.Config.Name),
		logger.Int("trees", len(b.Model.Trees)),
		logger.Int("features", len(b.Features)),
		logger.Int("markets", len(b.Markets)))
	return b, nil
}

// scanForAlias walks the commodity directories reading only their
// configs, looking for one that declares name as its canonical name or
// an alias. Returns the directory to load from. Caller holds mu.
func (r *Registry) scanForAlias(name string) (string, bool) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() || normalize(e.Name()) == name {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.dir, e.Name(), fileConfig))
		if err != nil {
			continue
		}
		var cfg CommodityConfig
		if yaml.Unmarshal(raw, &cfg) != nil {
			continue
		}
		if normalize(cfg.Name) == name {
			return e.Name(), true
		}
		for _, a := range cfg.Aliases {
			if normalize(a) == name {
				return e.Name(), true
			}
		}
	}
	return "", false
}

// Commodities lists the commodity directories present on disk, loaded
// or not.
func (r *Registry) Commodities() []string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.log.Warn("read models dir", logger.Error(err))
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// Info summarises every loadable bundle for the ops endpoint.
func (r *Registry) Info(asOf time.Time) []ModelInfo {
	var out []ModelInfo
	for _, name := range r.Commodities() {
		b, err := r.Get(name)
		if err != nil {
			r.log.Warn("skip bundle in listing", logger.String("commodity", name), logger.Error(err))
			continue
		}
		out = append(out, ModelInfo{
			Commodity:    b.Config.Name,
			Unit:         b.Config.Unit,
			Trees:        len(b.Model.Trees),
			Features:     len(b.Features),
			Markets:      len(b.Markets),
			FreshMarkets: len(b.FreshMarkets(asOf)),
			MAE:          b.Performance.MAE,
			MAPE:         b.Performance.MAPE,
			BuiltAt:      b.Performance.BuiltAt,
		})
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
