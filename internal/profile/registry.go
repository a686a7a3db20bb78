package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"arabica/internal/indicator"
	"arabica/internal/logger"
	"arabica/internal/strategy"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Preset is a named, reusable parameter set. A run copies the preset at
// start; later edits to the file only affect runs started afterwards.
type Preset struct {
	ID          string           `yaml:"id"`
	Description string           `yaml:"description"`
	Strategy    strategy.Config  `yaml:"strategy"`
	Indicator   indicator.Params `yaml:"indicator"`
}

type fileConfig struct {
	Profiles map[string]Preset `yaml:"profiles"`
}

// Snapshot is an immutable view of the loaded presets.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Presets  map[string]Preset
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Registry loads presets from a YAML file and hot-reloads on change. A
// reload that fails validation keeps the previous snapshot.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile registry requires a path")
	}
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("watch profiles %s: %w", path, err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("[profile] reload failed, keeping previous presets: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

// Snapshot returns a copy of the current preset set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Preset returns the preset registered under id.
func (r *Registry) Preset(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Presets[strings.TrimSpace(id)]
	return p, ok
}

// IDs lists the registered preset names, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshot.Presets))
	for id := range r.snapshot.Presets {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers a listener for future reloads.
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	presets, err := loadPresetFile(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Presets:  presets,
	}
	r.mu.Unlock()
	logger.Infof("[profile] loaded %d presets from %s", len(presets), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("[profile] listener panic: %v", rec)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func loadPresetFile(path string) (map[string]Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	presets := make(map[string]Preset, len(cfg.Profiles))
	for name, p := range cfg.Profiles {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = strings.TrimSpace(name)
		}
		if p.Indicator == (indicator.Params{}) {
			p.Indicator = indicator.DefaultParams()
		}
		fillStrategyDefaults(&p.Strategy)
		if err := p.Strategy.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.ID, err)
		}
		if err := p.Indicator.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.ID, err)
		}
		presets[p.ID] = p
	}
	return presets, nil
}

const (
	defaultRiskFraction       = 0.01
	defaultTPRMultiple        = 2.0
	defaultTrailingATRMult    = 4.0
	defaultADXThreshold       = 19.0
	defaultContractMultiplier = 1.0
	defaultMinBars            = 200
	defaultMaxTradesPerDay    = 5
	defaultPartialExitRatio   = 0.3
)

// fillStrategyDefaults fills omitted strategy fields the same way the app
// config does. FixedNotional stays as written: zero means risk-based sizing.
func fillStrategyDefaults(c *strategy.Config) {
	if c.RiskFraction == 0 {
		c.RiskFraction = defaultRiskFraction
	}
	if c.TPRMultiple == 0 {
		c.TPRMultiple = defaultTPRMultiple
	}
	if c.TrailingATRMult == 0 {
		c.TrailingATRMult = defaultTrailingATRMult
	}
	if c.ADXThreshold == 0 {
		c.ADXThreshold = defaultADXThreshold
	}
	if c.ContractMultiplier == 0 {
		c.ContractMultiplier = defaultContractMultiplier
	}
	if c.MinBars == 0 {
		c.MinBars = defaultMinBars
	}
	if c.MaxTradesPerDay == 0 {
		c.MaxTradesPerDay = defaultMaxTradesPerDay
	}
	if c.PartialExitRatio == 0 {
		c.PartialExitRatio = defaultPartialExitRatio
	}
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Presets:  make(map[string]Preset, len(src.Presets)),
	}
	for id, p := range src.Presets {
		dst.Presets[id] = p
	}
	return dst
}

// jsonRoundtrip converts yaml-decoded values into json-decoded shapes so the
// schema validator sees the types it expects.
func jsonRoundtrip(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
