package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from TOML strings like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// PreservationTuning controls the integrity checkpoint flow.
type PreservationTuning struct {
	Period             Duration `toml:"period"`
	HealingProbability float64  `toml:"healing_probability"`
}

// KnowledgeTuning controls the opportunity scanning flow.
type KnowledgeTuning struct {
	Period               Duration `toml:"period"`
	DiscoveryProbability float64  `toml:"discovery_probability"`
}

// ProphecyTuning controls the risk index flow.
type ProphecyTuning struct {
	Period           Duration `toml:"period"`
	MaxDelta         float64  `toml:"max_delta"`
	AlertThreshold   float64  `toml:"alert_threshold"`
	AlertProbability float64  `toml:"alert_probability"`
}

// Tuning holds the periods and probability constants of the three flows.
// None of these values are load-bearing; they are operator knobs.
type Tuning struct {
	Preservation PreservationTuning `toml:"preservation"`
	Knowledge    KnowledgeTuning    `toml:"knowledge"`
	Prophecy     ProphecyTuning     `toml:"prophecy"`
}

// DefaultTuning returns the built-in flow tuning. The risk flow ticks fastest.
func DefaultTuning() Tuning {
	return Tuning{
		Preservation: PreservationTuning{
			Period:             Duration{5 * time.Second},
			HealingProbability: 0.1,
		},
		Knowledge: KnowledgeTuning{
			Period:               Duration{8 * time.Second},
			DiscoveryProbability: 0.2,
		},
		Prophecy: ProphecyTuning{
			Period:           Duration{3 * time.Second},
			MaxDelta:         5,
			AlertThreshold:   70,
			AlertProbability: 0.3,
		},
	}
}

// LoadTuning decodes a TOML file on top of DefaultTuning. Keys absent from
// the file keep their defaults.
//
//	[prophecy]
//	period = "2s"
//	alert_threshold = 80
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return Tuning{}, fmt.Errorf("decoding tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

// Validate checks that periods are positive and probabilities lie in [0,1].
func (t Tuning) Validate() error {
	periods := map[string]time.Duration{
		"preservation.period": t.Preservation.Period.Duration,
		"knowledge.period":    t.Knowledge.Period.Duration,
		"prophecy.period":     t.Prophecy.Period.Duration,
	}
	for name, d := range periods {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	probs := map[string]float64{
		"preservation.healing_probability": t.Preservation.HealingProbability,
		"knowledge.discovery_probability":  t.Knowledge.DiscoveryProbability,
		"prophecy.alert_probability":       t.Prophecy.AlertProbability,
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, p)
		}
	}
	if t.Prophecy.MaxDelta < 0 {
		return fmt.Errorf("prophecy.max_delta must not be negative, got %v", t.Prophecy.MaxDelta)
	}
	return nil
}
