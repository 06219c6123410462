package ranking

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Weight keys accepted in ranking_weights.
const (
	KeyQuality        = "quality"
	KeyImpact         = "impact"
	KeyInnovation     = "innovation"
	KeyCodeBonus      = "code_availability_bonus"
	KeyAbstractLength = "abstract_length_bonus"
	KeyRecencyMax     = "recency_bonus_max"
	KeyViews          = "views"
	KeyLikes          = "likes"
)

// Weights are the per-signal contributions of the additive score.
type Weights struct {
	Quality        float64 `json:"quality"`
	Impact         float64 `json:"impact"`
	Innovation     float64 `json:"innovation"`
	CodeBonus      float64 `json:"code_availability_bonus"`
	AbstractLength float64 `json:"abstract_length_bonus"`
	RecencyMax     float64 `json:"recency_bonus_max"`
	Views          float64 `json:"views"`
	Likes          float64 `json:"likes"`
}

// DefaultWeights documents the value used for every absent or malformed key.
func DefaultWeights() Weights {
	return Weights{
		Quality:        1.0,
		Impact:         1.5,
		Innovation:     1.2,
		CodeBonus:      2.0,
		AbstractLength: 0.5,
		RecencyMax:     3.0,
		Views:          1.0,
		Likes:          0.5,
	}
}

var keyAliases = map[string]string{
	"quality_indicators":    KeyQuality,
	"impact_indicators":     KeyImpact,
	"innovation_indicators": KeyInnovation,
	"code_bonus":            KeyCodeBonus,
	"recency":               KeyRecencyMax,
}

// WeightsFrom overlays raw configuration values on the defaults. Values that
// are not finite non-negative numbers keep their default and are logged.
func WeightsFrom(raw map[string]any, logger *slog.Logger) Weights {
	w := DefaultWeights()
	slots := map[string]*float64{
		KeyQuality:        &w.Quality,
		KeyImpact:         &w.Impact,
		KeyInnovation:     &w.Innovation,
		KeyCodeBonus:      &w.CodeBonus,
		KeyAbstractLength: &w.AbstractLength,
		KeyRecencyMax:     &w.RecencyMax,
		KeyViews:          &w.Views,
		KeyLikes:          &w.Likes,
	}

	for key, value := range raw {
		name := strings.ToLower(strings.TrimSpace(key))
		if alias, ok := keyAliases[name]; ok {
			name = alias
		}
		slot, ok := slots[name]
		if !ok {
			if logger != nil {
				logger.Warn("ignoring unknown ranking weight", "key", key)
			}
			continue
		}
		f, ok := toFloat(value)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			if logger != nil {
				logger.Warn("malformed ranking weight, using default", "key", key, "value", value, "default", *slot)
			}
			continue
		}
		*slot = f
	}
	return w
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
