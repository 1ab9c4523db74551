package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig represents the tunable parameters of the decision core. All
// fields are pointers so that a partial JSON file only overrides what it
// names; the Get* methods fall back to the built-in defaults.
type TuningConfig struct {
	// Track registry params
	MaxTracks             *int     `json:"max_tracks,omitempty"`
	MaxDetectionsPerFrame *int     `json:"max_detections_per_frame,omitempty"`
	GhostMaxAge           *int     `json:"ghost_max_age,omitempty"`
	HitsToConfirm         *int     `json:"hits_to_confirm,omitempty"`
	IoUThreshold          *float64 `json:"iou_threshold,omitempty"`
	ReIDThreshold         *float64 `json:"reid_threshold,omitempty"`
	EmbeddingAlpha        *float64 `json:"embedding_alpha,omitempty"`

	// Behavior params
	ForecastHorizons []float64 `json:"forecast_horizons,omitempty"`
	ScenarioSpread   *float64  `json:"scenario_spread,omitempty"`
	IntentAlpha      *float64  `json:"intent_alpha,omitempty"`
	RiskAlpha        *float64  `json:"risk_alpha,omitempty"`
	MaxTracksTTC     *int      `json:"max_tracks_ttc,omitempty"`
	BaseSafetyMargin *float64  `json:"base_safety_margin,omitempty"`

	// Safety params
	NominalThreshold  *float64 `json:"nominal_threshold,omitempty"`
	DegradedThreshold *float64 `json:"degraded_threshold,omitempty"`

	// Audit params
	AuditDBPath     *string `json:"audit_db_path,omitempty"`
	AuditBufferSize *int    `json:"audit_buffer_size,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted from
// the file retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values are in range.
func (c *TuningConfig) Validate() error {
	if c.MaxTracks != nil && *c.MaxTracks <= 0 {
		return fmt.Errorf("max_tracks must be positive, got %d", *c.MaxTracks)
	}
	if c.MaxDetectionsPerFrame != nil && *c.MaxDetectionsPerFrame <= 0 {
		return fmt.Errorf("max_detections_per_frame must be positive, got %d", *c.MaxDetectionsPerFrame)
	}
	if c.GhostMaxAge != nil && *c.GhostMaxAge <= 0 {
		return fmt.Errorf("ghost_max_age must be positive, got %d", *c.GhostMaxAge)
	}
	if c.HitsToConfirm != nil && *c.HitsToConfirm <= 0 {
		return fmt.Errorf("hits_to_confirm must be positive, got %d", *c.HitsToConfirm)
	}
	if c.IoUThreshold != nil {
		if *c.IoUThreshold < 0 || *c.IoUThreshold > 1 {
			return fmt.Errorf("iou_threshold must be between 0 and 1, got %f", *c.IoUThreshold)
		}
	}
	if c.ReIDThreshold != nil {
		if *c.ReIDThreshold < 0 || *c.ReIDThreshold > 2 {
			return fmt.Errorf("reid_threshold must be between 0 and 2, got %f", *c.ReIDThreshold)
		}
	}
	if c.EmbeddingAlpha != nil {
		if *c.EmbeddingAlpha <= 0 || *c.EmbeddingAlpha > 1 {
			return fmt.Errorf("embedding_alpha must be in (0,1], got %f", *c.EmbeddingAlpha)
		}
	}
	for _, h := range c.ForecastHorizons {
		if h <= 0 {
			return fmt.Errorf("forecast_horizons must be positive, got %f", h)
		}
	}
	if c.ScenarioSpread != nil {
		if *c.ScenarioSpread <= 0 || *c.ScenarioSpread >= 1 {
			return fmt.Errorf("scenario_spread must be in (0,1), got %f", *c.ScenarioSpread)
		}
	}
	if c.IntentAlpha != nil {
		if *c.IntentAlpha <= 0 || *c.IntentAlpha > 1 {
			return fmt.Errorf("intent_alpha must be in (0,1], got %f", *c.IntentAlpha)
		}
	}
	if c.RiskAlpha != nil {
		if *c.RiskAlpha <= 0 || *c.RiskAlpha > 1 {
			return fmt.Errorf("risk_alpha must be in (0,1], got %f", *c.RiskAlpha)
		}
	}
	if c.MaxTracksTTC != nil && *c.MaxTracksTTC <= 0 {
		return fmt.Errorf("max_tracks_ttc must be positive, got %d", *c.MaxTracksTTC)
	}
	if c.BaseSafetyMargin != nil && *c.BaseSafetyMargin <= 0 {
		return fmt.Errorf("base_safety_margin must be positive, got %f", *c.BaseSafetyMargin)
	}
	if c.NominalThreshold != nil {
		if *c.NominalThreshold <= 0 || *c.NominalThreshold > 1 {
			return fmt.Errorf("nominal_threshold must be in (0,1], got %f", *c.NominalThreshold)
		}
	}
	if c.DegradedThreshold != nil {
		if *c.DegradedThreshold <= 0 || *c.DegradedThreshold > 1 {
			return fmt.Errorf("degraded_threshold must be in (0,1], got %f", *c.DegradedThreshold)
		}
	}
	if c.NominalThreshold != nil && c.DegradedThreshold != nil {
		if *c.DegradedThreshold >= *c.NominalThreshold {
			return fmt.Errorf("degraded_threshold (%f) must be below nominal_threshold (%f)",
				*c.DegradedThreshold, *c.NominalThreshold)
		}
	}
	if c.AuditBufferSize != nil && *c.AuditBufferSize <= 0 {
		return fmt.Errorf("audit_buffer_size must be positive, got %d", *c.AuditBufferSize)
	}
	return nil
}

func (c *TuningConfig) GetMaxTracks() int {
	if c.MaxTracks == nil {
		return 50 // default
	}
	return *c.MaxTracks
}

func (c *TuningConfig) GetMaxDetectionsPerFrame() int {
	if c.MaxDetectionsPerFrame == nil {
		return 30 // default
	}
	return *c.MaxDetectionsPerFrame
}

func (c *TuningConfig) GetGhostMaxAge() int {
	if c.GhostMaxAge == nil {
		return 30 // default
	}
	return *c.GhostMaxAge
}

func (c *TuningConfig) GetHitsToConfirm() int {
	if c.HitsToConfirm == nil {
		return 3 // default
	}
	return *c.HitsToConfirm
}

func (c *TuningConfig) GetIoUThreshold() float64 {
	if c.IoUThreshold == nil {
		return 0.3 // default
	}
	return *c.IoUThreshold
}

func (c *TuningConfig) GetReIDThreshold() float64 {
	if c.ReIDThreshold == nil {
		return 0.4 // default
	}
	return *c.ReIDThreshold
}

func (c *TuningConfig) GetEmbeddingAlpha() float64 {
	if c.EmbeddingAlpha == nil {
		return 0.7 // default
	}
	return *c.EmbeddingAlpha
}

func (c *TuningConfig) GetForecastHorizons() []float64 {
	if len(c.ForecastHorizons) == 0 {
		return []float64{1, 2, 3, 4, 5} // default
	}
	return c.ForecastHorizons
}

func (c *TuningConfig) GetScenarioSpread() float64 {
	if c.ScenarioSpread == nil {
		return 0.1 // default
	}
	return *c.ScenarioSpread
}

func (c *TuningConfig) GetIntentAlpha() float64 {
	if c.IntentAlpha == nil {
		return 0.7 // default
	}
	return *c.IntentAlpha
}

func (c *TuningConfig) GetRiskAlpha() float64 {
	if c.RiskAlpha == nil {
		return 0.7 // default
	}
	return *c.RiskAlpha
}

func (c *TuningConfig) GetMaxTracksTTC() int {
	if c.MaxTracksTTC == nil {
		return 30 // default
	}
	return *c.MaxTracksTTC
}

func (c *TuningConfig) GetBaseSafetyMargin() float64 {
	if c.BaseSafetyMargin == nil {
		return 5.0 // default
	}
	return *c.BaseSafetyMargin
}

func (c *TuningConfig) GetNominalThreshold() float64 {
	if c.NominalThreshold == nil {
		return 0.80 // default
	}
	return *c.NominalThreshold
}

func (c *TuningConfig) GetDegradedThreshold() float64 {
	if c.DegradedThreshold == nil {
		return 0.40 // default
	}
	return *c.DegradedThreshold
}

func (c *TuningConfig) GetAuditDBPath() string {
	if c.AuditDBPath == nil {
		return "railguard_audit.db" // default
	}
	return *c.AuditDBPath
}

func (c *TuningConfig) GetAuditBufferSize() int {
	if c.AuditBufferSize == nil {
		return 256 // default
	}
	return *c.AuditBufferSize
}
