// Package settings defines the process-wide user preferences that the
// service owns explicitly and passes down the call chain.
package settings

import (
	"fmt"

	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

// Supported languages.
const (
	LangJA = "ja"
	LangEN = "en"
)

// Canvas is the default drawing surface for layouts.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Settings are loaded once, changed only through Save.
type Settings struct {
	Language         string             `json:"language"`
	Model            string             `json:"model,omitempty"`
	Canvas           Canvas             `json:"canvas"`
	EdgeTypes        []network.EdgeType `json:"edgeTypes"`
	SearchAutoSelect bool               `json:"searchAutoSelect"`
}

// Default returns the settings used when nothing was saved yet.
func Default() Settings {
	return Settings{
		Language:         LangJA,
		Canvas:           Canvas{Width: 1000, Height: 800},
		EdgeTypes:        network.EdgeTypes(),
		SearchAutoSelect: true,
	}
}

// Validate checks every field and reports all problems at once.
func (s *Settings) Validate() error {
	var v []string
	switch s.Language {
	case LangJA, LangEN:
	default:
		v = append(v, fmt.Sprintf("language must be %q or %q, got %q", LangJA, LangEN, s.Language))
	}
	if s.Canvas.Width <= 0 || s.Canvas.Height <= 0 {
		v = append(v, "canvas width and height must be positive")
	}
	seen := make(map[network.EdgeType]bool, len(s.EdgeTypes))
	for _, et := range s.EdgeTypes {
		if !et.IsValid() {
			v = append(v, fmt.Sprintf("unknown edge type %q", et))
			continue
		}
		if seen[et] {
			v = append(v, fmt.Sprintf("duplicate edge type %q", et))
		}
		seen[et] = true
	}
	return domain.NewValidationError(domain.ErrInvalidSettings, v)
}

// EdgeToggles turns the enabled list into a lookup map.
func (s *Settings) EdgeToggles() map[network.EdgeType]bool {
	m := make(map[network.EdgeType]bool, len(network.EdgeTypes()))
	for _, et := range network.EdgeTypes() {
		m[et] = false
	}
	for _, et := range s.EdgeTypes {
		m[et] = true
	}
	return m
}
