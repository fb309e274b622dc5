// Package presets holds the presentation timing values the engine reads
// but never computes: named animation durations, configured as strings
// like "400ms". A Store keeps the current set atomically swappable so a
// config watcher can hot-reload timings while animations are running;
// each animation reads the set once, at its start.
package presets

import (
	"fmt"
	"time"
)

// Durations is one named-duration set.
type Durations struct {
	// Appear is the enter animation length for newly added rows.
	Appear time.Duration
	// Remove is the collapse animation length for removed rows.
	Remove time.Duration
	// Hide is the panel slide-out length; afterHide fires when it ends.
	Hide time.Duration
	// InsertDelay defers row mounting so a simultaneous panel slide-in
	// stays visually smooth. Tunable, not a correctness value.
	InsertDelay time.Duration
	// FrameInterval is the engine's frame boundary spacing.
	FrameInterval time.Duration
}

// Default mirrors the stylesheet's stock animation timings.
func Default() Durations {
	return Durations{
		Appear:        400 * time.Millisecond,
		Remove:        400 * time.Millisecond,
		Hide:          300 * time.Millisecond,
		InsertDelay:   120 * time.Millisecond,
		FrameInterval: 16 * time.Millisecond,
	}
}

// Raw is the config-file form: duration strings, all optional.
type Raw struct {
	Appear        string `yaml:"appear"`
	Remove        string `yaml:"remove"`
	Hide          string `yaml:"hide"`
	InsertDelay   string `yaml:"insert_delay"`
	FrameInterval string `yaml:"frame_interval"`
}

// Parse resolves a Raw block against the defaults. Empty fields keep
// their default; malformed or negative values are errors.
func Parse(raw Raw) (Durations, error) {
	d := Default()
	fields := []struct {
		name string
		val  string
		dst  *time.Duration
	}{
		{"appear", raw.Appear, &d.Appear},
		{"remove", raw.Remove, &d.Remove},
		{"hide", raw.Hide, &d.Hide},
		{"insert_delay", raw.InsertDelay, &d.InsertDelay},
		{"frame_interval", raw.FrameInterval, &d.FrameInterval},
	}
	for _, f := range fields {
		if f.val == "" {
			continue
		}
		parsed, err := time.ParseDuration(f.val)
		if err != nil {
			return d, fmt.Errorf("presets: %s: %w", f.name, err)
		}
		if parsed < 0 {
			return d, fmt.Errorf("presets: %s: negative duration %q", f.name, f.val)
		}
		*f.dst = parsed
	}
	return d, nil
}
