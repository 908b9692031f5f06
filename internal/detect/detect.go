// Package detect implements the per-frame anomaly-detection pipeline.
//
// Each detector is a stochastic stand-in for a trained vision model: it has
// a fixed trigger probability and draws its bounding box, confidence, and
// severity from per-category configured ranges. The pipeline contract
// (frame + position in, typed findings out, stable per-category value
// ranges) is what a future real detector must satisfy as a drop-in
// replacement.
package detect

import (
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"time"

	"github.com/skyspect/inspection/pkg/core"
)

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min int
	Max int
}

// Sample draws a uniform value from the interval.
func (r IntRange) Sample(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

// Fixed returns an interval containing the single value v.
func Fixed(v int) IntRange {
	return IntRange{Min: v, Max: v}
}

// FloatRange is a half-open real interval [Min, Max).
type FloatRange struct {
	Min float64
	Max float64
}

// Sample draws a uniform value from the interval.
func (r FloatRange) Sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Profile configures one category detector: how often it fires and the
// value ranges its findings are drawn from.
type Profile struct {
	Category           core.AnomalyCategory
	TriggerProbability float64
	BBoxX              IntRange
	BBoxY              IntRange
	BBoxWidth          IntRange
	BBoxHeight         IntRange
	Confidence         FloatRange
	Severities         []core.Severity
}

// DefaultProfiles returns the built-in detector set in registration order.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Category:           core.CategoryCrack,
			TriggerProbability: 0.30,
			BBoxX:              IntRange{50, 550},
			BBoxY:              IntRange{50, 400},
			BBoxWidth:          IntRange{80, 150},
			BBoxHeight:         IntRange{10, 30},
			Confidence:         FloatRange{0.70, 0.95},
			Severities:         []core.Severity{core.SeverityLow, core.SeverityMedium, core.SeverityHigh},
		},
		{
			Category:           core.CategoryRust,
			TriggerProbability: 0.25,
			BBoxX:              IntRange{50, 500},
			BBoxY:              IntRange{50, 350},
			BBoxWidth:          IntRange{40, 100},
			BBoxHeight:         IntRange{40, 100},
			Confidence:         FloatRange{0.60, 0.90},
			Severities:         []core.Severity{core.SeverityLow, core.SeverityMedium},
		},
		{
			Category:           core.CategoryLooseBolt,
			TriggerProbability: 0.15,
			BBoxX:              IntRange{290, 350},
			BBoxY:              IntRange{210, 270},
			BBoxWidth:          Fixed(60),
			BBoxHeight:         Fixed(60),
			Confidence:         FloatRange{0.80, 0.95},
			Severities:         []core.Severity{core.SeverityMedium, core.SeverityHigh, core.SeverityCritical},
		},
		{
			Category:           core.CategoryCorrosion,
			TriggerProbability: 0.20,
			BBoxX:              IntRange{100, 450},
			BBoxY:              IntRange{100, 300},
			BBoxWidth:          IntRange{60, 120},
			BBoxHeight:         IntRange{60, 120},
			Confidence:         FloatRange{0.65, 0.85},
			Severities:         []core.Severity{core.SeverityLow, core.SeverityMedium, core.SeverityHigh},
		},
	}
}

// validate catches configuration errors at construction time rather than
// at detection time.
func (p Profile) validate() error {
	if !p.Category.Valid() {
		return fmt.Errorf("unknown category %q", p.Category)
	}
	if p.TriggerProbability < 0 || p.TriggerProbability > 1 {
		return fmt.Errorf("%s: trigger probability %v outside [0,1]", p.Category, p.TriggerProbability)
	}
	for name, r := range map[string]IntRange{
		"bbox x": p.BBoxX, "bbox y": p.BBoxY,
		"bbox width": p.BBoxWidth, "bbox height": p.BBoxHeight,
	} {
		if r.Max < r.Min {
			return fmt.Errorf("%s: %s range inverted (%d > %d)", p.Category, name, r.Min, r.Max)
		}
	}
	if p.Confidence.Max < p.Confidence.Min {
		return fmt.Errorf("%s: confidence range inverted (%v > %v)", p.Category, p.Confidence.Min, p.Confidence.Max)
	}
	if p.Confidence.Min < 0 || p.Confidence.Max > 1 {
		return fmt.Errorf("%s: confidence range %v..%v outside [0,1]", p.Category, p.Confidence.Min, p.Confidence.Max)
	}
	if len(p.Severities) == 0 {
		return fmt.Errorf("%s: no severities configured", p.Category)
	}
	for _, s := range p.Severities {
		if !s.Valid() {
			return fmt.Errorf("%s: unknown severity %q", p.Category, s)
		}
	}
	return nil
}

// Pipeline runs all registered detectors against each frame. The random
// source is injected so runs are deterministic and replayable under a
// fixed seed.
type Pipeline struct {
	profiles []Profile
	rng      *rand.Rand
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a pipeline from the given profiles, validating each one.
// A nil rng panics early rather than at first detection; a nil logger
// falls back to slog.Default.
func New(profiles []Profile, rng *rand.Rand, logger *slog.Logger) (*Pipeline, error) {
	if rng == nil {
		return nil, fmt.Errorf("detect: rng is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[core.AnomalyCategory]bool, len(profiles))
	for _, p := range profiles {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("detect: invalid profile: %w", err)
		}
		if seen[p.Category] {
			return nil, fmt.Errorf("detect: duplicate profile for category %q", p.Category)
		}
		seen[p.Category] = true
	}
	return &Pipeline{
		profiles: profiles,
		rng:      rng,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Categories returns the registered categories in registration order.
func (p *Pipeline) Categories() []core.AnomalyCategory {
	out := make([]core.AnomalyCategory, len(p.profiles))
	for i, prof := range p.profiles {
		out[i] = prof.Category
	}
	return out
}

// Detect runs every detector against the frame and returns the findings of
// this tick in registration order. Each detector fires at most once per
// tick. Frame contents are not inspected by the built-in stochastic
// detectors; the frame is threaded through so a real detector can drop in.
// A panicking detector is isolated to zero findings rather than aborting
// the tick.
func (p *Pipeline) Detect(frame image.Image, position core.Position3D) []core.Anomaly {
	var found []core.Anomaly
	for _, prof := range p.profiles {
		if a, ok := p.runDetector(prof, frame, position); ok {
			found = append(found, a)
		}
	}
	return found
}

func (p *Pipeline) runDetector(prof Profile, _ image.Image, position core.Position3D) (a core.Anomaly, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("detector panicked, treating as zero findings",
				"category", prof.Category,
				"panic", r,
			)
			ok = false
		}
	}()

	if p.rng.Float64() >= prof.TriggerProbability {
		return core.Anomaly{}, false
	}

	at := p.now()
	a = core.Anomaly{
		ID:         core.AnomalyID(prof.Category, at),
		Category:   prof.Category,
		Confidence: prof.Confidence.Sample(p.rng),
		Position:   position,
		DetectedAt: at,
		BBox: core.BBox{
			X:      prof.BBoxX.Sample(p.rng),
			Y:      prof.BBoxY.Sample(p.rng),
			Width:  prof.BBoxWidth.Sample(p.rng),
			Height: prof.BBoxHeight.Sample(p.rng),
		},
		Severity: prof.Severities[p.rng.Intn(len(prof.Severities))],
	}
	return a, true
}
