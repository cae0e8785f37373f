// Package fade moves programmer values toward cue targets over a fade time.
package fade

import (
	"math"
	"strings"
)

// EasingType selects the curve a fade follows.
type EasingType string

const (
	// EasingLinear provides constant rate of change.
	EasingLinear EasingType = "LINEAR"
	// EasingInOutCubic accelerates and decelerates.
	EasingInOutCubic EasingType = "EASE_IN_OUT_CUBIC"
	// EasingInOutSine is the default cue curve.
	EasingInOutSine EasingType = "EASE_IN_OUT_SINE"
	// EasingSCurve is a sigmoid normalized to reach 0 and 1 exactly.
	EasingSCurve EasingType = "S_CURVE"
)

// ParseEasing maps a configuration string to an easing type, defaulting to
// EasingInOutSine.
func ParseEasing(s string) EasingType {
	switch EasingType(strings.ToUpper(strings.TrimSpace(s))) {
	case EasingLinear:
		return EasingLinear
	case EasingInOutCubic:
		return EasingInOutCubic
	case EasingSCurve:
		return EasingSCurve
	}
	return EasingInOutSine
}

// ApplyEasing maps linear progress (0-1) onto the curve.
func ApplyEasing(progress float64, easingType EasingType) float64 {
	if progress <= 0 {
		return 0
	}
	if progress >= 1 {
		return 1
	}

	switch easingType {
	case EasingLinear:
		return progress

	case EasingInOutCubic:
		if progress < 0.5 {
			return 4 * progress * progress * progress
		}
		temp := -2*progress + 2
		return 1 - temp*temp*temp/2

	case EasingSCurve:
		const k = 10.0
		lo := 1 / (1 + math.Exp(k*0.5))
		hi := 1 / (1 + math.Exp(-k*0.5))
		return (1/(1+math.Exp(-k*(progress-0.5))) - lo) / (hi - lo)

	default:
		return -(math.Cos(math.Pi*progress) - 1) / 2
	}
}

// Interpolate returns the value between start and end at the given progress.
func Interpolate(start, end, progress float64, easingType EasingType) float64 {
	return start + (end-start)*ApplyEasing(progress, easingType)
}
