// Package emotion defines the expression profiles that shape a performance.
package emotion

// Profile describes how an emotion colors both speech timing and motion.
// All numeric fields are in [0,1]. Profiles are immutable: the engine never
// writes to one, it only reads.
type Profile struct {
	// MouthEnergy drives articulation strength and speaking rate.
	MouthEnergy float64 `json:"mouthEnergy"`
	// HandAmplitude scales gesture sway.
	HandAmplitude float64 `json:"handAmplitude"`
	// GazeIntensity widens gaze wander and suppresses blinking.
	GazeIntensity float64 `json:"gazeIntensity"`
	// BrowLift is the resting eyebrow raise.
	BrowLift float64 `json:"browLift"`
	// Color is a display hint for the shell UI, not used by the engine core.
	Color string `json:"color"`
}

// Named presets in the style of the persona catalog. Callers are free to
// supply arbitrary profiles; these are just convenient starting points.
var (
	Neutral = Profile{MouthEnergy: 0.5, HandAmplitude: 0.4, GazeIntensity: 0.4, BrowLift: 0.2, Color: "#8ecae6"}
	Excited = Profile{MouthEnergy: 0.9, HandAmplitude: 0.85, GazeIntensity: 0.6, BrowLift: 0.55, Color: "#ffb703"}
	Calm    = Profile{MouthEnergy: 0.3, HandAmplitude: 0.2, GazeIntensity: 0.3, BrowLift: 0.1, Color: "#219ebc"}
	Intense = Profile{MouthEnergy: 0.7, HandAmplitude: 0.5, GazeIntensity: 0.95, BrowLift: 0.4, Color: "#d62828"}
)

// Presets returns the built-in catalog keyed by name.
func Presets() map[string]Profile {
	return map[string]Profile{
		"neutral": Neutral,
		"excited": Excited,
		"calm":    Calm,
		"intense": Intense,
	}
}

// Get returns a preset by name, falling back to Neutral.
func Get(name string) Profile {
	if p, ok := Presets()[name]; ok {
		return p
	}
	return Neutral
}
