// Package pose computes the per-frame body/face state of the performer.
package pose

// Pose is the complete twelve-channel instantaneous state consumed by the
// rendering collaborator. It is recomputed wholesale every animation tick,
// never patched in place; only the most recent value is meaningful.
type Pose struct {
	MouthOpen float64 `json:"mouthOpen"` // 0..1
	MouthWide float64 `json:"mouthWide"` // 0..1
	Blink     float64 `json:"blink"`     // 0..1
	BrowLift  float64 `json:"browLift"`  // 0..1

	HeadYaw   float64 `json:"headYaw"`   // -1..1
	HeadPitch float64 `json:"headPitch"` // -1..1
	HeadRoll  float64 `json:"headRoll"`  // -1..1

	GazeX float64 `json:"gazeX"` // -1..1
	GazeY float64 `json:"gazeY"` // -1..1

	HandLeft  float64 `json:"handLeft"`  // 0..1
	HandRight float64 `json:"handRight"` // 0..1

	BodySway float64 `json:"bodySway"` // -1..1
}

// Neutral is the resting pose published after a session tears down.
func Neutral() Pose {
	return Pose{MouthWide: 0.3}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
