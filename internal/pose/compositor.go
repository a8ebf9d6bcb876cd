package pose

import (
	"math"

	"github.com/normanking/stagehand/internal/emotion"
	"github.com/normanking/stagehand/internal/seq"
)

// completionTail is how long the pose keeps moving past the end of a
// synthesized timeline before the session is considered finished.
const completionTail = 0.4

// Compositor fuses the active driver's mouth signal with procedural
// secondary motion (blink, gaze, sway, head turn) into a full Pose.
// Given identical inputs and seed it is fully deterministic.
type Compositor struct {
	emo  emotion.Profile
	seed uint32

	// Jitter parameters drawn once per (seed, emotion) pairing so that a
	// fixed seed still performs differently under a new expression.
	blinkPeriod float64
	blinkPhase  float64
	yawPeriod   float64
	yawPhase    float64
	pitchPeriod float64
	pitchPhase  float64
	rollPeriod  float64
	rollPhase   float64
	gazeXPhase  float64
	gazeYPhase  float64
	handLPhase  float64
	handRPhase  float64
	swayPhase   float64

	// deadline > 0 marks a text-mode session: past deadline+tail the
	// compositor signals completion instead of producing a pose.
	deadline float64
}

// NewCompositor builds a compositor for one session.
func NewCompositor(emo emotion.Profile, seedVal uint32) *Compositor {
	c := &Compositor{seed: seedVal}
	c.reseed(emo, seedVal)
	return c
}

// SetEmotion re-derives the jitter stream from seed + mouthEnergy*100, so
// secondary motion changes with expression even at a fixed seed.
func (c *Compositor) SetEmotion(emo emotion.Profile) {
	c.reseed(emo, seq.Derive(c.seed, emo.MouthEnergy*100))
}

// SetDeadline arms text-mode completion at the given timeline duration.
// A zero deadline (audio mode) never completes from the compositor side.
func (c *Compositor) SetDeadline(duration float64) {
	c.deadline = duration
}

func (c *Compositor) reseed(emo emotion.Profile, derived uint32) {
	c.emo = emo
	gen := seq.New(derived)

	// Energetic expressions nod and turn on shorter periods.
	tempo := 0.7 + emo.MouthEnergy*0.6

	c.blinkPeriod = 2.4 + gen()*1.8
	c.blinkPhase = gen() * 2 * math.Pi
	c.yawPeriod = (5.5 + gen()*3) / tempo
	c.yawPhase = gen() * 2 * math.Pi
	c.pitchPeriod = (6.5 + gen()*3) / tempo
	c.pitchPhase = gen() * 2 * math.Pi
	c.rollPeriod = 8 + gen()*4
	c.rollPhase = gen() * 2 * math.Pi
	c.gazeXPhase = gen() * 2 * math.Pi
	c.gazeYPhase = gen() * 2 * math.Pi
	c.handLPhase = gen() * 2 * math.Pi
	c.handRPhase = gen() * 2 * math.Pi
	c.swayPhase = gen() * 2 * math.Pi
}

// Step computes the pose at an elapsed time from the driver's mouth signal.
// done=true means the timeline has run out (text mode only); no pose is
// produced in that case.
func (c *Compositor) Step(elapsed, mouth, width float64) (Pose, bool) {
	if c.deadline > 0 && elapsed > c.deadline+completionTail {
		return Pose{}, true
	}

	emo := c.emo

	// Sharply-peaked pulse: mostly open eyes with brief closures. Intense
	// gaze blinks less, per the (1 - gazeIntensity*0.2) scaling.
	blinkWave := math.Sin(elapsed/c.blinkPeriod*2*math.Pi + c.blinkPhase)
	blink := math.Pow(math.Abs(blinkWave), 12) * (1 - emo.GazeIntensity*0.2)

	headYaw := math.Sin(elapsed*2*math.Pi/c.yawPeriod+c.yawPhase)*0.12 + mouth*0.08
	headPitch := math.Sin(elapsed*2*math.Pi/c.pitchPeriod+c.pitchPhase)*0.1 + emo.BrowLift*0.06
	headRoll := math.Sin(elapsed*2*math.Pi/c.rollPeriod+c.rollPhase) * 0.06

	gazeX := math.Sin(elapsed*0.9+c.gazeXPhase) * 0.35 * emo.GazeIntensity
	gazeY := math.Sin(elapsed*0.7+c.gazeYPhase) * 0.25 * emo.GazeIntensity

	// Distinct frequency and phase per hand so they never move in lockstep.
	handLeft := (mouth*0.35 + (math.Sin(elapsed*1.3+c.handLPhase)*0.5+0.5)*0.4) * emo.HandAmplitude
	handRight := (mouth*0.35 + (math.Sin(elapsed*1.7+c.handRPhase)*0.5+0.5)*0.4) * emo.HandAmplitude

	bodySway := math.Sin(elapsed*0.5+c.swayPhase)*0.2 + mouth*0.08

	return Pose{
		MouthOpen: clamp(mouth, 0, 1),
		MouthWide: clamp(width, 0, 1),
		Blink:     clamp(blink, 0, 1),
		BrowLift:  clamp(emo.BrowLift+mouth*0.25, 0, 1),
		HeadYaw:   clamp(headYaw, -1, 1),
		HeadPitch: clamp(headPitch, -1, 1),
		HeadRoll:  clamp(headRoll, -1, 1),
		GazeX:     clamp(gazeX, -1, 1),
		GazeY:     clamp(gazeY, -1, 1),
		HandLeft:  clamp(handLeft, 0, 1),
		HandRight: clamp(handRight, 0, 1),
		BodySway:  clamp(bodySway, -1, 1),
	}, false
}
