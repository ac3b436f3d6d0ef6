package gesture

const (
	palmOpenConfidence = 0.90
	fistConfidence     = 0.85
	tapConfidence      = 0.70
	fistRadius         = 0.1
	minFingers         = 3
)

// finger pairs a fingertip landmark with its PIP joint.
type finger struct {
	tip, pip Landmark
}

var fingers = [4]finger{
	{LandmarkIndexTip, LandmarkIndexPIP},
	{LandmarkMiddleTip, LandmarkMiddlePIP},
	{LandmarkRingTip, LandmarkRingPIP},
	{LandmarkPinkyTip, LandmarkPinkyPIP},
}

// classifyStatic reports palm_open, fist or tap from a single pose, and none
// when no pose is available.
func classifyStatic(pose StaticPose) detection {
	if len(pose) == 0 {
		return detection{kind: TypeNone}
	}
	switch {
	case extendedFingers(pose) >= minFingers:
		return detection{detected: true, kind: TypePalmOpen, confidence: palmOpenConfidence}
	case closedFingers(pose) >= minFingers:
		return detection{detected: true, kind: TypeFist, confidence: fistConfidence}
	default:
		return detection{detected: true, kind: TypeTap, confidence: tapConfidence}
	}
}

// extendedFingers counts fingertips above their PIP joint.
func extendedFingers(pose StaticPose) int {
	n := 0
	for _, f := range fingers {
		tip, ok1 := pose[f.tip]
		pip, ok2 := pose[f.pip]
		if ok1 && ok2 && tip.Y < pip.Y {
			n++
		}
	}
	return n
}

// closedFingers counts fingertips curled in near the palm center.
func closedFingers(pose StaticPose) int {
	center, ok := pose[LandmarkPalmCenter]
	if !ok {
		return 0
	}
	n := 0
	for _, f := range fingers {
		if tip, ok := pose[f.tip]; ok && distance(tip, center) < fistRadius {
			n++
		}
	}
	return n
}
