package calibration

// Preset names for the rigs the application ships calibrated for.
const (
	PresetLive  = "live"
	PresetBench = "bench"
)

// DefaultMarginMM is the surgical margin the live rig checks for.
const DefaultMarginMM = 0.2

// LiveRig is the camera-mounted microscope, measured at 640x480.
func LiveRig() Profile {
	p, _ := NewWithResolution(0.0723, 0.06696, DefaultMarginMM, 640, 480)
	return p
}

// BenchRig is the stored-image rig: 2 mm spans 63 px horizontally and
// 10 mm spans 246 px vertically.
func BenchRig() Profile {
	p, _ := New(2.0/63.0, 10.0/246.0, DefaultMarginMM)
	return p
}

// Preset looks up a named profile.
func Preset(name string) (Profile, bool) {
	switch name {
	case PresetLive:
		return LiveRig(), true
	case PresetBench:
		return BenchRig(), true
	default:
		return Profile{}, false
	}
}
