package pipl

// Packed effect version word layout:
//
//	major<<19 | minor<<15 | bug<<11 | stage<<9 | build
//
// Verified against the documented literal 0x00106001 = 2.0.12 Develop
// build 1.
const (
	versBuildShift = 0
	versBuildMax   = 0x1ff
	versStageShift = 9
	versStageMax   = 0x3
	versBugShift   = 11
	versBugMax     = 0xf
	versMinorShift = 15
	versMinorMax   = 0xf
	versMajorShift = 19
	versMajorMax   = 0x7f
)

var stageDisplayNames = [...]string{"Develop", "Alpha", "Beta", "Release"}

var stageSymbols = [...]string{
	"PF_Stage_DEVELOP",
	"PF_Stage_ALPHA",
	"PF_Stage_BETA",
	"PF_Stage_RELEASE",
}

// String returns the display form of a stage: Develop, Alpha, Beta, Release.
func (s Stage) String() string {
	if int(s) < len(stageDisplayNames) {
		return stageDisplayNames[s]
	}
	return "Develop"
}

// Symbol returns the SDK constant name of a stage, e.g. PF_Stage_DEVELOP.
func (s Stage) Symbol() string {
	if int(s) < len(stageSymbols) {
		return stageSymbols[s]
	}
	return stageSymbols[StageDevelop]
}

// StageFromSymbol resolves an SDK stage constant name back to its value.
func StageFromSymbol(symbol string) (Stage, bool) {
	for i, s := range stageSymbols {
		if s == symbol {
			return Stage(i), true
		}
	}
	return StageDevelop, false
}

// PackVersion packs a version tuple into a 32-bit word. Each field is
// checked against its bit width; an out-of-range field fails with a
// RangeError.
func PackVersion(v Version) (uint32, error) {
	if v.Major > versMajorMax {
		return 0, &RangeError{Field: "major", Value: v.Major, Max: versMajorMax}
	}
	if v.Minor > versMinorMax {
		return 0, &RangeError{Field: "minor", Value: v.Minor, Max: versMinorMax}
	}
	if v.Bug > versBugMax {
		return 0, &RangeError{Field: "bug", Value: v.Bug, Max: versBugMax}
	}
	if uint32(v.Stage) > versStageMax {
		return 0, &RangeError{Field: "stage", Value: uint32(v.Stage), Max: versStageMax}
	}
	if v.Build > versBuildMax {
		return 0, &RangeError{Field: "build", Value: v.Build, Max: versBuildMax}
	}
	word := v.Major<<versMajorShift |
		v.Minor<<versMinorShift |
		v.Bug<<versBugShift |
		uint32(v.Stage)<<versStageShift |
		v.Build<<versBuildShift
	return word, nil
}

// UnpackVersion is the exact inverse of PackVersion.
func UnpackVersion(word uint32) Version {
	return Version{
		Major: (word >> versMajorShift) & versMajorMax,
		Minor: (word >> versMinorShift) & versMinorMax,
		Bug:   (word >> versBugShift) & versBugMax,
		Stage: Stage((word >> versStageShift) & versStageMax),
		Build: (word >> versBuildShift) & versBuildMax,
	}
}
