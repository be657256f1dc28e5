package frame

import (
	"errors"
	"fmt"
)

// Stage identifies one step of a deferred frame.
type Stage int

const (
	StageIdle Stage = iota
	StageGeometryPass
	StageLightCulling
	StageLightingResolve
	StageTransparencyAccumulate
	StageTransparencyResolve
	StageTonemap
	StagePresent
)

var stageNames = [...]string{
	StageIdle:                   "Idle",
	StageGeometryPass:           "GeometryPass",
	StageLightCulling:           "LightCulling",
	StageLightingResolve:        "LightingResolve",
	StageTransparencyAccumulate: "TransparencyAccumulate",
	StageTransparencyResolve:    "TransparencyResolve",
	StageTonemap:                "Tonemap",
	StagePresent:                "Present",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// ErrFrameInProgress is returned by Sequencer.Begin when the previous frame has not returned to Idle.
var ErrFrameInProgress = errors.New("frame: a frame is already in progress")

// ErrNoFrame is returned by Sequencer.Advance when no frame has been started.
var ErrNoFrame = errors.New("frame: no frame in progress")

// Stages returns the ordered stages a frame walks through after Idle.
// The transparency stages are only present when hasTransparency is true.
//
// Parameters:
//   - hasTransparency: whether the scene has at least one transparent group
//
// Returns:
//   - []Stage: the stage order, ending with StagePresent
func Stages(hasTransparency bool) []Stage {
	out := []Stage{StageGeometryPass, StageLightCulling, StageLightingResolve}
	if hasTransparency {
		out = append(out, StageTransparencyAccumulate, StageTransparencyResolve)
	}
	return append(out, StageTonemap, StagePresent)
}

// Sequencer enforces the stage order of a single frame.
//
// A frame starts with Begin, which moves from Idle to GeometryPass. Each Advance moves to the next stage,
// and Advance from Present returns to Idle. The transparency stages are skipped when the frame was begun
// without transparency. A Sequencer is used from the render goroutine only and is not safe for concurrent use.
type Sequencer struct {
	stage           Stage
	hasTransparency bool
}

// NewSequencer returns a Sequencer in the Idle stage.
//
// Returns:
//   - *Sequencer: the new sequencer
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Stage returns the current stage.
func (s *Sequencer) Stage() Stage {
	return s.stage
}

// HasTransparency reports whether the current frame runs the transparency stages.
func (s *Sequencer) HasTransparency() bool {
	return s.hasTransparency
}

// Begin starts a frame.
//
// Parameters:
//   - hasTransparency: whether the transparency stages run this frame
//
// Returns:
//   - error: ErrFrameInProgress if the sequencer is not Idle
func (s *Sequencer) Begin(hasTransparency bool) error {
	if s.stage != StageIdle {
		return fmt.Errorf("begin in stage %s: %w", s.stage, ErrFrameInProgress)
	}
	s.hasTransparency = hasTransparency
	s.stage = StageGeometryPass
	return nil
}

// Advance moves to the next stage of the frame.
//
// Returns:
//   - Stage: the new stage; StageIdle once Present has completed
//   - error: ErrNoFrame if called while Idle
func (s *Sequencer) Advance() (Stage, error) {
	switch s.stage {
	case StageIdle:
		return s.stage, ErrNoFrame
	case StageLightingResolve:
		if s.hasTransparency {
			s.stage = StageTransparencyAccumulate
		} else {
			s.stage = StageTonemap
		}
	case StagePresent:
		s.stage = StageIdle
		s.hasTransparency = false
	default:
		s.stage++
	}
	return s.stage, nil
}

// Abort returns the sequencer to Idle, discarding the frame in progress.
// Used when surface acquisition fails or the frame is otherwise abandoned.
func (s *Sequencer) Abort() {
	s.stage = StageIdle
	s.hasTransparency = false
}
