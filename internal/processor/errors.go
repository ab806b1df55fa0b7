package processor

import "fmt"

// Stage is one step of a category pipeline.
type Stage string

const (
	StageDecode      Stage = "decode"
	StageNormalize   Stage = "normalize"
	StageSquareEdges Stage = "square-edges"
	StageOverlay     Stage = "overlay"
	StageMask        Stage = "mask"
	StageShadow      Stage = "shadow"
	StageEncode      Stage = "encode"
)

// StageError reports a required stage that failed and aborted one image.
type StageError struct {
	Category Category
	Slot     string
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	slot := string(e.Category)
	if e.Slot != "" {
		slot += "/" + e.Slot
	}
	return fmt.Sprintf("%s: %s stage failed: %v", slot, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
