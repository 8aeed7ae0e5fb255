package engine

import "fmt"

// Step names the stage of the tile pipeline an error came from.
type Step string

const (
	StepBounds   Step = "bounds"
	StepName     Step = "name"
	StepMkdir    Step = "mkdir"
	StepRender   Step = "render"
	StepWrite    Step = "write"
	StepParse    Step = "parse"
	StepDispatch Step = "dispatch"
	StepCanceled Step = "canceled"
)

// TileError is the failure of one tile.
type TileError struct {
	Index int
	Name  string
	Step  Step
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %s: %s: %v", e.label(), e.Step, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }

// label is the tile name, or the feature position when no name was resolved.
func (e *TileError) label() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("feature-%d", e.Index)
}
