package runs

import "errors"

var (
	ErrRunActive   = errors.New("a run is already in progress")
	ErrNoRun       = errors.New("no current run")
	ErrNotFinished = errors.New("run has not finished")
	ErrNoResult    = errors.New("run produced no result")
)
