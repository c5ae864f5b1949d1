package etl

import "errors"

var (
	// ErrEmptyPayload is returned by an extractor when the API answered with nothing
	ErrEmptyPayload = errors.New("etl: empty payload")

	// ErrNoInput is returned when a stage has neither an in-memory table nor a checkpoint
	ErrNoInput = errors.New("etl: no input")

	// ErrNothingWritten is returned by the loader when every row failed
	ErrNothingWritten = errors.New("etl: no document written")
)
