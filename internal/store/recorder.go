package store

import "time"

// Recorder receives operational measurements from the store.
type Recorder interface {
	// WriteCommitted is called once per committed change. dedup is true when the
	// content was already stored.
	WriteCommitted(dedup bool)

	// WriteRetried is called each time a write lost a leaf race and retried.
	WriteRetried()

	// Mutation is called for every committed mutation, by kind.
	Mutation(kind string)

	// Query records how long a named read took.
	Query(name string, d time.Duration)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) WriteCommitted(bool)         {}
func (NopRecorder) WriteRetried()               {}
func (NopRecorder) Mutation(string)             {}
func (NopRecorder) Query(string, time.Duration) {}
