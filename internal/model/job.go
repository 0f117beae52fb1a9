package model

import (
	"fmt"

	"github.com/google/uuid"
)

// TargetFormat is an output container/codec the dispatcher can produce.
type TargetFormat string

const (
	// TargetMP3 encodes 320kbps MP3 with ID3v2.3 tags.
	TargetMP3 TargetFormat = "mp3"

	// TargetOpus encodes 384kbps VBR Opus.
	TargetOpus TargetFormat = "opus"
)

// Extension returns the file extension for the format, without the dot.
func (f TargetFormat) Extension() string {
	return string(f)
}

// Valid reports whether f is a supported target.
func (f TargetFormat) Valid() bool {
	return f == TargetMP3 || f == TargetOpus
}

// Job is one source file's unit of work.
//
// A Job is created while planning a run, after metadata has been read and
// the destination path rendered, and is consumed exactly once by a worker.
// It is never modified after planning completes.
type Job struct {
	// ID uniquely identifies the job; it also names the temporary output file.
	ID uuid.UUID

	// Source is the absolute path of the input file.
	Source string

	// RelSource is Source relative to the input directory.
	RelSource string

	// Metadata is the resolved metadata used to render Destination.
	Metadata Metadata

	// Enriched is true when Metadata contains values from the analysis adapter.
	Enriched bool

	// Target is the requested output format.
	Target TargetFormat

	// Destination is the absolute output path.
	Destination string
}

// NewJob creates a Job with a fresh ID.
func NewJob(source, relSource string, metadata Metadata, enriched bool, target TargetFormat, destination string) *Job {
	return &Job{
		ID:          uuid.New(),
		Source:      source,
		RelSource:   relSource,
		Metadata:    metadata,
		Enriched:    enriched,
		Target:      target,
		Destination: destination,
	}
}

func (j *Job) String() string {
	return fmt.Sprintf("{job %s | %s -> %s}", j.ID, j.RelSource, j.Destination)
}
