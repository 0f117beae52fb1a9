package model

// Failure records why a single source file could not be converted.
type Failure struct {
	Source      string
	Destination string
	Err         error
}

// Summary aggregates the outcome of a run.
type Summary struct {
	// Converted is the number of files successfully written.
	Converted int

	// Skipped is the number of files left alone by the collision policy.
	Skipped int

	// Failed is the number of files whose job failed.
	Failed int

	// Planned is the number of jobs left after collision resolution. In a
	// dry run nothing else happens to them.
	Planned int

	// Failures holds one entry per failed job.
	Failures []Failure

	// Bytes is the total size of all written files.
	Bytes int64
}

// Total returns the number of files the run looked at.
func (s *Summary) Total() int {
	return s.Converted + s.Skipped + s.Failed
}

// OK reports whether no job failed.
func (s *Summary) OK() bool {
	return s.Failed == 0
}
