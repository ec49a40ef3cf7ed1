package ir

// Version constants for result schema and engine.
const (
	// ResultVersion is the schema version of SchedulingResult and SequenceResult.
	ResultVersion = "1"

	// EngineVersion is the testsched engine version.
	EngineVersion = "0.3.0"
)
