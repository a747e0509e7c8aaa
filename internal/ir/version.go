package ir

// Version constants for the record schema and the scripting engine.
const (
	// RecordVersion is the persisted command record schema version.
	RecordVersion = "1"

	// EngineVersion is the guildscript engine version.
	EngineVersion = "0.1.0"
)
