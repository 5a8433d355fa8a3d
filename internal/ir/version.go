package ir

// Version constants.
const (
	// DefinitionVersion is the declarative definition schema version.
	DefinitionVersion = "1"

	// Version is the actionkit release version.
	Version = "0.1.0"
)
