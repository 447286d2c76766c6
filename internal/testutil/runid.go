package testutil

// DefaultRunID is returned by a FixedRunIDGenerator created with an empty ID.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator generates the same run ID every time.
//
// This enables golden report comparison: the same fixtures with the same
// checker render byte-identical reports.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a new fixed run ID generator.
// If id is empty, Generate() returns DefaultRunID.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements harness.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
