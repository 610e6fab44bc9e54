package testutil

// FixedLogID returns the same log id on every call, so scenario runs produce
// byte-identical entry hashes.
type FixedLogID struct {
	id string
}

// NewFixedLogID returns a generator for id. An empty id becomes
// "test-log-default".
func NewFixedLogID(id string) *FixedLogID {
	if id == "" {
		id = "test-log-default"
	}
	return &FixedLogID{id: id}
}

// Generate returns the fixed id.
func (g *FixedLogID) Generate() string {
	return g.id
}
