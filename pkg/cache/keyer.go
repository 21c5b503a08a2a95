package cache

// Keyer builds cache keys. All backends share one key layout so that a
// result written by the CLI can be read by the server and vice versa.
type Keyer interface {
	// SolveKey is the key of a memoized solver result.
	SolveKey(engine, requestHash string) string
}

// DefaultKeyer produces keys of the form "solve:<engine>:<hash>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SolveKey hashes the engine name and request hash under the "solve" prefix.
func (DefaultKeyer) SolveKey(engine, requestHash string) string {
	return hashKey("solve:"+engine, requestHash)
}
