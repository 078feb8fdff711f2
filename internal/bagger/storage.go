package bagger

// Storage is the durable client-side key/value store. It holds the session
// token and the per-user cache snapshot.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(keys ...string) error

	// Close releases any underlying resources.
	Close() error
}
