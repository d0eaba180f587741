// Package storage holds the client's small key/value state: which companion was
// chosen and which engine session the conversation belongs to.
package storage

// Keys used by the client.
const (
	KeyCompanion = "mimre_companion"
	KeySessionID = "mimre_session_id"
)

// Storage is a string key/value store. A missing key is reported with ok=false.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}
