package hexahydrate

// EntityToken grants access to a single entity slot on a Server or a
// Client. The slot it refers to can only be touched through the
// engine whose OwnerID matches — a token minted by one engine instance
// is rejected by any other.
type EntityToken struct {
	Index   uint8
	OwnerID uint64
}

// ConnectionToken grants access to a single connection slot on a
// Server. UserData is whatever the host attached when the connection
// was registered (address, credentials, session id, ...).
type ConnectionToken[U any] struct {
	Index    uint8
	OwnerID  uint64
	UserData U
}
