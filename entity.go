package hexahydrate

// Entity is the capability set a host's replicated object types must
// expose to the core. U is the type of per-connection user data
// (addresses, credentials, ...); it is nil/zero on the client since a
// client only ever talks to the one server.
type Entity[U any] interface {

	// Kind is the type discriminator a client-side Registry uses to
	// pick the right concrete type when decoding a create frame.
	Kind() uint8

	// ToBytes serialises the full entity state for the given peer,
	// for the initial create frame. At most 255 bytes.
	ToBytes(peer *ConnectionToken[U]) []byte

	// PartBytes optionally serialises a subset of the entity's state
	// for an update frame, addressed to peer (nil on the client). The
	// second return value is false when there is nothing to send this
	// tick — in which case the keepalive mechanism (Config.MinimumUpdateInterval)
	// decides whether an empty frame still goes out. At most 255 bytes
	// when present.
	PartBytes(peer *ConnectionToken[U]) ([]byte, bool)

	// MergeBytes applies bytes produced by the remote entity's
	// PartBytes to update local state. Only ever called with a
	// non-empty slice.
	MergeBytes(peer *ConnectionToken[U], data []byte)

	// Filter decides whether this entity should be replicated to a
	// given connection at all. Defaults to true via EntityBase.
	Filter(peer *ConnectionToken[U]) bool

	// Created runs exactly once after construction: on the server the
	// moment the entity is registered, on the client when the local
	// state machine transitions Create -> Accept.
	Created()

	// Destroyed runs at most once, only on a clean destroy — never
	// when the entity is dropped via the forget path.
	Destroyed()
}

// EntityBase supplies the default, no-op implementations of the
// optional Entity methods. Concrete entity types embed it and only
// implement Kind/ToBytes/PartBytes/MergeBytes, overriding Filter,
// Created, or Destroyed when they need to.
type EntityBase[U any] struct{}

func (EntityBase[U]) Filter(*ConnectionToken[U]) bool { return true }
func (EntityBase[U]) Created()                        {}
func (EntityBase[U]) Destroyed()                      {}
