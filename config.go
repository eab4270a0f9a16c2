package hexahydrate

// Config carries the handful of tuning knobs shared by Server and
// Client.
type Config struct {

	// HandleTimeoutTicks is the number of UpdateEntitiesWith calls a
	// destroyed entity's handle is kept alive for while waiting on
	// acknowledgement from the peer(s), before being reclaimed
	// unconditionally. Guards against a lost connection permanently
	// blocking a slot.
	HandleTimeoutTicks int

	// MinimumUpdateInterval, when set, makes a handle emit an empty
	// update frame every Nth call to its serialiser even when the
	// entity's PartBytes/MergeBytes pair has nothing to say. This is
	// the only way the client's local state machine ever reaches
	// Update in the absence of payload changes, since the transition
	// out of Accept is driven entirely by receiving an update frame.
	MinimumUpdateInterval *uint8
}

// DefaultConfig mirrors the reference implementation's defaults.
func DefaultConfig() Config {
	return Config{
		HandleTimeoutTicks:    30,
		MinimumUpdateInterval: nil,
	}
}
