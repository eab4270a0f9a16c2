package hexahydrate

// RemoteState is the server-side per-(connection, entity) state. It
// tracks, for one connection, how much that connection has been told
// about one entity slot. Transitions that aren't listed for the
// current state are no-ops — illegal transitions never panic, they
// just leave the state untouched, which is what lets the protocol
// shrug off duplicate or out-of-order tokens.
type RemoteState uint8

const (
	RemoteUnknown RemoteState = iota
	RemoteAccept
	RemoteCreate
	RemoteUpdate
	RemoteDestroy
	RemoteForget
	RemoteForgotten
)

// accept: Unknown -> Accept. A new connection was registered while the
// entity already existed.
func (s *RemoteState) accept() bool {
	if *s == RemoteUnknown {
		*s = RemoteAccept
		return true
	}
	return false
}

// resetAccepted: Accept -> Unknown. Fires on the very next send after
// a connection has been put in Accept, promoting it into the normal
// create path.
func (s *RemoteState) resetAccepted() bool {
	if *s == RemoteAccept {
		*s = RemoteUnknown
		return true
	}
	return false
}

// resetDestroyed: Destroy -> Unknown.
func (s *RemoteState) resetDestroyed() bool {
	if *s == RemoteDestroy {
		*s = RemoteUnknown
		return true
	}
	return false
}

// resetForgotten: Forgotten -> Unknown.
func (s *RemoteState) resetForgotten() bool {
	if *s == RemoteForgotten {
		*s = RemoteUnknown
		return true
	}
	return false
}

// create: Unknown -> Create, on inbound ConfirmCreateToServer.
func (s *RemoteState) create() bool {
	if *s == RemoteUnknown {
		*s = RemoteCreate
		return true
	}
	return false
}

// update: Create -> Update, on inbound AcceptServerUpdate.
func (s *RemoteState) update() bool {
	if *s == RemoteCreate {
		*s = RemoteUpdate
		return true
	}
	return false
}

// destroy: Accept|Create|Update -> Destroy, on inbound
// ConfirmDestroyToServer for an entity already destroyed server-side,
// and when a released slot is reclaimed.
func (s *RemoteState) destroy() bool {
	switch *s {
	case RemoteAccept, RemoteCreate, RemoteUpdate:
		*s = RemoteDestroy
		return true
	default:
		return false
	}
}

// forget: Accept|Create|Update -> Forget, when Filter(peer) flips to
// false for a previously-visible entity. A no-op from Unknown, which
// is what lets an in-flight (unconfirmed) create frame keep going out
// even for a filtered entity.
func (s *RemoteState) forget() bool {
	switch *s {
	case RemoteAccept, RemoteCreate, RemoteUpdate:
		*s = RemoteForget
		return true
	default:
		return false
	}
}

// forgotten: Forget -> Forgotten, on inbound ConfirmDestroyToServer for
// an entity still alive server-side.
func (s *RemoteState) forgotten() bool {
	if *s == RemoteForget {
		*s = RemoteForgotten
		return true
	}
	return false
}

// serverAsBytes serialises the outbound token for one (connection,
// entity) pair given its current RemoteState. entity is nil once the
// server-side handle has been destroyed.
func serverAsBytes[U any](cfg Config, index uint8, peer *ConnectionToken[U], state RemoteState, entity Entity[U], updateTick *uint8) []byte {
	if entity == nil {
		return []byte{byte(opSendDestroyToClient), index}
	}

	switch state {
	case RemoteUnknown:
		payload := entity.ToBytes(peer)
		if len(payload) > 255 {
			panic("hexahydrate: entity ToBytes produced more than 255 bytes")
		}
		out := make([]byte, 0, 4+len(payload))
		out = append(out, byte(opSendCreateToClient), index, byte(len(payload)), entity.Kind())
		return append(out, payload...)

	case RemoteCreate:
		return []byte{byte(opConfirmClientCreate), index}

	case RemoteUpdate:
		if part, ok := entity.PartBytes(peer); ok {
			if len(part) > 255 {
				panic("hexahydrate: entity PartBytes produced more than 255 bytes")
			}
			out := make([]byte, 0, 3+len(part))
			out = append(out, byte(opSendUpdateToClient), index, byte(len(part)))
			return append(out, part...)
		}
		if tickKeepalive(cfg, updateTick) {
			return []byte{byte(opSendUpdateToClient), index, 0}
		}
		return nil

	case RemoteForget:
		return []byte{byte(opSendForgetToClient), index}

	default:
		return nil
	}
}

// tickKeepalive advances a handle's saturating per-send-call counter
// and reports whether this call should emit an empty keepalive frame.
// Shared by both the server and client serialisers. The counter is
// tied to the number of as-bytes calls, not wall-clock time — a host
// that skips send calls will miss keepalives, matching the reference
// implementation.
func tickKeepalive(cfg Config, updateTick *uint8) bool {
	if cfg.MinimumUpdateInterval == nil {
		return false
	}
	threshold := *cfg.MinimumUpdateInterval
	if *updateTick < 255 {
		*updateTick++
	}
	if *updateTick != threshold {
		return false
	}
	*updateTick = 0
	return true
}
