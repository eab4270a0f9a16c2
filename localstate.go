package hexahydrate

// LocalState is the client-side per-entity state, mirroring the
// server's view of a single entity's handshake progress.
type LocalState uint8

const (
	LocalUnknown LocalState = iota
	LocalCreate
	LocalAccept
	LocalUpdate
)

// create: Unknown -> Create, on inbound SendCreateToClient.
func (s *LocalState) create() bool {
	if *s == LocalUnknown {
		*s = LocalCreate
		return true
	}
	return false
}

// accept: Create -> Accept, on inbound ConfirmClientCreate.
func (s *LocalState) accept() bool {
	if *s == LocalCreate {
		*s = LocalAccept
		return true
	}
	return false
}

// update: Accept -> Update, on inbound SendUpdateToClient.
func (s *LocalState) update() bool {
	if *s == LocalAccept {
		*s = LocalUpdate
		return true
	}
	return false
}

// reset: Create|Accept|Update -> Unknown, on handle drop (timeout) or
// destroy.
func (s *LocalState) reset() bool {
	switch *s {
	case LocalCreate, LocalAccept, LocalUpdate:
		*s = LocalUnknown
		return true
	default:
		return false
	}
}

// clientAsBytes serialises the outbound token for one entity slot
// given its current LocalState. entity is nil once the local handle
// has been destroyed (in which case the only thing left to send is a
// destroy confirmation).
func clientAsBytes[U any](cfg Config, index uint8, state LocalState, entity Entity[U], updateTick *uint8) []byte {
	if entity == nil {
		return []byte{byte(opConfirmDestroyToServer), index}
	}

	switch state {
	case LocalCreate:
		return []byte{byte(opConfirmCreateToServer), index}

	case LocalAccept:
		return []byte{byte(opAcceptServerUpdate), index}

	case LocalUpdate:
		if part, ok := entity.PartBytes(nil); ok {
			if len(part) > 255 {
				panic("hexahydrate: entity PartBytes produced more than 255 bytes")
			}
			out := make([]byte, 0, 3+len(part))
			out = append(out, byte(opSendUpdateToServer), index, byte(len(part)))
			return append(out, part...)
		}
		if tickKeepalive(cfg, updateTick) {
			return []byte{byte(opSendUpdateToServer), index, 0}
		}
		return nil

	default:
		return nil
	}
}
