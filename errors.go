package hexahydrate

import (
	"errors"
	"fmt"
)

// NetworkByteOffset is the lowest first-byte value left free by this
// protocol: every byte value below it is reserved for opcodes. A host
// that wants to multiplex its own protocol over the same stream must
// use first-bytes greater than or equal to this value, and can recover
// them from the byte slices carried by
// InvalidPacketDataError / RemainingPacketDataError /
// UnknownReceiverTokenError.
const NetworkByteOffset uint8 = 8

// Sentinel errors returned by Server/Client operations. Use errors.Is
// to test for them; the *Error types below additionally carry the
// bytes a caller needs to recover a co-hosted protocol's frame.
var (
	// ErrAllEntityTokensInUse is returned by EntityCreateWith when all
	// 256 entity slots are occupied.
	ErrAllEntityTokensInUse = errors.New("hexahydrate: all entity tokens in use")

	// ErrAllConnectionTokensInUse is returned by ConnectionAddWith when
	// all 256 connection slots are occupied.
	ErrAllConnectionTokensInUse = errors.New("hexahydrate: all connection tokens in use")

	// ErrUnknownSenderToken is returned by EntityDestroy,
	// ConnectionRemove and ConnectionSend when the EntityToken or
	// ConnectionToken was minted by a different engine instance or
	// refers to an empty slot.
	ErrUnknownSenderToken = errors.New("hexahydrate: unknown sender token")

	// errUnknownReceiverToken is the sentinel matched by errors.Is
	// against an UnknownReceiverTokenError.
	errUnknownReceiverToken = errors.New("hexahydrate: unknown receiver token")

	// errInvalidPacketData is the sentinel matched by errors.Is against
	// an InvalidPacketDataError.
	errInvalidPacketData = errors.New("hexahydrate: invalid packet data")

	// errRemainingPacketData is the sentinel matched by errors.Is
	// against a RemainingPacketDataError.
	errRemainingPacketData = errors.New("hexahydrate: remaining packet data")
)

// UnknownReceiverTokenError is returned by ConnectionReceive when the
// token given does not belong to this engine instance. Bytes
// is the original buffer passed to receive, handed back so the caller
// can retry it elsewhere.
type UnknownReceiverTokenError struct {
	Bytes []byte
}

func (e *UnknownReceiverTokenError) Error() string {
	return fmt.Sprintf("hexahydrate: unknown receiver token (%d bytes)", len(e.Bytes))
}

func (e *UnknownReceiverTokenError) Unwrap() error { return errUnknownReceiverToken }

// InvalidPacketDataError is returned when the first byte of a frame is
// outside the valid opcode range for the receiving side. No state is
// mutated. Bytes is the original, untouched buffer.
type InvalidPacketDataError struct {
	Bytes []byte
}

func (e *InvalidPacketDataError) Error() string {
	return fmt.Sprintf("hexahydrate: invalid packet data (%d bytes)", len(e.Bytes))
}

func (e *InvalidPacketDataError) Unwrap() error { return errInvalidPacketData }

// RemainingPacketDataError is returned when a valid token prefix was
// decoded and applied, then an unknown opcode was hit. Bytes is the
// unconsumed tail, handed back so the host can forward it to a
// co-hosted protocol.
type RemainingPacketDataError struct {
	Bytes []byte
}

func (e *RemainingPacketDataError) Error() string {
	return fmt.Sprintf("hexahydrate: remaining packet data (%d bytes)", len(e.Bytes))
}

func (e *RemainingPacketDataError) Unwrap() error { return errRemainingPacketData }
