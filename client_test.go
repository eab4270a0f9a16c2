package hexahydrate

import "testing"

func TestClientResetDropsWithoutDestroyed(t *testing.T) {
	stats := &testStat{}
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())

	if err := cli.Receive([]byte{0, 0, 3, 1, 255, 128, 255}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	cli.Reset()

	if stats.DestroyedCalls != 0 {
		t.Fatalf("Reset ran Destroyed(), want 0 calls")
	}
	seen := 0
	cli.WithEntities(func(EntityToken, Entity[testUserData]) { seen++ })
	if seen != 0 {
		t.Fatalf("entity should be gone after Reset")
	}
	frames := cli.Send(4096)
	if len(frames) != 0 {
		t.Fatalf("send after reset = %v, want none", frames)
	}
}

func TestClientReceiveEmptyIsNoop(t *testing.T) {
	stats := &testStat{}
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())
	if err := cli.Receive(nil); err != nil {
		t.Fatalf("Receive(nil): %v", err)
	}
}

func TestClientReceiveInvalidOpcodeAtStart(t *testing.T) {
	stats := &testStat{}
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())
	err := cli.Receive([]byte{200, 0})
	if _, ok := err.(*InvalidPacketDataError); !ok {
		t.Fatalf("err = %v, want *InvalidPacketDataError", err)
	}
}

func TestClientReceiveUnassignedOpcodeMidFrame(t *testing.T) {
	stats := &testStat{}
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())

	// A valid create token followed by opcode 2, which is never
	// assigned on the server->client side.
	data := []byte{0, 0, 3, 1, 255, 128, 255, 2, 0}
	err := cli.Receive(data)

	werr, ok := err.(*RemainingPacketDataError)
	if !ok {
		t.Fatalf("err = %v, want *RemainingPacketDataError", err)
	}
	if len(werr.Bytes) != 0 {
		t.Fatalf("Bytes = %v, want empty", werr.Bytes)
	}

	// The create token was still applied before the error was hit.
	seen := 0
	cli.WithEntities(func(EntityToken, Entity[testUserData]) { seen++ })
	if seen != 1 {
		t.Fatalf("entity from the valid prefix should have materialised")
	}
}

func TestClientWithEntitiesSkipsUnbornSlots(t *testing.T) {
	stats := &testStat{}
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())

	seen := 0
	cli.WithEntities(func(EntityToken, Entity[testUserData]) { seen++ })
	if seen != 0 {
		t.Fatalf("seen = %d, want 0 on a client with no entities", seen)
	}

	if err := cli.Receive([]byte{0, 0, 3, 1, 255, 128, 255}); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	cli.WithEntities(func(EntityToken, Entity[testUserData]) { seen++ })
	if seen != 1 {
		t.Fatalf("seen = %d, want 1", seen)
	}
}

func TestClientUpdateEntitiesWithReclaimsAfterTimeout(t *testing.T) {
	stats := &testStat{}
	cfg := Config{HandleTimeoutTicks: 2}
	cli := NewClient[testUserData](testRegistry(stats), cfg)

	if err := cli.Receive([]byte{0, 0, 3, 1, 255, 128, 255}); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := cli.Receive([]byte{4, 0}); err != nil { // SendDestroyToClient
		t.Fatalf("Receive: %v", err)
	}

	for i := 0; i < 2; i++ {
		cli.UpdateEntitiesWith(func(EntityToken, Entity[testUserData]) {
			t.Fatalf("callback should not fire for a destroyed entity")
		})
	}

	frames := cli.Send(4096)
	if len(frames) != 0 {
		t.Fatalf("send after reclaim = %v, want none", frames)
	}
}
