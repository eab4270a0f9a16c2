package hexahydrate

import (
	"bytes"
	"testing"
)

// These scenarios replay, byte for byte, the handshakes a server and
// client exchange over a representative session: a create handshake,
// frame packing across multiple entities, a destroy whose
// acknowledgement never arrives, a filter flipping an entity in and
// out of visibility, a client-side re-create that replaces an entity
// already in Update, and an unknown wire kind.

func newPair(t *testing.T) (*Server[testUserData], *Client[testUserData], *testStat) {
	t.Helper()
	stats := &testStat{}
	srv := NewServer[testUserData](DefaultConfig())
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())
	return srv, cli, stats
}

func TestScenarioCreateHandshake(t *testing.T) {
	srv, cli, stats := newPair(t)

	tok, err := srv.ConnectionAddWith(func() testUserData { return testUserData{Value: 255} })
	if err != nil {
		t.Fatalf("ConnectionAddWith: %v", err)
	}

	if _, err := srv.EntityCreateWith(func() Entity[testUserData] { return newTestEntity(stats) }); err != nil {
		t.Fatalf("EntityCreateWith: %v", err)
	}

	packets, err := srv.ConnectionSend(tok, 4096)
	if err != nil {
		t.Fatalf("ConnectionSend: %v", err)
	}
	want := []byte{0, 0, 3, 1, 255, 128, 255}
	if len(packets) != 1 || !bytes.Equal(packets[0], want) {
		t.Fatalf("create frame = %v, want [%v]", packets, want)
	}

	if err := cli.Receive(packets[0]); err != nil {
		t.Fatalf("client Receive: %v", err)
	}

	frames := cli.Send(4096)
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{1, 0}) {
		t.Fatalf("client send = %v, want [[1 0]]", frames)
	}

	if err := srv.ConnectionReceive(tok, frames[0]); err != nil {
		t.Fatalf("server ConnectionReceive: %v", err)
	}

	packets, err = srv.ConnectionSend(tok, 4096)
	if err != nil {
		t.Fatalf("ConnectionSend: %v", err)
	}
	if len(packets) != 1 || !bytes.Equal(packets[0], []byte{1, 0}) {
		t.Fatalf("confirm frame = %v, want [[1 0]]", packets)
	}

	if err := cli.Receive(packets[0]); err != nil {
		t.Fatalf("client Receive: %v", err)
	}
	// Created() fires once on each side: once here on the server when
	// EntityCreateWith built the entity, and again just above when the
	// client received the server's create confirmation. Both sides
	// share stats, so the
	// running total is 2, not 1.
	if stats.CreatedCalls != 2 {
		t.Fatalf("Created() called %d times, want 2", stats.CreatedCalls)
	}

	frames = cli.Send(4096)
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{2, 0}) {
		t.Fatalf("client send = %v, want [[2 0]]", frames)
	}

	if err := srv.ConnectionReceive(tok, frames[0]); err != nil {
		t.Fatalf("server ConnectionReceive: %v", err)
	}

	packets, err = srv.ConnectionSend(tok, 4096)
	if err != nil {
		t.Fatalf("ConnectionSend: %v", err)
	}
	if len(packets) != 0 {
		t.Fatalf("steady-state send = %v, want none", packets)
	}
}

func TestScenarioFramePacking(t *testing.T) {
	stats := &testStat{}
	srv := NewServer[testUserData](DefaultConfig())

	tok, err := srv.ConnectionAddWith(func() testUserData { return testUserData{Value: 32} })
	if err != nil {
		t.Fatalf("ConnectionAddWith: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := srv.EntityCreateWith(func() Entity[testUserData] { return newTestEntity(stats) }); err != nil {
			t.Fatalf("EntityCreateWith: %v", err)
		}
	}

	packets, err := srv.ConnectionSend(tok, 16)
	if err != nil {
		t.Fatalf("ConnectionSend: %v", err)
	}

	want := [][]byte{
		{0, 0, 3, 1, 255, 128, 32, 0, 1, 3, 1, 255, 128, 32},
		{0, 2, 3, 1, 255, 128, 32},
	}
	if len(packets) != len(want) {
		t.Fatalf("packets = %v, want %v", packets, want)
	}
	for i := range want {
		if !bytes.Equal(packets[i], want[i]) {
			t.Fatalf("packets[%d] = %v, want %v", i, packets[i], want[i])
		}
	}
}

// advanceToSteadyState runs a fresh connection and entity through the
// create handshake until the server side sits in RemoteUpdate and the
// client side in LocalUpdate, mirroring scenario 1.
func advanceToSteadyState(t *testing.T, srv *Server[testUserData], cli *Client[testUserData], tok ConnectionToken[testUserData]) {
	t.Helper()

	packets, err := srv.ConnectionSend(tok, 4096)
	if err != nil || len(packets) != 1 {
		t.Fatalf("create send: %v %v", packets, err)
	}
	if err := cli.Receive(packets[0]); err != nil {
		t.Fatalf("client receive: %v", err)
	}

	frames := cli.Send(4096)
	if len(frames) != 1 {
		t.Fatalf("client confirm send: %v", frames)
	}
	if err := srv.ConnectionReceive(tok, frames[0]); err != nil {
		t.Fatalf("server receive: %v", err)
	}

	packets, err = srv.ConnectionSend(tok, 4096)
	if err != nil || len(packets) != 1 {
		t.Fatalf("server confirm send: %v %v", packets, err)
	}
	if err := cli.Receive(packets[0]); err != nil {
		t.Fatalf("client receive: %v", err)
	}

	frames = cli.Send(4096)
	if len(frames) != 1 {
		t.Fatalf("client accept send: %v", frames)
	}
	if err := srv.ConnectionReceive(tok, frames[0]); err != nil {
		t.Fatalf("server receive: %v", err)
	}
}

func TestScenarioDestroyWithLostAck(t *testing.T) {
	cfg := Config{HandleTimeoutTicks: 5}
	stats := &testStat{}
	srv := NewServer[testUserData](cfg)
	cli := NewClient[testUserData](testRegistry(stats), cfg)

	tok, err := srv.ConnectionAddWith(func() testUserData { return testUserData{Value: 255} })
	if err != nil {
		t.Fatalf("ConnectionAddWith: %v", err)
	}
	entTok, err := srv.EntityCreateWith(func() Entity[testUserData] { return newTestEntity(stats) })
	if err != nil {
		t.Fatalf("EntityCreateWith: %v", err)
	}
	advanceToSteadyState(t, srv, cli, tok)

	if err := srv.EntityDestroy(entTok); err != nil {
		t.Fatalf("EntityDestroy: %v", err)
	}

	for i := 0; i < 2; i++ {
		packets, err := srv.ConnectionSend(tok, 4096)
		if err != nil {
			t.Fatalf("ConnectionSend: %v", err)
		}
		if len(packets) != 1 || !bytes.Equal(packets[0], []byte{4, 0}) {
			t.Fatalf("destroy frame = %v, want [[4 0]]", packets)
		}
	}

	for i := 0; i < 5; i++ {
		srv.UpdateEntitiesWith(func(EntityToken, Entity[testUserData]) {
			t.Fatalf("callback should not fire for a destroyed entity")
		})
	}

	packets, err := srv.ConnectionSend(tok, 4096)
	if err != nil {
		t.Fatalf("ConnectionSend: %v", err)
	}
	if len(packets) != 0 {
		t.Fatalf("post-timeout send = %v, want none", packets)
	}

	if _, err := srv.EntityCreateWith(func() Entity[testUserData] { return newTestEntity(stats) }); err != nil {
		t.Fatalf("slot should be reusable after timeout: %v", err)
	}
}

func TestScenarioFilterForget(t *testing.T) {
	srv, cli, stats := newPair(t)

	tok, err := srv.ConnectionAddWith(func() testUserData { return testUserData{Value: 255} })
	if err != nil {
		t.Fatalf("ConnectionAddWith: %v", err)
	}
	if _, err := srv.EntityCreateWith(func() Entity[testUserData] { return newTestEntity(stats) }); err != nil {
		t.Fatalf("EntityCreateWith: %v", err)
	}

	packets, err := srv.ConnectionSend(tok, 4096)
	if err != nil || len(packets) != 1 {
		t.Fatalf("create send: %v %v", packets, err)
	}
	if err := cli.Receive(packets[0]); err != nil {
		t.Fatalf("client receive: %v", err)
	}
	frames := cli.Send(4096)
	if err := srv.ConnectionReceive(tok, frames[0]); err != nil {
		t.Fatalf("server receive: %v", err)
	}

	stats.FilterForConnection = true

	packets, err = srv.ConnectionSend(tok, 4096)
	if err != nil {
		t.Fatalf("ConnectionSend: %v", err)
	}
	if len(packets) != 1 || !bytes.Equal(packets[0], []byte{5, 0}) {
		t.Fatalf("forget frame = %v, want [[5 0]]", packets)
	}

	if err := cli.Receive(packets[0]); err != nil {
		t.Fatalf("client receive: %v", err)
	}
	if stats.DestroyedCalls != 0 {
		t.Fatalf("Destroyed() called on forget, want 0 calls")
	}

	frames = cli.Send(4096)
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{4, 0}) {
		t.Fatalf("client send after forget = %v, want [[4 0]]", frames)
	}

	if err := srv.ConnectionReceive(tok, frames[0]); err != nil {
		t.Fatalf("server receive: %v", err)
	}

	stats.FilterForConnection = false

	packets, err = srv.ConnectionSend(tok, 4096)
	if err != nil {
		t.Fatalf("ConnectionSend: %v", err)
	}
	want := []byte{0, 0, 3, 1, 255, 128, 255}
	if len(packets) != 1 || !bytes.Equal(packets[0], want) {
		t.Fatalf("re-create frame = %v, want [%v]", packets, want)
	}
}

func TestScenarioReCreateReplace(t *testing.T) {
	stats := &testStat{}
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())

	createFrame := []byte{0, 0, 3, 1, 255, 128, 255}
	if err := cli.Receive(createFrame); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := cli.Receive([]byte{1, 0}); err != nil { // ConfirmClientCreate -> Accept
		t.Fatalf("Receive: %v", err)
	}
	if err := cli.Receive([]byte{3, 0, 0}); err != nil { // SendUpdateToClient, empty payload -> Update
		t.Fatalf("Receive: %v", err)
	}

	if err := cli.Receive(createFrame); err != nil {
		t.Fatalf("Receive (re-create): %v", err)
	}
	if stats.DestroyedCalls != 0 {
		t.Fatalf("replace ran Destroyed(), want 0 calls")
	}

	frames := cli.Send(4096)
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{1, 0}) {
		t.Fatalf("send after replace = %v, want [[1 0]]", frames)
	}
}

func TestScenarioUnknownKind(t *testing.T) {
	stats := &testStat{}
	cli := NewClient[testUserData](testRegistry(stats), DefaultConfig())

	if err := cli.Receive([]byte{0, 0, 3, 3, 255, 128, 255}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	frames := cli.Send(4096)
	if len(frames) != 0 {
		t.Fatalf("send = %v, want none", frames)
	}
	if _, ok := cli.EntityGet(EntityToken{Index: 0, OwnerID: 0}); ok {
		t.Fatalf("no entity should have materialised for an unknown kind")
	}
}
