package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Tanmay-110/Code-Collab/internal/app/user"
)

// delivery is one event observed by a sinkPeer.
type delivery struct {
	event   SocketEvent
	payload any
}

// sinkPeer is an in-memory Peer capturing everything the coordinator sends it.
type sinkPeer struct {
	id         string
	deliveries chan delivery
}

func newSinkPeer(id string) *sinkPeer {
	return &sinkPeer{id: id, deliveries: make(chan delivery, 64)}
}

func (s *sinkPeer) SocketID() string { return s.id }

func (s *sinkPeer) Send(event SocketEvent, payload any) error {
	s.deliveries <- delivery{event: event, payload: payload}
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *Registry) {
	t.Helper()
	registry := NewRegistry()
	coord := NewCoordinator(registry)
	t.Cleanup(coord.Shutdown)
	return coord, registry
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

// nextDelivery returns the next event delivered to the sink, failing the test
// if none arrives in time.
func nextDelivery(t *testing.T, sink *sinkPeer) delivery {
	t.Helper()
	select {
	case d := <-sink.deliveries:
		return d
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivery to %s", sink.id)
		return delivery{}
	}
}

// assertNoDelivery fails the test if the sink receives anything within the
// grace window.
func assertNoDelivery(t *testing.T, sink *sinkPeer) {
	t.Helper()
	select {
	case d := <-sink.deliveries:
		t.Fatalf("unexpected delivery to %s: %s %+v", sink.id, d.event, d.payload)
	case <-time.After(100 * time.Millisecond):
	}
}

// joinRoom attaches the sink, submits a join request, and returns the
// acceptance payload.
func joinRoom(t *testing.T, coord *Coordinator, sink *sinkPeer, roomID, username string) JoinAcceptedPayload {
	t.Helper()
	coord.AttachPeer(sink)
	coord.Dispatch(sink.id, EventJoinRequest, mustJSON(t, JoinRequestPayload{RoomID: roomID, Username: username}))

	d := nextDelivery(t, sink)
	if d.event != EventJoinAccepted {
		t.Fatalf("expected %s, got %s", EventJoinAccepted, d.event)
	}
	accepted, ok := d.payload.(JoinAcceptedPayload)
	if !ok {
		t.Fatalf("unexpected join-accepted payload type %T", d.payload)
	}
	return accepted
}

func usernames(users []user.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}

func TestJoinDeliversSnapshotIncludingJoiner(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	accepted := joinRoom(t, coord, alice, "r1", "alice")

	if accepted.User.Username != "alice" || accepted.User.RoomID != "r1" {
		t.Fatalf("unexpected accepted user: %+v", accepted.User)
	}
	if accepted.User.Status != user.StatusOnline {
		t.Fatalf("joiner status = %s, want %s", accepted.User.Status, user.StatusOnline)
	}
	if got := usernames(accepted.Users); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("snapshot = %v, want [alice]", got)
	}

	bob := newSinkPeer("sock-bob")
	accepted = joinRoom(t, coord, bob, "r1", "bob")

	if got := usernames(accepted.Users); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("snapshot = %v, want [alice bob]", got)
	}

	// The existing member is told about the arrival; the joiner is not
	// announced to itself.
	d := nextDelivery(t, alice)
	if d.event != EventUserJoined {
		t.Fatalf("expected %s at alice, got %s", EventUserJoined, d.event)
	}
	joined := d.payload.(UserPayload)
	if joined.User.Username != "bob" {
		t.Fatalf("announced user = %s, want bob", joined.User.Username)
	}
	assertNoDelivery(t, bob)
}

func TestJoinRejectsDuplicateUsername(t *testing.T) {
	coord, registry := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	joinRoom(t, coord, alice, "r1", "alice")

	impostor := newSinkPeer("sock-impostor")
	coord.AttachPeer(impostor)
	coord.Dispatch(impostor.id, EventJoinRequest, mustJSON(t, JoinRequestPayload{RoomID: "r1", Username: "alice"}))

	d := nextDelivery(t, impostor)
	if d.event != EventUsernameExists {
		t.Fatalf("expected %s, got %s", EventUsernameExists, d.event)
	}

	// Rejection reaches the requester only and mutates nothing.
	assertNoDelivery(t, alice)
	if got := usernames(registry.MembersOf("r1")); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("membership after rejection = %v, want [alice]", got)
	}

	// The rejected connection may retry under a different name.
	accepted := joinRoom(t, coord, impostor, "r1", "bob")
	if got := usernames(accepted.Users); len(got) != 2 {
		t.Fatalf("snapshot after retry = %v, want two members", got)
	}
}

func TestJoinSameUsernameDifferentRooms(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	a := newSinkPeer("sock-a")
	b := newSinkPeer("sock-b")
	joinRoom(t, coord, a, "r1", "alice")
	accepted := joinRoom(t, coord, b, "r2", "alice")

	if got := usernames(accepted.Users); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("r2 snapshot = %v, want [alice]", got)
	}
	assertNoDelivery(t, a)
}

func TestJoinFailsFastOnRegisteredConnection(t *testing.T) {
	coord, registry := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	nextDelivery(t, alice) // bob's arrival announcement

	// A second join on an already admitted connection must not double-join.
	coord.Dispatch(alice.id, EventJoinRequest, mustJSON(t, JoinRequestPayload{RoomID: "r1", Username: "alice2"}))

	assertNoDelivery(t, alice)
	assertNoDelivery(t, bob)
	if registry.Len() != 2 {
		t.Fatalf("registry size = %d, want 2", registry.Len())
	}
	if u, _ := registry.ByConnection(alice.id); u.Username != "alice" {
		t.Fatalf("username mutated to %s", u.Username)
	}
}

func TestChatIsRetaggedAndExcludesSender(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	nextDelivery(t, alice)

	message := mustJSON(t, map[string]string{"text": "hi", "sender": "alice"})
	coord.Dispatch(alice.id, EventSendMessage, mustJSON(t, MessagePayload{Message: message}))

	d := nextDelivery(t, bob)
	if d.event != EventReceiveMessage {
		t.Fatalf("expected %s, got %s", EventReceiveMessage, d.event)
	}
	relayed := d.payload.(MessagePayload)
	if string(relayed.Message) != string(message) {
		t.Fatalf("message altered in transit: %s", relayed.Message)
	}
	assertNoDelivery(t, alice)
}

func TestTypingUpdatesPresenceAndBroadcastsRecord(t *testing.T) {
	coord, registry := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	nextDelivery(t, alice)

	coord.Dispatch(alice.id, EventTypingStart, mustJSON(t, TypingStartPayload{CursorPosition: 42}))

	d := nextDelivery(t, bob)
	if d.event != EventTypingStart {
		t.Fatalf("expected %s, got %s", EventTypingStart, d.event)
	}
	broadcast := d.payload.(UserPayload)
	if !broadcast.User.Typing || broadcast.User.CursorPosition != 42 {
		t.Fatalf("broadcast record = %+v, want typing=true cursor=42", broadcast.User)
	}
	assertNoDelivery(t, alice)

	coord.Dispatch(alice.id, EventTypingPause, nil)

	d = nextDelivery(t, bob)
	if d.event != EventTypingPause {
		t.Fatalf("expected %s, got %s", EventTypingPause, d.event)
	}
	broadcast = d.payload.(UserPayload)
	if broadcast.User.Typing {
		t.Fatalf("typing flag still set after pause: %+v", broadcast.User)
	}
	if broadcast.User.CursorPosition != 42 {
		t.Fatalf("cursor position lost on pause: %+v", broadcast.User)
	}

	if u, _ := registry.ByConnection(alice.id); u.Typing {
		t.Fatalf("registry record still typing: %+v", u)
	}
}

func TestStatusToggleBroadcastsSocketID(t *testing.T) {
	coord, registry := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	nextDelivery(t, alice)

	coord.Dispatch(alice.id, EventUserOffline, mustJSON(t, SocketIDPayload{SocketID: alice.id}))

	d := nextDelivery(t, bob)
	if d.event != EventUserOffline {
		t.Fatalf("expected %s, got %s", EventUserOffline, d.event)
	}
	if p := d.payload.(SocketIDPayload); p.SocketID != alice.id {
		t.Fatalf("payload socket id = %s, want %s", p.SocketID, alice.id)
	}
	if u, _ := registry.ByConnection(alice.id); u.Status != user.StatusOffline {
		t.Fatalf("status = %s, want %s", u.Status, user.StatusOffline)
	}
	assertNoDelivery(t, alice)

	coord.Dispatch(alice.id, EventUserOnline, mustJSON(t, SocketIDPayload{SocketID: alice.id}))

	d = nextDelivery(t, bob)
	if d.event != EventUserOnline {
		t.Fatalf("expected %s, got %s", EventUserOnline, d.event)
	}
	if u, _ := registry.ByConnection(alice.id); u.Status != user.StatusOnline {
		t.Fatalf("status = %s, want %s", u.Status, user.StatusOnline)
	}
}

func TestStructuralEventsBroadcastToRoomOnly(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	carol := newSinkPeer("sock-carol")
	outsider := newSinkPeer("sock-outsider")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	joinRoom(t, coord, carol, "r1", "carol")
	joinRoom(t, coord, outsider, "r2", "dave")
	nextDelivery(t, alice) // bob joined
	nextDelivery(t, alice) // carol joined
	nextDelivery(t, bob)   // carol joined

	coord.Dispatch(alice.id, EventFileUpdated, mustJSON(t, FileUpdatedPayload{
		FileID:     "f1",
		NewContent: mustJSON(t, "package main"),
	}))

	for _, member := range []*sinkPeer{bob, carol} {
		d := nextDelivery(t, member)
		if d.event != EventFileUpdated {
			t.Fatalf("expected %s at %s, got %s", EventFileUpdated, member.id, d.event)
		}
		if p := d.payload.(FileUpdatedPayload); p.FileID != "f1" {
			t.Fatalf("file id = %s, want f1", p.FileID)
		}
	}
	assertNoDelivery(t, alice)
	assertNoDelivery(t, outsider)

	coord.Dispatch(alice.id, EventDirectoryRenamed, mustJSON(t, DirectoryRenamedPayload{DirID: "d1", NewName: "src"}))

	d := nextDelivery(t, bob)
	if d.event != EventDirectoryRenamed {
		t.Fatalf("expected %s, got %s", EventDirectoryRenamed, d.event)
	}
	if p := d.payload.(DirectoryRenamedPayload); p.NewName != "src" {
		t.Fatalf("new name = %s, want src", p.NewName)
	}
	nextDelivery(t, carol)
}

func TestSyncFileStructureIsUnicast(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	carol := newSinkPeer("sock-carol")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	joinRoom(t, coord, carol, "r1", "carol")
	nextDelivery(t, alice)
	nextDelivery(t, alice)
	nextDelivery(t, bob)

	coord.Dispatch(alice.id, EventSyncFileStructure, mustJSON(t, SyncFileStructurePayload{
		FileStructure: mustJSON(t, map[string]string{"root": "d0"}),
		OpenFiles:     mustJSON(t, []string{"f1"}),
		ActiveFile:    mustJSON(t, "f1"),
		SocketID:      carol.id,
	}))

	d := nextDelivery(t, carol)
	if d.event != EventSyncFileStructure {
		t.Fatalf("expected %s, got %s", EventSyncFileStructure, d.event)
	}
	p := d.payload.(SyncFileStructurePayload)
	if p.SocketID != carol.id {
		t.Fatalf("forwarded payload names %s, want %s", p.SocketID, carol.id)
	}
	if string(p.ActiveFile) != `"f1"` {
		t.Fatalf("active file = %s, want \"f1\"", p.ActiveFile)
	}
	assertNoDelivery(t, alice)
	assertNoDelivery(t, bob)
}

func TestDrawingRequestAndReply(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	nextDelivery(t, alice)

	// The requester asks the room for the current canvas.
	coord.Dispatch(alice.id, EventRequestDrawing, nil)

	d := nextDelivery(t, bob)
	if d.event != EventRequestDrawing {
		t.Fatalf("expected %s, got %s", EventRequestDrawing, d.event)
	}
	req := d.payload.(SocketIDPayload)
	if req.SocketID != alice.id {
		t.Fatalf("request names %s, want requester %s", req.SocketID, alice.id)
	}
	assertNoDelivery(t, alice)

	// Any peer answers with a unicast snapshot back to the requester.
	canvas := mustJSON(t, map[string]any{"strokes": 3})
	coord.Dispatch(bob.id, EventSyncDrawing, mustJSON(t, SyncDrawingPayload{
		DrawingData: canvas,
		SocketID:    req.SocketID,
	}))

	d = nextDelivery(t, alice)
	if d.event != EventSyncDrawing {
		t.Fatalf("expected %s, got %s", EventSyncDrawing, d.event)
	}
	reply := d.payload.(SyncDrawingPayload)
	if string(reply.DrawingData) != string(canvas) {
		t.Fatalf("canvas altered in transit: %s", reply.DrawingData)
	}
	assertNoDelivery(t, bob)

	// Incremental updates afterwards are room-wide, excluding the sender.
	coord.Dispatch(alice.id, EventDrawingUpdate, mustJSON(t, DrawingUpdatePayload{Snapshot: canvas}))

	d = nextDelivery(t, bob)
	if d.event != EventDrawingUpdate {
		t.Fatalf("expected %s, got %s", EventDrawingUpdate, d.event)
	}
	assertNoDelivery(t, alice)
}

func TestDisconnectAnnouncesOnceAndCleansUp(t *testing.T) {
	coord, registry := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	nextDelivery(t, alice)

	coord.Disconnect(alice.id)

	d := nextDelivery(t, bob)
	if d.event != EventUserDisconnected {
		t.Fatalf("expected %s, got %s", EventUserDisconnected, d.event)
	}
	departed := d.payload.(UserPayload)
	if departed.User.Username != "alice" {
		t.Fatalf("departed user = %s, want alice", departed.User.Username)
	}

	if got := usernames(registry.MembersOf("r1")); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("membership after disconnect = %v, want [bob]", got)
	}
	if _, ok := registry.ByConnection(alice.id); ok {
		t.Fatal("departed connection still registered")
	}

	// A repeated disconnect announces nothing further.
	coord.Disconnect(alice.id)
	assertNoDelivery(t, bob)

	// Events from the stale connection are dropped with no broadcast.
	coord.Dispatch(alice.id, EventFileUpdated, mustJSON(t, FileUpdatedPayload{FileID: "f1"}))
	assertNoDelivery(t, bob)
}

func TestUnknownSenderEventsAreDroppedSilently(t *testing.T) {
	coord, registry := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	joinRoom(t, coord, alice, "r1", "alice")

	ghost := newSinkPeer("sock-ghost")
	coord.AttachPeer(ghost)

	coord.Dispatch(ghost.id, EventFileUpdated, mustJSON(t, FileUpdatedPayload{FileID: "f1"}))
	coord.Dispatch(ghost.id, EventSendMessage, mustJSON(t, MessagePayload{Message: mustJSON(t, "hi")}))
	coord.Dispatch(ghost.id, EventTypingStart, mustJSON(t, TypingStartPayload{CursorPosition: 7}))

	assertNoDelivery(t, alice)
	assertNoDelivery(t, ghost)
	if registry.Len() != 1 {
		t.Fatalf("registry size = %d, want 1", registry.Len())
	}
}

func TestMalformedPayloadDoesNotStopCoordinator(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	coord.AttachPeer(alice)
	coord.Dispatch(alice.id, EventJoinRequest, json.RawMessage(`{"roomId": 42}`))
	coord.Dispatch(alice.id, EventFileUpdated, json.RawMessage(`not json`))

	// The loop is still serving admissions afterwards.
	accepted := joinRoom(t, coord, alice, "r1", "alice")
	if accepted.User.Username != "alice" {
		t.Fatalf("join after malformed events failed: %+v", accepted)
	}
}

func TestBroadcastOrderIsAcceptanceOrder(t *testing.T) {
	coord, _ := newTestCoordinator(t)

	alice := newSinkPeer("sock-alice")
	bob := newSinkPeer("sock-bob")
	joinRoom(t, coord, alice, "r1", "alice")
	joinRoom(t, coord, bob, "r1", "bob")
	nextDelivery(t, alice)

	for i := 0; i < 5; i++ {
		coord.Dispatch(alice.id, EventFileUpdated, mustJSON(t, FileUpdatedPayload{
			FileID:     "f1",
			NewContent: mustJSON(t, i),
		}))
	}

	for i := 0; i < 5; i++ {
		d := nextDelivery(t, bob)
		p := d.payload.(FileUpdatedPayload)
		var got int
		if err := json.Unmarshal(p.NewContent, &got); err != nil {
			t.Fatalf("decode content: %v", err)
		}
		if got != i {
			t.Fatalf("delivery %d carried content %d; order not preserved", i, got)
		}
	}
}
