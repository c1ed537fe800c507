package chathub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Event is the wire frame for everything the gateway emits.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// rooms maps an order ID to the set of live connections admitted into
// that order's chat. Mutations are serialized by the lock so a join
// cannot interleave with a closure sweep. writes holds one mutex per
// registered connection: gorilla forbids concurrent writers, and the
// session's own goroutine and room-wide fanout write to the same conn.
// closed remembers swept rooms so a join racing the sweep is refused.
var rooms = struct {
	sync.RWMutex
	m      map[string]map[*websocket.Conn]bool
	writes map[*websocket.Conn]*sync.Mutex
	closed map[string]bool
}{
	m:      make(map[string]map[*websocket.Conn]bool),
	writes: make(map[*websocket.Conn]*sync.Mutex),
	closed: make(map[string]bool),
}

// sequence serializes the persist-then-broadcast path per room so
// messages fan out in the order they were committed.
var sequence = struct {
	sync.Mutex
	m map[string]*sync.Mutex
}{m: make(map[string]*sync.Mutex)}

// RoomSequence returns the per-room mutex callers hold across a
// message persist and its broadcast.
func RoomSequence(orderID string) *sync.Mutex {
	sequence.Lock()
	defer sequence.Unlock()
	mu, ok := sequence.m[orderID]
	if !ok {
		mu = &sync.Mutex{}
		sequence.m[orderID] = mu
	}
	return mu
}

// AddClient registers a connection in a room. It reports false for a
// room that was already closed and swept; the caller must not keep
// the session.
func AddClient(orderID string, conn *websocket.Conn) bool {
	rooms.Lock()
	defer rooms.Unlock()
	if rooms.closed[orderID] {
		return false
	}
	conns, ok := rooms.m[orderID]
	if !ok {
		conns = make(map[*websocket.Conn]bool)
		rooms.m[orderID] = conns
	}
	conns[conn] = true
	rooms.writes[conn] = &sync.Mutex{}
	return true
}

func RemoveClient(orderID string, conn *websocket.Conn) {
	rooms.Lock()
	defer rooms.Unlock()
	delete(rooms.writes, conn)
	if conns, ok := rooms.m[orderID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(rooms.m, orderID)
		}
	}
}

// Send writes one frame to a single connection, holding its write
// mutex when the connection is registered in a room. Before AddClient
// (and after RemoveClient) the session goroutine is the only writer.
func Send(conn *websocket.Conn, evt Event) error {
	rooms.RLock()
	mu := rooms.writes[conn]
	rooms.RUnlock()
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	return conn.WriteJSON(evt)
}

// Broadcast delivers evt to every connection in the room. Dead
// connections are dropped from the set.
func Broadcast(orderID string, evt Event) {
	rooms.Lock()
	defer rooms.Unlock()
	for c := range rooms.m[orderID] {
		mu := rooms.writes[c]
		mu.Lock()
		err := c.WriteJSON(evt)
		mu.Unlock()
		if err != nil {
			c.Close()
			delete(rooms.m[orderID], c)
		}
	}
}

// CloseRoom broadcasts evt and then force-disconnects every member,
// in one critical section so no session joins mid-sweep. The room is
// marked closed so a join that validated before the sweep is refused.
func CloseRoom(orderID string, evt Event) {
	rooms.Lock()
	defer rooms.Unlock()
	rooms.closed[orderID] = true
	for c := range rooms.m[orderID] {
		mu := rooms.writes[c]
		mu.Lock()
		_ = c.WriteJSON(evt)
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "chat closed"))
		mu.Unlock()
		c.Close()
		delete(rooms.writes, c)
	}
	delete(rooms.m, orderID)
}

// RoomSize reports the current number of live connections in a room.
func RoomSize(orderID string) int {
	rooms.RLock()
	defer rooms.RUnlock()
	return len(rooms.m[orderID])
}
