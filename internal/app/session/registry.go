/*
Package session contains the core coordination logic for collaboration rooms.

This file defines the Registry, the single source of truth for which
connections are admitted and which room each belongs to. A room is not a
materialized entity: it is the set of registered users sharing a room ID,
created by the first join and gone when the last member leaves.
*/
package session

import (
	"sort"
	"sync"

	"github.com/Tanmay-110/Code-Collab/internal/app/user"
	"github.com/Tanmay-110/Code-Collab/internal/pkg/errs"
)

// entry pairs a user record with its admission ordinal, so membership
// snapshots list users in join order.
type entry struct {
	user user.User
	seq  uint64
}

// Registry maps live socket IDs to admitted users. All mutation goes through
// the coordinator's run loop; the RWMutex keeps concurrent readers (tests,
// the HTTP surface) safe and makes each check-then-write atomic on its own.
type Registry struct {
	mu    sync.RWMutex
	users map[string]entry
	seq   uint64
}

// NewRegistry returns an empty Registry. Each coordinator owns its own
// instance; there is no process-wide registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]entry),
	}
}

// Add inserts a user record. It fails with ErrDuplicateConnection if the
// socket ID is already registered, which signals a broken transport contract
// rather than a recoverable client condition.
func (reg *Registry) Add(u user.User) *errs.CustomError {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.users[u.SocketID]; ok {
		return errs.NewError(errs.ErrDuplicateConnection)
	}

	reg.seq++
	reg.users[u.SocketID] = entry{user: u, seq: reg.seq}
	return nil
}

// Remove deletes the record for the socket ID. Removing an unknown ID is a
// no-op, which covers the race of a disconnect arriving twice.
func (reg *Registry) Remove(socketID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.users, socketID)
}

// ByConnection returns a copy of the user record for the socket ID.
func (reg *Registry) ByConnection(socketID string) (user.User, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	e, ok := reg.users[socketID]
	return e.user, ok
}

// Update applies mutate to the record for the socket ID in place and returns
// a copy of the updated record. The second return is false if the connection
// is unknown, in which case nothing was mutated.
func (reg *Registry) Update(socketID string, mutate func(*user.User)) (user.User, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	e, ok := reg.users[socketID]
	if !ok {
		return user.User{}, false
	}

	mutate(&e.user)
	reg.users[socketID] = e
	return e.user, true
}

// MembersOf returns the users registered in the room, in join order. An
// unknown or empty room yields an empty slice, never an error.
func (reg *Registry) MembersOf(roomID string) []user.User {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var members []entry
	for _, e := range reg.users {
		if e.user.RoomID == roomID {
			members = append(members, e)
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })

	users := make([]user.User, 0, len(members))
	for _, e := range members {
		users = append(users, e.user)
	}
	return users
}

// RoomOf resolves the room a connection belongs to. The second return is
// false when the connection is unknown; callers treat that as "drop the
// operation silently", modeling an event that raced with a disconnect.
func (reg *Registry) RoomOf(socketID string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	e, ok := reg.users[socketID]
	if !ok {
		return "", false
	}
	return e.user.RoomID, true
}

// Len returns the number of admitted connections across all rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.users)
}
