package postsync

import (
	"strconv"

	"github.com/google/uuid"
)

// Key identifies an item in a collection. An item carries a PendingID from
// the moment it is created locally until the server assigns its PersistedID.
type Key interface {
	String() string
	isKey()
}

// PersistedID is an id assigned by the server.
type PersistedID int

func (id PersistedID) String() string { return strconv.Itoa(int(id)) }
func (PersistedID) isKey()            {}

// PendingID tags a locally created item that the server has not confirmed.
type PendingID struct {
	token uuid.UUID
}

func NewPendingID() PendingID {
	return PendingID{token: uuid.New()}
}

func (id PendingID) String() string { return "pending-" + id.token.String() }
func (PendingID) isKey()            {}
