// Package remote is the client side of the shared datastore: accounts,
// family membership, item rows and the real-time change feed.
package remote

import (
	"context"
	"errors"

	"github.com/dukerupert/basket/internal/model"
)

var (
	// ErrUnauthorized means the datastore rejected the credentials or token.
	ErrUnauthorized = errors.New("remote: unauthorized")
	// ErrNotOwner means a non-owner tried an owner-only family operation.
	ErrNotOwner = errors.New("remote: only the family owner can do that")
)

type EventKind int

const (
	Inserted EventKind = iota
	Updated
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// Event is one change to a row of the family's item list. Item is zero for
// Deleted events.
type Event struct {
	Kind   EventKind
	Item   model.Item
	ItemID string
}

// Accounts covers identity and family membership.
type Accounts interface {
	Authenticate(ctx context.Context, id model.Identity) (*model.Session, error)
	// JoinFamily returns nil when the invite code matches no family.
	JoinFamily(ctx context.Context, userID, inviteCode string) (*model.Family, error)
	// LeaveFamily moves the user into a fresh single-member family.
	LeaveFamily(ctx context.Context, userID string) (*model.Family, error)
	RemoveMember(ctx context.Context, ownerID, targetID string) (*model.Family, error)
}

// Datastore is the shared item store for one family plus its change feed.
type Datastore interface {
	Accounts
	ListItems(ctx context.Context, familyID string) ([]model.Item, error)
	// UpsertItem writes the row keyed by its id.
	UpsertItem(ctx context.Context, item model.Item) (bool, error)
	DeleteItem(ctx context.Context, itemID string) (bool, error)
	// Subscribe delivers changes to familyID's rows until unsubscribe is
	// called or the connection drops, at which point the channel is closed.
	Subscribe(ctx context.Context, familyID string) (events <-chan Event, unsubscribe func(), err error)
}
