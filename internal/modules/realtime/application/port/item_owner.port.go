package port

import (
	"context"
	"errors"
)

var (
	ErrItemNotFound        = errors.New("item not found")
	ErrItemLookupForbidden = errors.New("item lookup forbidden")
	ErrItemHasNoOwner      = errors.New("item has no owner")
)

// ItemOwnerLookup resolves the user who reported an item, for match events that do
// not name their recipients.
type ItemOwnerLookup interface {
	ItemOwner(ctx context.Context, itemID int64) (int64, error)
}
