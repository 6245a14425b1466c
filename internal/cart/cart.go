// Package cart holds the per-user shopping cart value and its stores.
package cart

import (
	"context"
	"errors"
	"slices"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached
var ErrStoreUnavailable = errors.New("cart store unavailable")

// Cart is an ordered set of course IDs awaiting checkout.
// Cart values are immutable: every mutating method returns a new Cart.
type Cart struct {
	CourseIDs []int64 `json:"course_ids"`
}

// Contains reports whether the course is in the cart
func (c Cart) Contains(courseID int64) bool {
	return slices.Contains(c.CourseIDs, courseID)
}

// Add returns a cart with courseID appended. Adding a present course is a no-op.
func (c Cart) Add(courseID int64) Cart {
	if c.Contains(courseID) {
		return c
	}
	ids := make([]int64, 0, len(c.CourseIDs)+1)
	ids = append(ids, c.CourseIDs...)
	return Cart{CourseIDs: append(ids, courseID)}
}

// Remove returns a cart without courseID
func (c Cart) Remove(courseID int64) Cart {
	ids := make([]int64, 0, len(c.CourseIDs))
	for _, id := range c.CourseIDs {
		if id != courseID {
			ids = append(ids, id)
		}
	}
	return Cart{CourseIDs: ids}
}

// Retain returns a cart holding only the IDs for which keep returns true
func (c Cart) Retain(keep func(int64) bool) Cart {
	ids := make([]int64, 0, len(c.CourseIDs))
	for _, id := range c.CourseIDs {
		if keep(id) {
			ids = append(ids, id)
		}
	}
	return Cart{CourseIDs: ids}
}

// IsEmpty reports whether the cart has no items
func (c Cart) IsEmpty() bool {
	return len(c.CourseIDs) == 0
}

// Len returns the number of items
func (c Cart) Len() int {
	return len(c.CourseIDs)
}

// Store persists carts keyed by user ID
type Store interface {
	// Load returns the user's cart; a missing cart is an empty Cart, not an error
	Load(ctx context.Context, userID int64) (Cart, error)

	// Save replaces the user's cart
	Save(ctx context.Context, userID int64, c Cart) error

	// Clear removes the user's cart
	Clear(ctx context.Context, userID int64) error
}
