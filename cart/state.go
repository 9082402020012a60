// Package cart holds each franchise member's in-progress cart and prices it
// on every read.
package cart

import (
	"time"

	"github.com/Kariqs/franchise-api/models"
)

// State is one member's cart. Lines keep insertion order.
type State struct {
	FranchiseMemberID string            `json:"franchiseMemberId"`
	Lines             []models.CartLine `json:"lines"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func NewState(memberID string) *State {
	return &State{FranchiseMemberID: memberID, Lines: []models.CartLine{}}
}

// Add puts quantity units of item in the cart, merging with an existing line.
// The line takes the item's current catalog price.
func (s *State) Add(item models.CatalogItem, quantity int) models.CartLine {
	quantity = max(quantity, 1)
	s.UpdatedAt = time.Now()
	for i := range s.Lines {
		if s.Lines[i].ItemID == item.ID {
			s.Lines[i].Quantity += quantity
			s.Lines[i].UnitPrice = item.Price
			s.Lines[i].GSTRate = item.GSTRate
			return s.Lines[i]
		}
	}
	line := models.CartLine{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Unit:      item.Unit,
		Quantity:  quantity,
		GSTRate:   item.GSTRate,
		Category:  item.Category,
	}
	s.Lines = append(s.Lines, line)
	return line
}

// SetQuantity clamps quantity to at least one and reports whether the item
// was in the cart.
func (s *State) SetQuantity(itemID string, quantity int) bool {
	for i := range s.Lines {
		if s.Lines[i].ItemID == itemID {
			s.Lines[i].Quantity = max(quantity, 1)
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

func (s *State) Remove(itemID string) bool {
	for i := range s.Lines {
		if s.Lines[i].ItemID == itemID {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

func (s *State) Clear() {
	s.Lines = []models.CartLine{}
	s.UpdatedAt = time.Now()
}

func (s *State) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Snapshot returns a copy of the lines safe to hand to another owner.
func (s *State) Snapshot() []models.CartLine {
	out := make([]models.CartLine, len(s.Lines))
	copy(out, s.Lines)
	return out
}
