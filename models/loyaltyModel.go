package models

import "time"

type LoyaltyTxType string

const (
	LoyaltyEarned         LoyaltyTxType = "earned"
	LoyaltyRedeemed       LoyaltyTxType = "redeemed"
	LoyaltyManualAddition LoyaltyTxType = "manual_addition"
)

// LoyaltyAccount is the cached projection of a member's ledger.
type LoyaltyAccount struct {
	FranchiseMemberID string    `json:"franchiseMemberId" gorm:"primaryKey;size:64"`
	CurrentBalance    int64     `json:"currentBalance"`
	TotalEarned       int64     `json:"totalEarned"`
	TotalRedeemed     int64     `json:"totalRedeemed"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type LoyaltyTransaction struct {
	ID                string        `json:"id" gorm:"primaryKey;size:36"`
	FranchiseMemberID string        `json:"franchiseMemberId" gorm:"size:64;index"`
	Type              LoyaltyTxType `json:"type" gorm:"size:24"`
	Points            int64         `json:"points"`
	Description       string        `json:"description"`
	OrderID           string        `json:"orderId,omitempty" gorm:"size:36;index"`
	CreatedAt         time.Time     `json:"createdAt"`
}
