package models

import "github.com/shopspring/decimal"

// CatalogItem is the read-only inventory view of an orderable item.
type CatalogItem struct {
	ID        string          `json:"id" gorm:"primaryKey;size:64"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(14,4)"`
	Unit      string          `json:"unit"`
	GSTRate   decimal.Decimal `json:"gstRate" gorm:"type:decimal(6,4)"`
	Category  string          `json:"category"`
	Available bool            `json:"available"`
}
