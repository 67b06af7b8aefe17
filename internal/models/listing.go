package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is the local read model of an active sale offer. The registry is
// authoritative; rows here exist only so the UI can browse without a remote
// round trip. Mutating workflows never consult this table.
type Listing struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	TokenID uint64 `gorm:"not null;uniqueIndex"`

	Seller   string `gorm:"type:varchar(100);not null;index"`
	PriceE8s uint64 `gorm:"not null"`

	SellerApproval bool `gorm:"not null;default:true"`

	Status string `gorm:"type:varchar(20);not null;default:'listed';index"`

	ListedAt   *time.Time `gorm:"type:timestamptz"`
	LastSeenAt time.Time  `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (Listing) TableName() string {
	return "listings"
}

// PriceTokens converts the e8s minor-unit price to whole payment tokens.
func (l Listing) PriceTokens() decimal.Decimal {
	return decimal.NewFromUint64(l.PriceE8s).Div(decimal.NewFromInt(100_000_000))
}

const (
	ListingStatusListed   = "listed"
	ListingStatusUnlisted = "unlisted"
	ListingStatusSold     = "sold"
)
