package domain

import "strings"

// LotStatus represents the auction outcome of a single lot.
type LotStatus string

const (
	StatusSold      LotStatus = "sold"
	StatusUnsold    LotStatus = "unsold"
	StatusOutsold   LotStatus = "outsold"
	StatusWithdrawn LotStatus = "withdrawn"
)

// ParseLotStatus normalizes a raw status cell into a LotStatus.
// Matching is case-insensitive and whitespace-tolerant because sale files
// arrive with inconsistent casing.
func ParseLotStatus(raw string) (LotStatus, bool) {
	switch LotStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusSold:
		return StatusSold, true
	case StatusUnsold:
		return StatusUnsold, true
	case StatusOutsold:
		return StatusOutsold, true
	case StatusWithdrawn:
		return StatusWithdrawn, true
	}
	return "", false
}

// SoldSide reports whether the lot counts toward the sold side of the sale.
// Outsold lots (sold after the auction to the highest bidder) count as sold
// for sell-through purposes.
func (s LotStatus) SoldSide() bool {
	return s == StatusSold || s == StatusOutsold
}

// AuctionLot is one lot row from a sale file. Immutable once loaded.
type AuctionLot struct {
	SaleNo      int       `json:"sale_no" csv:"Sale_No"`
	LotNo       string    `json:"lot_no" csv:"Lot No"`
	Broker      string    `json:"broker" csv:"Broker" validate:"required"`
	SellingMark string    `json:"selling_mark,omitempty" csv:"Selling Mark"`
	Grade       string    `json:"grade" csv:"Grade" validate:"required"`
	Elevation   string    `json:"elevation" csv:"Sub Elevation"`
	Category    string    `json:"category" csv:"Category"`
	Buyer       string    `json:"buyer,omitempty" csv:"Buyer"`
	Price       float64   `json:"price" csv:"Price" validate:"gte=0"`
	Quantity    float64   `json:"quantity" csv:"Total Weight" validate:"gte=0"`
	Status      LotStatus `json:"status" csv:"Status"`
}

// Value returns the lot value in LKR (price per kg times quantity).
func (l AuctionLot) Value() float64 {
	return l.Price * l.Quantity
}
