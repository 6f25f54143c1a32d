package models

// ThresholdKind names the counter a badge threshold applies to.
type ThresholdKind string

const (
	ThresholdMints     ThresholdKind = "mints"
	ThresholdSales     ThresholdKind = "sales"
	ThresholdPurchases ThresholdKind = "purchases"
	ThresholdPoints    ThresholdKind = "points"
)

// Badge describes one entry of the badge catalog.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Rarity      string        `json:"rarity"`
	Category    string        `json:"category"`
	Threshold   ThresholdKind `json:"threshold"`
	Value       int64         `json:"value"`
}

// Qualifies reports whether the account meets the badge's threshold.
func (b Badge) Qualifies(a *Account) bool {
	switch b.Threshold {
	case ThresholdMints:
		return a.Mints >= uint64(b.Value)
	case ThresholdSales:
		return a.Sales >= uint64(b.Value)
	case ThresholdPurchases:
		return a.Purchases >= uint64(b.Value)
	case ThresholdPoints:
		return a.Points >= b.Value
	}
	return false
}

// Catalog returns the badge catalog in award-check order. The thresholds are
// product placeholders; retune here, nowhere else.
func Catalog() []Badge {
	return []Badge{
		{
			ID:          "first_acquisition",
			Name:        "First Acquisition",
			Description: "Bought a cultural artifact for the first time",
			Rarity:      "common",
			Category:    "collector",
			Threshold:   ThresholdPurchases,
			Value:       1,
		},
		{
			ID:          "first_sale",
			Name:        "First Sale",
			Description: "Sold a cultural artifact for the first time",
			Rarity:      "common",
			Category:    "trader",
			Threshold:   ThresholdSales,
			Value:       1,
		},
		{
			ID:          "prolific_curator",
			Name:        "Prolific Curator",
			Description: "Minted ten artifacts",
			Rarity:      "rare",
			Category:    "curator",
			Threshold:   ThresholdMints,
			Value:       10,
		},
		{
			ID:          "patron",
			Name:        "Patron",
			Description: "Accumulated one hundred points",
			Rarity:      "rare",
			Category:    "community",
			Threshold:   ThresholdPoints,
			Value:       100,
		},
		{
			ID:          "benefactor",
			Name:        "Benefactor",
			Description: "Accumulated one thousand points",
			Rarity:      "legendary",
			Category:    "community",
			Threshold:   ThresholdPoints,
			Value:       1000,
		},
	}
}

// Policy is the point-award schedule. Placeholder values pending product
// numbers; centralizing them here keeps the retune a one-line change.
type Policy struct {
	MintPoints       int64
	SaleSellerPoints int64
	SaleBuyerPoints  int64
	ListPoints       int64
}

// DefaultPolicy returns the placeholder schedule.
func DefaultPolicy() Policy {
	return Policy{
		MintPoints:       10,
		SaleSellerPoints: 5,
		SaleBuyerPoints:  3,
		ListPoints:       1,
	}
}
