package expr

import (
	"database/sql"
	"time"
)

type tag struct {
	Label string
	Color *string
}

type line struct {
	SKU      string `json:"sku"`
	Quantity int
}

type customer struct {
	Name  string
	Email sql.NullString
}

type audit struct {
	CreatedBy string
}

type order struct {
	audit
	ID          int64
	Reference   string `db:"ref"`
	Customer    *customer
	Total       float64
	Paid        bool
	PlacedAt    time.Time
	ShippedAt   *time.Time
	DeliveredAt sql.NullTime
	Tags        []tag
	Lines       []*line
	Notes       []string
	CouponCode  string
	secret      string
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func fixtureTime() time.Time {
	return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
}

func fixtureOrder() order {
	return order{
		audit:     audit{CreatedBy: "Importer"},
		ID:        42,
		Reference: "REF-0042",
		Customer:  &customer{Name: "Alice Smith", Email: sql.NullString{String: "alice@example.com", Valid: true}},
		Total:     19.5,
		Paid:      true,
		PlacedAt:  fixtureTime(),
		Tags: []tag{
			{Label: "Red", Color: strPtr("#f00")},
			{Label: "Blue"},
		},
		Lines: []*line{
			{SKU: "A-1", Quantity: 2},
			{SKU: "B-2", Quantity: 1},
		},
		Notes:      []string{"Fragile", "Gift"},
		CouponCode: "SPRING",
	}
}
