package domain

import (
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// DateOf truncates t to its calendar date at UTC midnight. Every date carried by
// the domain types goes through it so dates compare with ==.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", ErrInvalidRecord, s, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// WeekdayIndex maps a date to Mon=0 ... Sun=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekdayNames is indexed by WeekdayIndex.
var WeekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// SaleEvent is a single sale line item as supplied by the sales history source.
type SaleEvent struct {
	StoreID     string    `json:"store_id" db:"store_id"`
	Date        time.Time `json:"date" db:"sale_date"`
	ProductID   string    `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name,omitempty" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
	Revenue     float64   `json:"revenue" db:"revenue"`
	Category    string    `json:"category,omitempty" db:"category"`
	Discount    float64   `json:"discount" db:"discount"`
}

// NewSaleEvent validates and builds a SaleEvent with revenue computed as
// quantity * unit_price * (1 - discount).
func NewSaleEvent(storeID string, date time.Time, productID string, quantity int, unitPrice, discount float64) (SaleEvent, error) {
	e := SaleEvent{
		StoreID:   storeID,
		Date:      DateOf(date),
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Discount:  discount,
	}
	e.Revenue = roundTo(float64(quantity)*unitPrice*(1-discount), 2)

	if err := e.Validate(); err != nil {
		return SaleEvent{}, err
	}
	return e, nil
}

// Validate checks the non-negativity invariants. Revenue is taken as supplied,
// repositories may carry a pre-computed value that departs from the construction rule.
func (e SaleEvent) Validate() error {
	switch {
	case e.ProductID == "":
		return fmt.Errorf("%w: sale event without product id", ErrInvalidRecord)
	case e.Date.IsZero():
		return fmt.Errorf("%w: sale event %s without date", ErrInvalidRecord, e.ProductID)
	case e.Quantity < 0:
		return fmt.Errorf("%w: sale event %s has negative quantity %d", ErrInvalidRecord, e.ProductID, e.Quantity)
	case e.UnitPrice < 0:
		return fmt.Errorf("%w: sale event %s has negative unit price", ErrInvalidRecord, e.ProductID)
	case e.Discount < 0 || e.Discount > 1 || math.IsNaN(e.Discount):
		return fmt.Errorf("%w: sale event %s discount %.2f outside [0,1]", ErrInvalidRecord, e.ProductID, e.Discount)
	}
	return nil
}

// DailyQuantity is the total quantity of one product sold on one date.
type DailyQuantity struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
}

// ProductDailySeries is the chronological daily quantity series of one product.
// Dates are unique and ascending.
type ProductDailySeries struct {
	ProductID string          `json:"product_id"`
	Days      []DailyQuantity `json:"days"`
}

// Len returns the number of observed days.
func (s ProductDailySeries) Len() int {
	return len(s.Days)
}

// Quantities returns the quantities as floats in chronological order.
func (s ProductDailySeries) Quantities() []float64 {
	out := make([]float64, len(s.Days))
	for i, d := range s.Days {
		out[i] = float64(d.Quantity)
	}
	return out
}

// Total returns the summed quantity.
func (s ProductDailySeries) Total() int {
	total := 0
	for _, d := range s.Days {
		total += d.Quantity
	}
	return total
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return roundTo(v, 2)
}
