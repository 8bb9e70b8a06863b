package domain

import "fmt"

// TrafficTier is the coarse sales velocity class of a product.
type TrafficTier string

const (
	TierHigh   TrafficTier = "high"
	TierMedium TrafficTier = "medium"
	TierLow    TrafficTier = "low"
)

// StockSnapshotRow is the current stock position of one product in a store.
type StockSnapshotRow struct {
	ProductID    string  `json:"product_id" db:"product_id"`
	Name         string  `json:"name" db:"name"`
	CurrentStock int     `json:"current_stock" db:"current_stock"`
	MinRequired  int     `json:"min_required" db:"min_required"`
	LeadTimeDays int     `json:"lead_time_days" db:"lead_time_days"`
	Price        float64 `json:"price" db:"price"`
	Category     string  `json:"category,omitempty" db:"category"`
	Supplier     string  `json:"supplier,omitempty" db:"supplier"`
}

// NewStockSnapshotRow validates and builds a StockSnapshotRow.
func NewStockSnapshotRow(productID, name string, currentStock, minRequired, leadTimeDays int, price float64) (StockSnapshotRow, error) {
	row := StockSnapshotRow{
		ProductID:    productID,
		Name:         name,
		CurrentStock: currentStock,
		MinRequired:  minRequired,
		LeadTimeDays: leadTimeDays,
		Price:        price,
	}
	if err := row.Validate(); err != nil {
		return StockSnapshotRow{}, err
	}
	return row, nil
}

// Validate checks the non-negativity invariants.
func (r StockSnapshotRow) Validate() error {
	switch {
	case r.ProductID == "":
		return fmt.Errorf("%w: stock row without product id", ErrInvalidRecord)
	case r.CurrentStock < 0:
		return fmt.Errorf("%w: stock row %s has negative stock %d", ErrInvalidRecord, r.ProductID, r.CurrentStock)
	case r.MinRequired < 0:
		return fmt.Errorf("%w: stock row %s has negative min required", ErrInvalidRecord, r.ProductID)
	case r.LeadTimeDays < 0:
		return fmt.Errorf("%w: stock row %s has negative lead time", ErrInvalidRecord, r.ProductID)
	case r.Price < 0:
		return fmt.Errorf("%w: stock row %s has negative price", ErrInvalidRecord, r.ProductID)
	}
	return nil
}

// DaysOfCover is the estimated time until stockout. Point, Low and High are nil
// when Unbounded is set (no demand observed).
type DaysOfCover struct {
	Unbounded bool     `json:"unbounded"`
	Point     *float64 `json:"point"`
	Low       *float64 `json:"low"`
	High      *float64 `json:"high"`
}

// PolicyParameters echoes the parameters a policy was computed with.
type PolicyParameters struct {
	BufferDays   int     `json:"buffer_days"`
	ServiceLevel float64 `json:"service_level"`
	ZScore       float64 `json:"z_score"`
}

// ReplenishmentPolicy is the reorder recommendation for one stocked product.
type ReplenishmentPolicy struct {
	StockSnapshotRow

	AvgDailySales float64     `json:"avg_daily_sales"`
	SalesTrend    TrendLabel  `json:"sales_trend"`
	TrafficLevel  TrafficTier `json:"traffic_level"`
	DaysOfCover   DaysOfCover `json:"days_of_cover"`
	IsCritical    bool        `json:"is_critical"`
	StockValue    float64     `json:"stock_value"`

	SafetyStock      int `json:"safety_stock"`
	LeadTimeDemand   int `json:"lead_time_demand"`
	TargetStockLevel int `json:"target_stock_level"`
	ReorderQuantity  int `json:"reorder_qty"`

	Parameters PolicyParameters `json:"policy"`
	Forecast   DemandForecast   `json:"forecast"`
}
