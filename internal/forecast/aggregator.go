package forecast

import (
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ProductSales is the per-product rollup of a window of sale events.
type ProductSales struct {
	ProductID     string
	ProductName   string
	Category      string
	TotalQuantity int
	TotalRevenue  float64
	Series        domain.ProductDailySeries
}

// Aggregate groups sale events into one daily series per product, summing
// same-day quantities. Products are returned ordered by id.
func Aggregate(events []domain.SaleEvent) []ProductSales {
	type bucket struct {
		sales   ProductSales
		revenue float64
		byDay   map[time.Time]int
	}

	buckets := make(map[string]*bucket)
	for _, e := range events {
		b, ok := buckets[e.ProductID]
		if !ok {
			b = &bucket{
				sales: ProductSales{ProductID: e.ProductID},
				byDay: make(map[time.Time]int),
			}
			buckets[e.ProductID] = b
		}
		if b.sales.ProductName == "" {
			b.sales.ProductName = e.ProductName
		}
		if b.sales.Category == "" {
			b.sales.Category = e.Category
		}

		b.byDay[domain.DateOf(e.Date)] += e.Quantity
		b.sales.TotalQuantity += e.Quantity
		b.revenue += e.Revenue
	}

	out := make([]ProductSales, 0, len(buckets))
	for id, b := range buckets {
		days := make([]domain.DailyQuantity, 0, len(b.byDay))
		for d, q := range b.byDay {
			days = append(days, domain.DailyQuantity{Date: d, Quantity: q})
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

		b.sales.TotalRevenue = domain.Round2(b.revenue)
		b.sales.Series = domain.ProductDailySeries{ProductID: id, Days: days}
		out = append(out, b.sales)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
