package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
)

const (
	// TopSellerLimit caps the number of best-selling products reported.
	TopSellerLimit = 5
	// RecentOrderLimit caps the number of recent orders reported.
	RecentOrderLimit = 5
	// ShortIDLength is the number of trailing id characters shown for recent orders.
	ShortIDLength = 5

	dateLayout = "2 Jan 2006"
)

// Summary is the derived reporting snapshot for the dashboard and analytics pages.
type Summary struct {
	TotalEarnings   float64            `json:"totalEarnings"`
	TotalOrders     int                `json:"totalOrders"`
	CompletedCount  int                `json:"completedCount"`
	PendingCount    int                `json:"pendingCount"`
	CancelledCount  int                `json:"cancelledCount"`
	EarningsByMonth []MonthlyEarnings  `json:"earningsByMonth"`
	StatusBreakdown StatusBreakdown    `json:"orderStatusBreakdown"`
	TopSellers      []products.Product `json:"topSellers"`
	LowStock        []LowStockItem     `json:"lowStock"`
	RecentOrders    []RecentOrder      `json:"recentOrders"`

	// GrossAmount sums every order regardless of status.
	GrossAmount   float64      `json:"grossAmount"`
	ProductCount  int          `json:"productCount"`
	SalesOverview []SalesPoint `json:"salesOverview"`
	Display       Display      `json:"display"`
}

// MonthlyEarnings is the completed revenue for one short month name.
type MonthlyEarnings struct {
	Month    string  `json:"month"`
	Earnings float64 `json:"earnings"`
}

// StatusBreakdown counts orders per status.
type StatusBreakdown struct {
	Pending   int `json:"Pending"`
	Completed int `json:"Completed"`
	Cancelled int `json:"Cancelled"`
}

// LowStockItem is a product that needs restocking.
type LowStockItem struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// RecentOrder is a lightweight row for the recent orders table.
type RecentOrder struct {
	ShortID       string        `json:"shortId"`
	CustomerName  string        `json:"customerName"`
	Status        orders.Status `json:"status"`
	TotalAmount   float64       `json:"totalAmount"`
	FormattedDate string        `json:"formattedDate"`
}

// SalesPoint is one bar of the sales overview chart.
type SalesPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// Display carries preformatted amounts.
type Display struct {
	TotalEarnings string `json:"totalEarnings"`
	GrossAmount   string `json:"grossAmount"`
}

// Summarize derives a Summary from the full order and product sets. Inputs are not
// modified and empty inputs produce zero values.
func Summarize(orderSet []orders.Order, productSet []products.Product) Summary {
	summary := Summary{
		TotalOrders:     len(orderSet),
		EarningsByMonth: earningsByMonth(orderSet),
		TopSellers:      TopSellers(productSet, TopSellerLimit),
		LowStock:        lowStock(productSet),
		RecentOrders:    RecentOrders(orderSet, RecentOrderLimit),
		ProductCount:    len(productSet),
	}

	for _, order := range orderSet {
		summary.GrossAmount += order.TotalAmount
		switch order.Status {
		case orders.StatusCompleted:
			summary.CompletedCount++
			summary.TotalEarnings += order.TotalAmount
		case orders.StatusPending:
			summary.PendingCount++
		case orders.StatusCancelled:
			summary.CancelledCount++
		}
	}
	summary.StatusBreakdown = StatusBreakdown{
		Pending:   summary.PendingCount,
		Completed: summary.CompletedCount,
		Cancelled: summary.CancelledCount,
	}

	summary.SalesOverview = make([]SalesPoint, 0, len(summary.RecentOrders))
	for _, recent := range summary.RecentOrders {
		summary.SalesOverview = append(summary.SalesOverview, SalesPoint{Date: recent.FormattedDate, Amount: recent.TotalAmount})
	}

	summary.Display = Display{
		TotalEarnings: FormatAmount(summary.TotalEarnings),
		GrossAmount:   FormatAmount(summary.GrossAmount),
	}
	return summary
}

// EarningsFor returns the completed revenue recorded for a short month name.
func (s Summary) EarningsFor(month string) float64 {
	for _, entry := range s.EarningsByMonth {
		if entry.Month == month {
			return entry.Earnings
		}
	}
	return 0
}

// earningsByMonth groups completed orders by short month name in order of first
// appearance. Orders from different years share a bucket. Orders without a creation time
// have no month and only count towards the totals.
func earningsByMonth(orderSet []orders.Order) []MonthlyEarnings {
	out := make([]MonthlyEarnings, 0)
	index := map[string]int{}
	for _, order := range orderSet {
		if order.Status != orders.StatusCompleted || order.CreatedAt.IsZero() {
			continue
		}
		month := shortMonth(order.CreatedAt)
		pos, ok := index[month]
		if !ok {
			pos = len(out)
			index[month] = pos
			out = append(out, MonthlyEarnings{Month: month})
		}
		out[pos].Earnings += order.TotalAmount
	}
	return out
}

// TopSellers returns up to limit products ordered by units sold, keeping the input order
// between products that sold the same amount.
func TopSellers(productSet []products.Product, limit int) []products.Product {
	sorted := slices.Clone(productSet)
	slices.SortStableFunc(sorted, func(a, b products.Product) int {
		return cmp.Compare(b.UnitsSold, a.UnitsSold)
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	if sorted == nil {
		sorted = []products.Product{}
	}
	return sorted
}

func lowStock(productSet []products.Product) []LowStockItem {
	low := products.LowStock(productSet)
	out := make([]LowStockItem, 0, len(low))
	for _, item := range low {
		out = append(out, LowStockItem{Name: item.Name, Stock: item.Stock})
	}
	return out
}

// RecentOrders returns the last limit orders by position, newest first. A negative limit
// returns every order.
func RecentOrders(orderSet []orders.Order, limit int) []RecentOrder {
	start := 0
	if limit >= 0 {
		start = max(len(orderSet)-limit, 0)
	}
	out := make([]RecentOrder, 0, len(orderSet)-start)
	for i := len(orderSet) - 1; i >= start; i-- {
		order := orderSet[i]
		out = append(out, RecentOrder{
			ShortID:       ShortID(order.ID),
			CustomerName:  order.CustomerName,
			Status:        order.Status,
			TotalAmount:   order.TotalAmount,
			FormattedDate: FormatDate(order.CreatedAt),
		})
	}
	return out
}

// ShortID returns the trailing ShortIDLength characters of id.
func ShortID(id string) string {
	runes := []rune(id)
	if len(runes) <= ShortIDLength {
		return id
	}
	return string(runes[len(runes)-ShortIDLength:])
}

// FormatDate renders t as "10 Jan 2025" in UTC. The zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func shortMonth(t time.Time) string {
	return t.UTC().Format("Jan")
}
