package orders

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ExportFormat identifies a supported export encoding.
type ExportFormat string

const (
	// ExportFormatCSV writes one row per order with a header line.
	ExportFormatCSV ExportFormat = "csv"
)

var exportHeader = []string{
	"id",
	"customerName",
	"phone",
	"email",
	"address",
	"status",
	"totalAmount",
	"createdAt",
	"products",
}

// WriteCSV encodes orders as CSV. The caller supplies the full filtered set, not a page.
func WriteCSV(w io.Writer, orders []Order) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("orders: write export header: %w", err)
	}
	for _, order := range orders {
		if err := writer.Write(exportRow(order)); err != nil {
			return fmt.Errorf("orders: write export row %s: %w", order.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func exportRow(order Order) []string {
	createdAt := ""
	if !order.CreatedAt.IsZero() {
		createdAt = order.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		order.ID,
		order.CustomerName,
		order.Phone,
		order.Email,
		order.Address,
		string(order.Status),
		strconv.FormatFloat(order.TotalAmount, 'f', -1, 64),
		createdAt,
		describeLineItems(order.LineItems),
	}
}

func describeLineItems(items []LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		label := item.Name
		if item.SelectedSize != "" {
			label += " (" + item.SelectedSize + ")"
		}
		parts = append(parts, label+" @ "+strconv.FormatFloat(item.Price, 'f', -1, 64))
	}
	return strings.Join(parts, "; ")
}
