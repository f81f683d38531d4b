package orders

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteCSV(&buf, []Order{{
		ID:           "ord-1",
		CustomerName: "Rao, Asha",
		Status:       StatusCompleted,
		TotalAmount:  1249.5,
		CreatedAt:    time.Date(2025, time.January, 10, 9, 30, 0, 0, time.UTC),
		LineItems: []LineItem{
			{Name: "Linen Shirt", Price: 999.5, SelectedSize: "M"},
			{Name: "Socks", Price: 250},
		},
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, exportHeader, records[0])
	require.Equal(t, []string{
		"ord-1",
		"Rao, Asha",
		"",
		"",
		"",
		"Completed",
		"1249.5",
		"2025-01-10T09:30:00Z",
		"Linen Shirt (M) @ 999.5; Socks @ 250",
	}, records[1])
}

func TestWriteCSVEmptySetWritesHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{exportHeader}, records)
}
