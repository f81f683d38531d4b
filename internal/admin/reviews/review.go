package reviews

import (
	"errors"

	"github.com/kflex/dashboard/internal/platform/textutil"
)

// ErrReviewNotFound is returned when a review does not exist.
var ErrReviewNotFound = errors.New("review not found")

// Review is customer feedback on a product.
type Review struct {
	ID          string `json:"id"`
	ProductName string `json:"productName"`
	UserName    string `json:"userName"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment,omitempty"`
}

// Filter keeps the reviews whose product name or reviewer name contains query, ignoring
// case. An empty query keeps everything. Order is preserved and the input is not modified.
func Filter(items []Review, query string) []Review {
	matcher := textutil.NewMatcher(query)
	out := make([]Review, 0, len(items))
	for _, item := range items {
		if matcher.MatchAny(item.ProductName, item.UserName) {
			out = append(out, item)
		}
	}
	return out
}
