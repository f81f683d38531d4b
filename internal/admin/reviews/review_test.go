package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleReviews() []Review {
	return []Review{
		{ID: "r1", ProductName: "Linen Shirt", UserName: "Asha", Rating: 5},
		{ID: "r2", ProductName: "Denim Jacket", UserName: "Bilal", Rating: 4},
		{ID: "r3", ProductName: "", UserName: "", Rating: 3},
		{ID: "r4", ProductName: "Wool Cap", UserName: "shirin", Rating: 2},
	}
}

func reviewIDs(items []Review) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	t.Parallel()

	items := sampleReviews()
	require.Equal(t, []string{"r1", "r2", "r3", "r4"}, reviewIDs(Filter(items, "")))
	require.Equal(t, []string{"r1", "r4"}, reviewIDs(Filter(items, "SHIR")))
	require.Equal(t, []string{"r2"}, reviewIDs(Filter(items, "bil")))
	require.Empty(t, Filter(items, "boots"))
	require.Empty(t, Filter(nil, "x"))
	require.Equal(t, sampleReviews(), items)
}

type stubBackend struct {
	items     []Review
	err       error
	deleteErr error
	deleted   []string
}

func (s *stubBackend) FetchReviews(context.Context) ([]Review, error) {
	return s.items, s.err
}

func (s *stubBackend) DeleteReview(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func TestServiceList(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{items: append(sampleReviews(), Review{ProductName: "Linen Shirt"})}
	svc, err := NewService(ServiceDeps{Backend: backend})
	require.NoError(t, err)

	got, err := svc.List(context.Background(), "linen")
	require.NoError(t, err)
	require.Equal(t, []string{"r1"}, reviewIDs(got))

	backend.err = errors.New("timeout")
	_, err = svc.List(context.Background(), "")
	require.ErrorContains(t, err, "timeout")
}

func TestServiceDelete(t *testing.T) {
	t.Parallel()

	backend := &stubBackend{}
	svc, err := NewService(ServiceDeps{Backend: backend})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), " r2 "))
	require.Equal(t, []string{"r2"}, backend.deleted)
	require.ErrorIs(t, svc.Delete(context.Background(), ""), ErrReviewNotFound)

	backend.deleteErr = ErrReviewNotFound
	require.ErrorIs(t, svc.Delete(context.Background(), "r9"), ErrReviewNotFound)
}
