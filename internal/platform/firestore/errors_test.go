package firestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorClassifiesCodes(t *testing.T) {
	t.Parallel()

	require.NoError(t, WrapError("noop", nil))

	notFound := WrapError("orders.get", status.Error(codes.NotFound, "missing"))
	require.True(t, IsNotFound(notFound))
	require.False(t, IsUnavailable(notFound))
	require.Contains(t, notFound.Error(), "orders.get")

	unavailable := WrapError("orders.list", status.Error(codes.Unavailable, "down"))
	require.True(t, IsUnavailable(unavailable))

	var fsErr *Error
	require.ErrorAs(t, WrapError("orders.update", status.Error(codes.Aborted, "contention")), &fsErr)
	require.True(t, fsErr.IsConflict())
}

func TestWrapErrorPassesThroughCancellation(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, WrapError("op", context.DeadlineExceeded), context.DeadlineExceeded)
	require.ErrorIs(t, WrapError("op", status.Error(codes.Canceled, "gone")), context.Canceled)
}

func TestWrapErrorDoesNotDoubleWrap(t *testing.T) {
	t.Parallel()

	first := WrapError("inner", status.Error(codes.NotFound, "missing"))
	second := WrapError("outer", first)
	require.True(t, errors.Is(second, first))
	require.Contains(t, second.Error(), "inner")
}
