package observability

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/platform/requestctx"
)

func TestCleanLogText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Asha Raoforged=1", cleanLogText("Asha Rao\n\tforged=1", valueLimit))
	assert.Equal(t, "abc", cleanLogText("abcdef", 3))
	assert.Equal(t, "ऋषि", cleanLogText("ऋषि कुमार", 3))
	assert.Equal(t, "/", SanitizeRoute(""))
	assert.Len(t, []rune(SanitizeRoute("/"+strings.Repeat("a", 400))), routeLimit)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "192.0.2.1", clientIP("192.0.2.1:5123"))
	assert.Equal(t, "2001:db8::1", clientIP("[2001:db8::1]:443"))
	assert.Equal(t, "203.0.113.9", clientIP("203.0.113.9"))
	assert.Empty(t, clientIP(""))
}

func TestActorFieldsMaskEmail(t *testing.T) {
	t.Parallel()

	fields := actorFields(requestctx.Actor{ID: "staff-1", Email: "ops@kflex.test"})
	assert.Equal(t, []zap.Field{
		zap.String("user_id", "staff-1"),
		zap.String("user_email", "o***@kflex.test"),
	}, fields)

	assert.Empty(t, actorFields(requestctx.Actor{Email: "not-an-email"}))
	assert.Empty(t, maskEmail("@kflex.test"))
}

func TestEventFieldCleansText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zap.String("name", "Bilalinjected"), eventField("name", "Bilal\r\ninjected"))
	assert.Equal(t, zap.String("error", "backenddown"), eventField("error", errors.New("backend\ndown")))
	assert.Equal(t, zap.Any("count", 3), eventField("count", 3))
}
