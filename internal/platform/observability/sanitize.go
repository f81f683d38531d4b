package observability

import (
	"net"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/platform/requestctx"
)

const (
	methodLimit = 10
	routeLimit  = 180
	ipLimit     = 64
	actorLimit  = 64
	valueLimit  = 256
)

// cleanLogText drops control characters, line breaks included, and keeps at most limit runes.
func cleanLogText(value string, limit int) string {
	var b strings.Builder
	kept := 0
	for _, r := range value {
		if kept == limit {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		kept++
	}
	return b.String()
}

// SanitizeRoute cleans a route pattern for logging. An empty pattern logs as "/".
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return cleanLogText(route, routeLimit)
}

// clientIP strips the port from a remote address. RealIP leaves a bare host, which is kept.
func clientIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return cleanLogText(addr, ipLimit)
}

// maskEmail keeps the first character of the local part and the domain, so staff can be told
// apart in logs without writing full addresses: "ops@kflex.test" becomes "o***@kflex.test".
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return ""
	}
	first := []rune(local)[0]
	return cleanLogText(string(first)+"***@"+domain, actorLimit)
}

// actorFields describes the staff member acting on a request.
func actorFields(actor requestctx.Actor) []zap.Field {
	var fields []zap.Field
	if id := cleanLogText(actor.ID, actorLimit); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	if email := maskEmail(actor.Email); email != "" {
		fields = append(fields, zap.String("user_email", email))
	}
	return fields
}

// eventField converts one service event field. Text values such as customer names and
// review comments are cleaned before they reach the log.
func eventField(key string, value any) zap.Field {
	switch v := value.(type) {
	case string:
		return zap.String(key, cleanLogText(v, valueLimit))
	case error:
		return zap.String(key, cleanLogText(v.Error(), valueLimit))
	default:
		return zap.Any(key, v)
	}
}
