package funnel

import (
	"math"
	"strconv"
	"strings"
)

// IsAcceptable reports whether value satisfies the rules for kind. It is pure
// and never mutates anything.
func IsAcceptable(kind InputKind, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	switch kind {
	case KindShortText, KindLongText:
		return true
	case KindNumeric:
		return isNonNegativeNumber(trimmed)
	case KindEmail:
		return isMinimalEmail(trimmed)
	default:
		return false
	}
}

func isNonNegativeNumber(s string) bool {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return false
	}
	return n >= 0
}

// isMinimalEmail checks the local@domain.tld shape and nothing more.
func isMinimalEmail(s string) bool {
	if strings.ContainsAny(s, " \t\r\n") || strings.Count(s, "@") != 1 {
		return false
	}
	local, domain, _ := strings.Cut(s, "@")
	if local == "" || domain == "" {
		return false
	}
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
