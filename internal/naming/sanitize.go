package naming

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Fallback tokens for components that sanitize to nothing.
const (
	FallbackBase     = "未命名"
	FallbackCategory = "其他"
	FallbackAmount   = "0元"
	EpochDate        = "19700101"
	CurrencySuffix   = "元"
)

var (
	invalidFilenameRegex = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)
	trailingDotsRegex    = regexp.MustCompile(`[. ]+$`)
	extSuffixRegex       = regexp.MustCompile(`\.[A-Za-z0-9]{1,12}$`)
	nonDigitRegex        = regexp.MustCompile(`\D+`)
)

// Sanitize makes value safe as a single path component:
// 1. Collapse whitespace runs to one space and trim
// 2. Replace runs of illegal characters with "-"
// 3. Strip trailing dots and spaces
// An empty result yields fallback.
func Sanitize(value, fallback string) string {
	text := strings.Join(strings.Fields(value), " ")
	text = invalidFilenameRegex.ReplaceAllString(text, "-")
	text = trailingDotsRegex.ReplaceAllString(text, "")
	if text == "" {
		return fallback
	}
	return text
}

// NormalizeBaseName sanitizes a rendered base name and strips a redundant
// extension so the canonical one can be appended exactly once.
func NormalizeBaseName(value, ext string) string {
	base := Sanitize(value, FallbackBase)
	extValue := "." + strings.ToLower(ext)
	if strings.HasSuffix(strings.ToLower(base), extValue) {
		base = base[:len(base)-len(extValue)]
	} else if extSuffixRegex.MatchString(base) {
		base = extSuffixRegex.ReplaceAllString(base, "")
	}
	return Sanitize(base, FallbackBase)
}

// FormatDate renders an invoice date as YYYYMMDD. Missing dates render as the epoch.
func FormatDate(date *string) string {
	if date == nil || *date == "" {
		return EpochDate
	}
	digits := nonDigitRegex.ReplaceAllString(*date, "")
	if len(digits) == 8 {
		return digits
	}
	return strings.ReplaceAll(*date, "-", "")
}

// FormatAmount renders a decimal amount with at most two decimals and no
// trailing zeros, followed by the currency suffix.
func FormatAmount(amount *string) string {
	if amount == nil || *amount == "" {
		return FallbackAmount
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(*amount), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return FallbackAmount
	}
	text := fmt.Sprintf("%.2f", value)
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if text == "" || text == "-0" {
		text = "0"
	}
	return text + CurrencySuffix
}

// NormalizeExt lowercases an extension and drops its leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
