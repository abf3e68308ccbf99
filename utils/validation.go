// utils/validation.go
package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ComposeMarkedName builds the stored name for a customer who shares name and
// contact method with someone else: "Amy" + "2" -> "Amy(2)".
func ComposeMarkedName(name, mark string) string {
	name = strings.TrimSpace(name)
	mark = strings.TrimSpace(mark)
	if mark == "" {
		return name
	}
	return fmt.Sprintf("%s(%s)", name, mark)
}

// BaseName strips the "(mark)" suffix ComposeMarkedName added.
func BaseName(stored, mark string) string {
	if mark == "" {
		return stored
	}
	return strings.TrimSuffix(stored, "("+mark+")")
}

// EscapeLike escapes LIKE wildcards; use with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ParseAmount reads a money amount typed by a person: "1,880", "$ 300", " 45.5 ".
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "HK$")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", s)
	}
	return d, nil
}
