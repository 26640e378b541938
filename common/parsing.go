package common

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var nonAmountRegex = regexp.MustCompile(`[^0-9.,+-]`)

// ErrEmptyAmount is returned when a cell or field holds no digits at all.
var ErrEmptyAmount = errors.New("empty amount")

// ParseImporto parses an amount written either in Italian format ("1.234,56")
// or in invariant format ("1,234.56" or "1234.56"). Currency symbols and spaces
// are ignored. When both separators appear the last one is the decimal point;
// a lone comma is decimal, repeated dots are thousands separators.
func ParseImporto(text string) (decimal.Decimal, error) {
	clean := nonAmountRegex.ReplaceAllString(strings.TrimSpace(text), "")
	if clean == "" || strings.Trim(clean, "+-.,") == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	comma, dot := strings.LastIndex(clean, ","), strings.LastIndex(clean, ".")
	switch {
	case comma > dot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case comma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return amount, nil
}

// ParseData accepts the date layouts found in exported spreadsheets and CSVs.
func ParseData(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"02/01/2006", "2006-01-02", "02-01-2006", "2/1/2006", "02.01.2006"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// Giorno returns the calendar day of t (as seen in t's own location) as a
// UTC midnight, so days from different zones compare and hash equal.
func Giorno(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GiorniTra returns the whole days between from and to, ignoring the time of day.
func GiorniTra(from, to time.Time) int {
	return int(Giorno(to).Sub(Giorno(from)).Hours() / 24)
}
