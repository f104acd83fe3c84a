package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies one installment of a collection, e.g. April 2022.
type Period struct {
	Year  int
	Month int
}

// ParsePeriod parses "2022-04" or "2022-4".
func ParsePeriod(s string) (Period, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("invalid period %q: expected YYYY-MM", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period year %q: %w", parts[0], err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period month %q: %w", parts[1], err)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid period month %d", month)
	}
	return Period{Year: year, Month: month}, nil
}

// MonthName is the English month name ("April").
func (p Period) MonthName() string {
	return time.Month(p.Month).String()
}

// Folder is the store folder of the period, e.g. "2022-april".
func (p Period) Folder() string {
	return fmt.Sprintf("%d-%s", p.Year, strings.ToLower(p.MonthName()))
}

// URI is the upstream path of the period below the collection prefix.
func (p Period) URI(prefix string) string {
	return fmt.Sprintf("%s/%d/%02d", strings.TrimRight(prefix, "/"), p.Year, p.Month)
}

// FirstDay is the first calendar day of the period month.
func (p Period) FirstDay() string {
	return fmt.Sprintf("%d-%02d-01", p.Year, p.Month)
}

func (p Period) String() string {
	return fmt.Sprintf("%d-%02d", p.Year, p.Month)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
