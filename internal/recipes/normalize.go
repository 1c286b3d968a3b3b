package recipes

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/feedora/backend/internal/errors"
)

var spaces = regexp.MustCompile(`\s+`)

// NormalizeName trims, collapses whitespace and lowercases an ingredient
// name so "  Brown   Sugar" and "brown sugar" share a row.
func NormalizeName(name string) string {
	return strings.ToLower(spaces.ReplaceAllString(strings.TrimSpace(name), " "))
}

var (
	reMixed    = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)$`)
	reFraction = regexp.MustCompile(`^(\d+)/(\d+)$`)
)

// ParseQuantity accepts "2", "0.5", "1/2" and "1 1/2".
func ParseQuantity(raw string) (float64, error) {
	s := spaces.ReplaceAllString(strings.TrimSpace(raw), " ")
	if s == "" {
		return 0, apperrors.Invalidf("quantity is required")
	}

	if m := reMixed.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		frac, err := fraction(m[2], m[3])
		if err != nil {
			return 0, err
		}
		return whole + frac, nil
	}
	if m := reFraction.FindStringSubmatch(s); m != nil {
		return fraction(m[1], m[2])
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, apperrors.Invalidf("invalid quantity %q", raw)
	}
	return v, nil
}

func fraction(num, den string) (float64, error) {
	n, _ := strconv.ParseFloat(num, 64)
	d, _ := strconv.ParseFloat(den, 64)
	if d == 0 {
		return 0, apperrors.Invalidf("invalid quantity %s/%s", num, den)
	}
	return n / d, nil
}

type conversion struct {
	unit   string
	factor float64
}

var unitAliases = map[string]conversion{
	"g":           {"g", 1},
	"gram":        {"g", 1},
	"grams":       {"g", 1},
	"kg":          {"g", 1000},
	"kilogram":    {"g", 1000},
	"kilograms":   {"g", 1000},
	"lb":          {"g", 453.59237},
	"lbs":         {"g", 453.59237},
	"pound":       {"g", 453.59237},
	"pounds":      {"g", 453.59237},
	"oz":          {"g", 28.349523125},
	"ounce":       {"g", 28.349523125},
	"ounces":      {"g", 28.349523125},
	"ml":          {"ml", 1},
	"l":           {"ml", 1000},
	"liter":       {"ml", 1000},
	"litre":       {"ml", 1000},
	"liters":      {"ml", 1000},
	"litres":      {"ml", 1000},
	"pc":          {"pc", 1},
	"pcs":         {"pc", 1},
	"piece":       {"pc", 1},
	"pieces":      {"pc", 1},
	"tbsp":        {"tbsp", 1},
	"tablespoon":  {"tbsp", 1},
	"tablespoons": {"tbsp", 1},
	"tsp":         {"tsp", 1},
	"teaspoon":    {"tsp", 1},
	"teaspoons":   {"tsp", 1},
	"cup":         {"cup", 1},
	"cups":        {"cup", 1},
	"pinch":       {"pinch", 1},
	"pinches":     {"pinch", 1},
}

// NormalizeUnit converts qty in unit to its canonical unit. Unknown units are
// returned verbatim (lowercased) with qty unchanged.
func NormalizeUnit(qty float64, unit string) (float64, string) {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(unit)), ".")
	if u == "" {
		return qty, ""
	}
	c, ok := unitAliases[u]
	if !ok {
		return qty, u
	}
	return round(qty * c.factor), c.unit
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

var reAmount = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)\s*([a-zA-Z.]*)$`)

// ParseAmount splits a free-form amount such as "1.5 kg" or "1 1/2 cups"
// and normalizes it.
func ParseAmount(raw string) (float64, string, error) {
	m := reAmount.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, "", apperrors.Invalidf("invalid amount %q", raw)
	}
	qty, err := ParseQuantity(m[1])
	if err != nil {
		return 0, "", err
	}
	q, u := NormalizeUnit(qty, m[2])
	return q, u, nil
}

// Quantity is an ingredient amount sent either as a JSON number or as a
// string such as "1 1/2".
type Quantity string

func (q *Quantity) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*q = Quantity(n.String())
	return nil
}
