package valuation

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var (
	half            = decimal.NewFromFloat(0.5)
	two             = decimal.NewFromInt(2)
	hundred         = decimal.NewFromInt(100)
	quickSaleFactor = decimal.RequireFromString("0.95")
	buyerFactor     = decimal.RequireFromString("1.05")
	dealerBidFactor = decimal.RequireFromString("0.9")
	numberCleaner   = strings.NewReplacer(",", "", "$", "")
	maxInt64        = decimal.NewFromInt(math.MaxInt64)
	minInt64        = decimal.NewFromInt(math.MinInt64)
)

func deriveStrategy(b PricingBands) Strategy {
	return Strategy{
		QuickSalePrice:   scaled(b.PrivateParty.Suggested, quickSaleFactor),
		BuyerTargetPrice: scaled(b.PrivateParty.Min, buyerFactor),
		DealerBidPrice:   scaled(b.TradeIn.Min, dealerBidFactor),
		RetailPrice:      midpoint(b.Retail.Min, b.Retail.Max),
	}
}

// advantage is the rounded percentage by which suggested beats baseline.
func advantage(suggested, baseline float64) Percentage {
	if baseline <= 0 {
		return Percentage{}
	}
	b := decimal.NewFromFloat(baseline)
	pct := decimal.NewFromFloat(suggested).Sub(b).Div(b).Mul(hundred)
	v, ok := roundInRange(pct)
	if !ok {
		return Percentage{}
	}
	return Percentage{Value: v, Available: true}
}

func midpoint(lo, hi float64) int64 {
	return round(decimal.NewFromFloat(lo).Add(decimal.NewFromFloat(hi)).Div(two))
}

func scaled(v float64, factor decimal.Decimal) int64 {
	return round(decimal.NewFromFloat(v).Mul(factor))
}

// round breaks ties toward positive infinity and saturates at the int64
// bounds.
func round(d decimal.Decimal) int64 {
	r := d.Add(half).Floor()
	switch {
	case r.GreaterThan(maxInt64):
		return math.MaxInt64
	case r.LessThan(minInt64):
		return math.MinInt64
	}
	return r.IntPart()
}

// roundInRange is round without saturation; ok is false when the result
// does not fit in an int64.
func roundInRange(d decimal.Decimal) (int64, bool) {
	r := d.Add(half).Floor()
	if r.GreaterThan(maxInt64) || r.LessThan(minInt64) {
		return 0, false
	}
	return r.IntPart(), true
}

func timeToSell(demand string) string {
	d := strings.ToLower(demand)
	switch {
	case strings.Contains(d, "very high"):
		return "1-3 days"
	case strings.Contains(d, "high"):
		return "3-7 days"
	case strings.Contains(d, "moderate"):
		return "1-2 weeks"
	case strings.Contains(d, "low"):
		return "2-4+ weeks"
	default:
		return "Typical market timeline"
	}
}

// errorMargin takes the second word of an accuracy phrase like "Within 5%".
func errorMargin(accuracy string) string {
	fields := strings.Fields(accuracy)
	if len(fields) < 2 {
		return defaultErrorMargin
	}
	return fields[1]
}

// number reads a finite float. Strings such as "$12,500" are accepted;
// anything else yields 0.
func number(r gjson.Result) float64 {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(numberCleaner.Replace(r.Str)), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func text(r gjson.Result, fallback string) string {
	switch r.Type {
	case gjson.String:
		if s := strings.TrimSpace(r.Str); s != "" {
			return s
		}
	case gjson.Number:
		return r.Raw
	}
	return fallback
}

func lowerText(r gjson.Result) string {
	return strings.ToLower(text(r, ""))
}

func insights(r gjson.Result) Insights {
	out := Insights{}
	if !r.IsObject() {
		return out
	}
	r.ForEach(func(key, value gjson.Result) bool {
		if rendered, ok := render(value); ok {
			out[key.String()] = rendered
		}
		return true
	})
	return out
}

var keyFactorOrder = []string{"condition_impact", "mileage_considerations", "common_issues", "resale_outlook"}

// keyFactors flattens key_factors into display lines. Object entries follow
// the canonical order first, then document order.
func keyFactors(r gjson.Result) []string {
	out := []string{}
	switch {
	case r.IsArray():
		return stringList(r)
	case r.IsObject():
		seen := make(map[string]bool, len(keyFactorOrder))
		for _, key := range keyFactorOrder {
			seen[key] = true
			if rendered, ok := render(r.Get(key)); ok {
				out = append(out, rendered)
			}
		}
		r.ForEach(func(key, value gjson.Result) bool {
			if seen[key.String()] {
				return true
			}
			if rendered, ok := render(value); ok {
				out = append(out, rendered)
			}
			return true
		})
	default:
		if rendered, ok := render(r); ok && rendered != "" {
			out = append(out, rendered)
		}
	}
	return out
}

func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	for _, item := range r.Array() {
		if rendered, ok := render(item); ok {
			out = append(out, rendered)
		}
	}
	return out
}

// render turns any non-null JSON value into display text.
func render(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.Null:
		return "", false
	case gjson.String:
		return v.Str, true
	case gjson.Number, gjson.True, gjson.False:
		return v.Raw, true
	default:
		return gjson.Get(v.Raw, "@ugly").Raw, true
	}
}
