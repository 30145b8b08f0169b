package valuation

import (
	"bytes"

	"github.com/tidwall/gjson"

	apperrors "github.com/yanqian/drive-value/pkg/errors"
)

const (
	defaultConfidenceLabel    = "High confidence"
	defaultBaselineComparison = "AI analysis provides enhanced accuracy"
	defaultAssessment         = "No assessment available"
	defaultAction             = "No recommendation available"
	defaultErrorMargin        = "10%"
)

type bandField struct {
	key         string
	description string
}

var (
	retailBand       = bandField{key: "retail_value", description: "Dealer retail price range"}
	privatePartyBand = bandField{key: "private_party_value", description: "Private seller price range"}
	tradeInBand      = bandField{key: "trade_in_value", description: "Dealer trade-in offer range"}
	auctionBand      = bandField{key: "auction_value", description: "Wholesale/auction price range"}
)

// payload is one of the two upstream schema versions. Each maps itself into
// the canonical view model.
type payload interface {
	schema() Schema
	pricing() PricingBands
	sections(vm *ViewModel)
	summarySource() gjson.Result
	confidenceSource() gjson.Result
}

// Build normalizes a raw valuation response into a fully defaulted view
// model. Missing fields never fail; only a payload whose top level is not a
// JSON object does.
func Build(raw []byte) (ViewModel, error) {
	trimmed := bytes.TrimSpace(raw)
	if !gjson.ValidBytes(trimmed) {
		return ViewModel{}, apperrors.Wrap(CodeInvalidInput, "valuation payload is not valid JSON", nil)
	}
	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		return ViewModel{}, apperrors.Wrap(CodeInvalidInput, "valuation payload must be a JSON object", nil)
	}
	return assemble(root, detectPayload(root)), nil
}

// HasAnalysis reports whether raw carries either analysis block.
func HasAnalysis(raw []byte) bool {
	root := gjson.ParseBytes(bytes.TrimSpace(raw))
	return root.Get("ai_valuation").IsObject() || root.Get("analysis").IsObject()
}

func detectPayload(root gjson.Result) payload {
	if v := root.Get("ai_valuation"); v.IsObject() {
		return currentPayload{root: root, valuation: v, baseline: root.Get("baseline_data")}
	}
	if v := root.Get("analysis"); v.IsObject() {
		return legacyPayload{root: root, analysis: v}
	}
	return currentPayload{root: root}
}

func assemble(root gjson.Result, p payload) ViewModel {
	vm := ViewModel{
		Schema:                p.schema(),
		ReportID:              text(root.Get("report_id"), Placeholder),
		GeneratedAt:           text(root.Get("timestamp"), Placeholder),
		GeneratedBy:           text(root.Get("generated_by"), Placeholder),
		Vehicle:               vehicleFrom(root.Get("vehicle")),
		Condition:             conditionFrom(root.Get("valuation_parameters.condition")),
		MileageAnalysis:       mileageFrom(root.Get("valuation_parameters.mileage")),
		PricingBands:          p.pricing(),
		MarketIntelligence:    Insights{},
		RiskAssessment:        Insights{},
		Recommendations:       Insights{},
		ConfidenceMetrics:     Insights{},
		ValueAdjustments:      Insights{},
		PerformanceAssessment: Insights{},
		KeyInsights:           Insights{},
		AnalysisNotes:         Insights{},
		KeyFactors:            []string{},
	}
	p.sections(&vm)
	vm.Strategy = deriveStrategy(vm.PricingBands)
	vm.Summary = summaryFrom(p.summarySource(), p.confidenceSource(), vm)
	return vm
}

func vehicleFrom(src gjson.Result) Vehicle {
	return Vehicle{
		Year:         text(src.Get("year"), Placeholder),
		Make:         text(src.Get("make"), Placeholder),
		Model:        text(src.Get("model"), Placeholder),
		Trim:         text(src.Get("trim"), Placeholder),
		VIN:          text(src.Get("vin"), Placeholder),
		BodyStyle:    text(src.Get("body_style"), Placeholder),
		Origin:       text(src.Get("origin"), Placeholder),
		Manufacturer: text(src.Get("manufacturer"), Placeholder),
	}
}

func conditionFrom(src gjson.Result) Condition {
	switch c := Condition(lowerText(src)); c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return c
	default:
		return ConditionGood
	}
}

func mileageFrom(src gjson.Result) MileageAnalysis {
	if src.Type == gjson.Number || src.Type == gjson.String {
		return MileageAnalysis{Actual: number(src), Status: MileageAverage}
	}
	m := MileageAnalysis{
		Actual:             number(src.Get("actual")),
		Expected:           number(src.Get("expected")),
		VariancePercentage: number(src.Get("variance_percentage")),
		Status:             MileageAverage,
	}
	switch s := MileageStatus(lowerText(src.Get("status"))); s {
	case MileageBelowAverage, MileageAverage, MileageAboveAverage, MileageEstimated:
		m.Status = s
	}
	return m
}

func summaryFrom(src, confidence gjson.Result, vm ViewModel) Summary {
	s := Summary{
		OverallAssessment: defaultAssessment,
		RecommendedAction: defaultAction,
		ConfidenceLevel:   Placeholder,
		KeyHighlights:     []string{},
	}
	switch {
	case src.Type == gjson.String:
		s.OverallAssessment = text(src, defaultAssessment)
	case src.IsObject():
		s.OverallAssessment = text(src.Get("overall_assessment"), defaultAssessment)
		s.RecommendedAction = text(src.Get("recommended_action"), defaultAction)
		s.ConfidenceLevel = text(src.Get("confidence_level"), Placeholder)
		s.KeyHighlights = stringList(src.Get("key_highlights"))
	}

	s.RecommendedPrice = number(src.Get("recommended_price.private_party"))
	if s.RecommendedPrice == 0 {
		s.RecommendedPrice = vm.PricingBands.PrivateParty.Suggested
	}
	s.TimeToSell = timeToSell(vm.MarketIntelligence["demand_level"])
	s.ErrorMargin = errorMargin(text(confidence.Get("overall_confidence.valuation_accuracy"), ""))
	return s
}
