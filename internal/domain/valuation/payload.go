package valuation

import "github.com/tidwall/gjson"

// currentPayload is the ai_valuation schema with an optional baseline_data
// sibling carrying the non-AI reference prices.
type currentPayload struct {
	root      gjson.Result
	valuation gjson.Result
	baseline  gjson.Result
}

func (p currentPayload) schema() Schema { return SchemaCurrent }

func (p currentPayload) pricing() PricingBands {
	return PricingBands{
		Retail:       p.band(retailBand),
		PrivateParty: p.band(privatePartyBand),
		TradeIn:      p.band(tradeInBand),
		Auction:      p.band(auctionBand),
	}
}

func (p currentPayload) band(field bandField) PricingBand {
	src := p.valuation.Get("market_values." + field.key)
	b := PricingBand{
		Min:                number(src.Get("min")),
		Max:                number(src.Get("max")),
		Suggested:          number(src.Get("suggested_ai_price")),
		Baseline:           number(p.baseline.Get(field.key)),
		ConfidenceLabel:    text(src.Get("confidence_level"), defaultConfidenceLabel),
		Description:        text(src.Get("description"), field.description),
		MarketAnalysis:     text(src.Get("market_analysis"), ""),
		BaselineComparison: text(src.Get("baseline_comparison"), defaultBaselineComparison),
	}
	b.AIAdvantage = advantage(b.Suggested, b.Baseline)
	return b
}

func (p currentPayload) sections(vm *ViewModel) {
	v := p.valuation
	vm.MarketIntelligence = insights(v.Get("market_intelligence"))
	vm.RiskAssessment = insights(firstObject(v.Get("risk_analysis"), v.Get("risk_assessment")))
	vm.Recommendations = insights(v.Get("recommendations"))
	vm.ConfidenceMetrics = insights(v.Get("confidence_metrics"))
	vm.ValueAdjustments = insights(v.Get("value_adjustments"))
	vm.PerformanceAssessment = insights(v.Get("performance_assessment"))
	vm.KeyInsights = insights(v.Get("key_insights"))
	vm.AnalysisNotes = insights(v.Get("analysis"))
	vm.KeyFactors = keyFactors(v.Get("key_factors"))
}

func (p currentPayload) summarySource() gjson.Result { return p.root.Get("summary") }

func (p currentPayload) confidenceSource() gjson.Result {
	return p.valuation.Get("confidence_metrics")
}

// legacyPayload is the original analysis schema: ranges only, with the
// point estimate and strategy prices derived locally.
type legacyPayload struct {
	root     gjson.Result
	analysis gjson.Result
}

func (p legacyPayload) schema() Schema { return SchemaLegacy }

func (p legacyPayload) pricing() PricingBands {
	return PricingBands{
		Retail:       p.band(retailBand),
		PrivateParty: p.band(privatePartyBand),
		TradeIn:      p.band(tradeInBand),
		Auction:      p.band(auctionBand),
	}
}

func (p legacyPayload) band(field bandField) PricingBand {
	src := p.analysis.Get("market_values." + field.key)
	b := PricingBand{
		Min:             number(src.Get("min")),
		Max:             number(src.Get("max")),
		Baseline:        number(p.root.Get("baseline_data." + field.key)),
		ConfidenceLabel: text(src.Get("confidence_level"), defaultConfidenceLabel),
		Description:     text(src.Get("description"), field.description),
		MarketAnalysis:  text(src.Get("market_analysis"), ""),
	}
	b.AveragePrice = midpoint(b.Min, b.Max)
	b.Suggested = number(src.Get("suggested_ai_price"))
	if b.Suggested == 0 {
		b.Suggested = float64(b.AveragePrice)
	}
	b.AIAdvantage = advantage(b.Suggested, b.Baseline)
	return b
}

func (p legacyPayload) sections(vm *ViewModel) {
	a := p.analysis
	vm.MarketIntelligence = insights(firstObject(a.Get("market_analysis"), a.Get("market_intelligence")))
	vm.RiskAssessment = insights(firstObject(a.Get("risk_assessment"), a.Get("risk_analysis")))
	vm.Recommendations = insights(firstObject(a.Get("strategic_recommendations"), a.Get("recommendations")))
	vm.ConfidenceMetrics = insights(a.Get("confidence_metrics"))
	vm.ValueAdjustments = insights(a.Get("value_adjustments"))
	vm.PerformanceAssessment = insights(a.Get("performance_assessment"))
	vm.KeyInsights = insights(a.Get("key_insights"))
	vm.KeyFactors = keyFactors(a.Get("key_factors"))
}

func (p legacyPayload) summarySource() gjson.Result {
	if s := p.analysis.Get("summary"); s.Exists() && s.Type != gjson.Null {
		return s
	}
	return p.root.Get("summary")
}

func (p legacyPayload) confidenceSource() gjson.Result {
	return p.analysis.Get("confidence_metrics")
}

func firstObject(candidates ...gjson.Result) gjson.Result {
	for _, c := range candidates {
		if c.IsObject() {
			return c
		}
	}
	return gjson.Result{}
}
