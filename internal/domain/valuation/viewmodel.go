package valuation

import (
	"encoding/json"
	"fmt"
)

// Placeholder is shown for identity fields the API left out.
const Placeholder = "Unknown"

// Schema names the payload version a view model was built from.
type Schema string

const (
	SchemaCurrent Schema = "current"
	SchemaLegacy  Schema = "legacy"
)

// MileageStatus classifies actual against expected mileage.
type MileageStatus string

const (
	MileageBelowAverage MileageStatus = "below_average"
	MileageAverage      MileageStatus = "average"
	MileageAboveAverage MileageStatus = "above_average"
	MileageEstimated    MileageStatus = "estimated"
)

// ViewModel is the normalized, always-defaulted valuation consumed by the UI.
type ViewModel struct {
	Schema      Schema `json:"schema"`
	ReportID    string `json:"reportId"`
	GeneratedAt string `json:"generatedAt"`
	GeneratedBy string `json:"generatedBy"`

	Vehicle   Vehicle   `json:"vehicle"`
	Condition Condition `json:"condition"`

	PricingBands    PricingBands    `json:"pricingBands"`
	MileageAnalysis MileageAnalysis `json:"mileageAnalysis"`
	Strategy        Strategy        `json:"strategy"`

	MarketIntelligence    Insights `json:"marketIntelligence"`
	RiskAssessment        Insights `json:"riskAssessment"`
	Recommendations       Insights `json:"recommendations"`
	ConfidenceMetrics     Insights `json:"confidenceMetrics"`
	ValueAdjustments      Insights `json:"valueAdjustments"`
	PerformanceAssessment Insights `json:"performanceAssessment"`
	KeyInsights           Insights `json:"keyInsights"`
	AnalysisNotes         Insights `json:"analysisNotes"`
	KeyFactors            []string `json:"keyFactors"`

	Summary Summary `json:"summary"`
}

// Vehicle identifies the appraised vehicle.
type Vehicle struct {
	Year         string `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Trim         string `json:"trim"`
	VIN          string `json:"vin"`
	BodyStyle    string `json:"bodyStyle"`
	Origin       string `json:"origin"`
	Manufacturer string `json:"manufacturer"`
}

// Title renders "year make model" for history listings.
func (v Vehicle) Title() string {
	return fmt.Sprintf("%s %s %s", v.Year, v.Make, v.Model)
}

// PricingBands groups the four market value ranges.
type PricingBands struct {
	Retail       PricingBand `json:"retail"`
	PrivateParty PricingBand `json:"privateParty"`
	TradeIn      PricingBand `json:"tradeIn"`
	Auction      PricingBand `json:"auction"`
}

// PricingBand is one value range with the AI point estimate.
type PricingBand struct {
	Min                float64    `json:"min"`
	Max                float64    `json:"max"`
	Suggested          float64    `json:"suggested"`
	Baseline           float64    `json:"baseline"`
	AveragePrice       int64      `json:"averagePrice,omitempty"`
	ConfidenceLabel    string     `json:"confidenceLabel"`
	Description        string     `json:"description"`
	MarketAnalysis     string     `json:"marketAnalysis"`
	BaselineComparison string     `json:"baselineComparison,omitempty"`
	AIAdvantage        Percentage `json:"aiAdvantage"`
}

// MileageAnalysis compares reported mileage to the expected figure.
type MileageAnalysis struct {
	Actual             float64       `json:"actual"`
	Expected           float64       `json:"expected"`
	VariancePercentage float64       `json:"variancePercentage"`
	Status             MileageStatus `json:"status"`
}

// Strategy holds the derived pricing heuristics.
type Strategy struct {
	QuickSalePrice   int64 `json:"quickSalePrice"`
	BuyerTargetPrice int64 `json:"buyerTargetPrice"`
	DealerBidPrice   int64 `json:"dealerBidPrice"`
	RetailPrice      int64 `json:"retailPrice"`
}

// Summary is the headline block of the report.
type Summary struct {
	OverallAssessment string   `json:"overallAssessment"`
	RecommendedAction string   `json:"recommendedAction"`
	ConfidenceLevel   string   `json:"confidenceLevel"`
	KeyHighlights     []string `json:"keyHighlights"`
	RecommendedPrice  float64  `json:"recommendedPrice"`
	TimeToSell        string   `json:"timeToSell"`
	ErrorMargin       string   `json:"errorMargin"`
}

// Insights is a free-form key to description map.
type Insights map[string]string

// Percentage is a rounded whole percentage that may be unavailable.
type Percentage struct {
	Value     int64
	Available bool
}

// NotAvailable is the rendering of a percentage without a usable baseline.
const NotAvailable = "not available"

// String renders the percentage as "+15%", "-5%" or "not available".
func (p Percentage) String() string {
	if !p.Available {
		return NotAvailable
	}
	if p.Value >= 0 {
		return fmt.Sprintf("+%d%%", p.Value)
	}
	return fmt.Sprintf("%d%%", p.Value)
}

// MarshalJSON emits the numeric value alongside its display label.
func (p Percentage) MarshalJSON() ([]byte, error) {
	wire := struct {
		Available bool   `json:"available"`
		Value     *int64 `json:"value"`
		Label     string `json:"label"`
	}{Available: p.Available, Label: p.String()}
	if p.Available {
		v := p.Value
		wire.Value = &v
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts the form written by MarshalJSON.
func (p *Percentage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Available bool   `json:"available"`
		Value     *int64 `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Available = wire.Available && wire.Value != nil
	p.Value = 0
	if p.Available {
		p.Value = *wire.Value
	}
	return nil
}
