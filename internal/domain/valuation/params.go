package valuation

import (
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/yanqian/drive-value/pkg/errors"
)

// VINLength is the only accepted VIN length.
const VINLength = 17

// Condition is the self-reported vehicle condition.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// Parameters are the user supplied inputs of a valuation.
type Parameters struct {
	VIN       string    `json:"vin"`
	Mileage   *int      `json:"mileage,omitempty"`
	Condition Condition `json:"condition,omitempty"`
	Test      bool      `json:"isTest,omitempty"`
	Enhanced  bool      `json:"isEnhanced,omitempty"`
}

// Request is the body sent to the valuation API.
type Request struct {
	VIN        string `json:"vin"`
	Condition  string `json:"condition"`
	Mileage    *int   `json:"mileage,omitempty"`
	IsTest     bool   `json:"isTest,omitempty"`
	IsEnhanced bool   `json:"isEnhanced,omitempty"`
}

type parameterRules struct {
	VIN       string `validate:"required,len=17,alphanum"`
	Mileage   *int   `validate:"omitempty,gte=0"`
	Condition string `validate:"oneof=excellent good fair poor"`
}

var validate = validator.New()

// Normalize trims the VIN and applies the default condition.
func (p Parameters) Normalize() Parameters {
	p.VIN = strings.TrimSpace(p.VIN)
	p.Condition = Condition(strings.ToLower(strings.TrimSpace(string(p.Condition))))
	if p.Condition == "" {
		p.Condition = ConditionGood
	}
	return p
}

// Validate rejects parameters that must never reach the network.
func (p Parameters) Validate() error {
	p = p.Normalize()
	if p.VIN == "" {
		return apperrors.Wrap(CodeValidation, "VIN is required", nil)
	}
	if n := len([]rune(p.VIN)); n != VINLength {
		return apperrors.Wrap(CodeValidation, "VIN must be exactly 17 characters", nil)
	}
	if p.Test && p.Enhanced {
		return apperrors.Wrap(CodeValidation, "test and enhanced modes are mutually exclusive", nil)
	}
	err := validate.Struct(parameterRules{
		VIN:       p.VIN,
		Mileage:   p.Mileage,
		Condition: string(p.Condition),
	})
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		return apperrors.Wrap(CodeValidation, ruleMessage(fieldErrs[0]), err)
	}
	return apperrors.Wrap(CodeValidation, "invalid valuation parameters", err)
}

// Request builds the outbound payload. Callers validate first. Zero
// mileage is omitted, as is an unset one.
func (p Parameters) Request() Request {
	p = p.Normalize()
	mileage := p.Mileage
	if mileage != nil && *mileage == 0 {
		mileage = nil
	}
	return Request{
		VIN:        strings.ToUpper(p.VIN),
		Condition:  string(p.Condition),
		Mileage:    mileage,
		IsTest:     p.Test,
		IsEnhanced: p.Enhanced,
	}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "VIN":
		return "VIN may only contain letters and digits"
	case "Mileage":
		return "mileage cannot be negative"
	case "Condition":
		return "condition must be one of excellent, good, fair, poor"
	default:
		return "invalid " + strings.ToLower(fe.Field())
	}
}
