// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// rawFact is one tool as returned by the AI backend, before validation.
type rawFact struct {
	Name               string     `json:"name"`
	PricingPlans       []rawPlan  `json:"pricing_plans"`
	Integrations       stringList `json:"integrations"`
	SupportedLanguages stringList `json:"supported_languages"`
	SecurityPolicy     string     `json:"security_policy"`
	SecurityDetails    string     `json:"security_details"`
	WorkflowSupport    stringList `json:"workflow_support"`
	PrimaryFeatures    stringList `json:"primary_features"`
	FeatureCategory    string     `json:"feature_category"`
	SourceURLs         stringList `json:"source_urls"`
}

// rawPlan is one pricing plan as returned by the AI backend.
type rawPlan struct {
	Name                 string   `json:"name"`
	PlanType             string   `json:"plan_type"`
	PricePerUserPerMonth rawPrice `json:"price_per_user_per_month"`
	PricePerMonth        rawPrice `json:"price_per_month"`
	PricePerUserPerYear  rawPrice `json:"price_per_user_per_year"`
	PricePerYear         rawPrice `json:"price_per_year"`
	SourceURL            string   `json:"source_url"`
}

// stringList accepts a JSON array of strings, a single string, or null.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = strings.Split(s, ",")
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		// Unusable shapes are treated as absent.
		*l = nil
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// rawPrice accepts a JSON number, a numeric string such as "$1,200", or
// null. Negative and unparseable prices are treated as absent.
type rawPrice struct {
	v  float64
	ok bool
}

func (p *rawPrice) UnmarshalJSON(data []byte) error {
	*p = rawPrice{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = rawPrice{v: f, ok: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.NewReplacer("$", "", ",", "", "USD", "", "usd", "").Replace(s)
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*p = rawPrice{v: f, ok: true}
	}
	return nil
}

// value returns the price or nil when absent or negative.
func (p rawPrice) value() *float64 {
	if !p.ok || p.v < 0 {
		return nil
	}
	v := p.v
	return &v
}
