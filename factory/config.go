/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON configuration documents into finance.AgingConfig and
  finance.EscalationRule values. This keeps thresholds out of code:
  finance ops can change bucket boundaries, risk tiers, and escalation
  rules without a redeploy, and the API layer can hot-reload them.

WHY JSON?
  - Non-developers can modify thresholds
  - Easy integration with an admin UI
  - Version control for rule definitions
  - Database storage of configs

JSON SCHEMA:
  {
    "aging": {
      "boundaries": [30, 60, 90],
      "risk_tiers": [
        {"min_fraction": 0.2, "tier": "high"},
        {"min_fraction": 0.1, "tier": "medium"}
      ]
    },
    "rules": [
      {
        "id": "approval-4h",
        "triggerKind": "approval_pending",
        "thresholdValue": 4,
        "thresholdUnit": "hours",
        "escalateToTier": "manager",
        "channels": ["email", "in_app"],
        "active": true
      }
    ]
  }

KEY FEATURES:
  - Validates every rule up front (same InvalidRuleError semantics as the
    evaluator, so a typo fails at load time, not at sweep time)
  - Missing aging section falls back to the 30/60/90 default
  - Rules default to active unless explicitly disabled

USAGE:
  cfg, err := factory.ParseConfig(jsonBytes)
  summary, err := finance.Classify(entries, asOf, cfg.Aging)
  events, err := finance.Evaluate(cfg.Rules, snapshot)

SEE ALSO:
  - finance/aging.go: AgingConfig
  - finance/escalation.go: EscalationRule
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/finance"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of the engine configuration.
type ConfigJSON struct {
	Aging *AgingJSON `json:"aging,omitempty"`
	Rules []RuleJSON `json:"rules,omitempty"`
}

// AgingJSON represents aging classifier configuration.
type AgingJSON struct {
	Boundaries []int          `json:"boundaries"`
	RiskTiers  []RiskTierJSON `json:"risk_tiers,omitempty"`
}

// RiskTierJSON maps an over-terminal-bucket fraction to a tier.
type RiskTierJSON struct {
	MinFraction float64 `json:"min_fraction"`
	Tier        string  `json:"tier"`
}

// RuleJSON mirrors the EscalationRule wire format.
type RuleJSON struct {
	ID             string   `json:"id"`
	TriggerKind    string   `json:"triggerKind"`
	ThresholdValue float64  `json:"thresholdValue"`
	ThresholdUnit  string   `json:"thresholdUnit,omitempty"`
	EscalateToTier string   `json:"escalateToTier"`
	Channels       []string `json:"channels"`
	Active         *bool    `json:"active,omitempty"` // default true
}

// =============================================================================
// PARSED CONFIG
// =============================================================================

// EngineConfig bundles everything the sweep needs.
type EngineConfig struct {
	Aging finance.AgingConfig
	Rules []finance.EscalationRule
}

// ParseConfig converts a JSON document into an EngineConfig, applying
// defaults and validating every rule.
func ParseConfig(data []byte) (*EngineConfig, error) {
	var doc ConfigJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return buildConfig(doc)
}

func buildConfig(doc ConfigJSON) (*EngineConfig, error) {
	cfg := &EngineConfig{Aging: finance.DefaultAgingConfig()}

	if doc.Aging != nil {
		aging := finance.AgingConfig{Boundaries: doc.Aging.Boundaries}
		for _, t := range doc.Aging.RiskTiers {
			tier, err := parseRiskTier(t.Tier)
			if err != nil {
				return nil, err
			}
			aging.RiskTiers = append(aging.RiskTiers, finance.RiskThreshold{
				MinFraction: decimal.NewFromFloat(t.MinFraction),
				Tier:        tier,
			})
		}
		cfg.Aging = aging
	}

	for _, r := range doc.Rules {
		rule, err := buildRule(r)
		if err != nil {
			return nil, err
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	return cfg, nil
}

func buildRule(r RuleJSON) (finance.EscalationRule, error) {
	active := true
	if r.Active != nil {
		active = *r.Active
	}

	channels := make([]finance.Channel, 0, len(r.Channels))
	for _, c := range r.Channels {
		ch, err := parseChannel(c)
		if err != nil {
			return finance.EscalationRule{}, err
		}
		channels = append(channels, ch)
	}

	rule := finance.EscalationRule{
		ID:             finance.RuleID(r.ID),
		TriggerKind:    finance.TriggerKind(r.TriggerKind),
		ThresholdValue: decimal.NewFromFloat(r.ThresholdValue),
		ThresholdUnit:  finance.ThresholdUnit(r.ThresholdUnit),
		EscalateToTier: r.EscalateToTier,
		Channels:       channels,
		Active:         active,
	}

	// Same validation the evaluator applies; fail at load time.
	if err := rule.Validate(); err != nil {
		return finance.EscalationRule{}, err
	}
	return rule, nil
}

func parseChannel(s string) (finance.Channel, error) {
	switch finance.Channel(s) {
	case finance.ChannelEmail, finance.ChannelInApp, finance.ChannelSMS:
		return finance.Channel(s), nil
	}
	return "", &finance.InvalidRuleError{Reason: fmt.Sprintf("unknown channel %q", s)}
}

func parseRiskTier(s string) (finance.RiskTier, error) {
	switch finance.RiskTier(s) {
	case finance.RiskLow, finance.RiskMedium, finance.RiskHigh:
		return finance.RiskTier(s), nil
	}
	return "", &finance.InvalidRuleError{RuleID: "aging-config", Reason: fmt.Sprintf("unknown risk tier %q", s)}
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultConfigJSON returns a ready-to-store configuration document with
// the conventional boundaries and a small starter rule set.
func DefaultConfigJSON() []byte {
	doc := ConfigJSON{
		Aging: &AgingJSON{
			Boundaries: []int{30, 60, 90},
			RiskTiers: []RiskTierJSON{
				{MinFraction: 0.20, Tier: "high"},
				{MinFraction: 0.10, Tier: "medium"},
			},
		},
		Rules: []RuleJSON{
			{
				ID:             "approval-24h",
				TriggerKind:    string(finance.ApprovalPending),
				ThresholdValue: 24,
				ThresholdUnit:  string(finance.UnitHours),
				EscalateToTier: "manager",
				Channels:       []string{string(finance.ChannelEmail), string(finance.ChannelInApp)},
			},
			{
				ID:             "quote-expiry-7d",
				TriggerKind:    string(finance.ExpiryApproaching),
				ThresholdValue: 7,
				EscalateToTier: "account_owner",
				Channels:       []string{string(finance.ChannelEmail)},
			},
		},
	}
	data, _ := json.MarshalIndent(doc, "", "  ")
	return data
}
