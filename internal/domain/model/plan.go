package model

import "strings"

type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanPro      PlanTier = "pro"
	PlanBusiness PlanTier = "business"
)

// Unlimited marks a limit that is never enforced.
const Unlimited = -1

type PlanLimits struct {
	MessagesPerMonth  int `yaml:"messages_per_month"`
	MessagesPerMinute int `yaml:"messages_per_minute"`
}

func (l PlanLimits) MonthlyUnlimited() bool   { return l.MessagesPerMonth == Unlimited }
func (l PlanLimits) PerMinuteUnlimited() bool { return l.MessagesPerMinute == Unlimited }

// PlanTable maps tiers to limits. It is built once at startup and only read afterwards.
type PlanTable map[PlanTier]PlanLimits

func DefaultPlanTable() PlanTable {
	return PlanTable{
		PlanFree:     {MessagesPerMonth: 50, MessagesPerMinute: 5},
		PlanPro:      {MessagesPerMonth: 1000, MessagesPerMinute: 20},
		PlanBusiness: {MessagesPerMonth: Unlimited, MessagesPerMinute: 100},
	}
}

// Limits resolves a tier, falling back to free for unknown or empty tiers.
func (t PlanTable) Limits(tier PlanTier) PlanLimits {
	if l, ok := t[PlanTier(strings.ToLower(string(tier)))]; ok {
		return l
	}
	return t[PlanFree]
}
