package chore

import (
	"github.com/dukerupert/chorechart/internal/apperr"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/shopspring/decimal"
)

// MaxCooldownDays bounds the cooldown a recurring chore may declare.
const MaxCooldownDays = 365

var maxReward = decimal.NewFromInt(10000)

// MoneyPlaces is the number of decimal places money is stored with.
const MoneyPlaces = 2

// WholeCents reports whether d has no more than MoneyPlaces decimal places,
// so it is stored exactly.
func WholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

// ValidatePolicy checks the reward and recurrence settings of a chore definition.
func ValidatePolicy(c model.Chore) error {
	if c.IsRangeReward {
		if c.MinReward.IsNegative() || c.MaxReward.IsNegative() {
			return apperr.Validation("min_reward and max_reward must be >= 0")
		}
		if c.MinReward.GreaterThan(c.MaxReward) {
			return apperr.Validation("min_reward must be less than or equal to max_reward")
		}
		if c.MaxReward.GreaterThan(maxReward) {
			return apperr.Validation("max_reward must be <= %s", maxReward)
		}
		if !WholeCents(c.MinReward) || !WholeCents(c.MaxReward) {
			return apperr.Validation("min_reward and max_reward must have at most %d decimal places", MoneyPlaces)
		}
	} else {
		if c.Reward.IsNegative() {
			return apperr.Validation("reward must be >= 0")
		}
		if c.Reward.GreaterThan(maxReward) {
			return apperr.Validation("reward must be <= %s", maxReward)
		}
		if !WholeCents(c.Reward) {
			return apperr.Validation("reward must have at most %d decimal places", MoneyPlaces)
		}
	}
	if c.CooldownDays < 0 || c.CooldownDays > MaxCooldownDays {
		return apperr.Validation("cooldown_days must be between 0 and %d", MaxCooldownDays)
	}
	if !c.IsRecurring && c.CooldownDays != 0 {
		return apperr.Validation("cooldown_days requires a recurring chore")
	}
	return nil
}

// ResolveReward returns the amount credited when a completion of c is approved.
// Fixed rewards ignore value; range rewards require value within [min, max].
func ResolveReward(c model.Chore, value *decimal.Decimal) (decimal.Decimal, error) {
	if !c.IsRangeReward {
		return c.Reward, nil
	}
	if value == nil || value.LessThan(c.MinReward) || value.GreaterThan(c.MaxReward) {
		return decimal.Zero, apperr.Validation("reward value must be within range %s-%s", c.MinReward.StringFixed(2), c.MaxReward.StringFixed(2))
	}
	if !WholeCents(*value) {
		return decimal.Zero, apperr.Validation("reward value must have at most %d decimal places", MoneyPlaces)
	}
	return *value, nil
}

// EstimateReward is the value counted as pending while a completion awaits approval.
// Range chores count their maximum, the most the parent could credit.
func EstimateReward(c model.Chore) decimal.Decimal {
	if c.IsRangeReward {
		return c.MaxReward
	}
	return c.Reward
}
