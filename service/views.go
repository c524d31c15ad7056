package service

import (
	"pawcademy/badge"
	"pawcademy/model"
	"pawcademy/progression"
)

// LedgerView is a ledger enriched with the level window for UI display.
type LedgerView struct {
	Ledger       model.Ledger `json:"ledger"`
	LevelCurrent int          `json:"levelCurrent"`
	LevelNeeded  int          `json:"levelNeeded"`
	LevelPercent int          `json:"levelPercent"`
}

// NewLedgerView computes the within-level progress window for a ledger.
func NewLedgerView(ledger model.Ledger) LedgerView {
	lp := progression.ProgressWithinLevel(ledger.ExperiencePoints)
	return LedgerView{
		Ledger:       ledger,
		LevelCurrent: lp.Current,
		LevelNeeded:  lp.Needed,
		LevelPercent: lp.Percent,
	}
}

// LockedBadge is a catalog badge the user has not earned yet, with the
// percentage of its requirement already met. Secret badges are not listed.
type LockedBadge struct {
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    model.BadgeCategory `json:"category"`
	Tier        model.BadgeTier     `json:"tier"`
	Rarity      model.BadgeRarity   `json:"rarity"`
	Points      int                 `json:"points"`
	Progress    int                 `json:"progress"`
}

// BadgeOverview is the per-user badge page: earned badges, visible locked
// badges with progress, and the recent unlock trend.
type BadgeOverview struct {
	Unlocked []model.UserBadge `json:"unlocked"`
	Locked   []LockedBadge     `json:"locked"`
	Trend    badge.Trend       `json:"trend"`
}

// BadgeStats is the catalog-wide earn distribution summary. The pointers
// are nil when no badge has been earned by anyone yet.
type BadgeStats struct {
	MostEarned   *badge.EarnStat `json:"mostEarned,omitempty"`
	RarestEarned *badge.EarnStat `json:"rarestEarned,omitempty"`
}
