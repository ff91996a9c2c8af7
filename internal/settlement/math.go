package settlement

import (
	"fmt"

	"tournament-settlement/internal/usdc"

	"github.com/shopspring/decimal"
)

// Plan is the full split of one tournament's pool. Totals and the per-row
// allocations are exact at six decimals.
type Plan struct {
	TotalPool            decimal.Decimal
	JudgeFeeTotal        decimal.Decimal
	SystemRetentionTotal decimal.Decimal
	RewardPool           decimal.Decimal
	Allocations          []Allocation
}

type Allocation struct {
	StakeID          string
	AgentID          string
	JudgeFeeDeducted decimal.Decimal
	SystemRetention  decimal.Decimal
	RewardPayout     decimal.Decimal
	Status           LedgerStatus
	Winner           bool
	Forfeited        bool
}

// PlanSettlement splits the pool of ledgers. Judge fee and retention are
// charged pro-rata by stake across every row; the reward pool goes evenly
// to the winner's rows only.
func PlanSettlement(
	ledgers []Ledger,
	winnerAgentID string,
	forfeited map[string]struct{},
	requestedJudgeFeeTotal decimal.Decimal,
	retentionRate decimal.Decimal,
) (*Plan, error) {
	if len(ledgers) == 0 {
		return nil, fmt.Errorf("%w: no stake ledger rows", ErrConsistencyViolation)
	}

	rate := usdc.Clamp01(retentionRate)
	totalPool := usdc.Zero
	stakes := make([]decimal.Decimal, len(ledgers))
	for i, l := range ledgers {
		stakes[i] = usdc.NonNegative(l.AmountStaked)
		totalPool = totalPool.Add(stakes[i])
	}
	totalPool = usdc.Round(totalPool)

	judgeFeeTotal := usdc.Min(totalPool, usdc.NonNegative(requestedJudgeFeeTotal))
	beforeRetention := usdc.Round(totalPool.Sub(judgeFeeTotal))
	retentionTotal := usdc.Min(beforeRetention, usdc.Round(beforeRetention.Mul(rate)))
	rewardPool := usdc.Round(beforeRetention.Sub(retentionTotal))

	var winners []int
	for i, l := range ledgers {
		if l.AgentID == winnerAgentID {
			winners = append(winners, i)
		}
	}
	if len(winners) == 0 {
		return nil, fmt.Errorf("%w: winner %s has no stake ledger row", ErrConsistencyViolation, winnerAgentID)
	}

	judgeFees := allocateProRata(judgeFeeTotal, stakes)
	retentions := allocateProRata(retentionTotal, stakes)
	rewards := allocateEvenly(rewardPool, len(winners))

	plan := &Plan{
		TotalPool:            totalPool,
		JudgeFeeTotal:        judgeFeeTotal,
		SystemRetentionTotal: retentionTotal,
		RewardPool:           rewardPool,
		Allocations:          make([]Allocation, len(ledgers)),
	}
	for i, l := range ledgers {
		_, isForfeited := forfeited[l.AgentID]
		status := LedgerSettled
		if isForfeited {
			status = LedgerForfeited
		}
		plan.Allocations[i] = Allocation{
			StakeID:          l.StakeID,
			AgentID:          l.AgentID,
			JudgeFeeDeducted: judgeFees[i],
			SystemRetention:  retentions[i],
			RewardPayout:     usdc.Zero,
			Status:           status,
			Winner:           l.AgentID == winnerAgentID,
			Forfeited:        isForfeited,
		}
	}
	for k, idx := range winners {
		plan.Allocations[idx].RewardPayout = rewards[k]
	}
	return plan, nil
}

// allocateProRata weights by stake, or equally when every stake is zero.
func allocateProRata(total decimal.Decimal, stakes []decimal.Decimal) []decimal.Decimal {
	totalStake := decimal.Zero
	for _, s := range stakes {
		totalStake = totalStake.Add(s)
	}
	if totalStake.Sign() == 0 {
		return allocateEvenly(total, len(stakes))
	}
	return allocateByWeights(total, stakes, totalStake)
}

func allocateEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = usdc.One
	}
	return allocateByWeights(total, weights, decimal.NewFromInt(int64(n)))
}

// allocateByWeights gives each recipient but the last its rounded share,
// capped at what is left; the last takes the exact remainder.
func allocateByWeights(total decimal.Decimal, weights []decimal.Decimal, totalWeight decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	if len(out) == 0 {
		return out
	}
	total = usdc.NonNegative(total)
	if total.Sign() == 0 {
		for i := range out {
			out[i] = usdc.Zero
		}
		return out
	}

	remaining := total
	last := len(weights) - 1
	for i := 0; i < last; i++ {
		share := total.Mul(weights[i]).DivRound(totalWeight, usdc.Scale)
		share = usdc.Min(usdc.Round(share), remaining)
		out[i] = share
		remaining = remaining.Sub(share)
	}
	out[last] = usdc.Round(remaining)
	return out
}
