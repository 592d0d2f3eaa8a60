package match

import (
	"math"

	"dice-duel/internal/ledger"
)

const basisPoints = 10000

// MaxStake keeps the pot of two stakes within int64. FindMatchRequest
// carries the same bound as a validation tag.
const MaxStake int64 = math.MaxInt64 / 2

// FeeBasisPoints converts a fractional pot fee rate into basis points.
func FeeBasisPoints(rate float64) int64 {
	bps := int64(math.Round(rate * basisPoints))
	if bps < 0 {
		return 0
	}
	if bps >= basisPoints {
		return basisPoints - 1
	}
	return bps
}

type Credit struct {
	PlayerID  string
	Amount    int64
	EntryType string
}

// Settlement describes how a closed match pays out.
// Sum of Credits plus Fee always equals Pot.
type Settlement struct {
	Result   Result
	WinnerID string
	Pot      int64
	Fee      int64
	Payout   int64
	Credits  []Credit
}

// ComputeSettlement pays a decided match (win or forfeit) to winner, or
// refunds each stake on a draw.
func ComputeSettlement(result Result, playerA, playerB, winner string, stake, feeBps int64) Settlement {
	pot := 2 * stake
	if result == ResultDraw {
		return Settlement{
			Result: ResultDraw,
			Pot:    pot,
			Payout: stake,
			Credits: []Credit{
				{PlayerID: playerA, Amount: stake, EntryType: ledger.EntryDrawRefund},
				{PlayerID: playerB, Amount: stake, EntryType: ledger.EntryDrawRefund},
			},
		}
	}

	fee := feeOf(pot, feeBps)
	fee = min(max(fee, 0), pot)
	payout := pot - fee
	st := Settlement{Result: result, WinnerID: winner, Pot: pot, Fee: fee, Payout: payout}
	if payout > 0 {
		st.Credits = []Credit{{PlayerID: winner, Amount: payout, EntryType: ledger.EntryMatchPayout}}
	}
	return st
}

// feeOf computes floor(pot*bps/10000) without overflowing pot*bps.
func feeOf(pot, bps int64) int64 {
	return pot/basisPoints*bps + pot%basisPoints*bps/basisPoints
}

func (s Settlement) credited() int64 {
	var total int64
	for _, c := range s.Credits {
		total += c.Amount
	}
	return total
}
