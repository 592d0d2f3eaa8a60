package match

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dice-duel/internal/ledger"
)

func TestComputeSettlementWinWithFee(t *testing.T) {
	st := ComputeSettlement(ResultWin, "a", "b", "a", 100, FeeBasisPoints(0.025))

	require.Equal(t, int64(200), st.Pot)
	require.Equal(t, int64(5), st.Fee)
	require.Equal(t, int64(195), st.Payout)
	require.Equal(t, []Credit{{PlayerID: "a", Amount: 195, EntryType: ledger.EntryMatchPayout}}, st.Credits)
}

func TestComputeSettlementDrawRefundsWithoutFee(t *testing.T) {
	st := ComputeSettlement(ResultDraw, "a", "b", "", 40, FeeBasisPoints(0.1))

	require.Equal(t, int64(0), st.Fee)
	require.Empty(t, st.WinnerID)
	require.Len(t, st.Credits, 2)
	for _, c := range st.Credits {
		require.Equal(t, int64(40), c.Amount)
		require.Equal(t, ledger.EntryDrawRefund, c.EntryType)
	}
}

func TestComputeSettlementFeeRoundsDown(t *testing.T) {
	// 2.5% of 6 is 0.15
	st := ComputeSettlement(ResultForfeit, "a", "b", "b", 3, FeeBasisPoints(0.025))
	require.Equal(t, int64(0), st.Fee)
	require.Equal(t, int64(6), st.Payout)
}

func TestSettlementConservesPot(t *testing.T) {
	rates := []float64{0, 0.001, 0.025, 0.1, 0.333, 0.5, 0.9999}
	stakes := []int64{1, 2, 3, 7, 10, 99, 1000, 123456789}
	results := []Result{ResultWin, ResultDraw, ResultForfeit}

	for _, rate := range rates {
		for _, stake := range stakes {
			for _, res := range results {
				winner := "a"
				if res == ResultDraw {
					winner = ""
				}
				st := ComputeSettlement(res, "a", "b", winner, stake, FeeBasisPoints(rate))
				require.Equal(t, st.Pot, st.credited()+st.Fee, "rate=%v stake=%d result=%s", rate, stake, res)
				require.GreaterOrEqual(t, st.Fee, int64(0))
				require.LessOrEqual(t, st.Fee, st.Pot)
				if res == ResultDraw {
					require.Zero(t, st.Fee)
				}
			}
		}
	}
}

func TestFeeBasisPointsClamps(t *testing.T) {
	require.Equal(t, int64(0), FeeBasisPoints(-0.5))
	require.Equal(t, int64(250), FeeBasisPoints(0.025))
	require.Equal(t, int64(9999), FeeBasisPoints(1.5))
}

func TestComputeSettlementAtMaxStake(t *testing.T) {
	require.Equal(t, int64(4611686018427387903), MaxStake)

	for _, bps := range []int64{0, 250, 9999} {
		st := ComputeSettlement(ResultWin, "a", "b", "a", MaxStake, bps)
		require.Equal(t, 2*MaxStake, st.Pot)
		require.Positive(t, st.Payout)
		require.Len(t, st.Credits, 1)
		require.Equal(t, st.Pot, st.credited()+st.Fee, "bps=%d", bps)
		require.GreaterOrEqual(t, st.Fee, int64(0))
	}
}

func TestFeeOfMatchesDirectArithmetic(t *testing.T) {
	for _, pot := range []int64{1, 9999, 10000, 10001, 123456789} {
		for _, bps := range []int64{0, 1, 250, 9999} {
			require.Equal(t, pot*bps/basisPoints, feeOf(pot, bps), "pot=%d bps=%d", pot, bps)
		}
	}
}
