package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckQuotaRequestLimit(t *testing.T) {
	q := Quota{MaxRequestsPerMin: 10}
	prev := QuotaNow{EpochID: 1}

	next, err := CheckQuota(q, 1, prev, 10, 0)
	require.NoError(t, err)
	require.EqualValues(t, 10, next.ReqCount)

	denied, err := CheckQuota(q, 1, next, 1, 0)
	require.ErrorIs(t, err, ErrQuotaRequestsExceeded)
	require.Equal(t, next, denied, "expected counters to remain unchanged on denial")

	rollover, err := CheckQuota(q, 2, next, 1, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, rollover.EpochID)
	require.EqualValues(t, 1, rollover.ReqCount)
}

func TestCheckQuotaNHB(t *testing.T) {
	q := Quota{MaxNHBPerEpoch: 1000}
	prev := QuotaNow{EpochID: 5}

	next, err := CheckQuota(q, 5, prev, 0, 1000)
	require.NoError(t, err)
	require.EqualValues(t, 1000, next.NHBUsed)

	denied, err := CheckQuota(q, 5, next, 0, 1)
	require.ErrorIs(t, err, ErrQuotaNHBCapExceeded)
	require.Equal(t, next, denied, "expected counters to remain unchanged on denial")

	rollover, err := CheckQuota(q, 6, next, 0, 500)
	require.NoError(t, err)
	require.EqualValues(t, 500, rollover.NHBUsed)
}
