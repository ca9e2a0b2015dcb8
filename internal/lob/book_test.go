package lob

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_FifoAndPartial(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.Add(1, Ask, 100, 3, 0))
	require.True(t, b.Add(2, Ask, 100, 5, 0))

	res := b.SubmitLegacy(Bid, 100, 6, 3, Limit)

	require.Len(t, res.Fills, 2)
	assert.EqualValues(t, 1, res.Fills[0].MakerId)
	assert.EqualValues(t, 3, res.Fills[0].Qty)
	assert.EqualValues(t, 2, res.Fills[1].MakerId)
	assert.EqualValues(t, 3, res.Fills[1].Qty)
	assert.NoError(t, b.CheckInvariants())
}

func TestMatch_CancelRemovesQty(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.Add(10, Bid, 101, 7, 0))

	cr := b.Cancel(10)
	assert.True(t, cr.Ok)
	assert.EqualValues(t, 7, cr.QtyCanceled)
	assert.False(t, b.Has(10))
	assert.NoError(t, b.CheckInvariants())
}

func TestIOC_DoesNotPostWhenNotMarketable(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.Add(1, Ask, 100, 5, 0))

	res := b.Submit(0, Bid, 99, 10, 202, Limit, IOC, 0)

	assert.Empty(t, res.Fills)
	assert.EqualValues(t, 0, res.PostedQty)
	assert.False(t, b.Has(202))
	assert.NoError(t, b.CheckInvariants())
}

func TestFOK_AllOrNothing(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.Add(1, Ask, 100, 5, 0))

	res := b.Submit(0, Bid, 100, 6, 22, Limit, FOK, 0)
	assert.Empty(t, res.Fills)
	assert.EqualValues(t, 0, res.PostedQty)
	assert.False(t, b.Has(22))

	require.True(t, b.Add(2, Ask, 100, 3, 0))
	res = b.Submit(0, Bid, 100, 6, 23, Limit, FOK, 0)
	var total Qty
	for _, f := range res.Fills {
		total += f.Qty
	}
	assert.EqualValues(t, 6, total)
	assert.NoError(t, b.CheckInvariants())
}

func TestSTP_CancelTaker_DropsIncomingOverlap(t *testing.T) {
	b := NewBook(BookConfig{STP: CancelTaker})
	require.True(t, b.AddTrader(7, 1, Ask, 100, 10, 0))

	res := b.Submit(7, Bid, 0, 12, 202, Market, IOC, 0)

	assert.Empty(t, res.Fills)
	assert.False(t, b.Has(202))
	assert.NoError(t, b.CheckInvariants())
}

func TestSTP_CancelMaker_ReducesRestingLiquidity(t *testing.T) {
	b := NewBook(BookConfig{STP: CancelMaker})
	require.True(t, b.AddTrader(7, 1, Ask, 100, 5, 0))

	res := b.Submit(7, Bid, 100, 3, 301, Limit, IOC, 0)
	assert.Empty(t, res.Fills)
	assert.NoError(t, b.CheckInvariants())

	res = b.Submit(8, Bid, 100, 2, 302, Limit, IOC, 0)
	var total Qty
	for _, f := range res.Fills {
		total += f.Qty
	}
	assert.EqualValues(t, 2, total)
	assert.NoError(t, b.CheckInvariants())
}

func TestReplace_DecreaseSamePriceKeepsPriority(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.AddTrader(1, 10, Bid, 100, 10, 0))
	require.True(t, b.AddTrader(2, 20, Bid, 100, 10, 0))

	rr := b.Replace(1, 10, 100, 6, Day, 0)
	require.True(t, rr.Ok)

	res := b.Submit(0, Ask, 0, 6, 900, Market, IOC, 0)
	require.NotEmpty(t, res.Fills)
	assert.EqualValues(t, 10, res.Fills[0].MakerId)
	assert.NoError(t, b.CheckInvariants())
}

func TestReplace_PriceChangeOrIncreaseLosesPriority(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.AddTrader(1, 10, Bid, 100, 10, 0))
	require.True(t, b.AddTrader(2, 20, Bid, 100, 10, 0))

	rr := b.Replace(1, 10, 101, 10, Day, 0)
	require.True(t, rr.Ok)

	res := b.Submit(0, Ask, 0, 10, 901, Market, IOC, 0)
	require.NotEmpty(t, res.Fills)
	assert.EqualValues(t, 101, res.Fills[0].Px)
	assert.EqualValues(t, 10, res.Fills[0].MakerId)
	assert.NoError(t, b.CheckInvariants())
}

func TestGhosts_IOCAndFOKDoNotLeaveStrandedIds(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.Add(1, Ask, 100, 5, 0))

	b.Submit(0, Bid, 99, 5, 2002, Limit, IOC, 0)
	assert.False(t, b.Has(2002))

	b.Submit(0, Bid, 100, 6, 2003, Limit, FOK, 0)
	assert.False(t, b.Has(2003))
	assert.NoError(t, b.CheckInvariants())
}

func TestGhosts_ReplaceWithFOKFailureRemovesOriginalWithoutGhosts(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.AddTrader(9, 10, Bid, 100, 5, 0))
	require.True(t, b.Add(1, Ask, 101, 5, 0))

	rr := b.Replace(9, 10, 100, 12, FOK, 0)
	assert.False(t, rr.Ok)
	assert.False(t, b.Has(10))
	assert.NoError(t, b.CheckInvariants())
}

func TestProperty_RandomOpsPreserveInvariants(t *testing.T) {
	b := NewBook(BookConfig{})
	rng := rand.New(rand.NewSource(42))
	var live []OrderId
	var nextId OrderId = 1

	for i := 0; i < 5000; i++ {
		roll := rng.Float64()
		switch {
		case roll < 0.6 || len(live) == 0:
			id := nextId
			nextId++
			side := Bid
			if rng.Intn(2) == 1 {
				side = Ask
			}
			px := Price(1000 + rng.Intn(101))
			qty := Qty(1 + rng.Intn(50))
			if b.Add(id, side, px, qty, TimeNs(i)) {
				live = append(live, id)
			}
		case roll < 0.8:
			idx := rng.Intn(len(live))
			id := live[idx]
			b.Cancel(id)
			live = append(live[:idx], live[idx+1:]...)
		default:
			idx := rng.Intn(len(live))
			id := live[idx]
			b.Reduce(id, Qty(rng.Intn(4)))
			if !b.Has(id) {
				live = append(live[:idx], live[idx+1:]...)
			}
		}
		require.NoError(t, b.CheckInvariants(), "iteration %d", i)
	}
}

func TestVolumeConservation(t *testing.T) {
	b := NewBook(BookConfig{})
	rng := rand.New(rand.NewSource(42))
	var nextId OrderId = 1
	var added, posted Qty
	seed := func(side Side) OrderId {
		id := nextId
		nextId++
		px := Price(1000 + rng.Intn(101))
		qty := Qty(1 + rng.Intn(50))
		if b.Add(id, side, px, qty, 0) {
			added += qty
		}
		return id
	}
	var live []OrderId
	for i := 0; i < 200; i++ {
		side := Bid
		if i%2 == 1 {
			side = Ask
		}
		live = append(live, seed(side))
	}

	var traded, canceled Qty
	for i := 0; i < 5000; i++ {
		roll := rng.Float64()
		switch {
		case roll < 0.6:
			id := nextId
			nextId++
			side := Bid
			if rng.Intn(2) == 1 {
				side = Ask
			}
			px := Price(1000 + rng.Intn(101))
			qty := Qty(1 + rng.Intn(50))
			res := b.Submit(0, side, px, qty, id, Limit, Day, TimeNs(i))
			for _, f := range res.Fills {
				traded += f.Qty
			}
			if res.PostedQty > 0 {
				posted += res.PostedQty
				live = append(live, id)
			}
		case roll < 0.8:
			if len(live) == 0 {
				continue
			}
			side := Bid
			if rng.Intn(2) == 1 {
				side = Ask
			}
			qty := Qty(1 + rng.Intn(50))
			res := b.Submit(0, side, 0, qty, nextId, Market, IOC, TimeNs(i))
			nextId++
			for _, f := range res.Fills {
				traded += f.Qty
			}
		default:
			if len(live) == 0 {
				continue
			}
			idx := rng.Intn(len(live))
			id := live[idx]
			cr := b.Cancel(id)
			if cr.Ok {
				canceled += cr.QtyCanceled
				live = append(live[:idx], live[idx+1:]...)
			}
		}
		require.NoError(t, b.CheckInvariants())
	}
	assert.GreaterOrEqual(t, traded, Qty(0))
	assert.GreaterOrEqual(t, canceled, Qty(0))
	// Every unit that ever rested either traded against a taker, was
	// canceled, or is still resting.
	assert.Equal(t, added+posted-traded-canceled, b.bidsTotal+b.asksTotal)
}

func TestAdd_RejectsLockingCross(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.Add(1, Ask, 100, 5, 0))
	assert.False(t, b.Add(2, Bid, 100, 5, 0))
	assert.False(t, b.Add(3, Bid, 101, 5, 0))
	assert.NoError(t, b.CheckInvariants())
}

func TestBest_MidAndSpread(t *testing.T) {
	b := NewBook(BookConfig{})
	require.True(t, b.Add(1, Bid, 98, 5, 0))
	require.True(t, b.Add(2, Ask, 102, 5, 0))

	best := b.Best()
	mid, ok := best.Mid()
	assert.True(t, ok)
	assert.EqualValues(t, 100, mid)

	spread, ok := best.Spread()
	assert.True(t, ok)
	assert.EqualValues(t, 4, spread)
}
