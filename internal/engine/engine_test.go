package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lobengine/internal/events"
	"lobengine/internal/lob"
)

func newTestEngine(t *testing.T, cfg lob.BookConfig) *Engine {
	t.Helper()
	e, err := New(cfg, 1024)
	require.NoError(t, err)
	return e
}

func drain(e *Engine) []events.Event {
	var out []events.Event
	for {
		ev, ok := e.Bus().TryPoll()
		if !ok {
			break
		}
		out = append(out, ev)
	}
	return out
}

func TestEngine_AddRestingPublishesBookChange(t *testing.T) {
	e := newTestEngine(t, lob.BookConfig{})
	res := e.AddDefault(1, lob.Bid, 100, 10)
	assert.EqualValues(t, 10, res.PostedQty)

	evs := drain(e)
	require.Len(t, evs, 1)
	assert.Equal(t, events.KindBookChange, evs[0].Kind)
	assert.EqualValues(t, 100, evs[0].BookChange.Px)
	assert.EqualValues(t, 10, evs[0].BookChange.LevelQty)
}

func TestEngine_FillsPublishBeforeBookChange(t *testing.T) {
	e := newTestEngine(t, lob.BookConfig{})
	e.AddDefault(1, lob.Ask, 100, 5)
	drain(e)

	res := e.AddDefault(2, lob.Bid, 100, 5)
	assert.Len(t, res.Fills, 1)

	evs := drain(e)
	require.Len(t, evs, 2)
	assert.Equal(t, events.KindFill, evs[0].Kind)
	assert.EqualValues(t, 2, evs[0].Fill.TakerId)
	assert.EqualValues(t, 1, evs[0].Fill.MakerId)
	assert.Equal(t, events.KindBookChange, evs[1].Kind)
}

func TestEngine_MarketUsesSentinelBookChange(t *testing.T) {
	e := newTestEngine(t, lob.BookConfig{})
	e.AddDefault(1, lob.Ask, 100, 5)
	drain(e)

	e.MarketDefault(2, lob.Bid, 5)
	evs := drain(e)
	require.Len(t, evs, 2)
	assert.Equal(t, events.KindBookChange, evs[1].Kind)
	assert.EqualValues(t, 0, evs[1].BookChange.Px)
	assert.EqualValues(t, 0, evs[1].BookChange.LevelQty)
}

func TestEngine_CancelPublishesCancelThenBookChange(t *testing.T) {
	e := newTestEngine(t, lob.BookConfig{})
	e.AddDefault(1, lob.Bid, 100, 10)
	drain(e)

	cr := e.Cancel(1)
	require.True(t, cr.Ok)

	evs := drain(e)
	require.Len(t, evs, 2)
	assert.Equal(t, events.KindCancel, evs[0].Kind)
	assert.EqualValues(t, 1, evs[0].Cancel.Id)
	assert.Equal(t, events.KindBookChange, evs[1].Kind)
	assert.EqualValues(t, 0, evs[1].BookChange.LevelQty)
}

func TestEngine_ReplacePublishesBothSides(t *testing.T) {
	e := newTestEngine(t, lob.BookConfig{})
	e.Add(1, 10, lob.Bid, 100, 10, lob.Day, 0)
	drain(e)

	rr := e.Replace(1, 10, 101, 10, lob.Day, 0)
	require.True(t, rr.Ok)

	evs := drain(e)
	require.Len(t, evs, 2)
	assert.Equal(t, events.KindBookChange, evs[0].Kind)
	assert.Equal(t, lob.Bid, evs[0].BookChange.Side)
	assert.Equal(t, events.KindBookChange, evs[1].Kind)
	assert.Equal(t, lob.Ask, evs[1].BookChange.Side)
}

func TestEngine_STPConfigReachesBook(t *testing.T) {
	e := newTestEngine(t, lob.BookConfig{STP: lob.CancelTaker})
	e.Add(7, 1, lob.Ask, 100, 10, lob.Day, 0)
	drain(e)

	res := e.Market(7, 2, lob.Bid, 12, lob.IOC, 0)
	assert.Empty(t, res.Fills)
	assert.False(t, e.Book().Has(2))
	assert.NoError(t, e.Book().CheckInvariants())
}
