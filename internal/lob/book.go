package lob

import (
	"fmt"

	"github.com/tidwall/btree"
)

// MatchFill is one resting order being lifted by a taker.
type MatchFill struct {
	TakerId OrderId
	MakerId OrderId
	Px      Price
	Qty     Qty
}

// MatchResult is the outcome of a single Submit call.
type MatchResult struct {
	Fills       []MatchFill
	BookChanged bool
	PostedQty   Qty
}

// CancelResult is the outcome of a single Cancel call.
type CancelResult struct {
	Ok          bool
	QtyCanceled Qty
	Px          Price
	Side        Side
}

// ReplaceResult is the outcome of a single Replace call.
type ReplaceResult struct {
	Ok bool
	Id OrderId
}

type levelTree = btree.BTreeG[*priceLevel]

// Book is a single symbol's resting orders, kept as one ordered map per
// side plus an id index for O(1) lookup/cancel/reduce. Bids are kept
// in descending price order and asks in ascending order by flipping
// the Less passed to the bid tree — Min() then always returns "best"
// on either side without needing a separate concept of first/last.
type Book struct {
	cfg BookConfig

	bids *levelTree
	asks *levelTree

	idIndex map[OrderId]*orderNode
	owners  map[OrderId]TraderId

	bidsTotal Qty
	asksTotal Qty
}

// NewBook constructs an empty book.
func NewBook(cfg BookConfig) *Book {
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price > b.price
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
	return &Book{
		cfg:     cfg,
		bids:    bids,
		asks:    asks,
		idIndex: make(map[OrderId]*orderNode),
		owners:  make(map[OrderId]TraderId),
	}
}

func (b *Book) treeFor(side Side) *levelTree {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *Book) totalFor(side Side) *Qty {
	if side == Bid {
		return &b.bidsTotal
	}
	return &b.asksTotal
}

// Has reports whether id currently names a resting order.
func (b *Book) Has(id OrderId) bool {
	_, ok := b.idIndex[id]
	return ok
}

// Best returns the current best bid/ask.
func (b *Book) Best() BestOfBook {
	var out BestOfBook
	if lvl, ok := b.bids.Min(); ok {
		out.Bid, out.HasBid = lvl.price, true
	}
	if lvl, ok := b.asks.Min(); ok {
		out.Ask, out.HasAsk = lvl.price, true
	}
	return out
}

// LevelQty returns the resting quantity at (side, px), or 0 if the
// level does not exist.
func (b *Book) LevelQty(side Side, px Price) Qty {
	if lvl, ok := b.treeFor(side).Get(&priceLevel{price: px}); ok {
		return lvl.totalQty
	}
	return 0
}

func canTrade(side Side, limitPx, best Price) bool {
	if side == Bid {
		return limitPx >= best
	}
	return limitPx <= best
}

// Add rests a new order directly, with no matching. It is rejected if
// qty<=0, id already exists, or the order would lock/cross the book.
func (b *Book) Add(id OrderId, side Side, px Price, qty Qty, tsNs TimeNs) bool {
	return b.AddTrader(0, id, side, px, qty, tsNs)
}

// AddTrader is Add with an explicit owner, used by callers that care
// about self-trade prevention for subsequent orders.
func (b *Book) AddTrader(trader TraderId, id OrderId, side Side, px Price, qty Qty, tsNs TimeNs) bool {
	if qty <= 0 {
		return false
	}
	if _, exists := b.idIndex[id]; exists {
		return false
	}
	best := b.Best()
	if side == Bid && best.HasAsk && px >= best.Ask {
		return false
	}
	if side == Ask && best.HasBid && px <= best.Bid {
		return false
	}
	b.insertResting(trader, id, side, px, qty, tsNs)
	return true
}

func (b *Book) insertResting(trader TraderId, id OrderId, side Side, px Price, qty Qty, tsNs TimeNs) {
	n := &orderNode{id: id, side: side, px: px, qty: qty, ts: tsNs}
	tree := b.treeFor(side)
	lvl, ok := tree.GetMut(&priceLevel{price: px})
	if !ok {
		lvl = newPriceLevel(px)
		tree.Set(lvl)
	}
	lvl.pushBack(n)
	b.idIndex[id] = n
	b.owners[id] = trader
	*b.totalFor(side) += qty
}

// removeNode unlinks n from its level and the id index. The caller is
// responsible for dropping the level from its tree if it ends up empty.
func (b *Book) removeNode(n *orderNode) {
	n.level.erase(n)
	delete(b.idIndex, n.id)
	delete(b.owners, n.id)
}

func (b *Book) removeLevelIfEmpty(side Side, lvl *priceLevel) {
	if !lvl.empty() {
		return
	}
	b.treeFor(side).Delete(lvl)
}

// Reduce lowers a resting order's quantity by dq in place, preserving
// its FIFO position. dq==0 is a no-op success; dq>n.qty is rejected.
func (b *Book) Reduce(id OrderId, dq Qty) bool {
	if dq < 0 {
		return false
	}
	if dq == 0 {
		return true
	}
	n, ok := b.idIndex[id]
	if !ok {
		return false
	}
	if dq > n.qty {
		return false
	}
	lvl := n.level
	side := n.side
	stillAlive := lvl.reduce(n, dq)
	*b.totalFor(side) -= dq
	if !stillAlive {
		b.removeNode(n)
		b.removeLevelIfEmpty(side, lvl)
	}
	return true
}

// Cancel removes a resting order entirely.
func (b *Book) Cancel(id OrderId) CancelResult {
	n, ok := b.idIndex[id]
	if !ok {
		return CancelResult{}
	}
	qty, px, side, lvl := n.qty, n.px, n.side, n.level
	lvl.reduce(n, qty)
	*b.totalFor(side) -= qty
	b.removeNode(n)
	b.removeLevelIfEmpty(side, lvl)
	return CancelResult{Ok: true, QtyCanceled: qty, Px: px, Side: side}
}

// fokPrecheckSatisfied walks the opposite side from best outward,
// summing reachable liquidity, without mutating anything. It stops as
// soon as either the requirement is met or the book stops being
// marketable at that price. This keeps FOK side-effect-free on reject.
func (b *Book) fokPrecheckSatisfied(side Side, px Price, qty Qty, typ OrderType) bool {
	var execable Qty
	satisfied := false
	b.treeFor(side.Opposite()).Scan(func(lvl *priceLevel) bool {
		if typ != Market && !canTrade(side, px, lvl.price) {
			return false
		}
		execable += lvl.totalQty
		if execable >= qty {
			satisfied = true
			return false
		}
		return true
	})
	return satisfied
}

// selfTradeBlock applies the book's STP policy when maker and taker
// share a non-zero owner. Returns true when STP fired (the caller must
// not trade maker against taker this iteration).
func (b *Book) selfTradeBlock(taker TraderId, maker *orderNode, takerQty *Qty, lvl *priceLevel, oppTotal *Qty, result *MatchResult) bool {
	if taker == 0 || b.cfg.STP == Allow || b.owners[maker.id] != taker {
		return false
	}
	overlap := *takerQty
	if maker.qty < overlap {
		overlap = maker.qty
	}
	switch b.cfg.STP {
	case CancelTaker:
		*takerQty -= overlap
	case CancelMaker:
		b.sinkMaker(maker, overlap, lvl, oppTotal, result)
		// A cascading self-cancel against any further resting order of
		// the same owner must not happen; killing the remaining taker
		// quantity outright is the only way to guarantee that.
		*takerQty = 0
	case CancelBoth:
		*takerQty -= overlap
		b.sinkMaker(maker, overlap, lvl, oppTotal, result)
	}
	return true
}

func (b *Book) sinkMaker(maker *orderNode, overlap Qty, lvl *priceLevel, oppTotal *Qty, result *MatchResult) {
	stillAlive := lvl.reduce(maker, overlap)
	*oppTotal -= overlap
	if !stillAlive {
		b.removeNode(maker)
		result.BookChanged = true
	}
}

// matchCore runs the price-time priority matching loop for one taker
// against the opposite side's tree. It is called once per Submit, with
// the caller picking the correct (tree, side total) pair for whichever
// side the incoming order rests on — kept as a single implementation
// rather than duplicated per-side so there is exactly one place that
// decrements a level's total quantity per trade.
func (b *Book) matchCore(taker TraderId, takerId OrderId, takerSide Side, px Price, remaining *Qty, typ OrderType, oppTree *levelTree, oppTotal *Qty) MatchResult {
	var result MatchResult
	for *remaining > 0 {
		lvl, ok := oppTree.MinMut()
		if !ok {
			break
		}
		marketable := typ == Market || canTrade(takerSide, px, lvl.price)
		if !marketable {
			break
		}
		for lvl.head != nil && *remaining > 0 {
			maker := lvl.head
			if b.selfTradeBlock(taker, maker, remaining, lvl, oppTotal, &result) {
				if *remaining == 0 || lvl.head == nil {
					break
				}
				continue
			}
			traded := *remaining
			if maker.qty < traded {
				traded = maker.qty
			}
			*remaining -= traded
			stillAlive := lvl.reduce(maker, traded)
			*oppTotal -= traded
			result.Fills = append(result.Fills, MatchFill{TakerId: takerId, MakerId: maker.id, Px: lvl.price, Qty: traded})
			if !stillAlive {
				b.removeNode(maker)
				result.BookChanged = true
			}
		}
		if lvl.head == nil {
			oppTree.Delete(lvl)
			result.BookChanged = true
		}
	}
	return result
}

// Submit is the full matching entry point: it matches as much of the
// order as the book allows, then — for a Day Limit order with quantity
// left over — rests the remainder.
func (b *Book) Submit(trader TraderId, side Side, px Price, qty Qty, id OrderId, typ OrderType, tif TimeInForce, tsNs TimeNs) MatchResult {
	if qty <= 0 {
		return MatchResult{}
	}
	if typ == Limit && px <= 0 {
		return MatchResult{}
	}
	if _, exists := b.idIndex[id]; exists {
		return MatchResult{}
	}
	if tif == FOK && !b.fokPrecheckSatisfied(side, px, qty, typ) {
		return MatchResult{}
	}

	remaining := qty
	result := b.matchCore(trader, id, side, px, &remaining, typ, b.treeFor(side.Opposite()), b.totalFor(side.Opposite()))

	if tif == IOC || typ == Market {
		return result
	}
	if remaining > 0 && typ == Limit && tif == Day {
		b.insertResting(trader, id, side, px, remaining, tsNs)
		result.PostedQty = remaining
		result.BookChanged = true
	}
	return result
}

// SubmitLegacy submits on behalf of an unknown trader with a Day
// time-in-force, for callers that don't need STP or TIF control.
func (b *Book) SubmitLegacy(side Side, px Price, qty Qty, id OrderId, typ OrderType) MatchResult {
	return b.Submit(0, side, px, qty, id, typ, Day, 0)
}

// Replace amends a resting order. A same-price quantity decrease is
// applied in place, preserving FIFO priority; anything else (a price
// change or a quantity increase) is a cancel followed by a fresh
// Submit under the same id, which loses priority and — for FOK — can
// fail to restore anything at all. Either way the original id is never
// left stranded: if the resubmit doesn't post and doesn't fill, the id
// is simply gone, even though Ok may be true for non-FOK orders.
func (b *Book) Replace(trader TraderId, id OrderId, newPx Price, newQty Qty, tif TimeInForce, tsNs TimeNs) ReplaceResult {
	n, ok := b.idIndex[id]
	if !ok {
		return ReplaceResult{false, id}
	}
	owner := b.owners[id]
	if owner != 0 && owner != trader {
		return ReplaceResult{false, id}
	}
	if newQty <= 0 {
		return ReplaceResult{false, id}
	}

	if newPx == n.px && newQty <= n.qty {
		delta := n.qty - newQty
		lvl := n.level
		side := n.side
		lvl.reduce(n, delta)
		*b.totalFor(side) -= delta
		return ReplaceResult{true, id}
	}

	side := n.side
	b.Cancel(id)
	result := b.Submit(trader, side, newPx, newQty, id, Limit, tif, tsNs)
	if tif == FOK {
		return ReplaceResult{len(result.Fills) > 0 || result.PostedQty > 0, id}
	}
	return ReplaceResult{true, id}
}

// CheckInvariants walks both sides of the book validating every
// structural invariant the book is supposed to maintain. It is meant
// for tests and soak harnesses, not the hot path.
func (b *Book) CheckInvariants() error {
	bidSum, bidCount, err := b.checkSide(Bid, b.bids)
	if err != nil {
		return err
	}
	askSum, askCount, err := b.checkSide(Ask, b.asks)
	if err != nil {
		return err
	}
	if bidSum != b.bidsTotal {
		return fmt.Errorf("lob: bid side total mismatch: walked=%d tracked=%d", bidSum, b.bidsTotal)
	}
	if askSum != b.asksTotal {
		return fmt.Errorf("lob: ask side total mismatch: walked=%d tracked=%d", askSum, b.asksTotal)
	}
	if got, want := len(b.idIndex), bidCount+askCount; got != want {
		return fmt.Errorf("lob: id index size mismatch: index=%d resting=%d", got, want)
	}
	if len(b.owners) != len(b.idIndex) {
		return fmt.Errorf("lob: owners map size mismatch: owners=%d index=%d", len(b.owners), len(b.idIndex))
	}
	best := b.Best()
	if best.HasBid && best.HasAsk && best.Bid >= best.Ask {
		return fmt.Errorf("lob: book is locked or crossed: bid=%d ask=%d", best.Bid, best.Ask)
	}
	return nil
}

func (b *Book) checkSide(side Side, tree *levelTree) (sum Qty, count int, err error) {
	tree.Scan(func(lvl *priceLevel) bool {
		if lvl.empty() {
			err = fmt.Errorf("lob: empty level retained at px=%d side=%s", lvl.price, side)
			return false
		}
		var walked int
		var levelQty Qty
		var prev *orderNode
		for n := lvl.head; n != nil; n = n.next {
			if n.level != lvl {
				err = fmt.Errorf("lob: node %d level pointer mismatch", n.id)
				return false
			}
			if n.side != side || n.px != lvl.price {
				err = fmt.Errorf("lob: node %d side/price mismatch", n.id)
				return false
			}
			if n.prev != prev {
				err = fmt.Errorf("lob: node %d prev-link mismatch", n.id)
				return false
			}
			if idxNode, ok := b.idIndex[n.id]; !ok || idxNode != n {
				err = fmt.Errorf("lob: node %d missing or mismatched in id index", n.id)
				return false
			}
			levelQty += n.qty
			walked++
			prev = n
		}
		if lvl.tail != prev {
			err = fmt.Errorf("lob: level %d tail pointer mismatch", lvl.price)
			return false
		}
		if walked != lvl.count {
			err = fmt.Errorf("lob: level %d count mismatch: walked=%d count=%d", lvl.price, walked, lvl.count)
			return false
		}
		if levelQty != lvl.totalQty {
			err = fmt.Errorf("lob: level %d qty mismatch: walked=%d total=%d", lvl.price, levelQty, lvl.totalQty)
			return false
		}
		sum += lvl.totalQty
		count += walked
		return true
	})
	return sum, count, err
}
