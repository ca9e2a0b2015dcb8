// Command soak runs a long randomized mix of order operations against
// a live Engine, draining the event bus every iteration and checking
// book invariants throughout. It is meant to be run with `go run
// -race` to catch data races the unit tests' shorter runs might miss.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"lobengine/internal/engine"
	"lobengine/internal/lob"
)

func main() {
	opsFlag := flag.Int("ops", 2000000, "number of randomized operations to run")
	seed := flag.Int64("seed", 123, "PRNG seed, for reproducible soak runs")
	help := flag.Bool("help", false, "print usage and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}

	eng, err := engine.New(lob.BookConfig{}, 1<<20)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	var nextId lob.OrderId = 1
	var live []lob.OrderId
	var traded, canceled lob.Qty

	for i := 0; i < *opsFlag; i++ {
		roll := rng.Float64()
		switch {
		case roll < 0.4:
			id := nextId
			nextId++
			side := lob.Bid
			if rng.Intn(2) == 1 {
				side = lob.Ask
			}
			px := lob.Price(1000 + rng.Intn(101))
			qty := lob.Qty(1 + rng.Intn(50))
			res := eng.Add(0, id, side, px, qty, lob.Day, 0)
			for _, f := range res.Fills {
				traded += f.Qty
			}
			if res.PostedQty > 0 {
				live = append(live, id)
			}
		case roll < 0.7:
			side := lob.Bid
			if rng.Intn(2) == 1 {
				side = lob.Ask
			}
			qty := lob.Qty(1 + rng.Intn(50))
			res := eng.Market(0, nextId, side, qty, lob.IOC, 0)
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
			cr := eng.Cancel(id)
			if cr.Ok {
				canceled += cr.QtyCanceled
				live = append(live[:idx], live[idx+1:]...)
			}
		}

		drainBus(eng)

		if err := eng.Book().CheckInvariants(); err != nil {
			fmt.Fprintf(os.Stderr, "invariant violation at iteration %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	fmt.Printf("soak complete: ops=%d traded=%d canceled=%d live=%d\n", *opsFlag, traded, canceled, len(live))
}

func drainBus(eng *engine.Engine) {
	for {
		if _, ok := eng.Bus().TryPoll(); !ok {
			return
		}
	}
}
