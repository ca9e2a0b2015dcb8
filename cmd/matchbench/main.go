// Command matchbench measures match latency: it preloads one side of
// the book with many small resting orders, then times a stream of
// marketable orders crossing them one at a time, reporting p50
// latency.
package main

import (
	"flag"
	"fmt"
	"sort"
	"time"

	"lobengine/internal/cpuaffinity"
	"lobengine/internal/engine"
	"lobengine/internal/lob"
)

func main() {
	restingLevels := flag.Int("levels", 200000, "number of resting ask price levels to preload")
	restingQty := flag.Int64("resting-qty", 1, "quantity resting at each preloaded level")
	iters := flag.Int("iters", 200000, "number of marketable buys to time")
	pin := flag.Int("pin", -1, "cpu index to pin this goroutine's OS thread to, -1 to skip")
	help := flag.Bool("help", false, "print usage and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}

	if err := cpuaffinity.PinThisThread(*pin); err != nil {
		fmt.Println("warning:", err)
	}

	eng, err := engine.New(lob.BookConfig{}, 1<<20)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	var id lob.OrderId = 1
	for i := 0; i < *restingLevels; i++ {
		eng.AddDefault(id, lob.Ask, lob.Price(1000+i), lob.Qty(*restingQty))
		id++
	}

	latencies := make([]time.Duration, 0, *iters)
	for i := 0; i < *iters; i++ {
		start := time.Now()
		eng.Market(0, id, lob.Bid, lob.Qty(*restingQty), lob.IOC, 0)
		latencies = append(latencies, time.Since(start))
		id++
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p50 := latencies[len(latencies)/2]
	fmt.Printf("p50 match latency: %d ns (%.3f us)\n", p50.Nanoseconds(), float64(p50.Nanoseconds())/1000)
}
