// Command backpressurebench drives an spsc.Channel under a configured
// backpressure policy and reports throughput, drops, and queue depth.
package main

import (
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lobengine/internal/cpuaffinity"
	"lobengine/internal/spsc"
)

func main() {
	seconds := flag.Int("seconds", 5, "how long to run")
	capacity := flag.Uint64("cap", 1<<18, "channel capacity, must be a power of two")
	high := flag.Uint64("high", 0, "high watermark, defaults to 3/4 of capacity")
	low := flag.Uint64("low", 0, "low watermark, defaults to 1/2 of capacity")
	pinProd := flag.Int("pin-prod", -1, "cpu index to pin the producer to, -1 to skip")
	pinCons := flag.Int("pin-cons", -1, "cpu index to pin the consumer to, -1 to skip")
	mode := flag.String("mode", "drop", "backpressure mode: drop|spin|sleep")
	consSlowNs := flag.Int64("cons-slow-ns", 0, "artificial delay the consumer sleeps after every pop")
	help := flag.Bool("help", false, "print usage and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}

	if *high == 0 {
		*high = *capacity * 3 / 4
	}
	if *low == 0 {
		*low = *capacity / 2
	}

	ch, err := spsc.NewChannel[uint64](*capacity, spsc.BackpressureCfg{
		HighWM: *high, LowWM: *low, Mode: parseMode(*mode),
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("mode=%s cap=%d high=%d low=%d cons_slow_ns=%d\n", *mode, *capacity, *high, *low, *consSlowNs)

	var stop atomic.Bool
	var consumed uint64
	var wg sync.WaitGroup
	started := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := cpuaffinity.PinThisThread(*pinProd); err != nil {
			fmt.Println("warning:", err)
		}
		<-started
		var x uint64
		for {
			if stop.Load() {
				return
			}
			if ch.Push(x, &stop) {
				x++
			}
		}
	}()

	go func() {
		defer wg.Done()
		if err := cpuaffinity.PinThisThread(*pinCons); err != nil {
			fmt.Println("warning:", err)
		}
		<-started
		var out uint64
		for !stop.Load() {
			if ch.Pop(&out) {
				consumed++
				if *consSlowNs > 0 {
					time.Sleep(time.Duration(*consSlowNs))
				}
			}
		}
	}()

	sw := time.Now()
	close(started)
	time.Sleep(time.Duration(*seconds) * time.Second)
	stop.Store(true)
	wg.Wait()
	elapsed := time.Since(sw).Seconds()

	mops := float64(consumed) / elapsed / 1e6
	fmt.Printf("consumed=%d in %.3f s -> %.3f Mops/s\n", consumed, elapsed, mops)
	fmt.Printf("produced=%d drops=%d max_depth=%d depth_now=%d\n",
		ch.Stats.PushOk.Load(), ch.Stats.DropsTotal.Load(), ch.Stats.MaxDepth.Load(), ch.Size())
}

func parseMode(s string) spsc.BpMode {
	switch s {
	case "spin":
		return spsc.Spin
	case "sleep":
		return spsc.Sleep
	default:
		return spsc.Drop
	}
}
