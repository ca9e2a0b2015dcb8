// Command spscbench measures raw SPSC ring throughput between a
// producer and a consumer goroutine, each optionally pinned to a CPU.
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
	seconds := flag.Int("seconds", 3, "how long to run")
	capacity := flag.Uint64("cap", 1<<20, "ring capacity, must be a power of two")
	pinProd := flag.Int("pin-prod", -1, "cpu index to pin the producer to, -1 to skip")
	pinCons := flag.Int("pin-cons", -1, "cpu index to pin the consumer to, -1 to skip")
	help := flag.Bool("help", false, "print usage and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}

	ring, err := spsc.NewRing[uint64](*capacity)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	var stop atomic.Bool
	var produced, consumed uint64
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
		for !stop.Load() {
			if ring.TryPush(x) {
				x++
				produced++
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
			if ring.TryPop(&out) {
				consumed++
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
	fmt.Printf("SPSC: %d msgs in %.3f s -> %.3f Mops/s\n", consumed, elapsed, mops)
	fmt.Printf("produced=%d consumed=%d backlog=%d\n", produced, consumed, ring.Size())
}
