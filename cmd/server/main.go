// Command server runs a single-symbol exchange with a TCP front-end
// and a /metrics HTTP endpoint.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lobengine/internal/engine"
	"lobengine/internal/events"
	"lobengine/internal/lob"
	"lobengine/internal/metricshttp"
	"lobengine/internal/server"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "address to bind the exchange TCP server")
	port := flag.Int("port", 9001, "port to bind the exchange TCP server")
	metricsAddr := flag.String("metrics-addr", "127.0.0.1:9002", "address to bind the metrics HTTP server")
	stp := flag.String("stp", "allow", "self-trade prevention policy: allow|cancel-taker|cancel-maker|cancel-both")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := lob.BookConfig{STP: parseSTP(*stp)}
	eng, err := engine.New(cfg, events.DefaultCapacity)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to construct engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSrv := metricshttp.New(*metricsAddr)
	go func() {
		if err := metricsSrv.Run(); err != nil {
			log.Error().Err(err).Msg("metrics server exited")
		}
	}()
	defer metricsSrv.Close()

	consumerTomb, consumerCtx := tomb.WithContext(ctx)
	consumerTomb.Go(func() error {
		return runBusConsumer(consumerCtx, consumerTomb, eng.Bus())
	})

	srv := server.New(*addr, *port, eng)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}

	consumerTomb.Kill(nil)
	_ = consumerTomb.Wait()
	log.Info().Uint64("drops_total", eng.Bus().DropsTotal()).Msg("bus consumer stopped")
}

// runBusConsumer is the single reader draining the engine's event bus:
// the consumer side of the R.try_pop -> B.try_poll -> dispatch data
// flow the matching core and transport are built around. It logs each
// fill/cancel/book-change and yields the processor when the bus is
// momentarily empty rather than spinning it hot.
func runBusConsumer(ctx context.Context, t *tomb.Tomb, bus *events.Bus) error {
	log.Info().Msg("bus consumer running")
	for {
		select {
		case <-t.Dying():
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		ev, ok := bus.TryPoll()
		if !ok {
			runtime.Gosched()
			continue
		}

		switch ev.Kind {
		case events.KindFill:
			f := ev.Fill
			log.Debug().Uint64("taker", uint64(f.TakerId)).Uint64("maker", uint64(f.MakerId)).
				Str("side", f.Side.String()).Int64("px", int64(f.Px)).Int64("qty", int64(f.Qty)).Msg("fill")
		case events.KindCancel:
			c := ev.Cancel
			log.Debug().Uint64("id", uint64(c.Id)).Str("side", c.Side.String()).
				Int64("px", int64(c.Px)).Int64("qty", int64(c.QtyCanceled)).Msg("cancel")
		case events.KindBookChange:
			b := ev.BookChange
			log.Debug().Str("side", b.Side.String()).Int64("px", int64(b.Px)).Int64("level_qty", int64(b.LevelQty)).Msg("book change")
		}
	}
}

func parseSTP(s string) lob.STPPolicy {
	switch s {
	case "cancel-taker":
		return lob.CancelTaker
	case "cancel-maker":
		return lob.CancelMaker
	case "cancel-both":
		return lob.CancelBoth
	default:
		return lob.Allow
	}
}
