package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"golang.org/x/sync/errgroup"

	"main/internal/gateway"
	"main/internal/gateway/sim"
	"main/internal/journal"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/order"
	"main/internal/refdata"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/internal/strategy"
)

func main() {
	configPath := flag.String("config", "SimNowID.yaml", "Path to YAML config")
	environment := flag.String("environment", "first_set", "Server environment in the config")
	group := flag.String("group", "dianxin1", "Server group in the config")
	snapshotPath := flag.String("snapshot-path", "", "Position snapshot output (default: positions.json)")
	basePrice := flag.Float64("base-price", 4000, "Starting price for the paper tick stream")
	tickInterval := flag.Duration("tick-interval", 500*time.Millisecond, "Paper tick interval")
	flag.Parse()

	if err := run(*configPath, *environment, *group, *snapshotPath, *basePrice, *tickInterval); err != nil {
		log.Fatalf("trader: %v", err)
	}
}

// tickTee hands each tick to the strategy and, when recording is on, to
// the journal. A full journal queue drops the tick rather than stalling
// the delivery thread.
type tickTee struct {
	engine  *strategy.Engine
	journal *journal.Writer
	metrics *obs.Metrics
}

func (t *tickTee) OnTick(tick schema.Tick) {
	if t.journal != nil {
		if err := t.journal.TryAppend(tick); err != nil {
			t.metrics.IncQueueDrop()
		}
	}
	t.engine.OnTick(tick)
}

func run(configPath, environment, group, snapshotPath string, basePrice float64, tickInterval time.Duration) error {
	loaded, err := ops.Load(configPath, environment, group)
	if err != nil {
		return err
	}
	if !loaded.Features.Paper {
		return errors.New("no live trading front is wired in; enable features.paper")
	}

	resolver := refdata.NewResolver(loaded.RefData)
	productID, err := resolver.ProductID(loaded.Strategy.Product)
	if err != nil {
		return err
	}
	contract, err := resolver.Contract(productID)
	if err != nil {
		return err
	}
	log.Printf("trading %s (product %s), sessions: %d, timeout: %s",
		contract.MainContract, contract.ProductID, len(contract.Sessions), loaded.Strategy.OrderTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loaded.Features.Profile {
		addr := loaded.Features.ProfileAddress
		if addr == "" {
			addr = "http://localhost:4040"
		}
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trader",
			ServerAddress:   addr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()
	book := state.NewBook()

	priceTick, _ := contract.PriceTick.Float64()
	marketGW := sim.NewMarketSim(sim.MarketConfig{
		Generator: sim.NewTickGenerator(contract.MainContract, basePrice, priceTick, time.Now().UnixNano()),
		Interval:  tickInterval,
		Metrics:   metrics,
	})
	tradeGW := sim.NewTradeSim(sim.TradeConfig{Mode: sim.ModeFill, Metrics: metrics})

	manager := order.NewManager(order.Config{
		Gateway:      tradeGW,
		Risk:         risk.NewEngine(loaded.Risk),
		Book:         book,
		Metrics:      metrics,
		PriceTick:    contract.PriceTick,
		StaleTimeout: loaded.Strategy.OrderTimeout,
	})
	engine := strategy.NewEngine(strategy.Config{
		InstrumentID: contract.MainContract,
		Contract:     contract,
		Manager:      manager,
		Metrics:      metrics,
	})

	var recorder *journal.Writer
	if loaded.Features.Record {
		dir := loaded.Features.RecordDir
		if dir == "" {
			dir = "data/ticks"
		}
		recorder, err = journal.NewWriter(journal.DefaultConfig(dir))
		if err != nil {
			return err
		}
		if err := recorder.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				log.Printf("journal close: %v", err)
			}
		}()
	}

	marketSession := gateway.NewMarketSession(gateway.MarketConfig{
		Gateway:     marketGW,
		Address:     loaded.MarketDataAddress,
		Credentials: loaded.Credentials,
		Instruments: []string{contract.MainContract},
		Ticks:       &tickTee{engine: engine, journal: recorder, metrics: metrics},
	})
	tradeSession := gateway.NewTradeSession(gateway.TradeConfig{
		Gateway:     tradeGW,
		Address:     loaded.TradingAddress,
		Credentials: loaded.Credentials,
		Orders:      engine,
	})
	marketGW.Register(marketSession)
	tradeGW.Register(tradeSession)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		tradeGW.Run(ctx)
		return nil
	})
	eg.Go(func() error {
		marketGW.Run(ctx)
		return nil
	})
	eg.Go(func() error {
		marketGW.RunFeeder(ctx)
		return nil
	})
	eg.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				engine.SweepStale(now)
			}
		}
	})

	if err := tradeSession.Connect(); err != nil {
		stop()
		_ = eg.Wait()
		return err
	}
	if err := marketSession.Connect(); err != nil {
		stop()
		_ = eg.Wait()
		return err
	}

	<-ctx.Done()
	log.Printf("shutting down")

	marketSession.Release()
	tradeSession.Release()
	if err := eg.Wait(); err != nil {
		log.Printf("event loop: %v", err)
	}

	if snapshotPath == "" {
		snapshotPath = "positions.json"
	}
	if err := state.WriteSnapshot(snapshotPath, book.Snapshot()); err != nil {
		log.Printf("snapshot write: %v", err)
	}

	snap := metrics.Snapshot()
	log.Printf("ticks=%d (out-of-session=%d) staged=%d submitted=%d filled=%d rejected=%d cancels=%d risk-rejects=%d drops=%d",
		snap.Ticks, snap.TicksOutOfSession, snap.IntentsStaged, snap.OrdersSubmitted,
		snap.OrdersFilled, snap.OrdersRejected, snap.CancelsRequested, snap.RiskRejects, snap.QueueDrops)
	log.Printf("submit-ack latency: count=%d avg=%s max=%s",
		snap.SubmitAckLatency.Count, snap.SubmitAckLatency.Avg, snap.SubmitAckLatency.Max)
	log.Printf("final position %s: %d", contract.MainContract, book.Position(contract.MainContract))
	return nil
}
