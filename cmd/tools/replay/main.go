package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

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
	dir := flag.String("dir", "data/ticks", "Journal directory to replay")
	prefix := flag.String("prefix", "", "Journal file prefix (default: ticks)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	snapshotPath := flag.String("snapshot", "", "Expected position snapshot to verify against")
	flag.Parse()

	if err := run(*configPath, *environment, *group, *dir, *prefix, *speed, *snapshotPath); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

func run(configPath, environment, group, dir, prefix string, speed float64, snapshotPath string) error {
	loaded, err := ops.Load(configPath, environment, group)
	if err != nil {
		return err
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := obs.NewMetrics()
	book := state.NewBook()
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
	tradeGW.Register(&orderForwarder{engine: engine})

	eg, runCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		tradeGW.Run(runCtx)
		return nil
	})

	playback, err := journal.NewPlayback(journal.PlaybackConfig{
		Dir:        dir,
		FilePrefix: prefix,
		Speed:      speed,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	if err := playback.Run(ctx, func(tick schema.Tick) error {
		engine.OnTick(tick)
		return nil
	}); err != nil {
		return err
	}

	// Let the trade callbacks drain before reading positions.
	time.Sleep(100 * time.Millisecond)
	tradeGW.Release()
	stop()
	_ = eg.Wait()

	snap := metrics.Snapshot()
	log.Printf("replayed %d ticks in %s: staged=%d submitted=%d filled=%d",
		snap.Ticks, time.Since(start).Round(time.Millisecond),
		snap.IntentsStaged, snap.OrdersSubmitted, snap.OrdersFilled)
	log.Printf("final position %s: %d", contract.MainContract, book.Position(contract.MainContract))

	if snapshotPath != "" {
		expected, err := state.ReadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		if err := state.CompareSnapshots(expected, book.Snapshot()); err != nil {
			return err
		}
		log.Printf("positions match snapshot %s", snapshotPath)
	}
	return nil
}

// orderForwarder adapts the replay engine to the sim's listener surface;
// connection callbacks are irrelevant during playback.
type orderForwarder struct {
	engine *strategy.Engine
}

func (f *orderForwarder) OnConnected() {}
func (f *orderForwarder) OnAuthResult(schema.Result) {}
func (f *orderForwarder) OnLoginResult(schema.Result) {}
func (f *orderForwarder) OnTick(schema.Tick) {}
func (f *orderForwarder) OnOrderAck(a schema.OrderAck) { f.engine.OnOrderAck(a) }
func (f *orderForwarder) OnOrderUpdate(u schema.OrderUpdate) { f.engine.OnOrderUpdate(u) }
