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

	"main/internal/gateway"
	"main/internal/gateway/sim"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/refdata"
	"main/internal/schema"
)

func main() {
	configPath := flag.String("config", "SimNowID.yaml", "Path to YAML config")
	environment := flag.String("environment", "first_set", "Server environment in the config")
	group := flag.String("group", "dianxin1", "Server group in the config")
	product := flag.String("product", "", "Product name to subscribe (default: strategy.product)")
	basePrice := flag.Float64("base-price", 4000, "Starting price for the paper tick stream")
	tickInterval := flag.Duration("tick-interval", 500*time.Millisecond, "Paper tick interval")
	flag.Parse()

	if err := run(*configPath, *environment, *group, *product, *basePrice, *tickInterval); err != nil {
		log.Fatalf("subscribe: %v", err)
	}
}

// tickPrinter logs each tick with a session-window annotation.
type tickPrinter struct {
	contract refdata.Contract
	metrics  *obs.Metrics
}

func (p *tickPrinter) OnTick(tick schema.Tick) {
	inSession := p.contract.InSession(tick.Recv)
	p.metrics.IncTick(!inSession)
	marker := " "
	if !inSession {
		marker = "*"
	}
	log.Printf("%s%s bid=%.2f ask=%.2f last=%.2f vol=%d",
		marker, tick.InstrumentID, tick.BidPrice1, tick.AskPrice1, tick.LastPrice, tick.Volume)
}

func run(configPath, environment, group, product string, basePrice float64, tickInterval time.Duration) error {
	loaded, err := ops.Load(configPath, environment, group)
	if err != nil {
		return err
	}
	if product == "" {
		product = loaded.Strategy.Product
	}

	resolver := refdata.NewResolver(loaded.RefData)
	productID, err := resolver.ProductID(product)
	if err != nil {
		return err
	}
	contract, err := resolver.Contract(productID)
	if err != nil {
		return err
	}
	log.Printf("subscribing %s (ticks outside trading sessions are marked with *)", contract.MainContract)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := obs.NewMetrics()
	priceTick, _ := contract.PriceTick.Float64()
	marketGW := sim.NewMarketSim(sim.MarketConfig{
		Generator: sim.NewTickGenerator(contract.MainContract, basePrice, priceTick, time.Now().UnixNano()),
		Interval:  tickInterval,
		Metrics:   metrics,
	})

	session := gateway.NewMarketSession(gateway.MarketConfig{
		Gateway:     marketGW,
		Address:     loaded.MarketDataAddress,
		Credentials: loaded.Credentials,
		Instruments: []string{contract.MainContract},
		Ticks:       &tickPrinter{contract: contract, metrics: metrics},
	})
	marketGW.Register(session)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		marketGW.Run(ctx)
		return nil
	})
	eg.Go(func() error {
		marketGW.RunFeeder(ctx)
		return nil
	})

	if err := session.Connect(); err != nil {
		stop()
		_ = eg.Wait()
		return err
	}

	<-ctx.Done()
	session.Release()
	_ = eg.Wait()

	snap := metrics.Snapshot()
	log.Printf("ticks=%d out-of-session=%d", snap.Ticks, snap.TicksOutOfSession)
	return nil
}
