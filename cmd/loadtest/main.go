package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"text/tabwriter"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/engine"
	"github.com/erain9/tickmatch/pkg/loadgen"
	"github.com/erain9/tickmatch/pkg/messaging/kafka"
	"github.com/erain9/tickmatch/pkg/store/pebble"
)

func main() {
	rateLimit := flag.Int("rate", 5000, "target commands per second")
	totalCommands := flag.Int("commands", 50000, "number of commands to apply")
	numWorkers := flag.Int("workers", 8, "concurrent submitters")
	selfMatch := flag.String("self-match", "allow", "self-match mode: allow, cancel_resting or reject_incoming")
	pebbleDir := flag.String("pebble-dir", "", "persist events and a final snapshot to a Pebble store at this path")
	kafkaBroker := flag.String("kafka-broker", "", "publish events to this Kafka broker address")
	kafkaTopic := flag.String("kafka-topic", "book-events", "Kafka topic for published events")
	depthLevels := flag.Int("depth", 10, "price levels per side to print after the run")
	flag.Parse()

	if *rateLimit <= 0 || *totalCommands <= 0 || *numWorkers <= 0 {
		log.Fatal("rate, commands and workers must all be positive")
	}

	cfg, err := loadgen.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load generator config: %v", err)
	}

	mode, err := core.ParseSelfMatchMode(*selfMatch)
	if err != nil {
		log.Fatalf("Invalid self-match mode: %v", err)
	}

	opts := engine.Options{
		Symbol:        cfg.MarketSymbol,
		SelfMatchMode: mode,
	}
	if *pebbleDir != "" {
		zapLogger, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("Failed to create zap logger: %v", err)
		}
		defer zapLogger.Sync()

		st, err := pebble.NewPebbleStore(*pebbleDir, zapLogger)
		if err != nil {
			log.Fatalf("Failed to open pebble store: %v", err)
		}
		opts.Store = st
	}
	if *kafkaBroker != "" {
		sender, err := kafka.NewKafkaEventSender(*kafkaBroker, *kafkaTopic)
		if err != nil {
			log.Fatalf("Failed to create Kafka sender: %v", err)
		}
		opts.Sender = sender
	}

	eng := engine.NewMatchingEngine(opts)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	gen := loadgen.NewGenerator(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, stopping...")
		cancel()
	}()

	// The generator is not safe for concurrent use, so a single feeder
	// fans commands out to the workers.
	cmdChan := make(chan engine.Command, *numWorkers*4)
	go func() {
		defer close(cmdChan)
		for i := 0; i < *totalCommands; i++ {
			select {
			case cmdChan <- gen.Next():
			case <-ctx.Done():
				return
			}
		}
	}()

	// Set up rate limiter and wait group
	limiter := rate.NewLimiter(rate.Limit(*rateLimit), *numWorkers)
	var wg sync.WaitGroup
	errChan := make(chan error, *totalCommands)
	hists := make([]*hdrhistogram.Histogram, *numWorkers)

	start := time.Now()
	log.Printf("Starting %d workers at %d commands/sec, %d commands total...", *numWorkers, *rateLimit, *totalCommands)

	for i := 0; i < *numWorkers; i++ {
		hist := hdrhistogram.New(1, int64(10*time.Second), 3)
		hists[i] = hist
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cmd := range cmdChan {
				if err := limiter.Wait(ctx); err != nil {
					errChan <- fmt.Errorf("rate limiter error: %v", err)
					return
				}

				begin := time.Now()
				if _, err := eng.Apply(ctx, cmd); err != nil {
					errChan <- fmt.Errorf("failed to apply command: %v", err)
					continue
				}
				if err := hist.RecordValue(time.Since(begin).Nanoseconds()); err != nil {
					errChan <- fmt.Errorf("failed to record latency: %v", err)
				}
			}
		}()
	}

	// Wait for all workers to finish
	wg.Wait()
	duration := time.Since(start)
	close(errChan)

	if opts.Store != nil {
		if _, err := eng.SnapshotNow(context.Background()); err != nil {
			log.Printf("Failed to save snapshot: %v", err)
		}
	}

	depth := eng.Depth(*depthLevels)
	if err := eng.Close(); err != nil {
		log.Printf("Failed to close engine: %v", err)
	}

	// Process errors
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	total := hists[0]
	for _, h := range hists[1:] {
		total.Merge(h)
	}

	// Print results
	log.Printf("Load test completed in %v", duration)
	log.Printf("Commands applied: %d (%.0f/sec)", total.TotalCount(), float64(total.TotalCount())/duration.Seconds())
	log.Printf("Errors encountered: %d", len(errs))
	log.Printf("Delivery failures: %d", eng.DeliveryFailures())
	log.Printf("Resting orders: %d, last sequence: %d, halted: %v", eng.OrderCount(), eng.Sequence(), eng.Halted())
	log.Printf("Apply latency: p50=%.1fµs p99=%.1fµs p99.9=%.1fµs max=%.1fµs mean=%.1fµs",
		micros(total.ValueAtQuantile(50)),
		micros(total.ValueAtQuantile(99)),
		micros(total.ValueAtQuantile(99.9)),
		micros(total.Max()),
		total.Mean()/float64(time.Microsecond))

	if err := printDepth(depth); err != nil {
		log.Printf("Failed to print depth: %v", err)
	}

	if len(errs) > 0 {
		log.Printf("First error: %v", errs[0])
		os.Exit(1)
	}
}

func micros(ns int64) float64 {
	return float64(ns) / float64(time.Microsecond)
}

func printDepth(depth *core.DepthSnapshot) error {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	fmt.Printf("\n%s\n", cyan("Final book for %s", depth.Symbol))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	// Print headers with consistent spacing
	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		cyan("Price"),
		cyan("Quantity"),
		cyan("Orders"),
		cyan("Side"))

	// Print separator with matching column widths
	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		"---------------",
		"---------------",
		"---------------",
		"----")

	// Print asks (sells), best price last
	for i := len(depth.Asks) - 1; i >= 0; i-- {
		level := depth.Asks[i]
		fmt.Fprintf(w, "%15s|%15s|%15d|%s\n",
			level.Price.String(),
			level.Quantity.String(),
			level.Orders,
			red("ASK"))
	}

	// Print separator between asks and bids
	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		"---------------",
		"---------------",
		"---------------",
		"----")

	// Print bids (buys), best price first
	for _, level := range depth.Bids {
		fmt.Fprintf(w, "%15s|%15s|%15d|%s\n",
			level.Price.String(),
			level.Quantity.String(),
			level.Orders,
			green("BID"))
	}

	return w.Flush()
}
