package main

import (
	"context"
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/engine"
	redisstore "github.com/erain9/tickmatch/pkg/store/redis"
)

const (
	redisAddr = "localhost:6379"
	redisDB   = 0
	prefix    = "tickmatch"
)

func main() {
	ctx := context.Background()

	// Connect to Redis
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})

	// Check Redis connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	fmt.Printf("Redis connection established: %s\n", pong)

	// Flush the database to start fresh
	client.FlushDB(ctx)

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer zapLogger.Sync()

	// Every event batch and snapshot the engine produces lands in Redis
	st, err := redisstore.NewRedisStore(ctx, &redisstore.RedisOptions{
		Addr: redisAddr,
		DB:   redisDB,
	}, prefix, zapLogger)
	if err != nil {
		panic(err)
	}

	eng := engine.NewMatchingEngine(engine.Options{
		Symbol: "BTC-USD",
		Store:  st,
	})

	// A resting sell, a buy that partially fills it, then a cancel
	submit(ctx, eng, "sell-1", core.Sell, 10.0, 10.0)
	submit(ctx, eng, "buy-1", core.Buy, 5.0, 10.0)

	if _, err := eng.SnapshotNow(ctx); err != nil {
		panic(err)
	}

	if _, err := eng.Apply(ctx, engine.CancelCommand{OrderID: "sell-1"}); err != nil {
		panic(err)
	}

	// Close drains the event pipeline before we read Redis back
	if err := eng.Close(); err != nil {
		panic(err)
	}

	// Print what landed in the event stream
	entries, err := client.XRange(ctx, prefix+":events", "-", "+").Result()
	if err != nil {
		panic(err)
	}
	fmt.Printf("\nEvents stored in Redis (%d):\n", len(entries))
	for _, entry := range entries {
		fmt.Printf("- seq=%v %v\n", entry.Values["seq"], entry.Values["payload"])
	}

	// Print the stored snapshot
	snapshotJSON, err := client.Get(ctx, prefix+":snapshot").Result()
	if err != nil {
		panic(err)
	}
	fmt.Printf("\nSnapshot stored in Redis:\n%s\n", snapshotJSON)
}

func submit(ctx context.Context, eng *engine.MatchingEngine, orderID string, side core.Side, quantity, price float64) {
	events, err := eng.Apply(ctx, engine.SubmitCommand{
		OrderID:   orderID,
		Side:      side,
		Type:      core.TypeLimit,
		Price:     fpdecimal.FromFloat(price),
		Quantity:  fpdecimal.FromFloat(quantity),
		TIF:       core.GTC,
		Submitter: "demo",
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Submitted %s: %d events\n", orderID, len(events))
}
