package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/erain9/tickmatch/config"
	"github.com/erain9/tickmatch/pkg/logging"
	"github.com/erain9/tickmatch/pkg/messaging"
	"github.com/erain9/tickmatch/pkg/messaging/kafka"
)

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	cyan   = color.New(color.FgCyan).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Diagnostics go to stderr, the event stream to stdout
	logging.Setup(logging.Config{
		Level:  cfg.Engine.LogLevel,
		Pretty: cfg.Engine.LogFormat == "pretty",
		Output: os.Stderr,
	})

	consumer, err := kafka.NewEventConsumer(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Info().Msg("Shutting down")
		if err := consumer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close consumer")
		}
	}()

	log.Info().
		Str("broker", cfg.Kafka.BrokerAddr).
		Str("topic", cfg.Kafka.Topic).
		Msg("Tailing book events")

	if err := consumer.ConsumeEventMessages(printEvent); err != nil {
		log.Fatal().Err(err).Msg("Consumer stopped")
	}
}

func printEvent(msg *messaging.EventMessage) error {
	switch msg.Type {
	case "ACK":
		fmt.Printf("%s seq=%-8d order=%s\n",
			green("%-7s", msg.Type), msg.Sequence, msg.OrderID)
	case "TRADE":
		fmt.Printf("%s seq=%-8d %s @ %s trade=%d buy=%s sell=%s taker=%s\n",
			cyan("%-7s", msg.Type), msg.Sequence, msg.Quantity, msg.Price,
			msg.TradeID, msg.BuyOrderID, msg.SellOrderID, msg.TakerSide)
	case "CANCEL":
		fmt.Printf("%s seq=%-8d order=%s remaining=%s reason=%s\n",
			yellow("%-7s", msg.Type), msg.Sequence, msg.OrderID, msg.Remaining, msg.Reason)
	case "REJECT":
		fmt.Printf("%s seq=%-8d order=%s reason=%s\n",
			red("%-7s", msg.Type), msg.Sequence, msg.OrderID, msg.Reason)
	default:
		fmt.Printf("%-7s seq=%-8d %+v\n", msg.Type, msg.Sequence, *msg)
	}
	return nil
}
