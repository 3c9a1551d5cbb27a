// Command sms-relay publishes SMS bodies, one per line, to the import queue
// read by the simtracker server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/amqp"
	"github.com/Badr133ne/sim-charge-guardian/internal/cli"
	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

func main() {
	simID := flag.String("sim", "", "id of the SIM card the messages were received on")
	file := flag.String("file", "", "file with one SMS body per line (default: stdin)")
	sender := flag.String("sender", "", "sender recorded with every message")
	flag.Parse()

	if err := run(*simID, *file, *sender); err != nil {
		fmt.Fprintln(os.Stderr, "sms-relay:", err)
		os.Exit(1)
	}
}

func run(simID, file, sender string) error {
	if strings.TrimSpace(simID) == "" {
		return errors.New("-sim is required")
	}
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is not set")
	}
	logger := cli.SetupLogger(cfg)

	in := io.Reader(os.Stdin)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	msgs, err := readMessages(in, simID, sender, time.Now())
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		logger.Info("No messages to publish")
		return nil
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("amqp: %w", err)
	}
	defer client.Close()

	for i, msg := range msgs {
		if err := client.PublishSms(ctx, amqp.NewSmsSyncMessage(msg)); err != nil {
			return fmt.Errorf("publish message %d of %d: %w", i+1, len(msgs), err)
		}
	}
	logger.Info("Messages published", log.FieldSimID, simID, "count", len(msgs))
	return nil
}

// readMessages turns every non-blank line of r into a message for simID.
func readMessages(r io.Reader, simID, sender string, receivedAt time.Time) ([]core.SmsMessage, error) {
	var msgs []core.SmsMessage
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		body := strings.TrimSpace(sc.Text())
		if body == "" {
			continue
		}
		msgs = append(msgs, core.SmsMessage{
			SimID:      simID,
			Body:       body,
			Sender:     sender,
			ReceivedAt: receivedAt,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return msgs, nil
}
