package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/exsplit/internal/config/exsplit"
	"github.com/NordCoder/exsplit/internal/obs"
	"github.com/NordCoder/exsplit/internal/obs/retry"
	"github.com/NordCoder/exsplit/internal/repository/kafka"
)

// kafka-init creates the session events topic before the first CLI run.
func main() {
	cfgPath := flag.String("config", "", "path to the exsplit config file")
	partitions := flag.Int("partitions", 1, "number of partitions")
	rf := flag.Int("rf", 1, "replication factor")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, nil)
	if err != nil {
		panic(err)
	}
	lc := cfg.LoggerConfig()
	lc.Level = "info"
	log, err := obs.NewLogger(lc)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	spec := kafka.TopicSpec{
		Name:              cfg.Events.Topic,
		NumPartitions:     *partitions,
		ReplicationFactor: *rf,
		MaxWait:           30 * time.Second,
	}
	err = retry.Do(ctx, func(ctx context.Context) error {
		return kafka.EnsureTopic(ctx, cfg.Events.Brokers, spec, log)
	}, retry.BackendPolicy("kafka", log))
	if err != nil {
		log.Error("ensure topic", zap.String("topic", spec.Name), zap.Error(err))
		os.Exit(1)
	}
	log.Info("kafka-init ok", zap.String("topic", spec.Name))
}
