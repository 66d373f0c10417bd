package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tickbook/domain/book"
	"tickbook/domain/driver"
	"tickbook/domain/replay"
	"tickbook/infra/broadcaster"
	"tickbook/infra/config"
	"tickbook/infra/httpapi"
	"tickbook/infra/logging"
	"tickbook/infra/metrics"
	"tickbook/infra/rpcapi"
	"tickbook/infra/snaphandoff"
)

// loadOrRebuildIndex opens the timestamp index at indexDir, rebuilding
// it from csvPath if it doesn't exist yet or was built against a
// different version of that file.
func loadOrRebuildIndex(csvPath, indexDir string, log *logrus.Logger) (*replay.TimestampIndex, error) {
	idx, err := replay.OpenTimestampIndex(indexDir)
	if err != nil {
		return nil, err
	}
	fresh, err := idx.MatchesSource(csvPath)
	if err != nil {
		idx.Close()
		return nil, err
	}
	if fresh {
		return idx, nil
	}
	idx.Close()

	log.WithField("csv_path", csvPath).Info("timestamp index missing or stale, rebuilding")
	return replay.BuildTimestampIndex(csvPath, indexDir)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the server's YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Logging.Level)
	if err := logging.Configure(log, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAgeDays); err != nil {
		log.WithError(err).Fatal("invalid logging configuration")
	}

	var sourceOpts []replay.Option
	if cfg.Replay.TimestampIndex != "" {
		idx, err := loadOrRebuildIndex(cfg.Replay.CSVPath, cfg.Replay.TimestampIndex, log)
		if err != nil {
			log.WithError(err).Warn("failed to prepare timestamp index, seeking will fall back to a linear scan")
		} else {
			defer idx.Close()
			sourceOpts = append(sourceOpts, replay.WithTimestampIndex(idx))
		}
	}

	source, err := replay.Open(cfg.Replay.CSVPath, sourceOpts...)
	if err != nil {
		log.WithError(err).Fatal("failed to open replay source")
	}
	if cfg.Replay.PlaybackSpeed > 0 {
		if err := source.SetPlaybackSpeed(cfg.Replay.PlaybackSpeed); err != nil {
			log.WithError(err).Fatal("invalid replay.playback_speed")
		}
	}

	bookOpts := []book.Option{book.WithDepth(cfg.Book.Depth)}
	if cfg.Book.NoLiquidityIsError {
		bookOpts = append(bookOpts, book.WithNoLiquidityIsError())
	}
	engine := book.NewBook(bookOpts...)

	metrics.Init()

	slot := &snaphandoff.Slot{}
	publishTargets := []interface {
		Publish(*book.DepthSnapshot, []book.SpreadSample)
	}{slot}

	var wsHub *broadcaster.WSHub
	if cfg.Broadcaster.EnableWS {
		wsHub = broadcaster.NewWSHub(log)
		publishTargets = append(publishTargets, wsHub)
	}

	var tradeSink driver.TradeSink
	if len(cfg.Broadcaster.KafkaBrokers) > 0 {
		tp, err := broadcaster.NewTradePublisher(cfg.Broadcaster.KafkaBrokers, cfg.Broadcaster.TradeTopic, log)
		if err != nil {
			log.WithError(err).Fatal("failed to start trade publisher")
		}
		defer tp.Close()
		tradeSink = tp

		sp := broadcaster.NewSnapshotProducer(cfg.Broadcaster.KafkaBrokers, cfg.Broadcaster.SnapshotTopic, log)
		defer sp.Close()
		publishTargets = append(publishTargets, sp)
	}

	pub := broadcaster.NewMultiPublisher(publishTargets...)
	d := driver.New(source, engine, tradeSink, pub, cfg.Book.SpreadHistory, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- d.Run(ctx) }()

	grpcServer := rpcapi.NewGRPCServer(rpcapi.NewServer(d, slot, cfg.Book.Depth))
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.WithError(err).Fatal("failed to bind gRPC listener")
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC server exited")
		}
	}()

	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		var wsHandler http.Handler
		if wsHub != nil {
			wsHandler = wsHub
		}
		mux := httpapi.NewMux(d, wsHandler, cfg.Metrics.Enabled)
		httpServer = &http.Server{Addr: cfg.Server.HTTPAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("HTTP server exited")
			}
		}()
	}

	log.WithFields(logging.Fields{
		"grpc_addr": cfg.Server.GRPCAddr,
		"http_addr": cfg.Server.HTTPAddr,
		"csv_path":  cfg.Replay.CSVPath,
	}).Info("tickbook server started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	driverDone := false
	select {
	case <-sig:
		log.Info("shutdown signal received")
	case err := <-runDone:
		driverDone = true
		if err != nil {
			log.WithError(err).Error("driver stopped unexpectedly")
		} else {
			log.Info("replay finished, shutting down")
		}
	}

	cancel()
	grpcServer.GracefulStop()
	if httpServer != nil {
		httpServer.Shutdown(context.Background())
	}
	if !driverDone {
		<-runDone
	}
}
