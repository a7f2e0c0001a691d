package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/luiz-henrique-gyn/backend/pkg/dex"
	"github.com/luiz-henrique-gyn/backend/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
)

func setupLog(level string) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return err
	}

	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat(false))))
	return nil
}

func openDB(dir string) (storage.Database, error) {
	if dir == "" {
		log.Warn("db_dir not set, state is kept in memory only")
		return storage.NewMemDatabase(), nil
	}

	return storage.OpenPebble(dir)
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error serving metrics", "err", err)
		}
	}()
	return srv
}

func logTrades(ex *dex.Exchange) func() {
	ch := make(chan *dex.TradeEvent, 64)
	sub := ex.SubscribeTrades(ch)

	go func() {
		for {
			select {
			case ev := <-ch:
				log.Debug("trade", "ownerA", ev.OwnerA, "ownerB", ev.OwnerB,
					"sellAssetA", ev.SellAssetA, "sellAssetB", ev.SellAssetB,
					"sellFilledA", ev.SellFilledA, "sellFilledB", ev.SellFilledB)
			case <-sub.Err():
				return
			}
		}
	}()
	return sub.Unsubscribe
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	err = setupLog(cfg.LogLevel)
	if err != nil {
		return err
	}

	domain, err := cfg.domain()
	if err != nil {
		return err
	}

	allocs, err := cfg.genesis()
	if err != nil {
		return err
	}

	db, err := openDB(cfg.DBDir)
	if err != nil {
		return err
	}
	defer db.Close()

	state := dex.NewState(db)
	applied, err := state.ApplyGenesis(allocs)
	if err != nil {
		return fmt.Errorf("error applying genesis: %w", err)
	}

	if !applied {
		log.Info("genesis already applied, skipping")
	}

	ex := dex.NewExchange(state, domain, dex.NewECDSAVerifier(cfg.SignatureCacheSize), dex.NewMetrics(prometheus.DefaultRegisterer))
	stop := logTrades(ex)
	defer stop()

	server := dex.NewRPCServer(ex)
	err = server.Start(cfg.RPCAddr)
	if err != nil {
		return err
	}
	defer server.Close()

	metrics := serveMetrics(cfg.MetricsAddr)
	defer metrics.Close()

	log.Info("node started", "rpc", server.Addr(), "metrics", cfg.MetricsAddr,
		"chainID", domain.ChainID, "verifyingContract", domain.VerifyingContract)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "DEX node"
	app.Usage = "match and settle signed orders"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML config file",
		},
	}
	app.Action = run

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("node failed with error: %v\n", err)
		os.Exit(1)
	}
}
