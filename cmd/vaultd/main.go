package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"plasmavault/config"
	"plasmavault/core"
	"plasmavault/native/oracle"
	"plasmavault/observability/logging"
	telemetry "plasmavault/observability/otel"
	"plasmavault/services/chainfeed"
	"plasmavault/services/keeper"
	"plasmavault/storage"
)

const serviceName = "vaultd"

func main() {
	configPath := flag.String("config", "./vault.toml", "Path to the vault config file")
	logLevel := flag.String("log-level", "info", "Minimum log level (debug, info, warn, error)")
	flag.Parse()

	if err := run(*configPath, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.SetupWriter(os.Stdout, serviceName, cfg.Node.Environment, logging.ParseLevel(logLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.FromSettings(serviceName, cfg.Node.Environment, cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	operator, err := config.ParseAddress(cfg.Node.Operator)
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.Node.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}

	directory, closeChain, err := dialDirectory(ctx, cfg.Chain, logger)
	if err != nil {
		db.Close()
		return err
	}
	defer closeChain()

	opts, err := nodeOptions(cfg, directory, logger)
	if err != nil {
		db.Close()
		return err
	}
	node, err := core.NewNode(db, opts)
	if err != nil {
		db.Close()
		return fmt.Errorf("open node: %w", err)
	}
	defer node.Close()

	if node.Fresh() {
		if operator == (common.Address{}) {
			return fmt.Errorf("node.Operator required to bootstrap fresh state")
		}
		if err := node.Bootstrap(cfg, operator); err != nil {
			return fmt.Errorf("bootstrap state: %w", err)
		}
		logger.Info("state bootstrapped", slog.Uint64("height", node.Head().Height))
	}

	var runs func() []keeper.Run
	if cfg.Keeper.Enabled {
		k, err := newKeeper(ctx, cfg, node, operator, logger)
		if err != nil {
			return err
		}
		k.Start()
		defer k.Stop()
		runs = k.Runs
	}

	server := &http.Server{
		Addr:              cfg.Node.MetricsAddress,
		Handler:           NewServer(node, runs, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func nodeOptions(cfg *config.Config, directory oracle.Directory, logger *slog.Logger) (core.Options, error) {
	feeManager, err := config.ParseAddress(cfg.Fees.Manager)
	if err != nil {
		return core.Options{}, err
	}
	vaultAddr, err := config.ParseAddress(cfg.Fees.Vault)
	if err != nil {
		return core.Options{}, err
	}
	oracleManager, err := config.ParseAddress(cfg.Oracle.Manager)
	if err != nil {
		return core.Options{}, err
	}
	return core.Options{
		FeeManager:    feeManager,
		OracleManager: oracleManager,
		Vault:         vaultAddr,
		VaultDecimals: cfg.Fees.VaultDecimals,
		Directory:     directory,
		Logger:        logger,
		Now:           func() int64 { return time.Now().Unix() },
	}, nil
}

// dialDirectory connects the on-chain feed reader. Without an RPC endpoint
// the oracle runs without a directory and only serves configured errors.
func dialDirectory(ctx context.Context, chain config.Chain, logger *slog.Logger) (oracle.Directory, func(), error) {
	if chain.RPCURL == "" {
		logger.Warn("no chain RPC configured, price reads will fail")
		return nil, func() {}, nil
	}
	client, err := chainfeed.Dial(ctx, chain.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial chain rpc %s: %w", logging.MaskURL(chain.RPCURL), err)
	}
	logger.Info("chain rpc connected", slog.String("endpoint", logging.MaskURL(chain.RPCURL)))
	dir := chainfeed.NewDirectory(client, time.Duration(chain.CallTimeout)*time.Second).WithContext(ctx)
	return dir, client.Close, nil
}

func newKeeper(ctx context.Context, cfg *config.Config, node *core.Node, operator common.Address, logger *slog.Logger) (*keeper.Keeper, error) {
	watch := make([]common.Address, 0, len(cfg.Keeper.Watch))
	for _, raw := range cfg.Keeper.Watch {
		addr, err := config.ParseAddress(raw)
		if err != nil {
			return nil, err
		}
		watch = append(watch, addr)
	}
	k, err := keeper.New(keeper.Options{
		Fees:     node.Fees(),
		Prices:   node.Oracle(),
		Value:    node.VaultValue,
		Operator: operator,
		Watch:    watch,
		Lock:     node.Locker(),
		Commit: func() error {
			_, err := node.CommitLocked()
			return err
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if err := k.Register(ctx, keeper.Schedules{
		Harvest:    cfg.Keeper.HarvestSchedule,
		Checkpoint: cfg.Keeper.CheckpointSchedule,
		Validate:   cfg.Keeper.ValidateSchedule,
	}); err != nil {
		return nil, err
	}
	return k, nil
}
