// Command node runs a single confidant of the permissioned block network:
// storage, transport, consensus, sync and wallet application wired together
// through fx and run until the process receives SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/internal/core/dispatch"
	"github.com/ledgercore/node/internal/core/packetcache"
	"github.com/ledgercore/node/internal/core/roundctl"
	"github.com/ledgercore/node/internal/core/sync"
	"github.com/ledgercore/node/internal/core/validator"
	"github.com/ledgercore/node/internal/core/wallet"
	"github.com/ledgercore/node/internal/infrastructure/clock"
	"github.com/ledgercore/node/internal/infrastructure/config"
	"github.com/ledgercore/node/internal/infrastructure/crypto"
	"github.com/ledgercore/node/internal/infrastructure/keystore"
	"github.com/ledgercore/node/internal/infrastructure/log"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/internal/network"
	"github.com/ledgercore/node/internal/storage/badgerstore"
	"github.com/ledgercore/node/pkg/interfaces"
)

// runFlags mirrors the deployment-tunable subset of config.Options a
// confidant is actually started with; everything else keeps its default.
type runFlags struct {
	dataDir       string
	logDir        string
	listenAddr    string
	peers         []string
	signalPeers   []string
	nodePublicKey string
	nodePrivate   string
	maxConfidants int
	blockPools    int
	logLevel      string
	metricsAddr   string
}

func main() {
	flags := runFlags{}

	rootCmd := &cobra.Command{
		Use:   "node",
		Short: "run a confidant node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags)
		},
	}

	rootCmd.Flags().StringVar(&flags.dataDir, "data-dir", "./data/badger", "BadgerDB storage directory")
	rootCmd.Flags().StringVar(&flags.logDir, "log-file", "logs/node.log", "rotated log file path")
	rootCmd.Flags().StringVar(&flags.listenAddr, "listen", ":7900", "websocket listen address")
	rootCmd.Flags().StringSliceVar(&flags.peers, "peer", nil, "peer to dial, as base58Key@wsURL (repeatable)")
	rootCmd.Flags().StringSliceVar(&flags.signalPeers, "signal-peer", nil, "base58 public key of a relay-only peer excluded from ledger neighbor counts (repeatable)")
	rootCmd.Flags().StringVar(&flags.nodePublicKey, "node-public-key", "NodePublic.txt", "path to this node's base58 public key file")
	rootCmd.Flags().StringVar(&flags.nodePrivate, "node-private-key", "NodePrivate.txt", "path to this node's base58 private key file")
	rootCmd.Flags().IntVar(&flags.maxConfidants, "max-confidants", 0, "override the round table's confidant cap (0 keeps the deployment default)")
	rootCmd.Flags().IntVar(&flags.blockPools, "block-pools-count", 0, "override the block-pool window size (0 keeps the deployment default)")
	rootCmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "debug|info|warn|error")
	rootCmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", ":9700", "Prometheus /metrics listen address, empty to disable")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(flags runFlags) error {
	level, err := parseLevel(flags.logLevel)
	if err != nil {
		return err
	}

	logOpts := log.DefaultOptions()
	logOpts.FilePath = flags.logDir
	logOpts.Level = level
	logger, err := log.New(logOpts)
	if err != nil {
		return fmt.Errorf("node: build logger: %w", err)
	}

	keys, err := keystore.Load(flags.nodePublicKey, flags.nodePrivate, os.Stdin)
	if err != nil {
		return fmt.Errorf("node: load keys: %w", err)
	}

	peers, err := parsePeers(flags.peers)
	if err != nil {
		return err
	}

	cfgOpts := &config.Options{
		MaxConfidants:   flags.maxConfidants,
		BlockPoolsCount: flags.blockPools,
	}

	nodeLogger := logger.With("component", "node")

	app := fx.New(
		fx.Supply(
			keys.Public,
			badgerstore.Options{Path: flags.dataDir, SyncWrites: true, MemTableSize: 64 << 20},
			config.New(cfgOpts).Consensus(),
			network.Options{ListenAddr: flags.listenAddr, Peers: peers, SignalPeers: flags.signalPeers, DialTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second},
		),
		fx.Supply(fx.Annotate(nodeLogger, fx.As(new(interfaces.Logger)))),
		fx.Provide(
			func() interfaces.HashManager { return crypto.NewHashService() },
			func() interfaces.SignatureVerifier { return crypto.NewSignatureService() },
			func() interfaces.Scheduler { return clock.New() },
			func(s interfaces.BlockStorage) consensus.BlockSource { return s },
		),
		badgerstore.Module(),
		wallet.Module(),
		validator.Module(),
		consensus.Module(),
		sync.Module(),
		packetcache.Module(),
		roundctl.Module(),
		network.Module(),
		dispatch.Module(),
		metrics.Module(),
		fx.Invoke(func(logger interfaces.Logger) {
			logger.Info("node identity loaded", "public_key", keys.Public.String())
		}),
		fx.Invoke(func(lc fx.Lifecycle, m *metrics.Metrics, logger interfaces.Logger) {
			if flags.metricsAddr == "" {
				return
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			srv := &http.Server{Addr: flags.metricsAddr, Handler: mux}
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
							logger.Error("metrics server stopped", "err", err)
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Close()
				},
			})
		}),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("node: start: %w", err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return app.Stop(stopCtx)
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("node: unknown log level %q", s)
	}
}

// parsePeers turns base58Key@wsURL strings into network.PeerAddr values.
func parsePeers(raw []string) ([]network.PeerAddr, error) {
	out := make([]network.PeerAddr, 0, len(raw))
	for _, p := range raw {
		key, url, ok := strings.Cut(p, "@")
		if !ok {
			return nil, fmt.Errorf("node: bad --peer %q, want base58Key@wsURL", p)
		}
		out = append(out, network.PeerAddr{PublicKeyBase58: key, URL: url})
	}
	return out, nil
}
