package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-token-ledger/config"
	"campus-token-ledger/internal/adapter/chain/evm"
	httpHandler "campus-token-ledger/internal/adapter/http/handler"
	"campus-token-ledger/internal/adapter/keystore"
	"campus-token-ledger/internal/adapter/messaging/kafka"
	pgStorage "campus-token-ledger/internal/adapter/storage/postgres"
	redisStorage "campus-token-ledger/internal/adapter/storage/redis"
	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/internal/service"
	"campus-token-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// eventPublisher is what the process needs from the kafka adapter.
type eventPublisher interface {
	ports.EventPublisher
	Close() error
}

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml or ./config/config.yaml)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	issueToken := flag.String("issue-token", "", "print a service token for the given caller name and exit")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if *issueToken != "" {
		token, expiresAt, err := tokenSvc.Generate(*issueToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n# expires %s\n", token, expiresAt.UTC().Format(time.RFC3339))
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Strs("checkout_modes", cfg.Checkout.Modes).
		Msg("Starting Campus Token Ledger")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize chain client
	chain, err := evm.Dial(ctx, cfg.Chain, logger.Component(log, "chain"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to chain node")
	}
	defer chain.Close()
	log.Info().Str("rpc", cfg.Chain.RPCURL).Str("token", cfg.Chain.TokenAddress).Msg("Chain node connected")

	publisher, err := newPublisher(cfg.Kafka, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Kafka")
	}
	defer publisher.Close()

	// Keys
	keys, err := keystore.New(cfg.Keystore.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize keystore")
	}
	treasuryKey, err := keystore.ParseHexKey(cfg.Chain.TreasuryPrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid treasury key")
	}
	relayerKey, err := keystore.ParseHexKey(cfg.Chain.RelayerPrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid relayer key")
	}
	treasury := service.NewSigner(treasuryKey)
	relayer := service.NewSigner(relayerKey)
	log.Info().Str("treasury", treasury.Address).Str("relayer", relayer.Address).Msg("Platform signers loaded")

	gasThreshold, gasAmount, err := cfg.Chain.GasTopupWei()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid gas top-up settings")
	}
	gas := service.GasTopup{Threshold: gasThreshold, Amount: gasAmount}
	merchantID, err := uuid.Parse(cfg.Checkout.MerchantOwnerID)
	if err != nil {
		log.Fatal().Err(err).Msg("checkout.merchant_owner_id must be a UUID")
	}

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	cartRepo := pgStorage.NewCartRepo(pool)
	productRepo := pgStorage.NewProductRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	settlementRepo := pgStorage.NewSettlementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	treasuryLock := redisStorage.NewTreasuryLock(rdb, cfg.Reward.LockTTL, cfg.Reward.LockWait, log)
	txClaims := redisStorage.NewTxClaims(rdb, cfg.Checkout.TxClaimTTL)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize business services
	committer := service.NewSettlementCommitter(
		settlementRepo,
		walletRepo,
		ledgerRepo,
		cartRepo,
		productRepo,
		orderRepo,
		transactor,
		publisher,
		logger.Component(log, "settlement"),
	)
	walletSvc := service.NewWalletService(walletRepo, keys, logger.Component(log, "wallet"))
	balanceSvc := service.NewBalanceService(chain, walletRepo, logger.Component(log, "balance"))
	rewardSvc := service.NewRewardService(
		walletRepo,
		chain,
		treasuryLock,
		committer,
		balanceSvc,
		idempotencyCache,
		treasury,
		cfg.Reward.PostSyncTimeout,
		logger.Component(log, "reward"),
	)

	var strategies []ports.CheckoutStrategy
	for _, m := range cfg.Checkout.Modes {
		switch domain.CheckoutMode(m) {
		case domain.CheckoutModeCustodial:
			strategies = append(strategies, service.NewCustodialCheckout(
				cartRepo, walletRepo, chain, keys, committer, relayer, gas, logger.Component(log, "checkout.custodial"),
			))
		case domain.CheckoutModeVerified:
			strategies = append(strategies, service.NewVerifiedCheckout(
				cartRepo, walletRepo, orderRepo, chain, txClaims, committer, logger.Component(log, "checkout.verified"),
			))
		default:
			log.Fatal().Str("mode", m).Msg("Unknown checkout mode")
		}
	}
	checkoutSvc := service.NewCheckoutService(domain.CheckoutMode(cfg.Checkout.DefaultMode), merchantID, log, strategies...)

	// Settlements left SETTLED by a failed commit are finished in the background.
	reconcileDone := make(chan struct{})
	if cfg.Reconciler.Enabled {
		reconciler := service.NewReconciler(
			settlementRepo,
			committer,
			cfg.Reconciler.Interval,
			cfg.Reconciler.Grace,
			cfg.Reconciler.BatchSize,
			logger.Component(log, "reconciler"),
		)
		go func() {
			defer close(reconcileDone)
			reconciler.Run(ctx)
		}()
	} else {
		close(reconcileDone)
	}

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		BalanceSvc:     balanceSvc,
		RewardSvc:      rewardSvc,
		CheckoutSvc:    checkoutSvc,
		LedgerRepo:     ledgerRepo,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
			chain,
		},
		Logger: log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Post-transfer balance syncs run detached from requests; let them land.
	rewardSvc.Wait()
	<-reconcileDone

	log.Info().Msg("Server exited")
}

func newPublisher(cfg config.KafkaConfig, log zerolog.Logger) (eventPublisher, error) {
	if !cfg.Enabled {
		log.Info().Msg("Kafka disabled, ledger events are not published")
		return kafka.NopPublisher{}, nil
	}
	p, err := kafka.NewPublisher(cfg, log)
	if err != nil {
		return nil, err
	}
	return p, nil
}
