package handler

import (
	"campus-token-ledger/internal/adapter/http/middleware"
	redisStore "campus-token-ledger/internal/adapter/storage/redis"
	"campus-token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	BalanceSvc     ports.BalanceService
	RewardSvc      ports.RewardService
	CheckoutSvc    ports.CheckoutService
	LedgerRepo     ports.LedgerRepository
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(middleware.AuditTrail(deps.Logger))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// Internal API: callable by platform services holding a service token.
	v1 := r.Group("/internal/v1", middleware.ServiceAuth(deps.TokenSvc, deps.Logger))

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.BalanceSvc, deps.LedgerRepo)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets"), walletHandler.CreateWallet)
		wallets.GET("/:owner_id", rl("reads"), walletHandler.GetWallet)
		wallets.GET("/:owner_id/balance", rl("reads"), walletHandler.GetBalance)
		wallets.GET("/:owner_id/transactions", rl("reads"), walletHandler.ListTransactions)
	}

	rewardHandler := NewRewardHandler(deps.RewardSvc)
	v1.POST("/rewards", rl("rewards"), rewardHandler.Disburse)

	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc)
	v1.POST("/checkouts", rl("checkouts"), checkoutHandler.Checkout)

	return r
}
