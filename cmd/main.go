package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"gitlab.com/examgrid-2026.net/internal/adapter/channel"
	ec2provisioner "gitlab.com/examgrid-2026.net/internal/adapter/cloud/ec2"
	"gitlab.com/examgrid-2026.net/internal/adapter/crypto"
	"gitlab.com/examgrid-2026.net/internal/adapter/judge"
	"gitlab.com/examgrid-2026.net/internal/adapter/postgres/eventrepository"
	"gitlab.com/examgrid-2026.net/internal/adapter/postgres/sessionrepository"
	"gitlab.com/examgrid-2026.net/internal/adapter/postgres/testcaserepository"
	"gitlab.com/examgrid-2026.net/internal/adapter/redis/progressport"
	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/cost"
	"gitlab.com/examgrid-2026.net/internal/core/services/gateway"
	"gitlab.com/examgrid-2026.net/internal/core/services/lifecycle"
	"gitlab.com/examgrid-2026.net/internal/core/services/notify"
	"gitlab.com/examgrid-2026.net/internal/core/services/probe"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/core/services/session"
	logger2 "gitlab.com/examgrid-2026.net/internal/global/logger"
	http2 "gitlab.com/examgrid-2026.net/internal/http"
	"gitlab.com/examgrid-2026.net/internal/sessionengine"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger2.Info("Starting session orchestrator service")

	logger := logger2.Logger

	sysCfg := config.NewSystemConfig()

	db, err := setupDatabase(sysCfg.PostgresConfig)
	if err != nil {
		panic(err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	awsCfg, err := awsconfig.LoadDefaultConfig(baseCtx, awsconfig.WithRegion(sysCfg.CloudCfg.Region))
	if err != nil {
		panic(err)
	}
	ec2Client := awsec2.NewFromConfig(awsCfg)

	// SECONDARY PORTS
	sessionRepo := sessionrepository.NewSessionRepository(db, logger)
	eventRepo := eventrepository.NewEventRepository(db, logger)
	testCaseRepo := testcaserepository.NewTestCaseRepository(db, logger)
	progressTracker := progressport.NewProgressTracker(redisClient, logger)
	judgeClient := judge.NewClient(sysCfg.JudgeCfg, logger)
	provisioner := ec2provisioner.NewProvisioner(ec2Client, sysCfg.CloudCfg, logger)

	// PRIMARY PORTS
	tokenProvider := crypto.NewOperatorTokenService(sysCfg.OperatorCfg)

	// delivery channels
	channels := setupChannels(sysCfg.NotifyCfg, sysCfg.NatsConfig)

	// services
	reg := registry.New()
	notifier := notify.NewFanOutService(eventRepo, channels, sysCfg.NotifyCfg, logger)
	accountant := cost.NewAccountantService(sessionRepo, sysCfg.CostCfg, logger)
	coordinator := lifecycle.NewShutdownCoordinator(reg, sessionRepo, progressTracker, provisioner, accountant, notifier, sysCfg.OrchestratorCfg, logger)
	detector := lifecycle.NewCompletionDetector(reg, progressTracker, coordinator, sysCfg.OrchestratorCfg, logger)
	prober := probe.NewReadinessProber(reg, sessionRepo, judgeClient, provisioner, notifier, sysCfg.OrchestratorCfg, logger)
	engine := sessionengine.NewSessionEngine(baseCtx, reg, sessionRepo, prober, detector, logger)
	sessionSvc := session.NewSessionService(reg, sessionRepo, provisioner, notifier, engine, sysCfg.OrchestratorCfg, logger)
	quota := gateway.NewCallQuota(sysCfg.GatewayCfg.QuotaCeiling)
	gatewaySvc := gateway.NewGatewayService(reg, sessionRepo, judgeClient, testCaseRepo, progressTracker, notifier, quota, sysCfg.GatewayCfg, logger)

	if err := engine.ResumeActiveSessions(baseCtx); err != nil {
		logger.Error("Failed to resume active sessions", "error", err)
	}

	// server
	serviceProvider := http2.NewServiceProvider(sessionSvc, gatewaySvc, coordinator, detector, accountant, eventRepo, tokenProvider)
	httpServer := http2.NewServer(sysCfg.HTTPPort, "sessionOrchestrator", *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}
	httpServer.Start(baseCtx)

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Stop(ctx)
	cancelBase()
	engine.Wait()

	logger.Info("successfully shutdown server")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(cfg *config.PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// setupChannels builds the configured delivery channels. Both channels are
// optional; an empty channel list still records events durably.
func setupChannels(notifyCfg *config.NotifyCfg, natsCfg *config.NatsConfig) []secondary.DeliveryChannel {
	var channels []secondary.DeliveryChannel

	if notifyCfg.WebhookURL != "" {
		channels = append(channels, channel.NewWebhookChannel(notifyCfg.WebhookURL))
	}

	if natsCfg.Url != "" {
		nc, err := nats.Connect(natsCfg.Url)
		if err != nil {
			logger2.Error("Failed to connect to NATS, channel disabled", "error", err)
		} else {
			channels = append(channels, channel.NewNatsChannel(nc, notifyCfg.NatsSubject))
		}
	}

	return channels
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
