package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chainpulse/internal/alerting"
	"chainpulse/internal/cache"
	"chainpulse/internal/chain"
	"chainpulse/internal/config"
	"chainpulse/internal/metrics"
	"chainpulse/internal/notify"
	"chainpulse/internal/query"
	"chainpulse/internal/storage"
	"chainpulse/internal/tokens"
	"chainpulse/internal/upstream"
	"chainpulse/internal/upstream/bitquery"
	"chainpulse/internal/upstream/coingecko"
	"chainpulse/internal/upstream/ethrpc"
	"chainpulse/internal/upstream/nodit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting chainpulse service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"environment":        cfg.Environment,
		"cache_backend":      cfg.CacheBackend,
		"alert_interval_sec": int(cfg.AlertInterval.Seconds()),
		"notify_mode":        cfg.NotifyMode,
	}).Info("Configuration loaded")

	// Initialize database
	db, err := storage.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	log.Info("Database connected")

	// Run auto-migration
	if err := db.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}

	log.Info("Database migrations complete")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize API clients
	resolver := tokens.NewResolver(nil)
	noditClient := nodit.NewClient(cfg, resolver)
	priceClient := coingecko.NewClient(cfg)
	gasClient := ethrpc.NewClient(cfg)
	whaleClient := bitquery.NewClient(cfg, resolver)

	log.Info("API clients initialized")

	// Initialize response cache
	store, cleanup, err := createCacheStore(ctx, cfg, db, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize cache backend")
	}
	if cleanup != nil {
		defer cleanup()
	}
	responseCache := cache.New(store, string(cfg.CacheBackend), log)

	// Initialize query service
	querySvc := query.NewService(noditClient, responseCache, cfg.CacheTTL, log)

	// Initialize notification sender
	sender := createSender(cfg, log)

	log.WithField("notify_mode", cfg.NotifyMode).Info("Notification sender initialized")

	// Initialize alert engine. Evaluation passes read prices through the
	// response cache so ticks inside the TTL share one CoinGecko fetch.
	cachedPrices := alerting.NewCachedPrices(priceClient, responseCache, cfg.PriceCacheTTL)
	trigLog := alerting.NewTriggerLog()
	evaluator := alerting.NewEvaluator(db, cachedPrices, gasClient, whaleClient, noditClient, sender, trigLog, log, cfg.Environment)
	scheduler := alerting.NewScheduler(
		evaluator,
		trigLog,
		cfg.AlertInterval,
		time.Duration(cfg.TriggerLogPruneSec)*time.Second,
		cfg.TriggerLogRetention,
		log,
	)

	// Start HTTP server (health + metrics + query + alert API)
	go startHTTPServer(cfg.HealthPort, querySvc, db, log)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Starting alert evaluation loop")
	scheduler.Start(ctx)

	// Database cache entries outlive their TTL as rows; purge them daily.
	if cfg.CacheBackend == config.CacheBackendDatabase {
		go runCachePurge(ctx, db, log)
	}

	sig := <-sigChan
	log.WithField("signal", sig).Info("Received shutdown signal")
	cancel()
	scheduler.Stop()
	log.Info("Graceful shutdown complete")
}

// createCacheStore builds the configured cache backend. The returned
// cleanup closes backend resources and may be nil.
func createCacheStore(ctx context.Context, cfg *config.Config, db *storage.DB, log *logrus.Logger) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		store := cache.NewMemoryStore(time.Minute)
		return store, store.Close, nil
	case config.CacheBackendRedis:
		store, err := cache.NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("Redis close failed")
			}
		}, nil
	case config.CacheBackendDatabase:
		return cache.NewDatabaseStore(db), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", cfg.CacheBackend)
	}
}

func createSender(cfg *config.Config, log *logrus.Logger) notify.Sender {
	// Parse comma-separated notify modes
	modes := strings.Split(cfg.NotifyMode, ",")
	for i, mode := range modes {
		modes[i] = strings.TrimSpace(mode)
	}

	senders := []notify.Sender{}

	for _, mode := range modes {
		switch mode {
		case "log":
			senders = append(senders, notify.NewLogSender(log))
		case "telegram":
			telegram, err := notify.NewTelegramSender(cfg.TelegramBotToken)
			if err != nil {
				log.WithError(err).Warn("Telegram sender initialization failed, skipping")
				continue
			}
			senders = append(senders, telegram)
		case "smtp":
			if cfg.SMTPHost == "" {
				log.Warn("SMTP mode specified but SMTP_HOST not set")
				continue
			}
			senders = append(senders, notify.NewSMTPSender(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUser,
				cfg.SMTPPassword,
				cfg.SMTPFrom,
				cfg.SMTPTo,
			))
		case "webhook":
			if cfg.WebhookURL == "" {
				log.Warn("Webhook mode specified but NOTIFY_WEBHOOK_URL not set")
				continue
			}
			senders = append(senders, notify.NewWebhookSender(cfg.WebhookURL))
		default:
			log.WithField("mode", mode).Warn("Unknown notify mode, skipping")
		}
	}

	if len(senders) == 0 {
		log.Warn("No valid notification senders configured, using log")
		return notify.NewLogSender(log)
	}
	if len(senders) == 1 {
		return senders[0]
	}
	return notify.NewMultiSender(senders...)
}

// runCachePurge deletes expired database cache rows once a day.
func runCachePurge(ctx context.Context, db *storage.DB, log *logrus.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.PurgeExpiredCache(ctx, time.Now().Unix()); err != nil {
				log.WithError(err).Warn("Expired cache purge failed")
			}
		}
	}
}

func startHTTPServer(port int, querySvc *query.Service, db *storage.DB, log *logrus.Logger) {
	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy"}`)
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ready"}`)
	})

	// Normalized query endpoint for the dashboard
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(w, r, querySvc)
	})

	// Alert definition management
	mux.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
		handleAlerts(w, r, db, log)
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.WithField("port", port).Info("Starting HTTP server (health + metrics + query + alerts)")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("HTTP server failed")
	}
}

func handleQuery(w http.ResponseWriter, r *http.Request, querySvc *query.Service) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Protocol string `json:"protocol"`
		Network  string `json:"network"`
		Method   string `json:"method"`
		Params   struct {
			AccountAddress  string `json:"accountAddress"`
			TokenSymbol     string `json:"tokenSymbol"`
			ContractAddress string `json:"contractAddress"`
			TokenID         string `json:"tokenId"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	record, err := querySvc.Execute(r.Context(), req.Method, req.Protocol+"/"+req.Network, nodit.Params{
		AccountAddress:  req.Params.AccountAddress,
		TokenSymbol:     req.Params.TokenSymbol,
		ContractAddress: req.Params.ContractAddress,
		TokenID:         req.Params.TokenID,
	})
	if err != nil {
		status := http.StatusBadGateway
		if upstream.IsValidation(err) {
			status = http.StatusBadRequest
		} else if upstream.IsNotFound(err) {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func handleAlerts(w http.ResponseWriter, r *http.Request, db *storage.DB, log *logrus.Logger) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodPost:
		createAlert(w, r, db, log)
	case http.MethodGet, http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid alert id"})
			return
		}
		if r.Method == http.MethodGet {
			alert, err := db.GetAlert(r.Context(), id)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "lookup failed"})
				return
			}
			if alert == nil {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"error": "alert not found"})
				return
			}
			json.NewEncoder(w).Encode(alert)
			return
		}
		if err := db.DeleteAlert(r.Context(), id); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "delete failed"})
			return
		}
		log.WithField("alert_id", id).Info("Alert deleted")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"})
	}
}

func createAlert(w http.ResponseWriter, r *http.Request, db *storage.DB, log *logrus.Logger) {
	var req struct {
		OwnerID        string  `json:"ownerId"`
		Type           string  `json:"type"`
		Chain          string  `json:"chain"`
		Token          string  `json:"token"`
		AccountAddress string  `json:"accountAddress"`
		Condition      string  `json:"condition"`
		Value          float64 `json:"value"`
		NotifyChannel  string  `json:"notifyChannel"`
		NotifyTarget   string  `json:"notifyTarget"`
		Frequency      string  `json:"frequency"`
		CooldownMins   int     `json:"cooldownMins"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
		return
	}

	if err := validateAlertRequest(req.Type, req.Chain, req.Condition, req.Frequency); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	if req.Frequency == "" {
		req.Frequency = storage.FrequencyRecurring
	}
	if req.CooldownMins <= 0 {
		req.CooldownMins = 5
	}
	if req.NotifyChannel == "" {
		req.NotifyChannel = "log"
	}

	alert := &storage.Alert{
		OwnerID:        req.OwnerID,
		Type:           req.Type,
		Chain:          req.Chain,
		Token:          req.Token,
		AccountAddress: req.AccountAddress,
		Condition:      req.Condition,
		Value:          req.Value,
		NotifyChannel:  req.NotifyChannel,
		NotifyTarget:   req.NotifyTarget,
		Frequency:      req.Frequency,
		CooldownMins:   req.CooldownMins,
		IsActive:       true,
		CreatedTS:      time.Now().Unix(),
	}

	id, err := db.CreateAlert(r.Context(), alert)
	if err != nil {
		log.WithError(err).Error("Alert creation failed")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "create failed"})
		return
	}

	log.WithFields(logrus.Fields{
		"alert_id": id,
		"type":     req.Type,
		"chain":    req.Chain,
	}).Info("Alert created")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int64{"id": id})
}

func validateAlertRequest(alertType, chainName, condition, frequency string) error {
	switch alertType {
	case storage.AlertTypePrice, storage.AlertTypeGas, storage.AlertTypeWhale, storage.AlertTypeAccountActivity:
	default:
		return fmt.Errorf("unknown alert type: %s", alertType)
	}

	if _, err := chain.Parse(chainName); err != nil {
		return fmt.Errorf("invalid chain: %s", chainName)
	}

	switch condition {
	case storage.ConditionAbove, storage.ConditionBelow, storage.ConditionChange:
	default:
		return fmt.Errorf("unknown condition: %s", condition)
	}

	switch frequency {
	case "", storage.FrequencyOnce, storage.FrequencyRecurring:
	default:
		return fmt.Errorf("unknown frequency: %s", frequency)
	}

	return nil
}
