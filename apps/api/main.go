package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	clinicshandler "github.com/optoplus-health/optoplus/domains/clinics/be/handler"
	clinicsprov "github.com/optoplus-health/optoplus/domains/clinics/be/provisioning"
	clinicsrepo "github.com/optoplus-health/optoplus/domains/clinics/be/repo"
	clinicsservice "github.com/optoplus-health/optoplus/domains/clinics/be/service"
	saleshandler "github.com/optoplus-health/optoplus/domains/sales/be/handler"
	salesservice "github.com/optoplus-health/optoplus/domains/sales/be/service"
	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
	platformlogging "github.com/optoplus-health/optoplus/platform/go/logging"
	platformmiddleware "github.com/optoplus-health/optoplus/platform/go/middleware"
	"github.com/optoplus-health/optoplus/platform/go/persistence"
	"github.com/optoplus-health/optoplus/platform/go/tenant"
	tenantmiddleware "github.com/optoplus-health/optoplus/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	MasterDB   string `env:"MASTER_DB_NAME" envDefault:"optometry_master"`
	AdminDB    string `env:"ADMIN_DB_NAME" envDefault:"postgres"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"12h"`

	// SingleClinicKey pins every request to one clinic database and skips
	// session-claim routing. Leave empty for multi-clinic deployments.
	SingleClinicKey string `env:"SINGLE_CLINIC_KEY"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := persistence.NewMetrics(promReg)

	registry, err := persistence.NewPoolRegistry(persistence.ServerConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		MasterDB: cfg.MasterDB,
		AdminDB:  cfg.AdminDB,
	}, logger, metrics)
	if err != nil {
		logger.Fatal("init pool registry", zap.Error(err))
	}
	defer registry.Close()

	// Master registry bootstrap is best effort. A server that cannot reach
	// the database at boot still starts and serves; the first request that
	// needs the registry will surface the real error.
	masterStore := persistence.NewMasterStore(registry, logger)
	if err := masterStore.EnsureDatabase(ctx); err != nil {
		logger.Error("master registry init failed, continuing startup", zap.Error(err))
	}

	clinicStore, err := persistence.NewClinicStore(registry)
	if err != nil {
		logger.Fatal("init clinic store", zap.Error(err))
	}

	clinicRepo := clinicsrepo.NewPostgresRepository(clinicStore)
	dbProv := clinicsprov.NewDBProvisioner(registry)
	clinicService := clinicsservice.New(clinicRepo, dbProv)
	clinicHTTPHandler := clinicshandler.New(clinicService, logger)

	router := persistence.NewRouter(registry, logger, metrics)
	saleService := salesservice.New(router)
	saleHTTPHandler := saleshandler.New(saleService, logger)

	signer, err := platformauth.NewSigner(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("init jwt signer", zap.Error(err))
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	apiRouter := chi.NewRouter()
	apiRouter.Use(platformauth.JWT(signer))
	apiRouter.Use(platformmiddleware.RequestTrace)

	// Platform administration: clinic registry CRUD plus provisioning.
	apiRouter.Route("/admin/clinics", func(r chi.Router) {
		r.Use(platformauth.RequirePlatformAdmin)
		clinicHTTPHandler.Routes(r)
	})

	// Clinic-scoped routes: every request resolves to exactly one clinic
	// database before any handler runs.
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireUser)
		r.Use(tenantmiddleware.WithClinicSpace(buildResolver(cfg, clinicService), tenantmiddleware.Config{
			CacheTTL: time.Minute,
		}))
		r.Route("/sales", saleHTTPHandler.Routes)
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildResolver picks the tenant resolution strategy for clinic-scoped
// routes. Single-clinic deployments pin one database; otherwise sessions
// bind to their clinic claim and platform admins may override per request.
func buildResolver(cfg config, lookup tenant.SpaceLookup) tenant.Resolver {
	if cfg.SingleClinicKey != "" {
		return tenant.SingleTenant{Space: tenant.Space{
			DatabaseKey: cfg.SingleClinicKey,
		}}
	}

	bound := tenant.ClinicBound{Lookup: lookup}
	return tenant.SuperAdminOverride{Lookup: lookup, Fallback: bound}
}
