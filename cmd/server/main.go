package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"

	"nppflow/application"
	"nppflow/database"
	"nppflow/domain/contracts"
	jobsdom "nppflow/domain/jobs"
	"nppflow/infrastructure/cache"
	"nppflow/infrastructure/config"
	infrafactories "nppflow/infrastructure/factories"
	"nppflow/infrastructure/graph"
	"nppflow/infrastructure/licensing"
	"nppflow/infrastructure/mirror"
	"nppflow/infrastructure/powerbi"
	"nppflow/infrastructure/secrets"
	"nppflow/infrastructure/spclient"
	"nppflow/interfaces/web/auth"
	"nppflow/interfaces/web/handlers"
	"nppflow/interfaces/web/presenters"
	"nppflow/logging"
	"nppflow/platform/events"
	"nppflow/platform/executors"
	"nppflow/platform/refresh"
	"nppflow/platform/scheduler"
	"nppflow/spauth"
)

func main() {
	// Create app-wide context for graceful shutdown
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// Initialize configuration
	loadEnvironment()
	cfg := config.LoadAppConfigFromEnv()

	// Initialize logging
	logger := initializeLogging(cfg)

	// Initialize database
	db := initializeDatabase(cfg, logger)
	defer db.Close()

	// Build dependencies with app context
	deps, err := buildDependencies(appCtx, cfg, db, logger)
	if err != nil {
		logger.Error("Failed to build dependencies", "error", err)
		os.Exit(1)
	}

	// Setup routes and start server
	router := setupRoutes(deps, cfg)
	startServer(router, cfg, logger, deps, appCancel)
}

// Gateways holds the remote clients.
type Gateways struct {
	SiteURL   string
	Workflow  *spclient.WorkflowStore
	Documents *spclient.LibraryClient
	Groups    *spclient.GroupClient
	Licensing *licensing.Client
	Directory *graph.Client
	Analytics *powerbi.Client
	Mirror    contracts.CompanionStore
}

// ApplicationServices holds application services.
type ApplicationServices struct {
	JobService        *application.JobServiceImpl
	EntityService     *application.EntityService
	FileService       *application.FileService
	PermissionService *application.PermissionService
	ForecastService   *application.ForecastService
	IdentityService   *application.IdentityService
	LicenseService    *application.LicenseService
	AnalyticsService  *application.AnalyticsService
	EventBus          *events.EventBus
	Scheduler         *scheduler.Scheduler
	Refresher         *refresh.Coalescer
}

// PresentationLayer groups all presentation components
type PresentationLayer struct {
	Auth              *auth.Middleware
	EntityHandlers    *handlers.EntityHandlers
	FileHandlers      *handlers.FileHandlers
	JobHandlers       *handlers.JobHandlers
	GroupHandlers     *handlers.GroupHandlers
	AnalyticsHandlers *handlers.AnalyticsHandlers
	IdentityHandlers  *handlers.IdentityHandlers
	SSEManager        *handlers.SSEManager
}

// Dependencies holds all application dependencies organized by layer
type Dependencies struct {
	DB     *database.Database
	Logger *logging.Logger

	Gateways     *Gateways
	Services     *ApplicationServices
	Presentation *PresentationLayer
}

func loadEnvironment() {
	if err := godotenv.Load(); err != nil {
		println("No .env file found, using environment variables")
	} else {
		println("Loaded configuration from .env file")
	}
}

func initializeLogging(cfg *config.AppConfig) *logging.Logger {
	logger := logging.NewLogger(cfg.Logging)
	logging.SetDefault(logger)

	logger.Info("Application starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"log_format", cfg.Logging.Format,
		"db_path", cfg.Database.Path,
	)

	return logger
}

func initializeDatabase(cfg *config.AppConfig, logger *logging.Logger) *database.Database {
	db, err := database.New(*cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	return db
}

// loadSecrets fills empty credentials from Key Vault when one is configured.
func loadSecrets(ctx context.Context, cfg *config.AppConfig, spCfg *spauth.Config, logger *logging.Logger) {
	if cfg.KeyVaultURL == "" {
		return
	}
	tokens, err := spauth.NewAzureTokenSource(cfg.Graph.TenantID, cfg.Graph.ClientID, "")
	if err != nil {
		logger.Warn("Key Vault credential unavailable", "error", err)
		return
	}
	vault, err := secrets.NewVaultClient(cfg.KeyVaultURL, tokens.Credential(), cfg.Cache.MasterTTL)
	if err != nil {
		logger.Warn("Key Vault unavailable", "error", err)
		return
	}
	vault.Fill(ctx, &cfg.Licensing.FunctionKey, secrets.SecretLicensingKey)
	vault.Fill(ctx, &cfg.Graph.ClientSecret, secrets.SecretGraphSecret)
	vault.Fill(ctx, &cfg.Mirror.ConnectionString, secrets.SecretMirrorConnection)
	vault.Fill(ctx, &spCfg.CertPassword, secrets.SecretCertPassword)
}

// buildGateways creates the SharePoint, licensing, Graph and Power BI clients.
func buildGateways(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (*Gateways, error) {
	spCfg, err := spauth.FromEnv()
	if err != nil {
		return nil, err
	}
	loadSecrets(ctx, cfg, &spCfg, logger)

	securityLog := logger.WithComponent("sharepoint_auth")
	spAuth, err := spauth.NewClientWithHook(spCfg, func(ctx context.Context, endpoint string) {
		securityLog.Security("SharePoint rejected app credentials", "endpoint", endpoint)
	})
	if err != nil {
		return nil, err
	}
	sp := spclient.NewClient(spAuth)

	tokens, err := spauth.NewAzureTokenSource(cfg.Graph.TenantID, cfg.Graph.ClientID, cfg.Graph.ClientSecret)
	if err != nil {
		return nil, err
	}

	gw := &Gateways{
		SiteURL:   sp.SiteURL(),
		Workflow:  spclient.NewWorkflowStore(sp),
		Documents: spclient.NewLibraryClient(sp),
		Groups:    spclient.NewGroupClient(sp),
		Licensing: licensing.NewClient(cfg.Licensing, siteHost(spCfg.SiteURL)),
		Directory: graph.NewClient(cfg.Graph, tokens),
		Analytics: powerbi.NewClient(cfg.PowerBI, tokens),
	}

	switch cfg.Mirror.Mode {
	case "azure":
		blobs, err := mirror.NewBlobStore(ctx, cfg.Mirror.ConnectionString, cfg.Mirror.Container)
		if err != nil {
			return nil, err
		}
		gw.Mirror = blobs
	default:
		gw.Mirror = mirror.NewSharePointStore(gw.Documents)
	}
	logger.Info("Gateways ready", "site_url", gw.SiteURL, "mirror_mode", cfg.Mirror.Mode)
	return gw, nil
}

// buildApplicationServices creates application services with dependency injection.
func buildApplicationServices(cfg *config.AppConfig, db *database.Database, gw *Gateways) *ApplicationServices {
	repositoryFactory := infrafactories.NewRepositoryFactory(db)
	eventBus := events.NewEventBus()

	// Masters change rarely; everything else reads SharePoint directly
	catalog := cache.NewCatalog(gw.Workflow, cfg.Cache.MasterTTL)
	folders := cache.NewFolderListings(cfg.Cache.FolderTTL)
	membership := cache.NewMembership(cfg.Cache.MembershipTTL)

	registry := application.NewJobExecutorRegistry()
	jobService := application.NewJobService(repositoryFactory.CreateJobRepository(), registry, nil, eventBus)

	permissionService := application.NewPermissionService(gw.Groups, gw.Documents, gw.Licensing, membership, eventBus)
	entityService := application.NewEntityService(gw.Workflow, catalog, gw.Documents, permissionService, eventBus)
	fileService := application.NewFileService(gw.Workflow, catalog, gw.Documents, gw.Mirror, folders, eventBus)
	forecastService := application.NewForecastService(gw.Workflow, catalog, fileService, jobService, gw.SiteURL)
	analyticsService := application.NewAnalyticsService(gw.Analytics, gw.Directory, gw.Workflow, permissionService)

	registry.RegisterExecutor(jobsdom.JobTypeForecastRollover, executors.NewRolloverExecutor(forecastService))
	registry.RegisterExecutor(jobsdom.JobTypeRLSSync, executors.NewRLSSyncExecutor(analyticsService))
	logging.Default().Info("Job executors registered", "types", registry.SupportedJobTypes())

	identityService := application.NewIdentityService(
		gw.Groups,
		repositoryFactory.CreateSiteUserCacheRepository(gw.SiteURL),
		gw.SiteURL,
		cfg.Cache.UserTTL,
	)
	licenseService := application.NewLicenseService(
		cache.NewLicenseCache(gw.Licensing, cfg.Cache.LicenseTTL),
		contracts.LicenseQuery{ApplicationID: cfg.Licensing.ApplicationID, Host: siteHost(gw.SiteURL)},
	)

	return &ApplicationServices{
		JobService:        jobService,
		EntityService:     entityService,
		FileService:       fileService,
		PermissionService: permissionService,
		ForecastService:   forecastService,
		IdentityService:   identityService,
		LicenseService:    licenseService,
		AnalyticsService:  analyticsService,
		EventBus:          eventBus,
		Scheduler:         scheduler.New(),
		Refresher:         refresh.NewCoalescer(cfg.Cache.RefreshDebounce),
	}
}

func siteHost(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// buildPresentationLayer creates all presenters and handlers
func buildPresentationLayer(appCtx context.Context, cfg *config.AppConfig, gw *Gateways, services *ApplicationServices) *PresentationLayer {
	sseManager := handlers.NewSSEManager(appCtx)

	// Wire up update notifications
	services.JobService.SetUpdateNotifier(sseManager)
	events.NewNotificationEventHandlers(sseManager).RegisterHandlers(services.EventBus)

	tokens := auth.NewJWTValidator(*cfg.Auth, &http.Client{Timeout: 10 * time.Second})

	return &PresentationLayer{
		Auth:           auth.NewMiddleware(*cfg.Auth, tokens, services.IdentityService),
		EntityHandlers: handlers.NewEntityHandlers(services.EntityService, services.ForecastService),
		FileHandlers: handlers.NewFileHandlers(
			services.FileService,
			services.PermissionService,
			services.Refresher,
			presenters.NewFilePresenter(),
			cfg.HTTP.MaxUploadBytes,
		),
		JobHandlers:       handlers.NewJobHandlers(services.JobService, presenters.NewJobPresenter()),
		GroupHandlers:     handlers.NewGroupHandlers(services.PermissionService),
		AnalyticsHandlers: handlers.NewAnalyticsHandlers(services.AnalyticsService, services.JobService, gw.SiteURL),
		IdentityHandlers:  handlers.NewIdentityHandlers(services.LicenseService),
		SSEManager:        sseManager,
	}
}

// scheduleJobs registers the recurring jobs.
func scheduleJobs(cfg *config.AppConfig, deps *Dependencies) error {
	if !cfg.Scheduler.Enabled {
		deps.Logger.Info("Scheduler disabled")
		return nil
	}
	jobService := deps.Services.JobService
	siteURL := deps.Gateways.SiteURL
	err := deps.Services.Scheduler.AddJob("rls-sync", cfg.Scheduler.RLSSyncCron, func() {
		job, err := jobService.StartJob(jobsdom.JobTypeRLSSync, jobsdom.RLSSyncJobContext{SiteURL: siteURL, Scheduled: true})
		if errors.Is(err, application.ErrJobAlreadyRunning) {
			deps.Logger.Info("Scheduled RLS sync skipped, one is already running")
			return
		}
		if err != nil {
			deps.Logger.Error("Scheduled RLS sync failed to start", "error", err)
			return
		}
		deps.Logger.Info("Scheduled RLS sync started", "job_id", job.ID)
	})
	if err != nil {
		return err
	}
	deps.Services.Scheduler.Start()
	return nil
}

// buildDependencies creates all application dependencies
func buildDependencies(appCtx context.Context, cfg *config.AppConfig, db *database.Database, logger *logging.Logger) (*Dependencies, error) {
	gw, err := buildGateways(appCtx, cfg, logger)
	if err != nil {
		return nil, err
	}
	services := buildApplicationServices(cfg, db, gw)
	presentation := buildPresentationLayer(appCtx, cfg, gw, services)

	deps := &Dependencies{
		DB:           db,
		Logger:       logger,
		Gateways:     gw,
		Services:     services,
		Presentation: presentation,
	}

	// A bad license is reported on each request, not at startup
	if _, err := services.LicenseService.License(appCtx); err != nil {
		logger.Licensing("License check failed at startup", "error", err)
	}
	if err := scheduleJobs(cfg, deps); err != nil {
		return nil, err
	}
	return deps, nil
}

func setupRoutes(deps *Dependencies, cfg *config.AppConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	setupHTTPLogging(r, deps, cfg)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// System endpoints
	setupSystemRoutes(r, deps)

	r.Route("/api", func(api chi.Router) {
		if cfg.HTTP.RequestsPerMinute > 0 {
			api.Use(httprate.LimitByIP(cfg.HTTP.RequestsPerMinute, time.Minute))
		}
		api.Use(deps.Presentation.Auth.Authenticate)

		// Caller identity answers even without a license so clients can explain why
		api.Get("/me", deps.Presentation.IdentityHandlers.Me)

		api.Group(func(licensed chi.Router) {
			licensed.Use(handlers.RequireLicense(deps.Services.LicenseService))
			setupEntityRoutes(licensed, deps)
			setupFileRoutes(licensed, deps)
			setupJobRoutes(licensed, deps)
			setupAnalyticsRoutes(licensed, deps)
		})
	})

	return r
}

func setupHTTPLogging(r *chi.Mux, deps *Dependencies, cfg *config.AppConfig) {
	if cfg.HTTPLogPath == "" {
		// No HTTP logging configured, skip
		return
	}

	logFile, err := os.OpenFile(cfg.HTTPLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		deps.Logger.Error("Failed to open HTTP log file", "error", err, "path", cfg.HTTPLogPath)
		return
	}
	// Note: logFile is not closed here as it needs to stay open for the server lifetime

	httpLogger := httplog.NewLogger("nppflow", httplog.Options{
		Writer: logFile,
		JSON:   true,
	})
	r.Use(httplog.RequestLogger(httpLogger))

	deps.Logger.Info("HTTP request logging enabled", "path", cfg.HTTPLogPath)
}

func setupSystemRoutes(r *chi.Mux, deps *Dependencies) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.DB.Health()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		response := map[string]interface{}{
			"status":      "ok",
			"database":    stats,
			"sse_clients": deps.Presentation.SSEManager.ClientCount(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	r.Get("/events", deps.Presentation.SSEManager.HandleSSEConnection)
}

func setupEntityRoutes(r chi.Router, deps *Dependencies) {
	entities := deps.Presentation.EntityHandlers
	groups := deps.Presentation.GroupHandlers

	ownerOnly := handlers.RequireEntityOwner(deps.Services.PermissionService)

	r.Post("/entities", entities.CreateEntity)
	r.Route("/entities/{entityID}", func(r chi.Router) {
		r.Get("/", entities.GetEntity)
		r.Post("/initialize", entities.InitializeEntity)
		r.Get("/progress", entities.Progress)
		r.Get("/next-stage", entities.NextStage)
		r.With(ownerOnly).Post("/advance", entities.AdvanceStage)
		r.With(ownerOnly).Post("/complete", entities.CompleteEntity)
		r.With(ownerOnly).Post("/archive", entities.ArchiveEntity)

		r.Get("/geographies", entities.Geographies)
		r.Post("/geographies", entities.AddGeography)
		r.Delete("/geographies/{entityGeographyID}", entities.RemoveGeography)

		r.With(ownerOnly).Put("/groups/{groupName}/members", groups.SetMembers)

		r.Get("/forecast-cycles", entities.ForecastCycles)
		r.With(ownerOnly).Post("/forecast-cycles", entities.StartRollover)
	})

	r.Post("/actions/{actionID}/complete", entities.CompleteAction)
	r.Get("/groups/{groupName}/members", groups.Members)
}

func setupFileRoutes(r chi.Router, deps *Dependencies) {
	files := deps.Presentation.FileHandlers

	r.Get("/entities/{entityID}/files", files.ListFiles)
	r.Post("/entities/{entityID}/files", files.Upload)
	r.Post("/entities/{entityID}/files/refresh", files.RefreshFolder)

	r.Post("/files/submit", files.Submit)
	r.Post("/files/approve", files.Approve)
	r.Post("/files/reject", files.Reject)
	r.Post("/files/comment", files.Comment)
}

func setupJobRoutes(r chi.Router, deps *Dependencies) {
	jobs := deps.Presentation.JobHandlers

	r.Get("/jobs", jobs.ListJobs)
	r.Get("/jobs/{jobID}", jobs.GetJobStatus)
	r.Post("/jobs/{jobID}/cancel", jobs.CancelJob)
}

func setupAnalyticsRoutes(r chi.Router, deps *Dependencies) {
	analytics := deps.Presentation.AnalyticsHandlers

	r.Get("/analytics/reports", analytics.Reports)
	r.Get("/analytics/reports/{reportID}/pages", analytics.Pages)
	r.Get("/analytics/reports/{reportID}/embed", analytics.Embed)
	r.Post("/analytics/rls-sync", analytics.StartRLSSync)
	r.Get("/users/{email}/photo", analytics.UserPhoto)
}

func startServer(router *chi.Mux, cfg *config.AppConfig, logger *logging.Logger, deps *Dependencies, appCancel context.CancelFunc) {
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sig
		logger.Info("Shutdown signal received")

		// Cancel app-wide context first to signal all services to shutdown
		logger.Info("Cancelling app context...")
		appCancel()

		// Close SSE connections immediately
		logger.Info("Closing SSE connections...")
		deps.Presentation.SSEManager.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(serverCtx, cfg.HTTP.ShutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				logger.Error("Graceful shutdown timed out, forcing exit")
				os.Exit(1)
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			os.Exit(1)
		}

		<-deps.Services.Scheduler.Stop().Done()
		deps.Services.Refresher.Close()
		deps.Services.JobService.Shutdown()
		serverStopCtx()
	}()

	logger.Info("Server starting", "address", cfg.HTTPAddr)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	<-serverCtx.Done()
	logger.Info("Server stopped")
}
