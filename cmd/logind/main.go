package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"auroragrid.io/internal/admission"
	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/auth"
	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/persistence/griddb"
	persistlog "auroragrid.io/internal/persistence/log"
	"auroragrid.io/internal/simhost"
	"auroragrid.io/internal/transport/httpd"
)

func main() {
	var (
		addr           = flag.String("addr", ":8002", "http listen address")
		configPath     = flag.String("config", "./configs/grid.yaml", "grid config path")
		dataDir        = flag.String("data", "./data", "runtime data directory")
		assetsURL      = flag.String("assets", "http://127.0.0.1:8003", "asset service base url")
		identityURL    = flag.String("identity", "", "identity service base url (overrides config)")
		attemptTimeout = flag.Duration("attempt_timeout", 15*time.Second, "per-region agent creation timeout")
		disableAudit   = flag.Bool("disable_audit", false, "disable the admission audit log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[logind] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := grid.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *identityURL != "" {
		cfg.IdentityURL = *identityURL
	}
	if cfg.IdentityURL == "" {
		logger.Fatalf("no identity service configured (set identity_url or -identity)")
	}

	tosText, err := cfg.TOSText()
	if err != nil {
		logger.Fatalf("load tos: %v", err)
	}

	store, err := griddb.Open(filepath.Join(*dataDir, "grid.db"))
	if err != nil {
		logger.Fatalf("open grid db: %v", err)
	}
	defer store.Close()

	catalog := cfg.Catalog()
	policy := grid.NewPolicy(cfg)
	identity := auth.NewHTTPIdentity(cfg.IdentityURL, 10*time.Second)
	assets := appearance.NewHTTPAssetStore(*assetsURL, 10*time.Second)

	gate := auth.NewGate(identity, policy, auth.GateConfig{
		AllowAnonymous: cfg.AllowAnonymous,
		TOSRequired:    cfg.TOS.Required,
		TOSVersion:     cfg.TOS.Version,
		TOSText:        tosText,
		ViewerAllow:    compilePatterns(cfg.ViewerAllow),
		ViewerDeny:     compilePatterns(cfg.ViewerDeny),
	}, logger)

	validator := appearance.NewValidator(assets, store, logger)
	bootstrap := admission.NewBootstrap(store, validator, cfg.RequireInventory, cfg.DefaultArchive, logger)
	resolver := admission.NewResolver(catalog, simhost.NewHTTPGateway(10*time.Second), logger)
	caps := simhost.NewCapRegistry()
	provisioner := admission.NewProvisioner(simhost.NewHTTPConnector(*attemptTimeout), caps, *attemptTimeout, logger)
	finalizer := admission.NewFinalizer(store, policy, cfg, logger)

	feed := httpd.NewFeed(logger)
	sinks := []admission.AuditSink{feed}
	if !*disableAudit {
		audit := persistlog.NewAdmissionLogger(*dataDir)
		defer audit.Close()
		sinks = append(sinks, audit)
	}

	svc := admission.NewService(gate, bootstrap, resolver, provisioner, finalizer,
		store, admission.NewLockTable(), logger, sinks...)

	server := httpd.NewServer(svc, catalog, policy, caps, feed, logger)
	httpSrv := &http.Server{Addr: *addr, Handler: server.Routes()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("grid %s: listening on %s (%d regions)", cfg.GridName, *addr, len(catalog.All()))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

// compilePatterns trusts config validation; a pattern that fails here is a
// programming error.
func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
