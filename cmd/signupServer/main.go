package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signup/config"
	"signup/internal/db"
	"signup/internal/enrichment"
	"signup/internal/events"
	"signup/internal/identity"
	"signup/internal/nats"
	"signup/internal/registry"
	"signup/internal/roblox"
	"signup/internal/server"
	"signup/internal/signup"
	temporal "signup/internal/workflow"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)

	var bus events.Bus
	if cfg.NATS.Enabled() {
		natsConn, js, err := nats.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()

		if err := nats.ConfigureStream(js, &cfg.NATS.Stream); err != nil {
			log.Fatalf("Failed to configure JetStream: %v", err)
		}
		bus = nats.NewBus(natsConn, js)
	} else {
		log.Printf("NATS not configured, using in-process notifications")
		bus = events.NewLocalBus()
	}

	gateway := registry.NewGateway(store, bus)
	provider := roblox.NewClient(&cfg.Roblox)
	verifier := identity.NewVerifier(provider)
	job := enrichment.NewJob(gateway, provider, gateway, cfg.Signup.SupportedPlatform)

	trigger, stopEnrichment := startEnrichment(cfg, job)
	defer stopEnrichment()
	sub, err := attachTrigger(cfg, trigger, bus)
	if err != nil {
		log.Fatalf("Failed to subscribe enrichment trigger: %v", err)
	}
	if sub != nil {
		defer sub.Unsubscribe()
	}

	sessions := signup.NewSessions(verifier, clockwork.NewRealClock(), cfg.Signup.DebounceDelay, cfg.Signup.SessionIdle)
	sweeper, err := sessions.StartSweeper(time.Minute)
	if err != nil {
		log.Fatalf("Failed to start session sweeper: %v", err)
	}
	defer sweeper.Shutdown()

	srv := server.New(server.Options{
		Gateway:     gateway,
		Verifier:    verifier,
		Sessions:    sessions,
		Enricher:    job,
		Bus:         bus,
		DefaultLang: cfg.I18n.DefaultLang,
	})
	if err := server.StartServer(ctx, &cfg.Server, srv); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	trigger.Wait()
}

// openStore connects to postgres, or falls back to a seeded in-memory store
// when no database is configured.
func openStore(cfg *config.Config) registry.Store {
	if !cfg.Database.Enabled() {
		log.Printf("Database not configured, running in demo mode")
		mem := registry.NewMemoryStore(db.DefaultTournaments...)
		mem.SeedDemo("pvp")
		return mem
	}

	if _, err := db.InitDB(&cfg.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := db.Seed(db.DefaultTournaments); err != nil {
		log.Fatalf("Failed to seed tournaments: %v", err)
	}
	return registry.NewGormStore(db.GetDB())
}

// attachTrigger subscribes the enrichment trigger to insert events unless the
// deployment relies on datastore webhooks. It returns nil when disabled.
func attachTrigger(cfg *config.Config, trigger *temporal.Trigger, bus events.Bus) (events.Subscription, error) {
	if !cfg.Signup.InternalTrigger {
		log.Printf("Internal enrichment trigger disabled, relying on datastore webhooks")
		return nil, nil
	}
	return trigger.Subscribe(bus, cfg.NATS.Stream.Consumer)
}

// startEnrichment runs enrichment through Temporal when it is configured and
// in-process otherwise.
func startEnrichment(cfg *config.Config, job *enrichment.Job) (*temporal.Trigger, func()) {
	if !cfg.Temporal.Enabled() {
		log.Printf("Temporal not configured, enrichment runs in-process")
		return temporal.NewTrigger(nil, &cfg.Temporal, job), func() {}
	}

	c, err := temporal.Dial(&cfg.Temporal)
	if err != nil {
		log.Fatalf("%v", err)
	}
	w, err := temporal.StartWorker(c, &cfg.Temporal, &temporal.Activities{Enricher: job})
	if err != nil {
		log.Fatalf("%v", err)
	}
	return temporal.NewTrigger(c, &cfg.Temporal, job), func() {
		w.Stop()
		c.Close()
	}
}
