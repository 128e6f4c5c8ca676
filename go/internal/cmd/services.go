package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/mcdev12/quizbowl/go/internal/events"
	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/mcdev12/quizbowl/go/internal/gateway"
	"github.com/mcdev12/quizbowl/go/internal/identity"
	"github.com/mcdev12/quizbowl/go/internal/models"
	"github.com/mcdev12/quizbowl/go/internal/packets"
	"github.com/mcdev12/quizbowl/go/internal/rules"
	"github.com/mcdev12/quizbowl/go/internal/scoring"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Game      *game.Service
	Gateway   *gateway.Service
	Persister *scoring.Persister
	DB        *sql.DB
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Rules → Ledger (+ persistence) → Game → Gateway

	registry, err := rules.Load(config.Rules.SchemaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	for _, name := range config.Rules.Formats {
		format, err := models.ParseFormat(name)
		if err != nil {
			return nil, &rules.ConfigurationError{Format: models.Format(name), Reason: "rules.formats", Err: err}
		}
		if _, err := registry.Engine(format); err != nil {
			return nil, err
		}
	}

	roster, err := identity.LoadRoster(config.Identity.RosterFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	var provider packets.Provider = packets.StaticProvider{}
	if config.Packets.Dir != "" {
		provider = packets.NewDirProvider(config.Packets.Dir)
	}

	services := &Services{}
	ledgerOpts := []scoring.Option{}
	var repo *scoring.Repository
	if config.Persistence.Enabled {
		database, r, persister, err := setupPersistence(ctx, config)
		if err != nil {
			return nil, err
		}
		services.DB = database
		services.Persister = persister
		repo = r
		ledgerOpts = append(ledgerOpts, scoring.WithSink(persister))
	}
	ledger := scoring.NewLedger(registry, ledgerOpts...)
	if repo != nil {
		if err := restoreScores(ctx, repo, ledger, config.Persistence.Tournaments); err != nil {
			services.DB.Close()
			return nil, err
		}
	}

	gwConfig := gateway.DefaultConfig()
	gwConfig.Mode = config.Broadcast.Mode
	gwConfig.Publisher.URL = config.Broadcast.NATSURL
	gwConfig.Consumer.URL = config.Broadcast.NATSURL
	gwConfig.Consumer.ConsumerName = consumerName(config.Broadcast.ConsumerName)
	gw, err := gateway.NewService(ctx, gwConfig)
	if err != nil {
		if services.DB != nil {
			services.DB.Close()
		}
		return nil, err
	}
	services.Gateway = gw

	services.Game = game.NewService(game.Config{
		Rules:       registry,
		Packets:     provider,
		Ledger:      ledger,
		Directory:   roster,
		Broadcaster: game.MultiBroadcaster{gw.Broadcaster(), game.BroadcasterFunc(traceNotification)},
		Arbiter:     config.arbiterConfig(),
	})
	gw.Bind(services.Game)

	log.Info().
		Strs("formats", formatNames(registry.Formats())).
		Str("broadcast_mode", gwConfig.Mode).
		Bool("persistence", config.Persistence.Enabled).
		Msg("services configured")
	return services, nil
}

func traceNotification(n events.Notification) {
	log.Trace().
		Str("room_id", n.RoomID).
		Str("type", string(n.Type)).
		Str("target", n.Target).
		Msg("room notification")
}

// consumerName defaults to one durable consumer per host so every gateway
// instance sees every room event.
func consumerName(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "quiz-gateway"
	}
	return "quiz-gateway-" + strings.NewReplacer(".", "-", " ", "-").Replace(host)
}

func formatNames(formats []models.Format) []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}
