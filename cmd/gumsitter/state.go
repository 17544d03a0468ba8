package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gumsitter/pkg/cache"
	"github.com/Sumatoshi-tech/gumsitter/pkg/config"
	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
	"github.com/Sumatoshi-tech/gumsitter/pkg/translate"
	"github.com/Sumatoshi-tech/gumsitter/pkg/version"
)

// appState is shared by every subcommand: flags of the root command, the
// loaded configuration and the observability providers.
type appState struct {
	cfgFile string
	verbose bool

	mode      observability.AppMode
	cfg       *config.Config
	providers observability.Providers
}

func (s *appState) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(s.cfgFile)
	if err != nil {
		return err
	}

	s.cfg = cfg

	s.mode = modeFor(cmd)

	obsCfg, err := s.observabilityConfig(s.mode)
	if err != nil {
		return err
	}

	providers, err := observability.InitWithWriter(obsCfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	s.providers = providers

	return nil
}

func (s *appState) shutdown(ctx context.Context) error {
	if s.providers.Shutdown == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	err := s.providers.Shutdown(ctx)
	if err != nil {
		s.logger().Warn("observability shutdown failed", "error", err)
	}

	return nil
}

func (s *appState) observabilityConfig(mode observability.AppMode) (observability.Config, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = s.cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(s.cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = s.cfg.Telemetry.OTLPInsecure
	obsCfg.Environment = s.cfg.Telemetry.Environment
	obsCfg.SampleRatio = s.cfg.Telemetry.SampleRatio
	obsCfg.LogJSON = strings.EqualFold(s.cfg.Logging.Format, "json") || mode == observability.ModeMCP

	level, err := observability.ParseLevel(s.cfg.Logging.Level)
	if err != nil {
		return obsCfg, err
	}

	obsCfg.LogLevel = level

	if s.verbose {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	return obsCfg, nil
}

func (s *appState) logger() *slog.Logger {
	if s.providers.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return s.providers.Logger
}

// ruleset resolves the active rules: the --rules flag, then rules.file,
// then the embedded document.
func (s *appState) ruleset(rulesFlag string) (rewrite.Ruleset, error) {
	path := rulesFlag
	if path == "" && s.cfg != nil {
		path = s.cfg.Rules.File
	}

	if path == "" {
		return rewrite.DefaultRuleset(), nil
	}

	return loadRulesFile(path)
}

// translator builds a translator wired to the providers. Nil metrics
// leave translation metrics off. Long-running modes share a tree cache.
func (s *appState) translator(rules rewrite.Ruleset, metrics *observability.TranslationMetrics) *translate.Translator {
	opts := []translate.Option{
		translate.WithRuleset(rules),
		translate.WithLogger(s.logger()),
		translate.WithMetrics(metrics),
	}

	if s.cfg != nil && s.cfg.Cache.MaxBytes > 0 && s.mode != observability.ModeCLI {
		opts = append(opts, translate.WithCache(cache.NewLRU[*translate.Result](s.cfg.Cache.MaxBytes)))
	}

	if s.providers.Tracer != nil {
		opts = append(opts, translate.WithTracer(s.providers.Tracer))
	}

	return translate.New(opts...)
}

func loadRulesFile(path string) (rewrite.Ruleset, error) {
	content, resolved, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	rules, err := rewrite.ParseRuleset(content)
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", resolved, err)
	}

	return rules, nil
}

func modeFor(cmd *cobra.Command) observability.AppMode {
	switch cmd.Name() {
	case "mcp":
		return observability.ModeMCP
	case "serve":
		return observability.ModeServe
	default:
		return observability.ModeCLI
	}
}
