package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const bootstrapAttempts = 5

// Bootstrap waits for the backend API to answer and logs the dashboard's
// startup configuration. An unreachable backend is not fatal: pages report
// the outage until it comes back.
func (s *Server) Bootstrap(ctx context.Context) error {
	log.Info().Msg("🔧 Bootstrap: Checking backend API...")

	backoff := retry.WithMaxRetries(bootstrapAttempts-1, retry.NewExponential(500*time.Millisecond))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := s.client.Ping(ctx); err != nil {
			log.Warn().Int("attempt", attempt).Str("reason", apiclient.Message(err)).Msg("   Backend not ready")
			if apiclient.IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  Bootstrap: Backend API unreachable, continuing in degraded mode")
	} else {
		log.Info().Msg("✅ Bootstrap: Backend API reachable")
	}

	log.Info().Msg("📋 Dashboard Configuration:")
	log.Info().Msgf("   Environment:   %s", s.env)
	log.Info().Msgf("   Backend API:   %s", s.client.BaseURL())
	log.Info().Msgf("   API timeout:   %s", s.client.Timeout())
	log.Info().Msgf("   Session:       cookie %q, idle timeout %s", s.cookieName, s.cookieMaxAge)
	log.Info().Msgf("   Default theme: %s", s.defaultTheme)
	log.Info().Msgf("   Features:      %s", describeFeatures(s.features))
	if headers := s.config.GetBypassHeaders(); len(headers) > 0 {
		log.Info().Msgf("🔐 Bypass headers: %s", strings.Join(utils.SortedKeys(headers), ", "))
	}

	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("[Server.Bootstrap] %w", ctx.Err())
	}
	return nil
}

func describeFeatures(flags map[string]bool) string {
	parts := make([]string, 0, len(flags))
	for _, name := range utils.SortedKeys(flags) {
		state := "off"
		if flags[name] {
			state = "on"
		}
		parts = append(parts, name+"="+state)
	}
	return strings.Join(parts, " ")
}
