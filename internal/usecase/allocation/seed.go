package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/domain/routing"
	"leadrouter/internal/errs"
)

// SeedProfile describes operators, lead sources and routing edges to create
// during init-db. Operators are referenced by key from lead source bindings.
type SeedProfile struct {
	Operators   []SeedOperator   `toml:"operators"`
	LeadSources []SeedLeadSource `toml:"lead_sources"`
}

type SeedOperator struct {
	Key                string `toml:"key"`
	Status             string `toml:"status"`
	ActiveAppealsLimit int    `toml:"active_appeals_limit"`
}

type SeedLeadSource struct {
	Type      string        `toml:"type"`
	Operators []SeedBinding `toml:"operators"`
}

type SeedBinding struct {
	Operator      string `toml:"operator"`
	RoutingFactor int64  `toml:"routing_factor"`
}

type SeedResult struct {
	Operators   int
	LeadSources int
	Bindings    int
}

func LoadSeedProfile(path string) (SeedProfile, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return SeedProfile{}, errors.New("seed file is required")
	}

	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return SeedProfile{}, errs.Wrap(err, "read seed file")
	}

	var profile SeedProfile
	if err := toml.Unmarshal(raw, &profile); err != nil {
		return SeedProfile{}, errs.Wrap(err, "parse seed file")
	}
	if err := validateSeedProfile(profile); err != nil {
		return SeedProfile{}, err
	}
	return profile, nil
}

func validateSeedProfile(profile SeedProfile) error {
	keys := make(map[string]bool, len(profile.Operators))
	for i, operator := range profile.Operators {
		key := strings.TrimSpace(operator.Key)
		if key == "" {
			return fmt.Errorf("operator %d: key is required", i)
		}
		if keys[key] {
			return fmt.Errorf("operator key %q is duplicated", key)
		}
		keys[key] = true

		if _, err := routing.ParseOperatorStatus(operator.Status); err != nil {
			return errs.Wrapf(err, "operator %q", key)
		}
		if operator.ActiveAppealsLimit < 0 {
			return fmt.Errorf("operator %q: active_appeals_limit must not be negative", key)
		}
	}

	for i, source := range profile.LeadSources {
		for _, binding := range source.Operators {
			key := strings.TrimSpace(binding.Operator)
			if !keys[key] {
				return fmt.Errorf("lead source %d: unknown operator key %q", i, key)
			}
			if binding.RoutingFactor < 0 {
				return fmt.Errorf("lead source %d: routing factor for %q must not be negative", i, key)
			}
		}
	}
	return nil
}

// ApplySeed creates the profile's operators, lead sources and routing edges
// in one transaction.
func (s *Service) ApplySeed(ctx context.Context, profile SeedProfile) (SeedResult, error) {
	if ctx == nil {
		return SeedResult{}, errors.New("context is required")
	}
	if err := validateSeedProfile(profile); err != nil {
		return SeedResult{}, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var result SeedResult
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		operatorIDs := make(map[string]uint64, len(profile.Operators))
		for _, seed := range profile.Operators {
			created, err := s.repo.CreateOperator(ctx, routing.Operator{
				Status:             routing.OperatorStatus(seed.Status),
				ActiveAppealsLimit: seed.ActiveAppealsLimit,
				CreatedAt:          now,
			})
			if err != nil {
				return err
			}
			operatorIDs[strings.TrimSpace(seed.Key)] = created.OperatorID
			result.Operators++
		}

		for _, seed := range profile.LeadSources {
			sourceType := routing.LeadSourceType(strings.TrimSpace(seed.Type))
			if sourceType == "" {
				sourceType = routing.LeadSourceBot
			}
			created, err := s.repo.CreateLeadSource(ctx, routing.LeadSource{
				Type:      sourceType,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			result.LeadSources++

			for _, binding := range seed.Operators {
				operatorID := operatorIDs[strings.TrimSpace(binding.Operator)]
				if err := s.repo.BindOperator(ctx, created.LeadSourceID, operatorID, binding.RoutingFactor); err != nil {
					return err
				}
				result.Bindings++
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "allocation")),
		"seed profile applied",
		slog.Int("operators", result.Operators),
		slog.Int("lead_sources", result.LeadSources),
		slog.Int("bindings", result.Bindings))
	return result, nil
}
