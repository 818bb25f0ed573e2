package allocation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSeed = `
[[operators]]
key = "alice"
status = "ACTIVE"
active_appeals_limit = 3

[[operators]]
key = "bob"
status = "INACTIVE"
active_appeals_limit = 1

[[lead_sources]]
type = "BOT"

[[lead_sources.operators]]
operator = "alice"
routing_factor = 10

[[lead_sources.operators]]
operator = "bob"
routing_factor = 1
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestLoadSeedProfile(t *testing.T) {
	profile, err := LoadSeedProfile(writeSeedFile(t, sampleSeed))
	if err != nil {
		t.Fatalf("LoadSeedProfile() error = %v", err)
	}
	if len(profile.Operators) != 2 {
		t.Fatalf("operators = %d, want 2", len(profile.Operators))
	}
	if len(profile.LeadSources) != 1 || len(profile.LeadSources[0].Operators) != 2 {
		t.Fatalf("lead sources = %+v", profile.LeadSources)
	}
	if profile.LeadSources[0].Operators[0].RoutingFactor != 10 {
		t.Fatalf("routing_factor = %d, want 10", profile.LeadSources[0].Operators[0].RoutingFactor)
	}
}

func TestLoadSeedProfileValidation(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "duplicate key",
			content: `
[[operators]]
key = "alice"
status = "ACTIVE"
[[operators]]
key = "alice"
status = "ACTIVE"
`,
			wantErr: "duplicated",
		},
		{
			name: "bad status",
			content: `
[[operators]]
key = "alice"
status = "BUSY"
`,
			wantErr: "alice",
		},
		{
			name: "unknown binding",
			content: `
[[operators]]
key = "alice"
status = "ACTIVE"
[[lead_sources]]
type = "BOT"
[[lead_sources.operators]]
operator = "carol"
routing_factor = 1
`,
			wantErr: "unknown operator",
		},
		{
			name: "negative factor",
			content: `
[[operators]]
key = "alice"
status = "ACTIVE"
[[lead_sources]]
type = "BOT"
[[lead_sources.operators]]
operator = "alice"
routing_factor = -1
`,
			wantErr: "must not be negative",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := LoadSeedProfile(writeSeedFile(t, testCase.content))
			if err == nil {
				t.Fatalf("LoadSeedProfile() error = nil, want %q", testCase.wantErr)
			}
			if !strings.Contains(err.Error(), testCase.wantErr) {
				t.Fatalf("LoadSeedProfile() error = %v, want containing %q", err, testCase.wantErr)
			}
		})
	}
}

func TestApplySeedCreatesRoutingSetup(t *testing.T) {
	fixture := setupAllocation(t, DefaultConfig())
	ctx := context.Background()

	profile, err := LoadSeedProfile(writeSeedFile(t, sampleSeed))
	if err != nil {
		t.Fatalf("LoadSeedProfile() error = %v", err)
	}

	result, err := fixture.service.ApplySeed(ctx, profile)
	if err != nil {
		t.Fatalf("ApplySeed() error = %v", err)
	}
	if result.Operators != 2 || result.LeadSources != 1 || result.Bindings != 2 {
		t.Fatalf("ApplySeed() = %+v", result)
	}

	operators, err := fixture.repo.ListOperators(ctx)
	if err != nil {
		t.Fatalf("ListOperators() error = %v", err)
	}
	if len(operators) != 2 {
		t.Fatalf("ListOperators() len = %d, want 2", len(operators))
	}

	// Only the ACTIVE operator with spare capacity is routable.
	candidates, err := fixture.repo.ListCandidates(ctx, 1)
	if err != nil {
		t.Fatalf("ListCandidates() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("ListCandidates() len = %d, want 1", len(candidates))
	}
	if candidates[0].RoutingFactor != 10 {
		t.Fatalf("routing_factor = %d, want 10", candidates[0].RoutingFactor)
	}
}
