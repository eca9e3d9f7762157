package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return s
}

// TestScenarios runs every scenario file and checks its assertions.
func TestScenarios(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		entry := entry
		t.Run(entry.Name(), func(t *testing.T) {
			s := loadScenario(t, entry.Name())
			result, err := Run(s)
			require.NoError(t, err)
			require.NoError(t, result.Check())
		})
	}
}

func TestGolden_WithdrawHappyPath(t *testing.T) {
	s := loadScenario(t, "withdraw-happy-path.yaml")
	require.NoError(t, RunWithGolden(t, s))
}

func TestGolden_ExpiredAction(t *testing.T) {
	s := loadScenario(t, "expired-action.yaml")
	require.NoError(t, RunWithGolden(t, s))
}

// TestRun_TraceIsDeterministic runs the same scenario twice and expects
// byte-identical snapshots.
func TestRun_TraceIsDeterministic(t *testing.T) {
	s := loadScenario(t, "withdraw-happy-path.yaml")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Snapshot(), second.Snapshot())
}

func TestLoadScenario_RejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: bad
description: typo in a field name
actors: {user: 1}
owner: user
flows:
  - op: execute
`), 0o600))

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenario_RejectsUnknownOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: bad
description: op does not exist
actors: {user: 1}
owner: user
flow:
  - op: teleport
assertions:
  - type: trace_count
    event: deposit
    count: 0
`), 0o600))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op")
}

func TestLoadScenario_RejectsUndeclaredOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: bad
description: owner is not in the actor map
actors: {user: 1}
owner: ghost
flow:
  - op: deposit
    from: user
    asset: CELO
    amount: 1
assertions:
  - type: balance
    owner: user
    asset: CELO
    amount: 1
`), 0o600))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a declared actor")
}

// TestRun_ExpectedRefusalMismatch ensures a step that was supposed to be
// refused fails the run when it succeeds.
func TestRun_ExpectedRefusalMismatch(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "refusal expectation not met",
		Actors:      map[string]int{"user": 1, "operator": 2},
		Owner:       "operator",
		Setup: []Step{
			{Op: "deposit", From: "user", Asset: "cUSD", Amount: 100},
		},
		Flow: []Step{
			{Op: "propose", As: "operator", User: "user", Kind: "withdraw",
				AssetIn: "cUSD", Amount: 50, Recipient: "user", Expect: "UNAUTHORIZED"},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Event: "action_proposed", Count: 1},
		},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected refusal")
}
