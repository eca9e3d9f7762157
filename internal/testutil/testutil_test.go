package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/sigver"
)

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	assert.Equal(t, Epoch, c.Now())

	c.Advance(time.Hour)
	assert.Equal(t, Epoch.Add(time.Hour), c.Now())

	at := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	c.Set(at)
	assert.Equal(t, at, c.Now())
}

func TestNewSigner_Deterministic(t *testing.T) {
	a := NewSigner(1)
	b := NewSigner(1)
	assert.Equal(t, a.Address, b.Address)

	c := NewSigner(2)
	assert.NotEqual(t, a.Address, c.Address)
}

func TestApproveSignature_Recovers(t *testing.T) {
	s := NewSigner(7)
	sig := s.ApproveSignature(42)

	recovered, err := sigver.RecoverSigner(sigver.CanonicalMessage(42, s.Address), sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address, recovered)
}
