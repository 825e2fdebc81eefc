package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

type mockCodeRepo struct {
	maxCode string
	err     error
	prefix  string
}

func (m *mockCodeRepo) MaxCodeForPrefix(ctx context.Context, prefix string) (string, error) {
	m.prefix = prefix
	return m.maxCode, m.err
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
}

func TestPrefixForTypeName(t *testing.T) {
	assert.Equal(t, "DP", PrefixForTypeName("Neighbor Dispute"))
	assert.Equal(t, "DP", PrefixForTypeName("property dispute resolution"))
	assert.Equal(t, "LA", PrefixForTypeName("Legal Consultation"))
	assert.Equal(t, "TK", PrefixForTypeName("Other"))
	assert.Equal(t, "TK", PrefixForTypeName(""))
}

func TestTaskCodeFirstOfDay(t *testing.T) {
	repo := &mockCodeRepo{maxCode: ""}
	gen := NewTaskCodeGenerator(repo)
	gen.now = fixedClock

	code, err := gen.Next(context.Background(), "Neighbor Dispute")
	require.NoError(t, err)
	assert.Equal(t, "DP202601150001", code)
	assert.Equal(t, "DP20260115", repo.prefix)
}

func TestTaskCodeIncrementsSequence(t *testing.T) {
	repo := &mockCodeRepo{maxCode: "DP202601150042"}
	gen := NewTaskCodeGenerator(repo)
	gen.now = fixedClock

	code, err := gen.Next(context.Background(), "Neighbor Dispute")
	require.NoError(t, err)
	assert.Equal(t, "DP202601150043", code)
}

func TestTaskCodeIgnoresMalformedMax(t *testing.T) {
	repo := &mockCodeRepo{maxCode: "DP2026011"}
	gen := NewTaskCodeGenerator(repo)
	gen.now = fixedClock

	code, err := gen.Next(context.Background(), "Neighbor Dispute")
	require.NoError(t, err)
	assert.Equal(t, "DP202601150001", code)
}

func TestTaskCodeSequenceExhausted(t *testing.T) {
	repo := &mockCodeRepo{maxCode: "DP202601159999"}
	gen := NewTaskCodeGenerator(repo)
	gen.now = fixedClock

	_, err := gen.Next(context.Background(), "Neighbor Dispute")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCodeExhausted.Code, appErr.Code)
}
