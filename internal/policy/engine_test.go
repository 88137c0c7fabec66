package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	e, err := Load(ctx, "")
	require.NoError(t, err)

	tests := []struct {
		action string
		role   string
		want   bool
	}{
		{ActionCertificateGenerate, "student", true},
		{ActionCertificateGenerate, "", true},
		{ActionProfileRead, "mentor", true},
		{ActionProfileOnboard, "student", true},
		{ActionAIChat, "student", true},
		{ActionAINotes, "instructor", true},
		{ActionAIRoadmap, "mentor", true},
		{ActionAuditRead, "instructor", true},
		{ActionAuditRead, "student", false},
		{ActionAuditRead, "mentor", false},
	}
	for _, tt := range tests {
		t.Run(tt.action+"/"+tt.role, func(t *testing.T) {
			ok, err := e.Allow(ctx, Input{Action: tt.action, Role: tt.role})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestLoad_CustomPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarded.rego")
	policy := `package certify.authz

default allow = false

allow {
	input.onboarded
}
`
	require.NoError(t, os.WriteFile(path, []byte(policy), 0o600))

	e, err := Load(context.Background(), path)
	require.NoError(t, err)

	ok, err := e.Allow(context.Background(), Input{Action: ActionAIChat, Onboarded: false})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Allow(context.Background(), Input{Action: ActionAIChat, Onboarded: true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)

	_, err = NewEngine(context.Background(), "package broken\nallow {")
	assert.Error(t, err)
}

func TestAllow_UndefinedDenies(t *testing.T) {
	e, err := NewEngine(context.Background(), "package certify.authz\n\nallow { input.role == \"root\" }\n")
	require.NoError(t, err)

	ok, err := e.Allow(context.Background(), Input{Role: "student"})
	require.NoError(t, err)
	assert.False(t, ok)
}
