package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/lib/password"
)

func TestHashPasswordCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		wantErr bool
	}{
		{name: "argument", args: []string{"hash-password", "wingo-admin"}},
		{name: "stdin", args: []string{"hash-password"}, stdin: "wingo-admin\n"},
		{name: "empty stdin", args: []string{"hash-password"}, stdin: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			root := newRootCmd()
			root.SetArgs(tt.args)
			root.SetIn(strings.NewReader(tt.stdin))
			root.SetOut(&out)
			root.SetErr(&out)

			err := root.Execute()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			hash := strings.TrimSpace(out.String())
			assert.NoError(t, password.CompareHash(hash, "wingo-admin"))
		})
	}
}

func TestMigrateDownRejectsBadSteps(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "down", "zero"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps must be a positive number")
}

func TestRootCmdSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "notifier", "migrate", "hash-password"})
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		env        string
		debugLevel bool
	}{
		{env: envLocal, debugLevel: true},
		{env: envProd, debugLevel: false},
		{env: "dev", debugLevel: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			logger := setupLogger(tt.env)
			assert.Equal(t, tt.debugLevel, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}
