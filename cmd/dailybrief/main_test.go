package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/dailybrief/internal/testutil"
)

func Test_run(t *testing.T) {
	noEnv := func(string) string { return "" }
	getwd := func() (string, error) { return t.TempDir(), nil }

	port, err := testutil.RandomPort()
	require.NoError(t, err, "failed to get random port to start server")
	listenAddr := fmt.Sprintf("localhost:%d", port)

	t.Run("stop with signal", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
		}{
			{
				name: "memory storage",
				args: []string{"--storage", "memory"},
			},
			{
				name: "file storage",
				args: []string{"--storage", "file", "--data-dir", t.TempDir()},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
				t.Cleanup(cancel)

				err := run(ctx, noEnv, getwd, append([]string{
					"--address", listenAddr,
					"--log-level", "debug",
					"--secret-key", "secret",
					"--client-id", "client-id",
				}, tt.args...))

				require.NoError(t, err, "on correct stop should not return error")
			})
		}
	})

	t.Run("postgres storage", func(t *testing.T) {
		pg := testutil.StartPostgresContainer(t)
		t.Cleanup(pg.Terminate)

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		t.Cleanup(cancel)

		err := run(ctx, noEnv, getwd, []string{
			"--address", listenAddr,
			"--secret-key", "secret",
			"--client-id", "client-id",
			"--storage", "postgres",
			"--database", pg.DSN,
		})

		require.NoError(t, err, "on correct stop should not return error")
	})

	t.Run("fail on invalid config", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
		}{
			{
				name: "no secret key",
				args: []string{"--client-id", "client-id", "--storage", "memory"},
			},
			{
				name: "no oauth client",
				args: []string{"--secret-key", "secret", "--storage", "memory"},
			},
			{
				name: "postgres without database",
				args: []string{"--secret-key", "secret", "--client-id", "client-id", "--storage", "postgres"},
			},
			{
				name: "unknown timezone",
				args: []string{"--secret-key", "secret", "--client-id", "client-id", "--storage", "memory", "--timezone", "Mars/Olympus"},
			},
			{
				name: "unknown flag",
				args: []string{"--no-such-flag", "value"},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				t.Cleanup(cancel)

				err := run(ctx, noEnv, getwd, append([]string{"--address", listenAddr}, tt.args...))

				require.Error(t, err, "invalid config must stop run with error")
			})
		}
	})
}
