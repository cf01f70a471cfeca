package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/sessionrag"
	"github.com/poiesic/sessionrag/ai/mock"
	"github.com/poiesic/sessionrag/config"
)

func findCommand(t *testing.T, commands []*cli.Command, name string) *cli.Command {
	t.Helper()
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	for _, name := range []string{"serve", "session", "save", "search", "ask", "reembed"} {
		t.Run(name, func(t *testing.T) {
			findCommand(t, app.Commands, name)
		})
	}

	session := findCommand(t, app.Commands, "session")
	for _, name := range []string{"create", "list", "delete"} {
		findCommand(t, session.Subcommands, name)
	}
}

func TestNewApp_RequiredFlags(t *testing.T) {
	dir := t.TempDir()
	base := []string{
		"sessionrag",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"save needs session", []string{"save", "hello"}, "session"},
		{"search needs session", []string{"search", "hello"}, "session"},
		{"ask needs session", []string{"ask", "hello"}, "session"},
		{"session create needs name", []string{"session", "create"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newApp().Run(append(append([]string{}, base...), tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReembedFlagDefaults(t *testing.T) {
	cmd := findCommand(t, newApp().Commands, "reembed")

	values := map[string]int{}
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.IntFlag); ok {
			values[f.Name] = f.Value
		}
	}
	assert.Equal(t, 100, values["batch-size"])
	assert.Equal(t, 100, values["report-interval"])
	assert.Equal(t, 3, values["max-retries"])
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}

	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			app := &cli.App{
				Name: "test",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "log-level", Value: tt.input},
				},
				Action: func(c *cli.Context) error {
					return setupLogger(c)
				},
			}

			err := app.Run([]string{"test"})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.True(t, slog.Default().Enabled(context.Background(), tt.expected))
			if tt.expected > slog.LevelDebug {
				assert.False(t, slog.Default().Enabled(context.Background(), tt.expected-1))
			}
		})
	}
}

func TestSetup_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "sessionrag.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("retrieval:\n  top_k: 9\n"), 0o644))

	var loaded *config.AppConfig
	app := newApp()
	app.Commands = []*cli.Command{{
		Name: "probe",
		Action: func(c *cli.Context) error {
			loaded = appConfig(c)
			return nil
		},
	}}

	err := app.Run([]string{"sessionrag", "--config", configPath, "--env-file", filepath.Join(dir, "none.env"), "probe"})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 9, loaded.Retrieval.TopK)
	assert.InDelta(t, 0.7, loaded.Retrieval.VectorWeight, 1e-9)
}

func TestJoinedArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"single", []string{"hello"}, "hello", false},
		{"several", []string{"where", "is", "the", "key"}, "where is the key", false},
		{"blank", []string{"  "}, "", true},
		{"none", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			var gotErr error
			app := &cli.App{
				Name: "test",
				Action: func(c *cli.Context) error {
					got, gotErr = joinedArgs(c, "text")
					return nil
				},
			}
			require.NoError(t, app.Run(append([]string{"test"}, tt.args...)))

			if tt.wantErr {
				assert.ErrorIs(t, gotErr, errMissingArgument)
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildComponents(t *testing.T) {
	cfg := config.Default()
	cfg.Retrieval.TopK = 2

	comp, err := buildComponents(cfg, sessionrag.WithInMemory(), sessionrag.WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer comp.Close()

	ctx := context.Background()
	session, err := comp.sessions.CreateSession(ctx, "cli", "")
	require.NoError(t, err)

	for _, text := range []string{"alpha beta", "gamma delta", "alpha gamma"} {
		_, err := comp.sessions.AddConversation(ctx, session.Id, text, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, comp.engine.DefaultTopK())
	results, err := comp.engine.RetrieveDefault(ctx, "alpha beta", session.Id)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha beta", results[0])

	answer, err := comp.answerer.Answer(ctx, "alpha?", session.Id)
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultResponse, answer)
}
