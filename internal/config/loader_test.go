package config_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/okian/huddle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"HUDDLE_CONFIG",
		"HUDDLE_LOG_LEVEL",
		"HUDDLE_ADDR",
		"HUDDLE_AUTH_SECRET",
		"HUDDLE_AUTH_ISSUER",
		"HUDDLE_SEND_BUFFER",
		"HUDDLE_ASSIGN_QUEUE_SIZE",
		"HUDDLE_ASSIGN_WORKER_COUNT",
		"HUDDLE_SUGGESTION_LIMIT",
		"HUDDLE_REPLAY_CACHE_SIZE",
		"HUDDLE_HELP_REQUEST_TTL_MS",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.Addr, convey.ShouldEqual, ":8090")
				convey.So(cfg.AuthSecret, convey.ShouldBeEmpty)
				convey.So(cfg.AuthIssuer, convey.ShouldEqual, "huddle")
				convey.So(cfg.SendBuffer, convey.ShouldEqual, 64)
				convey.So(cfg.AssignQueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.AssignWorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
				convey.So(cfg.SuggestionLimit, convey.ShouldEqual, 10)
				convey.So(cfg.ReplayCacheSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.HelpRequestTTLMS, convey.ShouldEqual, 15*60*1000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars()
			_ = os.Setenv("HUDDLE_ADDR", ":7070")
			_ = os.Setenv("HUDDLE_AUTH_SECRET", "env-secret")
			_ = os.Setenv("HUDDLE_SEND_BUFFER", "128")
			_ = os.Setenv("HUDDLE_ASSIGN_WORKER_COUNT", "3")
			_ = os.Setenv("HUDDLE_HELP_REQUEST_TTL_MS", "60000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.AuthSecret, convey.ShouldEqual, "env-secret")
				convey.So(cfg.SendBuffer, convey.ShouldEqual, 128)
				convey.So(cfg.AssignWorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.HelpRequestTTLMS, convey.ShouldEqual, 60000)
				convey.So(cfg.SuggestionLimit, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			clearConfigEnvVars()
			yamlContent := `
addr: ":6060"
auth_secret: "file-secret"
suggestion_limit: 5
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("HUDDLE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the file values override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
				convey.So(cfg.AuthSecret, convey.ShouldEqual, "file-secret")
				convey.So(cfg.SuggestionLimit, convey.ShouldEqual, 5)
				convey.So(cfg.SendBuffer, convey.ShouldEqual, 64)
			})

			convey.Convey("And env vars still win over the file", func() {
				_ = os.Setenv("HUDDLE_AUTH_SECRET", "env-wins")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.AuthSecret, convey.ShouldEqual, "env-wins")
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			clearConfigEnvVars()
			_ = os.Setenv("HUDDLE_CONFIG", "/nonexistent/config.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
			})
		})

		convey.Convey("When validation fails", func() {
			clearConfigEnvVars()
			defer clearConfigEnvVars()

			convey.Convey("Then an empty addr is rejected", func() {
				_ = os.Setenv("HUDDLE_ADDR", "")
				_, err := config.Load(ctx)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})

			convey.Convey("And a non-positive send buffer is rejected", func() {
				_ = os.Setenv("HUDDLE_SEND_BUFFER", "0")
				_, err := config.Load(ctx)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})

			convey.Convey("And a negative help request TTL is rejected", func() {
				_ = os.Setenv("HUDDLE_HELP_REQUEST_TTL_MS", "-1")
				_, err := config.Load(ctx)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})
	})
}
