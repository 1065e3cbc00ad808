package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "GOSIO"

const (
	addrKey         = "addr"
	pathKey         = "path"
	namespacesKey   = "namespaces"
	pingIntervalKey = "ping_interval"
	pingTimeoutKey  = "ping_timeout"
	maxPayloadKey   = "max_payload"
	queueSizeKey    = "queue_size"
	idFormatKey     = "id_format"
	logLevelKey     = "log_level"
)

type settings struct {
	Addr         string
	Path         string
	Namespaces   []string
	PingInterval time.Duration
	PingTimeout  time.Duration
	MaxPayload   int64
	QueueSize    int
	IDFormat     string
	LogLevel     string
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "gosio",
		Short:        "Socket.IO websocket server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), s)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./gosio.yaml)")
	flags.String("addr", ":8080", "listen address")
	flags.String("path", "/ws", "websocket endpoint path")
	flags.StringSlice("namespaces", []string{"/"}, "namespaces to create at startup")
	flags.Duration("ping-interval", 5*time.Second, "heartbeat probe interval")
	flags.Duration("ping-timeout", 10*time.Second, "close connections silent for longer than this")
	flags.Int64("max-payload", 1e6, "maximum inbound frame size in bytes")
	flags.Int("queue-size", 256, "outbound frames buffered per connection")
	flags.String("id-format", "uuid", "connection id format (uuid|ulid)")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")

	for key, flag := range map[string]string{
		addrKey:         "addr",
		pathKey:         "path",
		namespacesKey:   "namespaces",
		pingIntervalKey: "ping-interval",
		pingTimeoutKey:  "ping-timeout",
		maxPayloadKey:   "max-payload",
		queueSizeKey:    "queue-size",
		idFormatKey:     "id-format",
		logLevelKey:     "log-level",
	} {
		v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

// initConfig reads .env, GOSIO_* environment variables and an optional
// yaml config file into v.
func initConfig(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("gosio")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func loadSettings(v *viper.Viper) (settings, error) {
	s := settings{
		Addr:         v.GetString(addrKey),
		Path:         v.GetString(pathKey),
		Namespaces:   v.GetStringSlice(namespacesKey),
		PingInterval: v.GetDuration(pingIntervalKey),
		PingTimeout:  v.GetDuration(pingTimeoutKey),
		MaxPayload:   v.GetInt64(maxPayloadKey),
		QueueSize:    v.GetInt(queueSizeKey),
		IDFormat:     v.GetString(idFormatKey),
		LogLevel:     v.GetString(logLevelKey),
	}

	if !strings.HasPrefix(s.Path, "/") {
		return settings{}, fmt.Errorf("path %q must start with '/'", s.Path)
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		return settings{}, err
	}
	return s, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

func newLogger(level string) *slog.Logger {
	lvl, err := parseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
