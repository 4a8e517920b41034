package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/avfomichev/slovobot/game"
)

// config holds every value the bot needs to start, bound from flags,
// environment variables (SLOVOBOT_*), and an optional config file, the way
// Seednode-partybox's Config binds PARTYBOX_* env vars over cobra flags.
type config struct {
	databaseURL    string
	databaseDriver string
	chatBaseURL    string
	defaultSetting string
	queryTimeout   time.Duration
	stopTimeout    time.Duration
	debug          bool
}

func (c *config) validate() error {
	switch {
	case len(c.databaseURL) == 0:
		return fmt.Errorf("--database-url is required")
	case len(c.chatBaseURL) == 0:
		return fmt.Errorf("--chat-base-url is required")
	case c.defaultSetting != string(game.SettingWords) && c.defaultSetting != string(game.SettingCities):
		return fmt.Errorf("--default-setting must be %q or %q", game.SettingWords, game.SettingCities)
	case c.queryTimeout <= 0:
		return fmt.Errorf("--query-timeout must be positive")
	case c.stopTimeout <= 0:
		return fmt.Errorf("--stop-timeout must be positive")
	}
	return nil
}

// newCmd builds the root cobra command, binding every flag to an
// SLOVOBOT_-prefixed environment variable via viper.
func newCmd(cfg *config, run func(cmd *cobra.Command, cfg *config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SLOVOBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "slovobot",
		Short:         "Runs the word-chain chat game bot.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.databaseURL, "database-url", "", "postgres connection string (env: SLOVOBOT_DATABASE_URL)")
	fs.StringVar(&cfg.databaseDriver, "database-driver", "postgres", "database/sql driver name (env: SLOVOBOT_DATABASE_DRIVER)")
	fs.StringVar(&cfg.chatBaseURL, "chat-base-url", "", "base URL of the outbound chat HTTP gateway (env: SLOVOBOT_CHAT_BASE_URL)")
	fs.StringVar(&cfg.defaultSetting, "default-setting", string(game.SettingWords), "setting title used for a lazily created game (env: SLOVOBOT_DEFAULT_SETTING)")
	fs.DurationVar(&cfg.queryTimeout, "query-timeout", 5*time.Second, "timeout applied to every store query (env: SLOVOBOT_QUERY_TIMEOUT)")
	fs.DurationVar(&cfg.stopTimeout, "stop-timeout", 10*time.Second, "time allowed for graceful shutdown (env: SLOVOBOT_STOP_TIMEOUT)")
	fs.BoolVar(&cfg.debug, "debug", false, "log every dispatched update (env: SLOVOBOT_DEBUG)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
