package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parleychat/parley/pkg/config"
	"github.com/parleychat/parley/pkg/logger"
	"github.com/parleychat/parley/pkg/tui"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Chat with a language model, sessions included",
	Long:  `A chat client with persistent sessions, streaming replies, and session search.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx := context.Background()

		if viper.GetBool("headless") {
			prompt := viper.GetString("prompt")
			if prompt == "" {
				fmt.Fprintln(os.Stderr, "Error: --headless requires --prompt")
				os.Exit(1)
			}
			if err := app.RunPrompt(ctx, prompt); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		view := tui.NewApp(app.Store, app.Consumer)
		if err := view.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./.parley/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().StringP("model", "m", "", "model to chat with")
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))

	rootCmd.Flags().StringP("prompt", "p", "", "execute a prompt directly without entering the TUI")
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))

	rootCmd.Flags().BoolP("headless", "H", false, "run without TUI (requires --prompt)")
	viper.BindPFlag("headless", rootCmd.Flags().Lookup("headless"))
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile, cfg.Logging.Preserve); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}
