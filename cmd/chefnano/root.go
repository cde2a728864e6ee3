package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	"github.com/alchemorsel/chefnano/internal/infrastructure/container"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

type cliOptions struct {
	configPath string
	timeout    time.Duration
}

// newRootCommand creates the root cobra command
func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "chefnano",
		Short: "🍳 Chef Nano: Smart Kitchen",
		Long: fmt.Sprintf(`%s

Turns the ingredients in your fridge into a recipe and a photo of the
finished dish, and edits that photo with plain-language instructions.

%s
  chefnano serve                               # Run the web kitchen
  chefnano recipe pork green onion garlic      # Print a recipe
  chefnano recipe egg rice --image dish.png    # ...and save its photo
  chefnano edit --in dish.png --out brighter.png "make it brighter"
  chefnano health --allow-degraded              # Check a running server`,
			bold("Chef Nano: Smart Kitchen"),
			bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "Give up on AI requests after this long")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newRecipeCommand(opts))
	rootCmd.AddCommand(newEditCommand(opts))
	rootCmd.AddCommand(newHealthCommand(opts))

	return rootCmd
}

// startCore boots the kitchen without the web server. Logs go to stderr
// so stdout carries only command output.
func startCore(ctx context.Context, opts *cliOptions, targets ...interface{}) (func(), error) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(container.ConfigPath(opts.configPath)),
		fx.Decorate(func(cfg *config.Config) *config.Config {
			c := *cfg
			c.App.LogOutput = "stderr"
			if !c.App.Debug {
				c.App.LogLevel = "warn"
			}
			return &c
		}),
		container.CoreModule,
		fx.Populate(targets...),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}, nil
}
