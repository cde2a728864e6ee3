package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/alchemorsel/chefnano/internal/infrastructure/container"
)

func newServeCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the smart kitchen web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(container.Options(opts.configPath))
			if err := app.Err(); err != nil {
				return err
			}

			startCtx, cancel := context.WithTimeout(cmd.Context(), app.StartTimeout())
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			sig := <-app.Wait()

			stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelStop()
			if err := app.Stop(stopCtx); err != nil {
				return err
			}
			if sig.ExitCode != 0 {
				return fmt.Errorf("server stopped with exit code %d", sig.ExitCode)
			}
			return nil
		},
	}
}
