package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

func newEditCommand(opts *cliOptions) *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "edit --in <image.png> --out <result.png> <instruction...>",
		Short: "Edit a dish photo with a plain-language instruction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readPNG(inPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var ai outbound.KitchenAI
			stop, err := startCore(ctx, opts, &ai)
			if err != nil {
				return err
			}
			defer stop()

			instruction := strings.Join(args, " ")
			fmt.Fprintln(cmd.OutOrStdout(), gray("🎨 "+instruction))

			edited, err := ai.RequestImageEdit(ctx, source, instruction)
			if err != nil {
				return err
			}
			if edited.IsZero() {
				return errors.New("no edited image was returned")
			}
			data, err := edited.Bytes()
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write image: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("📥 "+outPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "PNG image to edit")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Where to write the edited PNG")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func readPNG(path string) (kitchen.DataURI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if ct := http.DetectContentType(data); ct != "image/png" {
		return "", fmt.Errorf("%s is %s, expected a PNG image", path, ct)
	}
	return kitchen.NewPNGDataURI(data), nil
}
