package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/infrastructure/config"
	"github.com/alchemorsel/chefnano/internal/ports/inbound"
)

func newRecipeCommand(opts *cliOptions) *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "recipe <ingredients...>",
		Short: "Suggest a recipe for the given ingredients",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var (
				svc inbound.KitchenService
				cfg *config.Config
			)
			stop, err := startCore(ctx, opts, &svc, &cfg)
			if err != nil {
				return err
			}
			defer stop()

			return runRecipe(ctx, cmd.OutOrStdout(), svc, kitchen.ParseLocale(cfg.App.Locale),
				strings.Join(args, " "), imagePath)
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "o", "", "Also write the dish photo to this PNG file")
	return cmd
}

func runRecipe(ctx context.Context, out io.Writer, svc inbound.KitchenService, locale kitchen.Locale, ingredients, imagePath string) error {
	sessionID := uuid.New().String()

	fmt.Fprintln(out, gray("🍳 "+ingredients))
	if _, err := svc.SubmitRecipe(ctx, sessionID, ingredients); err != nil {
		return err
	}
	if err := svc.Wait(ctx, sessionID); err != nil {
		return err
	}

	state, err := svc.State(ctx, sessionID)
	if err != nil {
		return err
	}
	if state.Recipe == nil {
		return noticeError(state, locale, "no recipe was returned")
	}

	fmt.Fprintln(out, renderMarkdown(out, recipeMarkdown(*state.Recipe)))

	if imagePath == "" {
		if msg := state.ErrorMessageIn(locale); msg != "" {
			fmt.Fprintln(out, red(msg))
		}
		return nil
	}
	if !state.HasImage() {
		return noticeError(state, locale, "no image was returned")
	}
	data, _, err := svc.ImageFile(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(imagePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	fmt.Fprintln(out, green("📥 "+imagePath))
	return nil
}

func noticeError(state kitchen.State, locale kitchen.Locale, fallback string) error {
	if msg := state.ErrorMessageIn(locale); msg != "" {
		return errors.New(msg)
	}
	return errors.New(fallback)
}

func recipeMarkdown(r kitchen.Recipe) string {
	content := strings.TrimSpace(r.Content)
	if r.Title == "" || strings.HasPrefix(content, "# ") {
		return content
	}
	return "# " + r.Title + "\n\n" + content
}

// renderMarkdown styles markdown for a terminal and leaves it untouched
// when writing to a pipe or file.
func renderMarkdown(out io.Writer, md string) string {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return md
	}

	width := 80
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(rendered, "\n")
}
