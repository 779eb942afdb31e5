package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/moviecinema/moviecinema/internal/detail"
	"github.com/moviecinema/moviecinema/internal/locale"
	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/search"
	"github.com/moviecinema/moviecinema/internal/sessions"
)

const lookupTimeout = 30 * time.Second

// staticLanguage is a fixed language source for one-shot commands.
type staticLanguage string

func (l staticLanguage) APILanguage() string { return string(l) }

func languageFlag(cmd *cobra.Command, fallback string) (locale.Language, error) {
	tag, _ := cmd.Flags().GetString("language")
	if tag == "" {
		tag = fallback
	}
	return locale.Parse(tag)
}

func newSearchCmd() *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every category and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			lang, err := languageFlag(cmd, a.cfg.Locale.Default)
			if err != nil {
				return err
			}
			if category != "" && !search.Category(category).Valid() {
				return fmt.Errorf("%w: %s", search.ErrUnknownCategory, category)
			}

			client := tmdb.NewClient(a.cfg.TMDB, a.log.Logger)
			registry := sessions.NewRegistry[*search.Session]("search", a.log.Logger)
			defer registry.CloseAll()
			svc := search.NewService(client, registry, staticLanguage(lang.APILanguage()), nil, a.cfg.Search, a.log.Logger)

			session := svc.Create(strings.Join(args, " "), "")
			ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
			defer cancel()
			if err := session.Wait(ctx); err != nil {
				return err
			}

			snap := session.Snapshot()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			printSearch(cmd.OutOrStdout(), snap, search.Category(category))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only print this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot as JSON")
	cmd.Flags().StringP("language", "l", "", "display language (en or vi)")
	return cmd
}

func printSearch(w io.Writer, snap search.Snapshot, only search.Category) {
	for _, cat := range search.Categories {
		if only != "" && cat != only {
			continue
		}
		state := snap.Categories[cat]
		fmt.Fprintf(w, "%s (%d)\n", cat, state.TotalResults)
		for _, item := range state.Results {
			fmt.Fprintf(w, "  %s\n", describeItem(item))
		}
	}
}

func describeItem(item metadata.ResultItem) string {
	line := fmt.Sprintf("[%s %d] %s", item.Kind, item.ID, item.Title)
	if year := locale.Year(item.ReleaseDate); year != "" {
		line += " (" + year + ")"
	}
	if item.KnownForDepartment != "" {
		line += " - " + item.KnownForDepartment
	}
	return line
}

func newDetailCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detail <movie|tv> <id>",
		Short: "Load a title with credits, trailer and related titles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentType := tmdb.MediaType(args[0])
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: id %q", detail.ErrInvalidContent, args[1])
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			lang, err := languageFlag(cmd, a.cfg.Locale.Default)
			if err != nil {
				return err
			}

			client := tmdb.NewClient(a.cfg.TMDB, a.log.Logger)
			registry := sessions.NewRegistry[*detail.Session]("detail", a.log.Logger)
			defer registry.CloseAll()
			svc := detail.NewService(client, client, registry, staticLanguage(lang.APILanguage()), nil, a.log.Logger)

			session, err := svc.Create(id, contentType, "")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
			defer cancel()
			if err := session.Wait(ctx); err != nil {
				return err
			}

			snap := session.Snapshot()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			if snap.Error != nil {
				return fmt.Errorf("failed to load %s %d: %s", contentType, id, *snap.Error)
			}
			printDetail(cmd.OutOrStdout(), snap, string(lang))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot as JSON")
	cmd.Flags().StringP("language", "l", "", "display language (en or vi)")
	return cmd
}

func printDetail(w io.Writer, snap detail.Snapshot, lang string) {
	d := snap.Detail
	fmt.Fprintf(w, "%s\n", d.Title)
	fmt.Fprintf(w, "Released: %s\n", locale.FormatDate(d.ReleaseDate, lang))
	if d.Runtime > 0 {
		fmt.Fprintf(w, "Runtime: %d min\n", d.Runtime)
	}
	if len(d.Genres) > 0 {
		names := make([]string, 0, len(d.Genres))
		for _, g := range d.Genres {
			names = append(names, g.Name)
		}
		fmt.Fprintf(w, "Genres: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "Rating: %.1f (%d votes)\n", d.VoteAverage, d.VoteCount)
	if d.Overview != "" {
		fmt.Fprintf(w, "\n%s\n", d.Overview)
	}
	if snap.TrailerKey != nil {
		fmt.Fprintf(w, "\nTrailer: https://www.youtube.com/watch?v=%s\n", *snap.TrailerKey)
	}

	if len(snap.Credits.Cast) > 0 {
		fmt.Fprintln(w, "\nCast:")
		for _, c := range snap.Credits.Cast[:min(len(snap.Credits.Cast), 10)] {
			fmt.Fprintf(w, "  %s as %s\n", c.Name, c.Character)
		}
	}
	for _, section := range []struct {
		name  string
		items []metadata.ResultItem
	}{
		{"Similar", snap.Similar},
		{"Recommended", snap.Recommendations},
	} {
		if len(section.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", section.name)
		for _, item := range section.items[:min(len(section.items), 5)] {
			fmt.Fprintf(w, "  %s\n", describeItem(item))
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
