package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moviecinema/moviecinema/internal/favorites"
	"github.com/moviecinema/moviecinema/internal/locale"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// favoritesEnv is an opened favorites service plus the cleanup it needs.
type favoritesEnv struct {
	service  *favorites.Service
	language string
	close    func()
}

func openFavorites(ctx context.Context) (*favoritesEnv, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	db, err := a.openDatabase()
	if err != nil {
		a.Close()
		return nil, err
	}

	provider, err := locale.NewProvider(ctx, locale.NewSettings(db.Conn()), a.cfg.Locale.Default, a.log.Logger)
	if err != nil {
		db.Close()
		a.Close()
		return nil, err
	}

	client := tmdb.NewClient(a.cfg.TMDB, a.log.Logger)
	refresher := favorites.NewRefresher(client, a.cfg.Favorites.RefreshWorkers, a.log.Logger)
	svc := favorites.NewService(favorites.NewStore(db.Conn()), client, refresher, provider, a.log.Logger)

	return &favoritesEnv{
		service:  svc,
		language: string(provider.Language()),
		close: func() {
			db.Close()
			a.Close()
		},
	}, nil
}

func parseFavoriteKey(args []string) (tmdb.MediaType, int, error) {
	contentType := tmdb.MediaType(args[0])
	id, err := strconv.Atoi(args[1])
	if err != nil || id <= 0 || !contentType.Valid() {
		return "", 0, fmt.Errorf("%w: %s %s", favorites.ErrInvalidItem, args[0], args[1])
	}
	return contentType, id, nil
}

func newFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage saved titles",
	}

	var refresh, asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			var items []favorites.Item
			if refresh {
				items, err = env.service.Refreshed(cmd.Context(), "")
			} else {
				items, err = env.service.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			w := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(w, "[%s %d] %s (%s) saved %s\n",
					item.ContentType, item.ID, item.Record.Title,
					locale.Year(item.Record.ReleaseDate),
					locale.FormatShortDate(item.FavoritedAt.Format("2006-01-02"), env.language))
			}
			return nil
		},
	}
	list.Flags().BoolVar(&refresh, "refresh", false, "re-fetch records in the current language")
	list.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	add := &cobra.Command{
		Use:   "add <movie|tv> <id>",
		Short: "Save a title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentType, id, err := parseFavoriteKey(args)
			if err != nil {
				return err
			}
			env, err := openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			item, added, err := env.service.Add(cmd.Context(), contentType, id, "")
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already saved\n", item.Record.Title)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", item.Record.Title)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <movie|tv> <id>",
		Short: "Remove a saved title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentType, id, err := parseFavoriteKey(args)
			if err != nil {
				return err
			}
			env, err := openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			return env.service.Remove(cmd.Context(), contentType, id)
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <movie|tv> <id>",
		Short: "Save a title, or remove it when already saved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentType, id, err := parseFavoriteKey(args)
			if err != nil {
				return err
			}
			env, err := openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			saved, err := env.service.Toggle(cmd.Context(), contentType, id, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "favorite: %t\n", saved)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace saved titles with a legacy favorites export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			env, err := openFavorites(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			n, err := env.service.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d favorites\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, add, remove, toggle, importCmd)
	return cmd
}
