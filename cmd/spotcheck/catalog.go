package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/spots/internal/catalog"
	"github.com/JonMunkholm/spots/internal/config"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the PostgreSQL lote catalog (needs DATABASE_URL)",
	}

	var finca string

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create the lotes table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(s *catalog.Store) error {
				return s.Migrate(cmd.Context())
			})
		},
	}

	add := &cobra.Command{
		Use:   "add LOTE...",
		Short: "Add lotes to a finca",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if finca == "" {
				return errors.New("--finca is required")
			}
			return withStore(cmd.Context(), func(s *catalog.Store) error {
				return s.Add(cmd.Context(), finca, args...)
			})
		},
	}
	add.Flags().StringVar(&finca, "finca", "", "finca id")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the lotes of a finca, or every lote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(s *catalog.Store) error {
				names, err := s.Lotes(cmd.Context(), finca)
				if err != nil {
					return err
				}
				for _, n := range names {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&finca, "finca", "", "finca id")

	cmd.AddCommand(migrate, add, list)
	return cmd
}

func withStore(ctx context.Context, fn func(*catalog.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.Catalog.Enabled() {
		return errors.New("DATABASE_URL is not set")
	}

	pool, err := catalog.Connect(ctx, catalog.PoolConfig{URL: cfg.Catalog.URL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(catalog.New(pool))
}
