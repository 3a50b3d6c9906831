package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/docqa-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	httpserver "github.com/0xcro3dile/docqa-go/internal/infrastructure/http"
)

var (
	askTopK     int
	ingestClear bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the data directory watcher when enabled)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		a.checkParser(checkCtx)
		cancel()

		server := httpserver.NewServer(a.assess, a.query, a.ingest, httpserver.Options{
			Addr:         a.cfg.Server.Addr(),
			DataDir:      a.cfg.Ingest.DataDir,
			ReadTimeout:  a.cfg.Server.ReadTimeout(),
			WriteTimeout: a.cfg.Server.WriteTimeout(),
		}, a.logger)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(ctx)
		})

		if a.cfg.Ingest.Watch {
			if err := os.MkdirAll(a.cfg.Ingest.DataDir, 0o755); err != nil {
				return fmt.Errorf("creating data directory: %w", err)
			}
			watcher, err := filewatcher.NewFSNotifyWatcher(nil, a.logger)
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}
			defer watcher.Stop()

			events, err := watcher.Watch(ctx, a.cfg.Ingest.DataDir)
			if err != nil {
				return fmt.Errorf("watching %s: %w", a.cfg.Ingest.DataDir, err)
			}
			g.Go(func() error {
				a.ingest.Sync(ctx, events)
				return nil
			})
		}

		return g.Wait()
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-dir>...",
	Short: "Ingest documents into the configured collection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if ingestClear {
			if err := a.store.Clear(ctx); err != nil {
				return fmt.Errorf("clearing collection: %w", err)
			}
		}

		paths, err := collectDocuments(args)
		if err != nil {
			return err
		}

		var failed int
		for _, path := range paths {
			res, err := a.ingest.IngestFile(ctx, path)
			if err != nil {
				failed++
				a.logger.Error("ingest failed", zap.String("path", path), zap.Error(err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks -> %s\n", path, res.IngestedChunks, res.Collection)
		}

		if total, err := a.ingest.Count(ctx); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %d chunks\n", a.store.Collection(), total)
		} else {
			a.logger.Warn("counting chunks failed", zap.Error(err))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(paths))
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the ingested documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.query.Query(cmd.Context(), &entities.ChatRequest{Query: args[0], TopK: askTopK})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, resp.Answer)
		if len(resp.Sources) > 0 {
			fmt.Fprintln(out, "\nSources:")
			for _, s := range resp.Sources {
				fmt.Fprintf(out, "  - %s (score %.3f)\n", s.SourceDoc, s.Score)
			}
		}
		return nil
	},
}

// collectDocuments expands directories into the supported files they contain.
func collectDocuments(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && loader.Allowed(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("no supported documents found")
	}
	return paths, nil
}
