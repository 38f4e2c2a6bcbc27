// Command genre-decagon runs the genre decagon web application.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/justestif/go-genre-decagon/internal/api"
	"github.com/justestif/go-genre-decagon/internal/catalog"
	"github.com/justestif/go-genre-decagon/internal/classifier"
	"github.com/justestif/go-genre-decagon/internal/clustering"
	"github.com/justestif/go-genre-decagon/internal/config"
	"github.com/justestif/go-genre-decagon/internal/db"
	"github.com/justestif/go-genre-decagon/internal/fetch"
	"github.com/justestif/go-genre-decagon/internal/web"
	webfs "github.com/justestif/go-genre-decagon/web"
)

const (
	startupTimeout = 30 * time.Second
	installTimeout = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	groups := clustering.Config{
		NumClusters:    cfg.Clusters,
		MinClusterSize: clustering.DefaultConfig().MinClusterSize,
	}
	serverCfg := web.ServerConfig{
		Addr:           cfg.Addr,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Groups:         groups,
		TemplatesFS:    templates,
		StaticFS:       static,
	}

	switch cfg.Mode {
	case config.ModeRemote:
		log.Printf("Using remote backend at %s", cfg.BackendURL)
		serverCfg.Backend = api.NewClient(cfg.BackendURL)

	case config.ModeLocal:
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return err
		}

		downloader := fetch.New(cfg.FetchDir)
		installCtx, cancelInstall := context.WithTimeout(context.Background(), installTimeout)
		err = downloader.Install(installCtx)
		cancelInstall()
		if err != nil {
			log.Printf("yt-dlp unavailable, YouTube uploads will fail: %v", err)
		}

		svc := catalog.New(database.Songs(), database, classifier.NewClient(cfg.Classifier), downloader)
		logSummary(ctx, svc, groups)

		serverCfg.Backend = svc
		serverCfg.Catalog = svc
	}

	server, err := web.NewServer(serverCfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}

// logSummary prints the genre groups of the stored collection.
func logSummary(ctx context.Context, svc *catalog.Service, cfg clustering.Config) {
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		log.Printf("Loading collection: %v", err)
		return
	}
	groups, outliers := clustering.Detect(snap.Songs, cfg)
	log.Print(clustering.FormatSummary(groups, outliers))
}
