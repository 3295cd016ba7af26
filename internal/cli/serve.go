package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkravets/brollplan/internal/config"
	"github.com/mkravets/brollplan/internal/embedcache"
	"github.com/mkravets/brollplan/internal/ports/adapters/ffmpeg"
	"github.com/mkravets/brollplan/internal/ports/adapters/httpfetch"
	"github.com/mkravets/brollplan/internal/ports/adapters/openaiembed"
	"github.com/mkravets/brollplan/internal/ports/adapters/whispercpp"
	"github.com/mkravets/brollplan/internal/server"
	"github.com/mkravets/brollplan/internal/usecase"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	addr, _ := cmd.Flags().GetString("addr")

	fileCfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if addr == "" {
		addr = fileCfg.Server.Addr
	}

	apiKey := os.Getenv("EMBEDDINGS_API_KEY")
	if apiKey == "" {
		return errors.New("EMBEDDINGS_API_KEY is required (set it in .env)")
	}
	baseURL := getenvDefault("EMBEDDINGS_BASE_URL", fileCfg.Embeddings.BaseURL)
	if err := openaiembed.ValidateBaseURL(baseURL, allowedHosts(fileCfg)); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	embedder := openaiembed.New(apiKey, getenvDefault("EMBEDDINGS_MODEL", fileCfg.Embeddings.Model), baseURL)
	cache, err := embedcache.Open(
		filepath.Join(fileCfg.Paths.CacheDir, "embeddings.db"),
		embedder.Model(), embedder, logger)
	if err != nil {
		return fmt.Errorf("open embedding cache: %w", err)
	}
	defer cache.Close()

	uc := usecase.New(usecase.Deps{
		Video:    ffmpeg.New("ffmpeg", "ffprobe"),
		ASR:      whispercpp.New(getenvDefault("WHISPER_BIN", fileCfg.Whisper.Bin), getenvDefault("WHISPER_MODEL", fileCfg.Whisper.Model)),
		Embedder: cache,
	})

	srv := server.New(server.Config{
		Addr:     addr,
		CacheDir: fileCfg.Paths.CacheDir,
		Planner:  fileCfg.PlannerConfig(),
	}, server.Deps{
		Runner:  uc,
		Fetcher: httpfetch.New(),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
