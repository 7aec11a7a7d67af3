// Package main runs vidctl, the command-line client for the video
// processing backend: upload a file via a presigned URL and watch the
// processing job until it completes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-video/client/config"
	"github.com/aura-video/client/internal/api"
	"github.com/aura-video/client/internal/models"
	"github.com/aura-video/client/internal/poller"
	"github.com/aura-video/client/internal/uploader"
)

var (
	flagAPIURL string
	flagToken  string
	flagWatch  bool
)

var rootCmd = &cobra.Command{
	Use:           "vidctl",
	Short:         "Upload videos and track their processing status",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a video file via a backend-issued presigned URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var watchCmd = &cobra.Command{
	Use:   "watch VIDEO_ID",
	Short: "Poll a processing job until it reaches a terminal status",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var getCmd = &cobra.Command{
	Use:   "get VIDEO_ID",
	Short: "Fetch one job snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded videos",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "backend base URL (overrides VIDEO_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token (overrides VIDEO_AUTH_TOKEN)")
	uploadCmd.Flags().BoolVar(&flagWatch, "watch", false, "poll the new job until it reaches a terminal status")
	rootCmd.AddCommand(uploadCmd, watchCmd, getCmd, listCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, client, err := setup(cmd.Context(), logger)
	if err != nil {
		return err
	}

	up := uploader.New(client, logger)
	videoID, err := up.Upload(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(videoID)

	if !flagWatch {
		return nil
	}
	return watch(cmd.Context(), client, videoID, cfg, logger)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, client, err := setup(cmd.Context(), logger)
	if err != nil {
		return err
	}
	return watch(cmd.Context(), client, args[0], cfg, logger)
}

func runGet(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	_, client, err := setup(cmd.Context(), logger)
	if err != nil {
		return err
	}
	job, err := client.GetVideo(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if job == nil {
		return api.ErrVideoNotFound
	}
	printJob(*job)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	_, client, err := setup(cmd.Context(), logger)
	if err != nil {
		return err
	}
	jobs, err := client.ListVideos(cmd.Context())
	if err != nil {
		return err
	}
	for _, job := range jobs {
		printJob(job)
	}
	return nil
}

// watch runs a poll session and streams snapshot lines until terminal.
func watch(ctx context.Context, client *api.Client, videoID string, cfg *config.Config, logger *zap.Logger) error {
	policy := poller.StopWhenMissing
	if !cfg.Poll.StopWhenMissing {
		policy = poller.KeepWaiting
	}

	session := poller.Start(ctx, client, videoID, poller.Options{
		Interval: time.Duration(cfg.Poll.IntervalSec) * time.Second,
		NotFound: policy,
		OnUpdate: func(snap poller.Snapshot) {
			switch {
			case snap.LastError != nil && !errors.Is(snap.LastError, poller.ErrJobNotFound):
				fmt.Fprintln(os.Stderr, "fetch failed, retrying:", snap.LastError)
			case snap.Missing:
				fmt.Println("video not found")
			case snap.Job != nil:
				printJob(*snap.Job)
			}
		},
	}, logger)
	<-session.Done()

	snap := session.Snapshot()
	if snap.Missing {
		return poller.ErrJobNotFound
	}
	if snap.Job != nil && snap.Job.Status == models.StatusFailed {
		return fmt.Errorf("processing failed for video %s", videoID)
	}
	return nil
}

// setup loads config, resolves the backend base URL and builds the API client.
func setup(ctx context.Context, logger *zap.Logger) (*config.Config, *api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	base := cfg.API.BaseURL
	if flagAPIURL != "" {
		base = flagAPIURL
	}
	timeout := time.Duration(cfg.API.RequestTimeoutSec) * time.Second
	if base == "" && cfg.API.ConfigURL != "" {
		base, err = api.ResolveAPIBase(ctx, &http.Client{Timeout: timeout}, cfg.API.ConfigURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("resolved backend", zap.String("api_url", base))
	}
	if base == "" {
		return nil, nil, errors.New("no backend URL: set VIDEO_API_URL, VIDEO_CONFIG_URL or --api-url")
	}

	token := flagToken
	if token == "" {
		token, err = cfg.Auth.BearerToken()
		if err != nil {
			return nil, nil, err
		}
	}
	if token == "" {
		return nil, nil, errors.New("no auth token: set VIDEO_AUTH_TOKEN, VIDEO_AUTH_TOKEN_FILE or --token")
	}

	return cfg, api.New(base, token, timeout, logger), nil
}

func printJob(job models.VideoJob) {
	line := fmt.Sprintf("%s\t%s\t%s\t%d%%", job.VideoID, job.FileName, job.Status, job.Progress)
	if job.DownloadURL != "" {
		line += "\t" + job.DownloadURL
	}
	fmt.Println(line)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
