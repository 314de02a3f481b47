package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/Camel-bot/Spotilife/internal/app"
	"github.com/Camel-bot/Spotilife/internal/config"
	"github.com/Camel-bot/Spotilife/internal/player"
	"github.com/Camel-bot/Spotilife/pkg/lyrics"
	"github.com/Camel-bot/Spotilife/pkg/music"
)

func main() {
	var (
		configPath string
		once       bool
		source     string
		track      music.Track
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config.toml (default $XDG_CONFIG_HOME/lyrics/config.toml)")
	pflag.BoolVar(&once, "once", false, "Resolve lyrics once, print the envelope as JSON and exit")
	pflag.StringVar(&track.Title, "title", "", "Track title for --once (default: current player track)")
	pflag.StringVar(&track.Artist, "artist", "", "Track artist for --once")
	pflag.StringVar(&track.TrackID, "track-id", "", "Spotify track id for --once")
	pflag.StringVar(&source, "source", "", "Lyrics source: musixmatch, genius, lrclib or netease. Wins over the stored preference with --once; otherwise only replaces the config default")
	pflag.Parse()

	app.SetupLogging(config.DefaultLogLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	var selected lyrics.Source
	if source != "" {
		selected, err = lyrics.ParseSource(source)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --source")
		}
		cfg.Lyrics.Source = string(selected)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create app")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		code := runOnce(ctx, a, track, selected)
		stop()
		os.Exit(code)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("App stopped")
	}
}

func runOnce(ctx context.Context, a *app.App, track music.Track, source lyrics.Source) int {
	defer a.Close()

	if track == (music.Track{}) {
		current, err := player.GetCurrentTrack()
		if err != nil {
			log.Error().Err(err).Msg("No track given and no player running")
			return 1
		}
		track = current
	}

	env, err := a.ResolveOnce(ctx, track, source)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve lyrics")
		return 1
	}

	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode envelope")
		return 1
	}
	fmt.Println(string(out))
	return 0
}
