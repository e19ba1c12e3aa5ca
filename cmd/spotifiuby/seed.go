package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"spotifiuby/internal/store"
)

type seedArtist struct {
	Name              string
	UserID            string
	SubscriptionLevel int
	Album             string
	Year              int
	Genre             string
	Tracks            []string
}

var demoCatalog = []seedArtist{
	{
		Name:   "Soda Stereo",
		UserID: "demo-artist-1",
		Album:  "Canción Animal",
		Year:   1990,
		Genre:  "rock",
		Tracks: []string{"(En) El Séptimo Día", "Un Millón de Años Luz", "De Música Ligera"},
	},
	{
		Name:              "Boards of Canada",
		UserID:            "demo-artist-2",
		SubscriptionLevel: 2,
		Album:             "Music Has the Right to Children",
		Year:              1998,
		Genre:             "electronic",
		Tracks:            []string{"Turquoise Hexagon Sun", "Roygbiv", "Aquarius"},
	},
}

func runSeed(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return errors.New("seed is disabled in production-like environments")
	}

	dataStore, closeStore, err := openCatalog(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	return seedDemoCatalog(ctx, dataStore)
}

// seedDemoCatalog inserts the demo artists with their songs and albums when no artist exists yet.
func seedDemoCatalog(ctx context.Context, dataStore catalogStore) error {
	existing, err := dataStore.ListArtists(ctx, store.ArtistFilter{})
	if err != nil {
		return fmt.Errorf("check existing artists: %w", err)
	}
	if len(existing) > 0 {
		log.Info().Int("artists", len(existing)).Msg("catalog not empty, skipping seed")
		return nil
	}

	for _, seed := range demoCatalog {
		artist, err := dataStore.CreateArtist(ctx, store.Artist{
			Name:              seed.Name,
			UserID:            seed.UserID,
			SubscriptionLevel: seed.SubscriptionLevel,
		})
		if err != nil {
			return fmt.Errorf("seed artist %q: %w", seed.Name, err)
		}

		songIDs := make([]string, 0, len(seed.Tracks))
		for _, track := range seed.Tracks {
			song, err := dataStore.CreateSong(ctx, store.Song{
				Name:    track,
				Genre:   seed.Genre,
				Artists: []string{artist.ID},
			})
			if err != nil {
				return fmt.Errorf("seed song %q: %w", track, err)
			}
			songIDs = append(songIDs, song.ID)
		}

		if _, err := dataStore.CreateAlbum(ctx, store.Album{
			Name:    seed.Album,
			Artists: []string{artist.ID},
			Songs:   songIDs,
			Year:    seed.Year,
		}); err != nil {
			return fmt.Errorf("seed album %q: %w", seed.Album, err)
		}

		log.Info().Str("artist", artist.Name).Int("songs", len(songIDs)).Msg("seeded artist")
	}
	return nil
}
