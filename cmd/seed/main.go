package main

import (
	"context"
	"encoding/csv"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doodle-chain/internal/chain"
	"doodle-chain/internal/config"
	"doodle-chain/internal/db"
	"doodle-chain/internal/logger"
	"doodle-chain/internal/store"

	"github.com/rs/zerolog/log"
)

type seedRecord struct {
	Artist    string
	ImagePath string
}

func main() {
	filePath := flag.String("file", "doodles.csv", "path to a csv of artist,image_path rows")
	remote := flag.Bool("remote", false, "write through STORE_URL instead of the database")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	var st store.DoodleStore
	if *remote {
		st = store.NewRemoteStore(cfg.StoreURL, time.Duration(cfg.StoreTimeoutSeconds)*time.Second)
	} else {
		conn, err := db.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		st = store.NewDBStore(conn)
	}

	records, err := readSeeds(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read seed file")
	}

	ctx := context.Background()
	manager := chain.NewManager(st, nil)
	inserted := 0
	for _, record := range records {
		image, err := os.ReadFile(record.ImagePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", record.ImagePath).Msg("failed to read image")
		}
		doodle, err := manager.Append(ctx, nil, record.Artist, image, false)
		if err != nil {
			log.Fatal().Err(err).Str("artist", record.Artist).Msg("failed to save doodle")
		}
		log.Debug().Str("doodle_id", doodle.ID).Str("artist", record.Artist).Msg("seeded doodle")
		inserted++
	}
	log.Info().Int("count", inserted).Msg("loaded doodles")
}

// readSeeds skips the header row and incomplete rows. Image paths are
// relative to the csv file.
func readSeeds(path string) ([]seedRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	var records []seedRecord
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		artist := strings.TrimSpace(row[0])
		imagePath := strings.TrimSpace(row[1])
		if artist == "" || imagePath == "" {
			continue
		}
		if !filepath.IsAbs(imagePath) {
			imagePath = filepath.Join(dir, imagePath)
		}
		records = append(records, seedRecord{Artist: artist, ImagePath: imagePath})
	}
	return records, nil
}
