// Package main loads the bundled sample catalog into the configured store.
//
// Books go through the catalog service, so titles and author names are
// validated and normalized exactly as addBook would. Titles already present
// are skipped, which makes the command safe to run repeatedly.
//
// Usage:
//
//	STORE_DRIVER=sqlite DATA_PATH=~/Booklist/data go run ./cmd/seed
//	go run ./cmd/seed -store mongo -mongodb-uri mongodb://localhost:27017
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/listenupapp/booklist-server/internal/config"
	"github.com/listenupapp/booklist-server/internal/di/providers"
	"github.com/listenupapp/booklist-server/internal/domain"
	"github.com/listenupapp/booklist-server/internal/errors"
	"github.com/listenupapp/booklist-server/internal/logger"
	"github.com/listenupapp/booklist-server/internal/pubsub"
	"github.com/listenupapp/booklist-server/internal/service"
)

//go:embed catalog.json
var catalogJSON []byte

type sampleCatalog struct {
	Authors []struct {
		Name string `json:"name"`
		Born *int   `json:"born"`
	} `json:"authors"`
	Books []struct {
		Title     string   `json:"title"`
		Author    string   `json:"author"`
		Genres    []string `json:"genres"`
		Published int      `json:"published"`
	} `json:"books"`
}

// discard satisfies service.Publisher; nobody is subscribed while seeding.
type discard struct{}

func (discard) Publish(context.Context, pubsub.Event) error { return nil }

var (
	driver   = flag.String("store", envOr("STORE_DRIVER", config.DriverSQLite), "Store driver: mongo, badger or sqlite")
	mongoURI = flag.String("mongodb-uri", os.Getenv("MONGODB_URI"), "MongoDB connection string")
	mongoDB  = flag.String("mongodb-database", envOr("MONGODB_DATABASE", "library"), "MongoDB database name")
	dataPath = flag.String("data-path", os.Getenv("DATA_PATH"), "Directory for embedded stores")
)

func main() {
	flag.Parse()

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

// run seeds the store and always closes it before returning.
func run(ctx context.Context) (err error) {
	var sample sampleCatalog
	if err := json.Unmarshal(catalogJSON, &sample); err != nil {
		return fmt.Errorf("decode sample catalog: %w", err)
	}

	path, err := resolveDataPath(*dataPath)
	if err != nil {
		return err
	}

	logs := logger.New(logger.Config{Level: logger.ParseLevel("warn")})

	st, err := providers.OpenStore(config.StoreConfig{
		Driver:        strings.ToLower(*driver),
		MongoURI:      *mongoURI,
		MongoDatabase: *mongoDB,
		DataPath:      path,
	}, logs)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close store: %w", closeErr)
		}
	}()

	catalog := service.NewCatalogService(st, discard{}, nil, logs.Logger)
	seeder := &domain.User{Username: "seed"}

	added, skipped := 0, 0
	for _, b := range sample.Books {
		_, err := catalog.AddBook(ctx, seeder, service.AddBookInput{
			Title:     b.Title,
			Author:    b.Author,
			Published: b.Published,
			Genres:    b.Genres,
		})
		switch {
		case err == nil:
			added++
			fmt.Printf("  + %s (%s)\n", b.Title, b.Author)
		case errors.Is(err, errors.ErrBadUserInput):
			skipped++
			fmt.Printf("  = %s: %v\n", b.Title, err)
		default:
			return fmt.Errorf("add %q: %w", b.Title, err)
		}
	}

	for _, a := range sample.Authors {
		if a.Born == nil {
			continue
		}
		if _, err := catalog.EditAuthor(ctx, seeder, a.Name, *a.Born); err != nil {
			return fmt.Errorf("set birth year of %s: %w", a.Name, err)
		}
	}

	fmt.Printf("\nSeeded %d books, skipped %d\n", added, skipped)
	return nil
}

// resolveDataPath expands ~ and falls back to ~/Booklist/data.
func resolveDataPath(path string) (string, error) {
	if path != "" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest), nil
	}
	return filepath.Join(home, "Booklist", "data"), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
