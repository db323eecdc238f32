package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"socialgraph/backend/internal/graph"
	"socialgraph/backend/pkg/config"
	"socialgraph/backend/pkg/logger"
)

// edge is one follower,followee pair to write
type edge struct {
	follower string
	followee string
}

func main() {
	edgesFlag := flag.String("edges", "", "Comma separated follower:followee pairs, e.g. alice:bob,bob:carol")
	file := flag.String("file", "", "CSV file of follower,followee rows")
	unfollow := flag.Bool("unfollow", false, "Remove the listed follows instead of creating them")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting follow graph seeding...")

	edges, err := parsePairs(*edgesFlag)
	if err != nil {
		log.Fatal("Invalid -edges value", zap.Error(err))
	}
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatal("Failed to open seed file", zap.String("file", *file), zap.Error(err))
		}
		fromFile, err := parseCSV(f)
		f.Close()
		if err != nil {
			log.Fatal("Failed to parse seed file", zap.String("file", *file), zap.Error(err))
		}
		edges = append(edges, fromFile...)
	}
	if len(edges) == 0 {
		log.Fatal("Nothing to seed, pass -edges or -file")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	manager, err := graph.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to graph store", zap.Error(err))
	}
	defer manager.Close()

	failed := 0
	for _, e := range edges {
		if *unfollow {
			err = manager.Unfollow(ctx, e.follower, e.followee)
		} else {
			_, err = manager.Follow(ctx, e.follower, e.followee)
		}
		if err != nil {
			failed++
			log.Warn("Failed to write follow",
				zap.String("follower", e.follower),
				zap.String("followee", e.followee),
				zap.Error(err),
			)
		}
	}

	log.Info("Seed completed",
		zap.Int("edges", len(edges)),
		zap.Int("failed", failed),
		zap.Bool("unfollow", *unfollow),
	)
}

func parsePairs(s string) ([]edge, error) {
	var edges []edge
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		follower, followee, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("pair %q is not follower:followee", pair)
		}
		edges = append(edges, edge{follower: follower, followee: followee})
	}
	return edges, nil
}

// parseCSV reads follower,followee rows. Lines starting with # are skipped.
func parseCSV(r io.Reader) ([]edge, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var edges []edge
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return edges, nil
		}
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge{follower: record[0], followee: record[1]})
	}
}
