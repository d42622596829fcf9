package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string // FORMSYNC_DATABASE_URL (required)
	HTTPAddr    string // FORMSYNC_HTTP_ADDR (default ":8080")
	NATSURL     string // FORMSYNC_NATS_URL (optional, empty = no events)

	// AuthTokens maps bearer token -> owner id. Parsed from
	// FORMSYNC_AUTH_TOKENS ("token=owner,token=owner"). Empty = auth
	// disabled, every request runs as the "local" owner.
	AuthTokens map[string]string

	// DeployConcurrency bounds parallel remote calls within one batch
	// deployment. FORMSYNC_DEPLOY_CONCURRENCY (default 4).
	DeployConcurrency int

	// Snapshot settings
	SnapshotInterval   time.Duration // FORMSYNC_SNAPSHOT_INTERVAL (default 15m; 0 = disabled)
	SnapshotS3Bucket   string        // FORMSYNC_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Endpoint string        // FORMSYNC_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotS3Region   string        // FORMSYNC_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Key      string        // FORMSYNC_SNAPSHOT_S3_KEY (default "formsync/backup.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:        os.Getenv("FORMSYNC_DATABASE_URL"),
		HTTPAddr:           envOrDefault("FORMSYNC_HTTP_ADDR", ":8080"),
		NATSURL:            os.Getenv("FORMSYNC_NATS_URL"),
		SnapshotS3Bucket:   os.Getenv("FORMSYNC_SNAPSHOT_S3_BUCKET"),
		SnapshotS3Endpoint: os.Getenv("FORMSYNC_SNAPSHOT_S3_ENDPOINT"),
		SnapshotS3Region:   envOrDefault("FORMSYNC_SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3Key:      envOrDefault("FORMSYNC_SNAPSHOT_S3_KEY", "formsync/backup.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("FORMSYNC_DATABASE_URL is required")
	}

	tokens, err := parseAuthTokens(os.Getenv("FORMSYNC_AUTH_TOKENS"))
	if err != nil {
		return nil, fmt.Errorf("FORMSYNC_AUTH_TOKENS: %w", err)
	}
	c.AuthTokens = tokens

	concStr := envOrDefault("FORMSYNC_DEPLOY_CONCURRENCY", "4")
	conc, err := strconv.Atoi(concStr)
	if err != nil || conc < 1 {
		return nil, fmt.Errorf("FORMSYNC_DEPLOY_CONCURRENCY: must be a positive integer, got %q", concStr)
	}
	c.DeployConcurrency = conc

	intervalStr := envOrDefault("FORMSYNC_SNAPSHOT_INTERVAL", "15m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("FORMSYNC_SNAPSHOT_INTERVAL: %w", err)
		}
		c.SnapshotInterval = d
	}

	return c, nil
}

// parseAuthTokens parses "token=owner[,token=owner...]" into a map.
// An empty input yields an empty map (auth disabled).
func parseAuthTokens(s string) (map[string]string, error) {
	tokens := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return tokens, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, owner, ok := strings.Cut(pair, "=")
		if !ok || token == "" || owner == "" {
			return nil, fmt.Errorf("malformed entry %q, want token=owner", pair)
		}
		if _, dup := tokens[token]; dup {
			return nil, fmt.Errorf("duplicate token in entry %q", pair)
		}
		tokens[token] = owner
	}
	return tokens, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
