// Package main checks that a location list parses and is usable before it
// is shipped to the server, either as a local file or as an R2 object.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"github.com/garyellow/line-foodfinder/internal/config"
	"github.com/garyellow/line-foodfinder/internal/location"
	"github.com/garyellow/line-foodfinder/internal/r2client"
)

type verifyResult struct {
	name    string
	passed  bool
	message string
}

func main() {
	_ = godotenv.Load()

	file := flag.String("file", envOr(config.EnvLocationFile, "data/locations.csv"), "local location file")
	keyField := flag.String("key", envOr(config.EnvLocationKeyField, location.DefaultKeyField), "key column")
	useR2 := flag.Bool("r2", os.Getenv(config.EnvR2Enabled) == "true", "read the list from R2 instead of the local file")
	r2Key := flag.String("r2-key", os.Getenv(config.EnvLocationR2Key), "R2 object key")
	flag.Parse()

	fmt.Println("🔍 line-foodfinder - Location List Verification")
	fmt.Println("===============================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.LocationLoad)
	defer cancel()

	var results []verifyResult
	src, res := openSource(ctx, *useR2, *file, *r2Key)
	results = append(results, res...)
	if src != nil {
		results = append(results, verifyPoints(ctx, src, *keyField)...)
	}

	fmt.Println("\n📊 Verification Results:")
	failed := 0
	for _, r := range results {
		status := "✅"
		if !r.passed {
			status = "❌"
			failed++
		}
		fmt.Printf("%s %s: %s\n", status, r.name, r.message)
	}
	fmt.Printf("\n📈 Summary: %d passed, %d failed\n", len(results)-failed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func openSource(ctx context.Context, useR2 bool, file, key string) (location.Source, []verifyResult) {
	if !useR2 {
		info, err := os.Stat(file)
		if err != nil {
			return nil, []verifyResult{{"file", false, err.Error()}}
		}
		return location.FileSource{Path: file}, []verifyResult{
			{"file", true, fmt.Sprintf("%s (%d bytes)", file, info.Size())},
		}
	}

	cfg := config.Config{R2AccountID: os.Getenv(config.EnvR2AccountID)}
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint(),
		AccessKeyID: os.Getenv(config.EnvR2AccessKeyID),
		SecretKey:   os.Getenv(config.EnvR2SecretAccessKey),
		BucketName:  os.Getenv(config.EnvR2BucketName),
	})
	if err != nil {
		return nil, []verifyResult{{"r2 client", false, err.Error()}}
	}

	info, err := client.Stat(ctx, key)
	if err != nil {
		return nil, []verifyResult{{"r2 object", false, fmt.Sprintf("%s: %v", key, err)}}
	}
	return location.R2Source{Client: client, Key: key}, []verifyResult{
		{"r2 object", true, fmt.Sprintf("%s (%d bytes, etag %s)", info.Key, info.Size, info.ETag)},
	}
}

func verifyPoints(ctx context.Context, src location.Source, keyField string) []verifyResult {
	start := time.Now()
	rc, err := src.Open(ctx)
	if err != nil {
		return []verifyResult{{"open", false, err.Error()}}
	}
	defer func() { _ = rc.Close() }()

	points, err := location.Parse(rc, keyField)
	if err != nil {
		return []verifyResult{{"parse", false, err.Error()}}
	}

	results := []verifyResult{
		{"parse", true, fmt.Sprintf("%d unique points in %s", len(points), time.Since(start).Round(time.Millisecond))},
	}
	if len(points) == 0 {
		return append(results, verifyResult{"non-empty", false, "list has no rows"})
	}
	results = append(results, verifyResult{"non-empty", true, "ok"})

	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = p.Point()
	}
	b := mp.Bound()
	results = append(results, verifyResult{
		"bounds", true,
		fmt.Sprintf("lat %.5f..%.5f, lng %.5f..%.5f", b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon()),
	})

	var origin int
	for _, p := range points {
		if p.Lat == 0 && p.Lng == 0 {
			origin++
		}
	}
	results = append(results, verifyResult{"null island", origin == 0, fmt.Sprintf("%d points at 0,0", origin)})

	return results
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
