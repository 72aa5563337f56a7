package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"image-verify/internal"
	"image-verify/internal/logging"
	"image-verify/internal/recorder"
	"image-verify/internal/s3"
)

type dayStats struct {
	total   int
	matches int
	sum     float64
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	var (
		fromS3 = flag.Bool("s3", false, "Summarise verification records stored under the S3 prefix")
		fromDB = flag.Bool("db", false, "Summarise the verifications table in VERIFICATIONS_DB")
		day    = flag.String("day", "", "Only records from this day (YYYY-MM-DD, S3 only)")
	)
	flag.Parse()

	if !*fromS3 && !*fromDB {
		fmt.Println("Usage: report [-s3] [-db] [-day YYYY-MM-DD]")
		fmt.Println()
		fmt.Println("Options:")
		fmt.Println("  -s3     Summarise verification records stored under the S3 prefix")
		fmt.Println("  -db     Summarise the verifications table in VERIFICATIONS_DB")
		fmt.Println("  -day    Restrict the S3 summary to one day")
		os.Exit(1)
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New("report.log")
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *fromS3 {
		fmt.Println("=== Verification records in S3 ===")
		if err := reportS3(ctx, cfg, *day); err != nil {
			log.Errorf("s3 report: %v", err)
			fmt.Printf("❌ %v\n", err)
		}
	}

	if *fromDB {
		fmt.Println("=== Verification table ===")
		if err := reportDB(ctx, cfg); err != nil {
			log.Errorf("db report: %v", err)
			fmt.Printf("❌ %v\n", err)
		}
	}
}

func reportS3(ctx context.Context, cfg internal.Config, day string) error {
	client, err := s3.New(cfg)
	if err != nil {
		return err
	}
	prefix := cfg.VerificationsPrefix
	if day != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/" + day + "/"
	}
	objects, err := client.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	objects = lo.Filter(objects, func(o s3.ObjectInfo, _ int) bool {
		return strings.HasSuffix(o.Key, ".json")
	})
	if len(objects) == 0 {
		fmt.Printf("No records under %s\n", prefix)
		return nil
	}

	days := map[string]*dayStats{}
	var failed int
	for _, o := range objects {
		b, _, err := client.GetBytes(ctx, o.Key)
		if err != nil {
			failed++
			continue
		}
		rec := gjson.ParseBytes(b)
		if !rec.Get("id").Exists() {
			failed++
			continue
		}
		d := dayOf(rec.Get("created_at").String())
		st, ok := days[d]
		if !ok {
			st = &dayStats{}
			days[d] = st
		}
		st.total++
		if rec.Get("match_result").Bool() {
			st.matches++
		}
		st.sum += rec.Get("similarity_percentage").Float()
	}

	keys := lo.Keys(days)
	sort.Strings(keys)
	for _, k := range keys {
		st := days[k]
		fmt.Printf("  %s  total=%d matches=%d mismatches=%d avg=%.2f%%\n",
			k, st.total, st.matches, st.total-st.matches, st.sum/float64(st.total))
	}
	total := lo.SumBy(lo.Values(days), func(st *dayStats) int { return st.total })
	matches := lo.SumBy(lo.Values(days), func(st *dayStats) int { return st.matches })
	fmt.Printf("Total: %d records, %d matches, %d unreadable\n", total, matches, failed)
	return nil
}

func reportDB(ctx context.Context, cfg internal.Config) error {
	if cfg.VerificationsDB == "" {
		return fmt.Errorf("VERIFICATIONS_DB is not set")
	}
	db, err := recorder.OpenSQLite(cfg.VerificationsDB)
	if err != nil {
		return err
	}
	defer db.Close()

	sum, err := db.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  total=%d matches=%d mismatches=%d avg=%.2f%%\n", sum.Total, sum.Matches, sum.Mismatches, sum.AvgSimilarity)
	if !sum.Since.IsZero() {
		fmt.Printf("  first record: %s\n", sum.Since.Format(time.RFC3339))
	}
	return nil
}

func dayOf(createdAt string) string {
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return "unknown"
}
