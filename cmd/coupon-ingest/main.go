// Command coupon-ingest loads bulk coupon code dumps (gzip files with one
// code per line) into coupon instances for a promotion. Codes are
// deduplicated within and across files, and codes already ingested for the
// promotion are skipped via a bloom filter over the existing instances.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/oakmart/promo-engine/internal/domain/coupon"
	"github.com/oakmart/promo-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 8
	maxCodeLen    = 12
	insertChunk   = 1000
)

func main() {
	var (
		databaseURL string
		promotionID string
		couponType  string
		usageLimit  int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&promotionID, "promotion-id", "", "promotion to attach the ingested codes to")
	flag.StringVar(&couponType, "type", "single_use", "coupon type: single_use, multi_use, unlimited")
	flag.IntVar(&usageLimit, "usage-limit", 0, "usage limit per code (ignored for single_use)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if promotionID == "" {
		slog.Error("promotion id is required: set --promotion-id")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no input files: pass one or more .gz code dumps")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, promotionID, coupon.Type(couponType), usageLimit, files); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, databaseURL, promotionID string, couponType coupon.Type, usageLimit int, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("reading code dumps", slog.Int("files", len(files)))

	perFile, err := collectCodes(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect codes")
	}

	// Merge, deduplicating across files.
	merged := make(map[string]struct{})
	for _, codes := range perFile {
		for code := range codes {
			merged[code] = struct{}{}
		}
	}
	slog.Info("distinct codes collected", slog.Int("count", len(merged)))

	if len(merged) == 0 {
		slog.Info("nothing to ingest")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewCouponRepository(pool)

	existing, err := existingCodesFilter(ctx, repo, promotionID)
	if err != nil {
		return errors.Wrap(err, "load existing codes")
	}

	return writeInstances(ctx, repo, promotionID, couponType, usageLimit, merged, existing)
}

// collectCodes streams every file concurrently and returns the
// deduplicated, length-filtered code set per file.
func collectCodes(ctx context.Context, files []string) ([]map[string]struct{}, error) {
	perFile := make([]map[string]struct{}, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for n, path := range files {
		g.Go(func() error {
			codes := make(map[string]struct{})
			var count uint64

			err := streamGzFile(ctx, path, func(code string) {
				if len(code) < minCodeLen || len(code) > maxCodeLen {
					return
				}
				codes[strings.ToUpper(code)] = struct{}{}
				count++
				if count%progressEvery == 0 {
					slog.Info("read progress", slog.String("file", path), slog.Uint64("codes", count))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}

			slog.Info("file complete", slog.String("file", path), slog.Int("distinct", len(codes)))
			perFile[n] = codes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perFile, nil
}

// existingCodesFilter builds a bloom filter over the codes already stored for
// the promotion. A false positive skips a fresh code, which a re-run with a
// corrected dump can pick up; a miss is impossible, so no duplicate insert
// slips through to the unique index.
func existingCodesFilter(ctx context.Context, repo *postgres.CouponRepository, promotionID string) (*bloom.BloomFilter, error) {
	instances, err := repo.ListByPromotion(ctx, promotionID)
	if err != nil {
		return nil, err
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	for n := range instances {
		filter.AddString(strings.ToUpper(instances[n].Code))
	}
	slog.Info("existing codes indexed", slog.Int("count", len(instances)))
	return filter, nil
}

func writeInstances(
	ctx context.Context,
	repo *postgres.CouponRepository,
	promotionID string,
	couponType coupon.Type,
	usageLimit int,
	codes map[string]struct{},
	existing *bloom.BloomFilter,
) error {
	limit := usageLimit
	if couponType == coupon.TypeSingleUse {
		limit = 1
	}

	batch := uuid.New().String()
	now := time.Now().UTC()

	chunk := make([]coupon.Instance, 0, insertChunk)
	var written, skipped int

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := repo.CreateBatch(ctx, chunk); err != nil {
			return err
		}
		written += len(chunk)
		chunk = chunk[:0]
		slog.Info("write progress", slog.Int("written", written))
		return nil
	}

	for code := range codes {
		if existing.TestString(code) {
			skipped++
			continue
		}
		chunk = append(chunk, coupon.Instance{
			ID:              uuid.New().String(),
			Code:            code,
			PromotionID:     promotionID,
			Status:          coupon.StatusActive,
			Type:            couponType,
			UsageLimit:      limit,
			GenerationBatch: batch,
			CreatedAt:       now,
		})
		if len(chunk) == insertChunk {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.String("generation_batch", batch),
		slog.Int("written", written),
		slog.Int("skipped_existing", skipped),
	)
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
