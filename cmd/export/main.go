// Command export computes styled snapshots for one item and element over a
// set of years, writes them to an XLSX workbook (one sheet per year), and
// optionally publishes them to Kafka.
//
// Usage:
//
//	go run ./cmd/export -item Wheat -element "area harvested" \
//	  -years 2019,2020,2021 -out exports/wheat.xlsx -publish
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	kafkaadapter "github.com/colocaviz/cropmap-service/internal/adapter/kafka"
	"github.com/colocaviz/cropmap-service/internal/adapter/xlsx"
	"github.com/colocaviz/cropmap-service/internal/app"
	"github.com/colocaviz/cropmap-service/internal/config"
	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/colocaviz/cropmap-service/internal/observability"
	"github.com/colocaviz/cropmap-service/internal/pipeline"
)

type options struct {
	item    string
	element string
	years   []int
	scale   domain.Scale
	out     string
	publish bool
}

func main() {
	item := flag.String("item", "", "item or commodity typology to export")
	element := flag.String("element", "", "element to export (default DEFAULT_ELEMENT)")
	years := flag.String("years", "", "comma-separated years (default: every available year)")
	scale := flag.String("scale", "log", "color scale: log or linear")
	out := flag.String("out", "", "output XLSX path (default exports/<item>.xlsx)")
	publish := flag.Bool("publish", false, "publish snapshots to KAFKA_SNAPSHOT_TOPIC")
	flag.Parse()

	opts, err := parseOptions(*item, *element, *years, *scale, *out, *publish)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func parseOptions(item, element, years, scale, out string, publish bool) (options, error) {
	if item == "" {
		return options{}, errors.New("-item is required")
	}
	s, err := domain.ParseScale(scale)
	if err != nil {
		return options{}, err
	}
	ys, err := parseYears(years)
	if err != nil {
		return options{}, err
	}
	if out == "" {
		out = fmt.Sprintf("exports/%s.xlsx", strings.ToLower(strings.ReplaceAll(item, " ", "_")))
	}
	return options{item: item, element: element, years: ys, scale: s, out: out, publish: publish}, nil
}

func parseYears(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var years []int
	for part := range strings.SplitSeq(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.publish && len(cfg.KafkaBrokers) == 0 {
		return errors.New("-publish needs KAFKA_BROKERS")
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	a, err := app.New(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snaps, err := snapshots(ctx, a.Service, opts, logger, metrics)
	if err != nil {
		return err
	}

	if err := xlsx.ExportSnapshots(snaps, opts.out); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	metrics.SnapshotsExported.WithLabelValues("xlsx").Add(float64(len(snaps)))
	logger.Info("workbook written", "path", opts.out, "sheets", len(snaps))

	if opts.publish {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		if err := writer.PublishSnapshots(ctx, snaps); err != nil {
			return err
		}
		metrics.SnapshotsExported.WithLabelValues("kafka").Add(float64(len(snaps)))
	}
	return nil
}

// snapshots walks a session through the requested years, or through every
// available year when none were requested. Requested years with no data are
// skipped.
func snapshots(ctx context.Context, q pipeline.Querier, opts options, logger *slog.Logger, metrics *observability.Metrics) ([]domain.Snapshot, error) {
	session := pipeline.NewSession(q, pipeline.Query{Item: opts.item, Element: opts.element}, logger, metrics)
	if err := session.SelectScale(ctx, opts.scale); err != nil {
		return nil, err
	}

	years := opts.years
	if len(years) == 0 {
		years = session.Current().Years
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("no data for item %q", opts.item)
	}

	snaps := make([]domain.Snapshot, 0, len(years))
	for _, year := range years {
		if err := session.SelectYear(ctx, year); err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", year, err)
		}
		view := session.Current()
		if view.Query.Year != year {
			logger.Warn("year not available, skipping", "item", opts.item, "year", year)
			continue
		}
		snaps = append(snaps, view.Snapshot)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no data for item %q in the requested years", opts.item)
	}
	return snaps, nil
}
