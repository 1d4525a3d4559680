// Command lxbdump decodes Luminex LXB files and prints per-analyte medians.
// Arguments are LXB files, s3:// locators or directories, which stand for
// every .lxb file they contain.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/l1ktools/l1kio/export"
	"github.com/l1ktools/l1kio/lxb"
	"github.com/l1ktools/l1kio/source"
	"github.com/l1ktools/l1kio/telemetry"
)

func main() {
	var (
		channel     string
		concurrency int
		parquetPath string
		metricsAddr string
		endpoint    string
		region      string
		ranged      bool
		rps         float64
		verbose     bool
	)
	flag.StringVar(&channel, "channel", lxb.DefaultChannel, "Parameter to extract, matched case-insensitively")
	flag.IntVar(&concurrency, "concurrency", 0, "Files decoded at once (default GOMAXPROCS)")
	flag.StringVar(&parquetPath, "parquet", "", "Write every event to this Parquet file")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running, e.g. :9090")
	flag.StringVar(&endpoint, "s3-endpoint", "", "S3-compatible endpoint for s3:// locators")
	flag.StringVar(&region, "s3-region", "", "AWS region for s3:// locators")
	flag.BoolVar(&ranged, "s3-ranged", false, "Read remote objects with ranged requests instead of downloading them")
	flag.Float64Var(&rps, "s3-rps", 0, "Limit remote requests per second (0 = unlimited)")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: lxbdump [flags] <file.lxb|dir|s3://bucket/key>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.New(reg)
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			level.Info(logger).Log("msg", "starting metrics server", "addr", metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(logger).Log("msg", "metrics server failed", "err", err)
			}
		}()
		defer server.Close()
	}

	locators, err := expand(flag.Args())
	if err != nil {
		level.Error(logger).Log("msg", "listing inputs", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opener := source.NewOpener(source.Config{
		Endpoint:          endpoint,
		Region:            region,
		Ranged:            ranged,
		RequestsPerSecond: rps,
	}, source.WithLogger(logger), source.WithMetrics(metrics))

	results, err := lxb.LoadPlate(ctx, locators, channel,
		lxb.WithLogger(logger),
		lxb.WithMetrics(metrics),
		lxb.WithOpener(opener),
		lxb.WithConcurrency(concurrency),
	)
	if err != nil {
		level.Error(logger).Log("msg", "loading files", "err", err)
		os.Exit(1)
	}

	for _, res := range results {
		printResult(os.Stdout, res)
	}

	if parquetPath != "" {
		if err := writeParquet(parquetPath, results, logger); err != nil {
			level.Error(logger).Log("msg", "exporting events", "path", parquetPath, "err", err)
			os.Exit(1)
		}
	}
}

// expand replaces each local directory with the .lxb files inside it, in
// name order.
func expand(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		loc, err := source.Parse(arg)
		if err != nil {
			return nil, err
		}
		if loc.Scheme != source.SchemeFile {
			out = append(out, arg)
			continue
		}
		fi, err := os.Stat(loc.Key)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(loc.Key)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".lxb") {
				out = append(out, filepath.Join(loc.Key, e.Name()))
			}
		}
	}
	return out, nil
}

func printResult(w io.Writer, res *lxb.Result) {
	fmt.Fprintf(w, "%s %s events=%d channel=%s\n", res.Source(), res, res.Len(), res.Channel())
	medians := res.MedianByAnalyte()
	analytes := make([]int32, 0, len(medians))
	for a := range medians {
		analytes = append(analytes, a)
	}
	slices.Sort(analytes)
	for _, a := range analytes {
		fmt.Fprintf(w, "  analyte=%d median=%g\n", a, medians[a])
	}
}

func writeParquet(path string, results []*lxb.Result, logger log.Logger) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := export.WriteEvents(out, results, export.WithLogger(logger))
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	level.Info(logger).Log("msg", "wrote parquet", "path", path, "events", n)
	return nil
}
