// Command query is the CLI entrypoint for the hybrid ANN engine: it
// builds an index from a data file, answers a query file against it,
// and writes the nearest-neighbor ids to an output file.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/sigmod24/hybridann/internal/dispatcher"
	"github.com/sigmod24/hybridann/internal/fileio"
	"github.com/sigmod24/hybridann/internal/hybriderr"
	"github.com/sigmod24/hybridann/pkg/config"
	"github.com/sigmod24/hybridann/pkg/obs"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	reportQPS := fs.Bool("r", false, "append per-kind QPS and build-time rows to query.csv")
	if err := fs.Parse(args); err != nil {
		return int(hybriderr.ExitUsage)
	}

	if fs.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "usage: query [-r] <data_file> <query_file> <out_file>")
		return int(hybriderr.ExitUsage)
	}
	dataPath, queryPath, outPath := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	obs.Init()
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return int(hybriderr.ExitUsage)
	}

	totalStart := time.Now()

	ds, err := fileio.ReadDataFile(dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return int(hybriderr.Code(err))
	}

	buildStart := time.Now()
	d, err := dispatcher.Build(ds.Points, ds.Labels, ds.Timestamps, cfg.ToDispatcherParams())
	buildDuration := time.Since(buildStart)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return int(hybriderr.Code(err))
	}
	fmt.Printf("build: %v (%d points)\n", buildDuration, ds.Points.Size())

	queries, err := fileio.ReadQueryFile(queryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return int(hybriderr.Code(err))
	}

	k := cfg.Query.K
	var out []uint32
	var kindStats []kindStat

	if *reportQPS {
		out, kindStats, err = runPerKind(d, queries, k)
	} else {
		out, err = d.RunBatch(queries, k)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return int(hybriderr.Code(err))
	}

	if err := fileio.WriteOutputFile(outPath, out, len(queries), k); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return int(hybriderr.Code(err))
	}

	totalDuration := time.Since(totalStart)
	fmt.Printf("total: %v (%d queries)\n", totalDuration, len(queries))

	if *reportQPS {
		for _, ks := range kindStats {
			fmt.Printf("kind %d: %d queries, %.1f qps\n", ks.kind, ks.count, ks.qps)
		}
		if err := appendCSVReport("query.csv", kindStats, buildDuration); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write query.csv: %v\n", err)
			return int(hybriderr.ExitIO)
		}
	}

	return int(hybriderr.ExitSuccess)
}

type kindStat struct {
	kind  uint32
	count int
	qps   float64
}

// runPerKind answers each query kind's contiguous group as its own
// batch so a wall-clock QPS figure can be reported per kind, then
// scatters every group's results back into one out buffer keyed by
// the query's original position in the full file. Each group is
// re-indexed to local OriginalIndex values 0..len(group)-1 before
// being handed to RunBatch, whose output buffer is sized off the
// group it was given rather than the full query file.
func runPerKind(d *dispatcher.Dispatcher, queries []dispatcher.Query, k int) ([]uint32, []kindStat, error) {
	out := make([]uint32, len(queries)*k)

	byKind := map[uint32][]dispatcher.Query{}
	originalIndex := map[uint32][]uint32{}
	for _, q := range queries {
		byKind[q.Kind] = append(byKind[q.Kind], q)
		originalIndex[q.Kind] = append(originalIndex[q.Kind], q.OriginalIndex)
	}

	kinds := make([]uint32, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	stats := make([]kindStat, 0, len(kinds))
	for _, kind := range kinds {
		group := append([]dispatcher.Query(nil), byKind[kind]...)
		for i := range group {
			group[i].OriginalIndex = uint32(i)
		}
		origIdx := originalIndex[kind]

		start := time.Now()
		res, err := d.RunBatch(group, k)
		if err != nil {
			return nil, nil, err
		}
		elapsed := time.Since(start)

		for i := range group {
			base := int(origIdx[i]) * k
			copy(out[base:base+k], res[i*k:(i+1)*k])
		}

		qps := float64(len(group)) / elapsed.Seconds()
		stats = append(stats, kindStat{kind: kind, count: len(group), qps: qps})
	}

	return out, stats, nil
}

func appendCSVReport(path string, stats []kindStat, buildDuration time.Duration) error {
	newFile := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		newFile = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if newFile {
		if err := w.Write([]string{"kind", "qps", "count"}); err != nil {
			return err
		}
	}

	for _, ks := range stats {
		row := []string{strconv.FormatUint(uint64(ks.kind), 10), strconv.FormatFloat(ks.qps, 'f', 2, 64), strconv.Itoa(ks.count)}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Write([]string{"build", strconv.FormatFloat(buildDuration.Seconds(), 'f', 3, 64), ""})
}
