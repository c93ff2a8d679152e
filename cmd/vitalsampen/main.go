// vitalsampen computes the per-case Sample Entropy of the systolic, mean,
// and diastolic arterial pressure waves in a directory of VitalDB CSV
// exports and writes the results to a CSV file.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/schollz/progressbar/v3"
	sampen "github.com/vitalstat/sampen-go"
	"github.com/vitalstat/sampen-go/vitaldb"
)

var (
	globPattern = flag.String("glob", "", "glob pattern of per-case VitalDB csv files (required)")
	outPath     = flag.String("out", "vitaldb_entropies.csv", "path of the results csv")
	embedding   = flag.Int("m", 2, "embedding dimension")
	rFraction   = flag.Float64("rfrac", 0.2, "tolerance as a fraction of each wave's standard deviation")
	workers     = flag.Int("workers", runtime.NumCPU(), "parallel workers for the match-counting engine")
	detrend     = flag.Bool("detrend", true, "remove a linear trend from each wave before computing entropy")
)

func main() {
	flag.Parse()
	if *globPattern == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Printf("reading vital files matching %s", *globPattern)
	records, err := vitaldb.ReadGlob(context.Background(), *globPattern)
	if err != nil {
		log.Fatalf("reading records: %v", err)
	}
	log.Printf("loaded %d records", len(records))

	log.Print("computing sample entropy...")
	bar := progressbar.Default(int64(len(records)), "sampen")
	start := time.Now()
	rows := make([]vitaldb.Entropies, len(records))
	for i, record := range records {
		rows[i] = vitaldb.Entropies{
			Name: record.Name,
			SBP:  waveEntropy(record.Name, "sbp", record.SBP),
			MBP:  waveEntropy(record.Name, "mbp", record.MBP),
			DBP:  waveEntropy(record.Name, "dbp", record.DBP),
		}
		_ = bar.Add(1)
	}
	log.Printf("sample entropy computation finished in %v", time.Since(start))

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("creating %s: %v", *outPath, err)
	}
	if err := vitaldb.WriteEntropies(out, rows); err != nil {
		out.Close()
		log.Fatalf("writing %s: %v", *outPath, err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("closing %s: %v", *outPath, err)
	}
	log.Printf("wrote %d rows to %s", len(rows), *outPath)

	printSummary("sbp", column(rows, func(e vitaldb.Entropies) float64 { return e.SBP }))
	printSummary("mbp", column(rows, func(e vitaldb.Entropies) float64 { return e.MBP }))
	printSummary("dbp", column(rows, func(e vitaldb.Entropies) float64 { return e.DBP }))
}

// waveEntropy computes the entropy of one wave, reporting unusable waves as
// NaN instead of aborting the batch.
func waveEntropy(name, wave string, series []float64) float64 {
	var result sampen.Result
	var err error
	if *detrend {
		result, err = sampen.DetrendedSampleEntropy(series, *embedding, *rFraction, sampen.WithWorkers(*workers))
	} else {
		r := sampen.Tolerance(series, *rFraction)
		result, err = sampen.SampleEntropy(series, *embedding, r, sampen.WithWorkers(*workers))
	}
	if err != nil {
		log.Printf("%s %s: %v", name, wave, err)
		return math.NaN()
	}
	return result.Entropy
}

// column extracts one wave's entropy value from every result row.
func column(rows []vitaldb.Entropies, pick func(vitaldb.Entropies) float64) []float64 {
	values := make([]float64, len(rows))
	for i, row := range rows {
		values[i] = pick(row)
	}
	return values
}

// printSummary logs the spread of the finite entropies of one wave.
func printSummary(wave string, values []float64) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		log.Printf("%s: no finite entropies", wave)
		return
	}

	minimum, _ := stats.Min(finite)
	mean, _ := stats.Mean(finite)
	median, _ := stats.Median(finite)
	maximum, _ := stats.Max(finite)
	log.Printf("%s: n=%d min=%.4f mean=%.4f median=%.4f max=%.4f",
		wave, len(finite), minimum, mean, median, maximum)
}
