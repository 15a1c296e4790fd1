// slurm-cnn-data resolves a dataset by name, downloads it if needed, prints
// the computed per-channel normalization statistics, and runs one epoch
// through the train loader reporting throughput.
package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/ml/data"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	slurmcnn "github.com/suyunov6/slurm-cnn"
	"github.com/suyunov6/slurm-cnn/datasets"
)

var (
	flagDataset = flag.String("dataset", "cifar10",
		fmt.Sprintf("Dataset to load, one of: %s (case and spaces ignored).",
			strings.Join(datasets.Names(), ", ")))
	flagDataDir    = flag.String("data", "~/work/slurm-cnn", "Directory to cache downloaded dataset files.")
	flagBatchSize  = flag.Int("batch_size", 64, "Batch size for the train and test loaders.")
	flagNumWorkers = flag.Int("num_workers", 4, "Number of parallel prefetch workers for the train loader.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	dataDir := data.ReplaceTildeInDir(*flagDataDir)
	spec := must.M1(datasets.Resolve(*flagDataset))
	fmt.Printf("%s: %d classes, %d source channel(s)\n", spec.Name, spec.NumClasses(), spec.Channels)

	probe := must.M1(spec.Builder(dataDir, &datasets.Config{
		Split:     datasets.Train,
		Download:  true,
		BatchSize: *flagBatchSize,
	}))
	stats := must.M1(datasets.ComputeStats(probe))
	fmt.Printf("Images are %dx%d, mean=%.4v, stddev=%.4v\n", stats.Height, stats.Width, stats.Mean, stats.StdDev)

	start := time.Now()
	trainDS, testDS := must.M2(slurmcnn.LoadDataset(*flagDataset, dataDir, *flagBatchSize, *flagNumWorkers))
	fmt.Printf("Loaders built in %s (includes the statistics pass)\n",
		time.Since(start).Round(time.Millisecond))

	start = time.Now()
	var batches, examples int
	var bytesYielded uint64
	for {
		_, inputs, _, err := trainDS.Yield()
		if err != nil && err != io.EOF {
			klog.Fatalf("Train loader failed: %+v", err)
		}
		if len(inputs) > 0 {
			if batches == 0 {
				fmt.Printf("Image batches shaped %s\n", inputs[0].Shape())
			}
			batches++
			examples += inputs[0].Shape().Dimensions[0]
			bytesYielded += uint64(inputs[0].Shape().Memory())
		}
		if err == io.EOF {
			break
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("Train epoch: %s batches, %s examples, %s in %s (%.0f examples/s)\n",
		humanize.Comma(int64(batches)), humanize.Comma(int64(examples)),
		humanize.IBytes(bytesYielded), elapsed.Round(time.Millisecond),
		float64(examples)/elapsed.Seconds())
	fmt.Printf("Test loader ready: %s\n", testDS.Name())
}
