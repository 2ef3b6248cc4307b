// Command ve-smooth runs a smoothing-kernel experiment: it applies a
// registered kernel to a measured VE correction grid, optionally
// scores the result against a baseline, and writes fingerprint and
// summary artifacts under a sandboxed output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/dyno.tune/internal/config"
	"github.com/banshee-data/dyno.tune/internal/experiment"
	"github.com/banshee-data/dyno.tune/internal/smooth"
	"github.com/banshee-data/dyno.tune/internal/version"
)

// paramFlags collects repeatable -set name=value overrides.
type paramFlags map[string]float64

func (p paramFlags) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, fmt.Sprintf("%s=%g", k, v))
	}
	return strings.Join(parts, ",")
}

func (p paramFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}
	p[strings.TrimSpace(name)] = v
	return nil
}

func main() {
	var (
		kernelID      = flag.String("kernel", "", "Kernel id to run (see -list)")
		gridPath      = flag.String("grid", "", "Path to the measured VE correction grid")
		hitsPath      = flag.String("hits", "", "Optional path to the hit-count grid")
		baselinePath  = flag.String("baseline", "", "Optional baseline grid to score against")
		outputDir     = flag.String("out", "", "Output directory for run artifacts (must stay under -root)")
		root          = flag.String("root", ".", "Project root; output paths may not escape it")
		configPath    = flag.String("config", "", "Optional kernel defaults JSON (e.g. config/kernels.defaults.json)")
		dryRun        = flag.Bool("dry-run", false, "Validate and write artifacts without invoking the kernel")
		list          = flag.Bool("list", false, "List registered kernels and exit")
		writeSmoothed = flag.Bool("write-smoothed", false, "Also write the smoothed grid")
		writePlot     = flag.Bool("plot", false, "Also write a delta heatmap PNG (needs -baseline)")
		verbose       = flag.Bool("verbose", false, "Print parse diagnostics for dropped cells")
		showVersion   = flag.Bool("version", false, "Print version information and exit")
	)
	overrides := paramFlags{}
	flag.Var(overrides, "set", "Kernel parameter override name=value (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ve-smooth %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	reg := smooth.DefaultRegistry()
	if *configPath != "" {
		cfg, err := config.LoadKernelConfig(*configPath)
		if err != nil {
			fatalf("load kernel config: %v", err)
		}
		if err := cfg.Apply(reg); err != nil {
			fatalf("%v", err)
		}
	}

	if *list {
		for _, info := range reg.List() {
			fmt.Printf("%-18s %s\n", info.ID, info.Description)
		}
		return
	}

	if *kernelID == "" || *gridPath == "" || *outputDir == "" {
		fmt.Fprintln(os.Stderr, "usage: ve-smooth -kernel <id> -grid <file> -out <dir> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	runner := experiment.NewRunner(reg, *root)
	result, err := runner.Run(context.Background(), experiment.Request{
		KernelID:      *kernelID,
		GridPath:      *gridPath,
		HitsPath:      *hitsPath,
		BaselinePath:  *baselinePath,
		OutputDir:     *outputDir,
		Overrides:     overrides,
		DryRun:        *dryRun,
		WriteSmoothed: *writeSmoothed,
		WritePlot:     *writePlot,
	})
	if err != nil {
		fatalf("%v", err)
	}

	if *verbose {
		for _, d := range result.Diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
	}

	fmt.Printf("status=%s kernel=%s out=%s elapsed=%s\n",
		result.Status, result.Fingerprint.Kernel, result.OutputDir, result.Elapsed)
	for _, info := range sortedMetricNames(result.Metrics) {
		fmt.Printf("  %s=%g\n", info, result.Metrics[info])
	}
}

func sortedMetricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	for i := 0; i < len(names)-1; i++ {
		for j := i + 1; j < len(names); j++ {
			if names[i] > names[j] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}

func fatalf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}
