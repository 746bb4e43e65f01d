package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
)

type BenchmarkResult struct {
	Name       string  `json:"name"`
	Framework  string  `json:"framework"`
	Category   string  `json:"category"`
	Iterations int64   `json:"iterations"`
	NsPerOp    float64 `json:"ns_per_op"`
	BytesPerOp int64   `json:"bytes_per_op"`
	AllocsOp   int64   `json:"allocs_per_op"`
}

var frameworkColors = map[string]text.Colors{
	"Adi":     {text.FgGreen, text.Bold},
	"AdiSync": {text.FgCyan, text.Bold},
	"Do":      {text.FgYellow},
	"Dig":     {text.FgMagenta},
	"Fx":      {text.FgBlue},
}

var categoryTitles = map[string]string{
	"Provide_Simple":   "Provider registration (simple)",
	"Provide_Chain":    "Provider registration (dependency chain)",
	"Invoke_Singleton": "Resolution (singleton)",
	"Invoke_Chain":     "Resolution (dependency chain)",
	"Named_10":         "Named providers (10)",
	"Lifecycle_10":     "Create and destroy (10 providers)",
	"Lifecycle_50":     "Create and destroy (50 providers)",
	"Circular_Pair":    "Circular pair",
}

var categoryOrder = []string{
	"Provide_Simple", "Provide_Chain",
	"Invoke_Singleton", "Invoke_Chain",
	"Named_10",
	"Lifecycle_10", "Lifecycle_50",
	"Circular_Pair",
}

var benchPattern = regexp.MustCompile(`^Benchmark(\w+)-\d+\s+(\d+)\s+([\d.]+) ns/op\s+(\d+) B/op\s+(\d+) allocs/op`)

func main() {
	dir := flag.String("dir", "..", "directory holding the benchmarks")
	count := flag.Int("count", 3, "runs per benchmark")
	asJSON := flag.Bool("json", false, "also write results.json")
	flag.Parse()

	fmt.Println(text.Colors{text.FgCyan, text.Bold}.Sprint("adi benchmark suite"))
	fmt.Println(text.Faint.Sprint("running benchmarks..."))
	fmt.Println()

	cmd := exec.Command("go", "test", "-bench=.", "-benchmem", "-count="+strconv.Itoa(*count), "-benchtime=100ms")
	cmd.Dir = *dir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "benchmark failed: %s\n", exitErr.Stderr)
		}
		os.Exit(1)
	}

	results := parseResults(output)
	grouped := lo.GroupBy(results, func(r BenchmarkResult) string { return r.Category })

	for _, category := range orderedCategories(grouped) {
		renderCategory(category, grouped[category])
	}
	renderSummary(grouped)

	if *asJSON {
		if err := exportJSON(results); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

// parseResults averages repeated runs of the same benchmark.
func parseResults(output []byte) []BenchmarkResult {
	runs := make(map[string][]BenchmarkResult)
	var names []string

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		m := benchPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}

		parts := strings.Split(m[1], "_")
		if len(parts) < 2 {
			continue
		}

		iterations, _ := strconv.ParseInt(m[2], 10, 64)
		ns, _ := strconv.ParseFloat(m[3], 64)
		bytesOp, _ := strconv.ParseInt(m[4], 10, 64)
		allocs, _ := strconv.ParseInt(m[5], 10, 64)

		if _, ok := runs[m[1]]; !ok {
			names = append(names, m[1])
		}
		runs[m[1]] = append(runs[m[1]], BenchmarkResult{
			Name:       m[1],
			Framework:  parts[len(parts)-1],
			Category:   strings.Join(parts[:len(parts)-1], "_"),
			Iterations: iterations,
			NsPerOp:    ns,
			BytesPerOp: bytesOp,
			AllocsOp:   allocs,
		})
	}

	return lo.Map(names, func(name string, _ int) BenchmarkResult {
		rs := runs[name]
		n := float64(len(rs))

		avg := rs[0]
		avg.NsPerOp = lo.SumBy(rs, func(r BenchmarkResult) float64 { return r.NsPerOp }) / n
		avg.BytesPerOp = int64(float64(lo.SumBy(rs, func(r BenchmarkResult) int64 { return r.BytesPerOp })) / n)
		avg.AllocsOp = int64(float64(lo.SumBy(rs, func(r BenchmarkResult) int64 { return r.AllocsOp })) / n)
		return avg
	})
}

func orderedCategories(grouped map[string][]BenchmarkResult) []string {
	known := lo.Filter(categoryOrder, func(c string, _ int) bool {
		_, ok := grouped[c]
		return ok
	})

	extra := lo.Without(lo.Keys(grouped), categoryOrder...)
	slices.Sort(extra)

	return append(known, extra...)
}

func renderCategory(category string, results []BenchmarkResult) {
	if len(results) == 0 {
		return
	}

	slices.SortFunc(results, func(a, b BenchmarkResult) int {
		switch {
		case a.NsPerOp < b.NsPerOp:
			return -1
		case a.NsPerOp > b.NsPerOp:
			return 1
		}
		return 0
	})
	fastest := results[0].NsPerOp

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(lo.ValueOr(categoryTitles, category, strings.ReplaceAll(category, "_", " ")))
	t.AppendHeader(table.Row{"Framework", "Time/op", "B/op", "Allocs/op", "Relative"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	for i, r := range results {
		relative := "fastest"
		if i > 0 && fastest > 0 {
			relative = fmt.Sprintf("%.1fx slower", r.NsPerOp/fastest)
		}

		t.AppendRow(table.Row{
			colorize(r.Framework),
			formatNs(r.NsPerOp),
			r.BytesPerOp,
			r.AllocsOp,
			relative,
		})
	}

	t.Render()
	fmt.Println()
}

func renderSummary(grouped map[string][]BenchmarkResult) {
	wins := lo.CountValues(lo.FilterMap(lo.Values(grouped), func(rs []BenchmarkResult, _ int) (string, bool) {
		if len(rs) == 0 {
			return "", false
		}
		return rs[0].Framework, true
	}))

	frameworks := lo.Keys(wins)
	slices.SortFunc(frameworks, func(a, b string) int {
		if wins[a] != wins[b] {
			return wins[b] - wins[a]
		}
		return strings.Compare(a, b)
	})

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Fastest per category")
	t.AppendHeader(table.Row{"Framework", "Wins"})
	for _, fw := range frameworks {
		t.AppendRow(table.Row{colorize(fw), wins[fw]})
	}
	t.Render()
}

func colorize(framework string) string {
	colors, ok := frameworkColors[framework]
	if !ok {
		return framework
	}
	return colors.Sprint(framework)
}

func formatNs(ns float64) string {
	switch {
	case ns >= 1_000_000:
		return fmt.Sprintf("%.2f ms", ns/1_000_000)
	case ns >= 1_000:
		return fmt.Sprintf("%.2f µs", ns/1_000)
	}
	return fmt.Sprintf("%.0f ns", ns)
}

func exportJSON(results []BenchmarkResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile("results.json", data, 0o644)
}
