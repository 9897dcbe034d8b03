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
)

type BenchmarkResult struct {
	Name       string  `json:"name"`
	Framework  string  `json:"framework"`
	Category   string  `json:"category"`
	Iterations int64   `json:"iterations"`
	NsPerOp    float64 `json:"nsPerOp"`
	BytesPerOp int64   `json:"bytesPerOp"`
	AllocsOp   int64   `json:"allocsPerOp"`
}

type CategoryResults struct {
	Category string
	Results  []BenchmarkResult
}

var frameworkColors = map[string]text.Colors{
	"Keel": {text.FgGreen, text.Bold},
	"Do":   {text.FgYellow},
	"Dig":  {text.FgMagenta},
	"Fx":   {text.FgBlue},
}

var categoryTitles = map[string]string{
	"Provide_Simple":       "Registration (simple)",
	"Provide_Chain":        "Registration (dependency chain)",
	"Resolve_Singleton":    "Resolution (singleton)",
	"Resolve_Chain":        "Resolution (singleton chain)",
	"Resolve_Transient":    "Resolution and release (transient chain)",
	"Lifecycle_10":         "Warmup and dispose (10 components)",
	"Lifecycle_50":         "Warmup and dispose (50 components)",
	"LifecycleWithWork_10": "Warmup and dispose with work (10 components, 1ms each)",
}

var categoryOrder = []string{
	"Provide_Simple", "Provide_Chain",
	"Resolve_Singleton", "Resolve_Chain", "Resolve_Transient",
	"Lifecycle_10", "Lifecycle_50", "LifecycleWithWork_10",
}

var benchPattern = regexp.MustCompile(`^Benchmark(\w+)-\d+\s+(\d+)\s+([\d.]+) ns/op\s+(\d+) B/op\s+(\d+) allocs/op`)

func main() {
	dir := flag.String("dir", "..", "directory holding the benchmarks")
	count := flag.Int("count", 3, "runs per benchmark, averaged")
	benchtime := flag.String("benchtime", "100ms", "go test -benchtime")
	jsonOut := flag.String("json", "", "also write the results to this file")
	flag.Parse()

	fmt.Println(text.Bold.Sprint("keel benchmark suite"))
	fmt.Println(text.Faint.Sprint("running benchmarks..."))
	fmt.Println()

	cmd := exec.Command(
		"go", "test", "-run=^$", "-bench=.", "-benchmem",
		"-count="+strconv.Itoa(*count), "-benchtime="+*benchtime,
	)
	cmd.Dir = *dir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "benchmark failed: %s\n", string(exitErr.Stderr))
		}
		os.Exit(1)
	}

	results := parseResults(output)
	grouped := groupByCategory(results)
	for _, cat := range grouped {
		printCategory(cat)
	}
	printSummary(grouped)

	if *jsonOut != "" {
		if err := exportJSON(*jsonOut, results); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			os.Exit(1)
		}
	}
}

// parseResults averages repeated runs of each benchmark. Names follow
// <Category>_<Scenario>_<Framework>.
func parseResults(output []byte) []BenchmarkResult {
	runs := make(map[string][]BenchmarkResult)
	var names []string

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		m := benchPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}

		name := m[1]
		idx := strings.LastIndex(name, "_")
		if idx < 0 {
			continue
		}

		iterations, _ := strconv.ParseInt(m[2], 10, 64)
		nsPerOp, _ := strconv.ParseFloat(m[3], 64)
		bytesPerOp, _ := strconv.ParseInt(m[4], 10, 64)
		allocsOp, _ := strconv.ParseInt(m[5], 10, 64)

		if _, ok := runs[name]; !ok {
			names = append(names, name)
		}
		runs[name] = append(
			runs[name], BenchmarkResult{
				Name:       name,
				Framework:  name[idx+1:],
				Category:   name[:idx],
				Iterations: iterations,
				NsPerOp:    nsPerOp,
				BytesPerOp: bytesPerOp,
				AllocsOp:   allocsOp,
			},
		)
	}

	results := make([]BenchmarkResult, 0, len(names))
	for _, name := range names {
		rs := runs[name]
		var totalNs float64
		var totalBytes, totalAllocs int64
		for _, r := range rs {
			totalNs += r.NsPerOp
			totalBytes += r.BytesPerOp
			totalAllocs += r.AllocsOp
		}
		n := float64(len(rs))

		avg := rs[0]
		avg.NsPerOp = totalNs / n
		avg.BytesPerOp = int64(float64(totalBytes) / n)
		avg.AllocsOp = int64(float64(totalAllocs) / n)
		results = append(results, avg)
	}
	return results
}

func groupByCategory(results []BenchmarkResult) []CategoryResults {
	groups := make(map[string][]BenchmarkResult)
	var extra []string
	for _, r := range results {
		if _, ok := groups[r.Category]; !ok && !slices.Contains(categoryOrder, r.Category) {
			extra = append(extra, r.Category)
		}
		groups[r.Category] = append(groups[r.Category], r)
	}

	var ordered []CategoryResults
	for _, key := range append(slices.Clone(categoryOrder), extra...) {
		rs, ok := groups[key]
		if !ok {
			continue
		}
		slices.SortFunc(
			rs, func(a, b BenchmarkResult) int {
				switch {
				case a.NsPerOp < b.NsPerOp:
					return -1
				case a.NsPerOp > b.NsPerOp:
					return 1
				default:
					return 0
				}
			},
		)
		ordered = append(ordered, CategoryResults{Category: key, Results: rs})
	}
	return ordered
}

func printCategory(cat CategoryResults) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title(cat.Category))
	t.AppendHeader(table.Row{"Framework", "Time/op", "B/op", "Allocs/op", "Relative"})
	t.SetColumnConfigs(
		[]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
		},
	)

	fastest := cat.Results[0].NsPerOp
	for i, r := range cat.Results {
		relative := "fastest"
		if i > 0 && fastest > 0 {
			relative = fmt.Sprintf("%.1fx", r.NsPerOp/fastest)
		}
		t.AppendRow(
			table.Row{
				colorize(r.Framework),
				formatNs(r.NsPerOp),
				r.BytesPerOp,
				r.AllocsOp,
				relative,
			},
		)
	}

	t.Render()
	fmt.Println()
}

func printSummary(groups []CategoryResults) {
	wins := make(map[string]int)
	for _, cat := range groups {
		wins[cat.Results[0].Framework]++
	}

	frameworks := make([]string, 0, len(wins))
	for name := range wins {
		frameworks = append(frameworks, name)
	}
	slices.SortFunc(
		frameworks, func(a, b string) int {
			if wins[a] != wins[b] {
				return wins[b] - wins[a]
			}
			return strings.Compare(a, b)
		},
	)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Summary")
	t.AppendHeader(table.Row{"Framework", "Fastest in"})
	for _, name := range frameworks {
		t.AppendRow(table.Row{colorize(name), fmt.Sprintf("%d/%d", wins[name], len(groups))})
	}
	t.AppendFooter(
		table.Row{
			"compared",
			"keel, samber/do, uber/dig, uber/fx",
		},
	)
	t.Render()
}

func title(category string) string {
	if t, ok := categoryTitles[category]; ok {
		return t
	}
	return strings.ReplaceAll(category, "_", " ")
}

func colorize(framework string) string {
	if colors, ok := frameworkColors[framework]; ok {
		return colors.Sprint(framework)
	}
	return framework
}

func formatNs(ns float64) string {
	switch {
	case ns >= 1_000_000:
		return fmt.Sprintf("%.2f ms", ns/1_000_000)
	case ns >= 1_000:
		return fmt.Sprintf("%.2f µs", ns/1_000)
	default:
		return fmt.Sprintf("%.0f ns", ns)
	}
}

func exportJSON(path string, results []BenchmarkResult) error {
	data, err := json.MarshalIndent(struct {
		Benchmarks []BenchmarkResult `json:"benchmarks"`
	}{Benchmarks: results}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Println(text.Faint.Sprintf("results exported to %s", path))
	return nil
}
