// gtest compiles every test source in-process and compares the emitted code,
// or the diagnostic, against a golden .<file>.json stored next to it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/iasmc/pkg/codegen"
	"github.com/xplshn/iasmc/pkg/compiler"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/util"
)

// Golden is the recorded outcome of compiling one source
type Golden struct {
	Hash   string   `json:"hash,omitempty"`
	Target string   `json:"target,omitempty"`
	Lines  []string `json:"lines,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type FileTestResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
	Expected *Golden       `json:"expected,omitempty"`
	Actual   *Golden       `json:"actual,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	generateGolden = flag.Bool("generate-golden", false, "Write golden .json files for the matched sources instead of testing them.")
	testFiles      = flag.String("test-files", "testdata/*.expr", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	target         = flag.String("target", "iasm", "Backend used to render the compiled program.")
	registers      = flag.Int("registers", config.DefaultPoolSize, "Size of the virtual register pool.")
	jobs           = flag.Int("j", runtime.NumCPU(), "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if *jobs < 1 {
		*jobs = 1
	}
	// warnings are not part of the recorded outcome
	util.SetOutput(io.Discard)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	if *generateGolden {
		handleGenerateGolden(files)
		return
	}
	handleRunTestSuite(files)
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

func hashSource(src []byte) string { return fmt.Sprintf("%x", xxhash.Sum64(src)) }

func newConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.SetPoolSize(*registers); err != nil {
		return nil, err
	}
	if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, *target); err != nil {
		return nil, err
	}
	return cfg, nil
}

// compileFile records what compiling sourceFile produces. A compile error is
// an outcome, not a failure of the runner.
func compileFile(sourceFile string) (*Golden, error) {
	src, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, err
	}
	cfg, err := newConfig()
	if err != nil {
		return nil, err
	}

	result := &Golden{Hash: hashSource(src), Target: cfg.BackendName}
	unit, err := compiler.CompileSource(filepath.Base(sourceFile), string(src), 0, cfg)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	backend, err := codegen.SelectBackend(cfg.BackendName)
	if err != nil {
		return nil, err
	}
	text, err := backend.GenerateIR(unit.IR, cfg)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return result, nil
}

func handleGenerateGolden(files []string) {
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	for _, sourceFile := range files {
		golden, err := compileFile(sourceFile)
		if err != nil {
			log.Fatalf("%s[ERROR]%s Could not generate golden file for %s: %v\n", cRed, cNone, sourceFile, err)
		}
		jsonData, err := json.MarshalIndent(golden, "", "  ")
		if err != nil {
			log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
		}
		goldenFileName := getJSONPath(sourceFile)
		if err := os.WriteFile(goldenFileName, append(jsonData, '\n'), 0644); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
		}
		log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
	}
}

func handleRunTestSuite(files []string) {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[uint64]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		src, err := os.ReadFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		h := xxhash.Sum64(src)
		if originalFile, seen := seenHashes[h]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[h] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func testFile(file string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if os.IsNotExist(err) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var expected Golden
	if err := json.Unmarshal(goldenData, &expected); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	start := time.Now()
	actual, err := compileFile(file)
	elapsed := time.Since(start)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error(), Duration: elapsed}
	}
	if *verbose {
		log.Printf("[%s] compiled in %s", file, elapsed)
	}
	return compareResults(file, &expected, actual, elapsed)
}

// compareResults diffs the outcome against the golden file. Fields the golden
// leaves empty, the hash and target, are not compared.
func compareResults(file string, expected, actual *Golden, elapsed time.Duration) *FileTestResult {
	var diffs strings.Builder
	var notes []string

	if expected.Hash != "" && expected.Hash != actual.Hash {
		notes = append(notes, "source changed since the golden file was generated")
	}
	if expected.Target != "" && expected.Target != actual.Target {
		return &FileTestResult{
			File: file, Status: "SKIP", Duration: elapsed,
			Message: fmt.Sprintf("Golden file was recorded for target '%s', running '%s'", expected.Target, actual.Target),
		}
	}
	if d := cmp.Diff(expected.Lines, actual.Lines); d != "" {
		diffs.WriteString("Output mismatch (-golden +actual):\n" + d)
	}
	if d := cmp.Diff(expected.Error, actual.Error); d != "" {
		diffs.WriteString("Diagnostic mismatch (-golden +actual):\n" + d)
	}

	result := &FileTestResult{File: file, Duration: elapsed, Expected: expected, Actual: actual}
	if diffs.Len() > 0 {
		result.Status, result.Message, result.Diff = "FAIL", "Compiler output differs from golden file", diffs.String()
	} else {
		result.Status, result.Message = "PASS", "Output matches golden file"
	}
	if len(notes) > 0 {
		result.Message += " (" + strings.Join(notes, "; ") + ")"
	}
	return result
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)
		total += result.Duration

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s [%s]\n", cGreen, cNone, result.Message, formatDuration(result.Duration))
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if *verbose {
		fmt.Printf("Total compile time: %s\n", total)
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
