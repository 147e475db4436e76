package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/messaging/kafka"
)

const defaultProductCount = 3

type config struct {
	brokersRaw     string
	topic          string
	total          int
	totalSet       bool
	duration       time.Duration
	concurrency    int
	customerTag    string
	productPrefix  int
	outputPath     string
	malformedRate  int
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt        time.Time               `json:"started_at"`
	DurationSeconds  float64                 `json:"duration_seconds"`
	TotalScenarios   int64                   `json:"total_scenarios"`
	SuccessScenarios int64                   `json:"success_scenarios"`
	FailedScenarios  int64                   `json:"failed_scenarios"`
	ErrorRate        float64                 `json:"error_rate"`
	RPS              float64                 `json:"rps"`
	PublishLatencyMs latencySummary          `json:"publish_latency_ms"`
	Methods          map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*methodStats)}
}

func (c *collector) record(method string, latency time.Duration, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[method]
	if !ok {
		stats = &methodStats{codes: make(map[string]int64)}
		c.methods[method] = stats
	}

	stats.calls++
	if status == "ok" {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[status]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	scenarioStats := c.methods["scenario"]
	if scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.PublishLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.methods {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var durationValue string

	flag.StringVar(&cfg.brokersRaw, "brokers", "localhost:9092", "Kafka brokers as comma-separated list")
	flag.StringVar(&cfg.topic, "topic", kafka.TopicOrders, "topic to publish synthetic order intents onto")
	flag.IntVar(&cfg.total, "total", 400, "total intents to publish in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent publisher workers")
	flag.StringVar(&cfg.customerTag, "customer-tag", "load", "customer id prefix")
	flag.IntVar(&cfg.productPrefix, "products", defaultProductCount, "number of synthetic product ids per intent")
	flag.IntVar(&cfg.malformedRate, "malformed-rate", 0, "percent of intents deliberately missing a required field, to exercise the failure ledger (0..100)")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.productPrefix <= 0 {
		return cfg, errors.New("products must be > 0")
	}
	if cfg.malformedRate < 0 || cfg.malformedRate > 100 {
		return cfg, errors.New("malformed-rate must be between 0 and 100")
	}
	if strings.TrimSpace(cfg.customerTag) == "" {
		return cfg, errors.New("customer-tag is required")
	}
	if strings.TrimSpace(cfg.topic) == "" {
		return cfg, errors.New("topic is required")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	producers := make([]*kafka.Producer, 0, cfg.concurrency)
	for i := 0; i < cfg.concurrency; i++ {
		producer, err := kafka.NewProducer(parseBrokers(cfg.brokersRaw))
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create kafka producer: %v\n", err)
			os.Exit(1)
		}
		producers = append(producers, producer)
	}
	defer func() {
		for _, producer := range producers {
			_ = producer.Close()
		}
	}()

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		producer := producers[workerID]
		go func(p *kafka.Producer) {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(p, cfg, id, runID, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(producer)
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// runScenario publishes one synthetic OrderIntent, optionally malformed so
// that a fraction of load exercises the validator and failure ledger instead
// of the happy path.
func runScenario(producer *kafka.Producer, cfg config, index int, runID string, col *collector) error {
	scenarioStart := time.Now()
	status := "ok"
	defer func() {
		col.record("scenario", time.Since(scenarioStart), status)
	}()

	intent := buildIntent(cfg, index, runID)

	publishStart := time.Now()
	err := producer.Publish(cfg.topic, intent.OrderID, intent)
	col.record("publish", time.Since(publishStart), publishStatus(err))
	if err != nil {
		status = "error"
		return err
	}

	return nil
}

func buildIntent(cfg config, index int, runID string) domain.OrderIntent {
	orderID := fmt.Sprintf("lt-%s-%d", runID, index)
	customerID := fmt.Sprintf("%s-%s-%d", cfg.customerTag, runID, index)

	productIDs := make([]string, 0, cfg.productPrefix)
	for p := 0; p < cfg.productPrefix; p++ {
		productIDs = append(productIDs, fmt.Sprintf("prod-%d", (index+p)%1000))
	}

	if shouldMalform(index, cfg.malformedRate) {
		customerID = ""
	}

	now := time.Now().UTC()
	return domain.OrderIntent{
		OrderID:    orderID,
		CustomerID: customerID,
		ProductIDs: productIDs,
		Timestamp:  &now,
	}
}

func shouldMalform(index, malformedRate int) bool {
	if malformedRate <= 0 {
		return false
	}
	if malformedRate >= 100 {
		return true
	}
	return index%100 < malformedRate
}

func publishStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("topic=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.topic,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("publish latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.PublishLatencyMs.Min,
		result.PublishLatencyMs.Avg,
		result.PublishLatencyMs.P50,
		result.PublishLatencyMs.P95,
		result.PublishLatencyMs.P99,
		result.PublishLatencyMs.Max,
	)

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == "scenario" {
			continue
		}
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		fmt.Printf(
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
