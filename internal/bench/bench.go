// Package bench drives concurrent vendors at one material and checks that stock is never
// oversold.
package bench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nazeru/materials-marketplace-go/internal/apiclient"
	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
)

var Supplier = domain.Caller{ID: "bench-supplier", Name: "Bench Supplier", Role: domain.RoleSupplier}

type Config struct {
	Client *apiclient.Client
	// MaterialID targets an existing material. When empty a fresh one with Stock units is created.
	MaterialID  domain.MaterialID
	Stock       int
	Total       int
	Concurrency int
}

type Result struct {
	Timestamp          string         `json:"timestamp"`
	BaseURL            string         `json:"base_url"`
	MaterialID         string         `json:"material_id"`
	Orders             int            `json:"orders"`
	Concurrency        int            `json:"concurrency"`
	SuccessfulRequests int            `json:"successful_requests"`
	ErrorRequests      int            `json:"error_requests"`
	DurationSeconds    float64        `json:"duration_seconds"`
	AvgLatencyMs       float64        `json:"avg_latency_ms"`
	MinLatencyMs       float64        `json:"min_latency_ms"`
	MaxLatencyMs       float64        `json:"max_latency_ms"`
	P50LatencyMs       float64        `json:"p50_latency_ms"`
	P90LatencyMs       float64        `json:"p90_latency_ms"`
	P95LatencyMs       float64        `json:"p95_latency_ms"`
	P99LatencyMs       float64        `json:"p99_latency_ms"`
	ThroughputRPS      float64        `json:"throughput_rps"`
	StatusCounts       map[string]int `json:"status_counts"`
	FirstError         string         `json:"first_error,omitempty"`
	InitialStock       int            `json:"initial_stock"`
	FinalStock         int            `json:"final_stock"`
	// Consistent holds when final stock plus the units sold equals the initial stock.
	Consistent bool `json:"consistent"`
}

func (r Result) Summary() string {
	return fmt.Sprintf("orders=%d ok=%d failed=%d p50=%.0fms p99=%.0fms stock %d -> %d consistent=%t",
		r.Orders, r.SuccessfulRequests, r.ErrorRequests, r.P50LatencyMs, r.P99LatencyMs,
		r.InitialStock, r.FinalStock, r.Consistent)
}

type runMetrics struct {
	mu           sync.Mutex
	success      int
	errors       int
	total        time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
	latenciesMs  []float64
	statusCounts map[string]int
	firstError   string
}

func newRunMetrics() *runMetrics {
	return &runMetrics{statusCounts: make(map[string]int)}
}

func (m *runMetrics) record(latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.statusCounts[strconv.Itoa(apiclient.Code(err))]++
		m.errors++
		if m.firstError == "" {
			m.firstError = err.Error()
		}
		return
	}
	m.statusCounts["2xx"]++
	m.success++
	m.total += latency
	if m.minLatency == 0 || latency < m.minLatency {
		m.minLatency = latency
	}
	if latency > m.maxLatency {
		m.maxLatency = latency
	}
	m.latenciesMs = append(m.latenciesMs, float64(latency.Milliseconds()))
}

// Run places cfg.Total orders of one unit each from distinct vendors, cfg.Concurrency at a time.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.Total <= 0 {
		return Result{}, errors.New("total must be > 0")
	}
	if cfg.Concurrency <= 0 {
		return Result{}, errors.New("concurrency must be > 0")
	}

	id := cfg.MaterialID
	if id == "" {
		m, err := cfg.Client.CreateMaterial(ctx, Supplier, apiclient.NewMaterial{
			Name: "Bench cement", Price: 100, Quantity: cfg.Stock, Unit: "bag", Category: "cement",
		})
		if err != nil {
			return Result{}, fmt.Errorf("create material: %w", err)
		}
		id = m.ID
	}
	before, err := cfg.Client.GetMaterial(ctx, Supplier, id)
	if err != nil {
		return Result{}, fmt.Errorf("read material: %w", err)
	}

	tasks := make(chan int)
	var wg sync.WaitGroup
	m := newRunMetrics()
	items := []ordertx.CheckoutItem{{MaterialID: id, Quantity: 1}}

	start := time.Now()
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range tasks {
				vendor := domain.Caller{ID: "bench-vendor-" + strconv.Itoa(n), Name: "Bench Vendor", Role: domain.RoleVendor, Address: "Bench yard"}
				t0 := time.Now()
				_, err := cfg.Client.PlaceOrder(ctx, vendor, "", items)
				m.record(time.Since(t0), err)
			}
		}()
	}
feed:
	for i := 0; i < cfg.Total; i++ {
		select {
		case tasks <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()
	duration := time.Since(start)

	after, err := cfg.Client.GetMaterial(ctx, Supplier, id)
	if err != nil {
		return Result{}, fmt.Errorf("read material: %w", err)
	}

	res := Result{
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		BaseURL:            cfg.Client.BaseURL,
		MaterialID:         string(id),
		Orders:             cfg.Total,
		Concurrency:        cfg.Concurrency,
		SuccessfulRequests: m.success,
		ErrorRequests:      m.errors,
		DurationSeconds:    duration.Seconds(),
		StatusCounts:       m.statusCounts,
		FirstError:         m.firstError,
		InitialStock:       before.Quantity,
		FinalStock:         after.Quantity,
		Consistent:         after.Quantity+m.success == before.Quantity,
	}
	if m.success > 0 {
		res.AvgLatencyMs = float64(m.total.Milliseconds()) / float64(m.success)
		res.MinLatencyMs = float64(m.minLatency.Milliseconds())
		res.MaxLatencyMs = float64(m.maxLatency.Milliseconds())
		res.ThroughputRPS = float64(m.success) / duration.Seconds()
	}
	res.P50LatencyMs, res.P90LatencyMs, res.P95LatencyMs, res.P99LatencyMs = calcPercentiles(m.latenciesMs)
	return res, nil
}

func calcPercentiles(values []float64) (float64, float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(values)
	return percentile(values, 0.50), percentile(values, 0.90), percentile(values, 0.95), percentile(values, 0.99)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
