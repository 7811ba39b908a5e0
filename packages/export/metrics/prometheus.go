package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// PrometheusExporter exports metrics in Prometheus text format
type PrometheusExporter struct {
	mu           sync.RWMutex
	aggregate    *AggregateMetrics
	writer       io.Writer
	serveHTTP    bool
	addr         string
	server       *http.Server
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

// WithPrometheusHTTP enables HTTP endpoint serving on port
func WithPrometheusHTTP(port int) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.serveHTTP = true
		p.addr = fmt.Sprintf(":%d", port)
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{
		aggregate: NewAggregateMetrics(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.serveHTTP {
		p.startHTTPServer()
	}

	return p
}

func (p *PrometheusExporter) startHTTPServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", p.handleMetrics)

	p.server = &http.Server{
		Addr:              p.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Prometheus HTTP server error: %v\n", err)
		}
	}()
}

// ServeHTTP serves the latest aggregate
func (p *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handleMetrics(w, r)
}

func (p *PrometheusExporter) handleMetrics(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	p.writeMetrics(w)
}

// Export exports aggregated metrics
func (p *PrometheusExporter) Export(metrics *AggregateMetrics) error {
	p.mu.Lock()
	p.aggregate = metrics
	p.mu.Unlock()

	if p.writer != nil {
		p.mu.RLock()
		defer p.mu.RUnlock()
		p.writeMetrics(p.writer)
	}

	return nil
}

// ExportSingle is a no-op; Prometheus is scraped from the aggregate
func (p *PrometheusExporter) ExportSingle(metric *TestMetrics) error {
	return nil
}

func (p *PrometheusExporter) writeMetrics(w io.Writer) {
	a := p.aggregate

	fmt.Fprintf(w, "# HELP hitbench_iterations_total Completed benchmark iterations\n")
	fmt.Fprintf(w, "# TYPE hitbench_iterations_total counter\n")
	fmt.Fprintf(w, "hitbench_iterations_total %d\n", a.Iterations)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP hitbench_test_runs_total Measured test executions\n")
	fmt.Fprintf(w, "# TYPE hitbench_test_runs_total counter\n")
	fmt.Fprintf(w, "hitbench_test_runs_total %d\n", a.TestRuns)
	fmt.Fprintln(w)

	if len(a.Scores) > 0 {
		fmt.Fprintf(w, "# HELP hitbench_score Benchmark score, higher is faster\n")
		fmt.Fprintf(w, "# TYPE hitbench_score gauge\n")
		fmt.Fprintf(w, "hitbench_score{stat=\"avg\"} %.4f\n", a.ScoreAvg)
		fmt.Fprintf(w, "hitbench_score{stat=\"min\"} %.4f\n", a.ScoreMin)
		fmt.Fprintf(w, "hitbench_score{stat=\"max\"} %.4f\n", a.ScoreMax)
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP hitbench_geomean_ms Geometric mean of suite totals in milliseconds\n")
		fmt.Fprintf(w, "# TYPE hitbench_geomean_ms gauge\n")
		fmt.Fprintf(w, "hitbench_geomean_ms %.4f\n", a.GeomeanAvgMs)
		fmt.Fprintln(w)
	}

	if len(a.BySuite) > 0 {
		names := make([]string, 0, len(a.BySuite))
		for name := range a.BySuite {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "# HELP hitbench_suite_total_ms Suite total time in milliseconds\n")
		fmt.Fprintf(w, "# TYPE hitbench_suite_total_ms gauge\n")
		for _, name := range names {
			sa := a.BySuite[name]
			label := sanitizeLabel(name)
			fmt.Fprintf(w, "hitbench_suite_total_ms{suite=\"%s\",stat=\"avg\"} %.4f\n", label, sa.AvgTotalMs)
			fmt.Fprintf(w, "hitbench_suite_total_ms{suite=\"%s\",stat=\"min\"} %.4f\n", label, sa.MinTotalMs)
			fmt.Fprintf(w, "hitbench_suite_total_ms{suite=\"%s\",stat=\"max\"} %.4f\n", label, sa.MaxTotalMs)
		}
		fmt.Fprintln(w)
	}

	if len(a.ByTest) > 0 {
		keys := make([]string, 0, len(a.ByTest))
		for key := range a.ByTest {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(w, "# HELP hitbench_test_duration_ms Average test time by phase in milliseconds\n")
		fmt.Fprintf(w, "# TYPE hitbench_test_duration_ms gauge\n")
		for _, key := range keys {
			ta := a.ByTest[key]
			labels := fmt.Sprintf("suite=\"%s\",test=\"%s\"", sanitizeLabel(ta.Suite), sanitizeLabel(ta.Name))
			fmt.Fprintf(w, "hitbench_test_duration_ms{%s,phase=\"sync\"} %.4f\n", labels, ta.AvgSyncMs)
			fmt.Fprintf(w, "hitbench_test_duration_ms{%s,phase=\"async\"} %.4f\n", labels, ta.AvgAsyncMs)
			fmt.Fprintf(w, "hitbench_test_duration_ms{%s,phase=\"total\"} %.4f\n", labels, ta.AvgTotalMs)
		}
	}
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	// Replace characters that need escaping
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// Close shuts down the exporter
func (p *PrometheusExporter) Close() error {
	if p.server != nil {
		return p.server.Close()
	}
	return nil
}
