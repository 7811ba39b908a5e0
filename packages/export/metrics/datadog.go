package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"
)

// ErrNoAPIKey is returned when no DataDog API key is configured
var ErrNoAPIKey = errors.New("DataDog API key not configured")

// DataDogExporter exports metrics to DataDog
type DataDogExporter struct {
	apiKey   string
	site     string // e.g., "datadoghq.com", "datadoghq.eu"
	endpoint string
	tags     []string
	prefix   string
	client   *http.Client
}

// DataDogOption is a functional option for DataDogExporter
type DataDogOption func(*DataDogExporter)

// WithDataDogAPIKey sets the DataDog API key
func WithDataDogAPIKey(apiKey string) DataDogOption {
	return func(d *DataDogExporter) {
		d.apiKey = apiKey
	}
}

// WithDataDogSite sets the DataDog site (e.g., "datadoghq.com", "datadoghq.eu")
func WithDataDogSite(site string) DataDogOption {
	return func(d *DataDogExporter) {
		d.site = site
	}
}

// WithDataDogEndpoint overrides the series endpoint URL
func WithDataDogEndpoint(url string) DataDogOption {
	return func(d *DataDogExporter) {
		d.endpoint = url
	}
}

// WithDataDogTags sets additional tags for all metrics
func WithDataDogTags(tags []string) DataDogOption {
	return func(d *DataDogExporter) {
		d.tags = tags
	}
}

// WithDataDogPrefix sets a prefix for metric names
func WithDataDogPrefix(prefix string) DataDogOption {
	return func(d *DataDogExporter) {
		d.prefix = prefix
	}
}

// NewDataDogExporter creates a new DataDog metrics exporter
func NewDataDogExporter(opts ...DataDogOption) *DataDogExporter {
	d := &DataDogExporter{
		site:   "datadoghq.com",
		prefix: "hitbench",
		client: &http.Client{Timeout: 10 * time.Second},
		tags:   make([]string, 0),
	}

	for _, opt := range opts {
		opt(d)
	}

	// Try to get API key from environment if not set
	if d.apiKey == "" {
		d.apiKey = os.Getenv("DD_API_KEY")
	}

	return d
}

// datadogMetric represents a metric in DataDog format
type datadogMetric struct {
	Metric string   `json:"metric"`
	Type   string   `json:"type"`
	Points [][]any  `json:"points"`
	Tags   []string `json:"tags,omitempty"`
}

// datadogPayload is the payload sent to DataDog
type datadogPayload struct {
	Series []datadogMetric `json:"series"`
}

func (d *DataDogExporter) gauge(name string, now, value float64, extra ...string) datadogMetric {
	tags := append(append([]string{}, extra...), d.tags...)
	return datadogMetric{
		Metric: d.metricName(name),
		Type:   "gauge",
		Points: [][]any{{now, value}},
		Tags:   tags,
	}
}

// Export exports aggregated metrics to DataDog
func (d *DataDogExporter) Export(metrics *AggregateMetrics) error {
	if d.apiKey == "" {
		return ErrNoAPIKey
	}

	now := float64(time.Now().Unix())
	series := []datadogMetric{
		{
			Metric: d.metricName("iterations"),
			Type:   "count",
			Points: [][]any{{now, float64(metrics.Iterations)}},
			Tags:   d.tags,
		},
	}

	if len(metrics.Scores) > 0 {
		series = append(series,
			d.gauge("score.avg", now, metrics.ScoreAvg),
			d.gauge("score.min", now, metrics.ScoreMin),
			d.gauge("score.max", now, metrics.ScoreMax),
			d.gauge("geomean_ms", now, metrics.GeomeanAvgMs),
		)
	}

	suites := make([]string, 0, len(metrics.BySuite))
	for name := range metrics.BySuite {
		suites = append(suites, name)
	}
	sort.Strings(suites)
	for _, name := range suites {
		sa := metrics.BySuite[name]
		series = append(series, d.gauge("suite.total_ms", now, sa.AvgTotalMs, "suite:"+name))
	}

	keys := make([]string, 0, len(metrics.ByTest))
	for key := range metrics.ByTest {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ta := metrics.ByTest[key]
		series = append(series,
			d.gauge("test.sync_ms", now, ta.AvgSyncMs, "suite:"+ta.Suite, "test:"+ta.Name),
			d.gauge("test.async_ms", now, ta.AvgAsyncMs, "suite:"+ta.Suite, "test:"+ta.Name),
		)
	}

	return d.sendMetrics(series)
}

// ExportSingle is a no-op; per-test values are sent as averages by Export
func (d *DataDogExporter) ExportSingle(metric *TestMetrics) error {
	return nil
}

func (d *DataDogExporter) metricName(name string) string {
	return d.prefix + "." + name
}

func (d *DataDogExporter) sendMetrics(series []datadogMetric) error {
	payload := datadogPayload{Series: series}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	url := d.endpoint
	if url == "" {
		url = fmt.Sprintf("https://api.%s/api/v1/series", d.site)
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("DataDog API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close closes the DataDog exporter
func (d *DataDogExporter) Close() error {
	return nil
}
