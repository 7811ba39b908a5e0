package metrics

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

func runIteration(c *Collector, aMs, bMs float64) {
	client := c.Client()
	agg := results.NewAggregator()
	for _, tc := range []struct {
		suite string
		ms    float64
	}{{"A", aMs}, {"B", bMs}} {
		timing := agg.Record(tc.suite, "one", tc.ms, 0)
		client.DidRunTest(&suite.Suite{Name: tc.suite}, &suite.Test{Name: "one"}, timing)
	}
	client.DidRunSuites(agg.Finalize())
}

func TestCollectorAggregates(t *testing.T) {
	c := NewCollector()
	runIteration(c, 10, 40)
	runIteration(c, 20, 20)

	a := c.GetAggregate()
	assert.Equal(t, 2, a.Iterations)
	assert.Equal(t, int64(4), a.TestRuns)
	require.Len(t, a.Scores, 2)
	assert.InDelta(t, 1000, a.ScoreMin, 1e-9)
	assert.InDelta(t, 1000, a.ScoreMax, 1e-9)
	assert.InDelta(t, 20, a.GeomeanAvgMs, 1e-9)

	sa := a.BySuite["A"]
	require.NotNil(t, sa)
	assert.Equal(t, int64(2), sa.Runs)
	assert.InDelta(t, 15, sa.AvgTotalMs, 1e-9)
	assert.InDelta(t, 10, sa.MinTotalMs, 1e-9)
	assert.InDelta(t, 20, sa.MaxTotalMs, 1e-9)

	ta := a.ByTest["B/one"]
	require.NotNil(t, ta)
	assert.InDelta(t, 30, ta.AvgSyncMs, 1e-9)

	m := c.Metrics()
	require.Len(t, m, 4)
	assert.Equal(t, 1, m[0].Iteration)
	assert.Equal(t, 2, m[3].Iteration)
}

func TestCollectorSkipsUndefinedScores(t *testing.T) {
	c := NewCollector()
	c.RecordSummary(results.NewAggregator().Finalize())

	a := c.GetAggregate()
	assert.Equal(t, 1, a.Iterations)
	assert.Empty(t, a.Scores)
}

func TestPrometheusExporter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrometheusExporter(WithPrometheusWriter(&buf))
	c := NewCollector(p)
	runIteration(c, 10, 40)
	require.NoError(t, c.Flush())

	out := buf.String()
	assert.Contains(t, out, "# TYPE hitbench_score gauge")
	assert.Contains(t, out, `hitbench_score{stat="avg"} 1000.0000`)
	assert.Contains(t, out, `hitbench_suite_total_ms{suite="A",stat="avg"} 10.0000`)
	assert.Contains(t, out, `hitbench_test_duration_ms{suite="B",test="one",phase="sync"} 40.0000`)
	assert.Contains(t, out, "hitbench_iterations_total 1")

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "hitbench_score")
	require.NoError(t, c.Close())
}

func TestPrometheusOmitsScoreWhenUndefined(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrometheusExporter(WithPrometheusWriter(&buf))
	require.NoError(t, p.Export(NewAggregateMetrics()))
	assert.NotContains(t, buf.String(), "hitbench_score")
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, `a\"b\\c\n`, sanitizeLabel("a\"b\\c\n"))
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSONExporter(WithJSONWriter(&buf), WithJSONVersion("1.2.3"))
	c := NewCollector(j)
	runIteration(c, 10, 40)
	require.NoError(t, c.Flush())

	var out JSONMetricsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "1.2.3", out.Metadata.Version)
	assert.Len(t, out.TestResults, 2)
	assert.Equal(t, 1, out.Summary.Iterations)
}

func TestDataDogExporter(t *testing.T) {
	var payload datadogPayload
	var apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("DD-API-KEY")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewDataDogExporter(
		WithDataDogAPIKey("secret"),
		WithDataDogEndpoint(server.URL),
		WithDataDogTags([]string{"env:ci"}),
	)
	c := NewCollector(d)
	runIteration(c, 10, 40)
	require.NoError(t, c.Flush())

	assert.Equal(t, "secret", apiKey)
	names := make(map[string]bool)
	for _, s := range payload.Series {
		names[s.Metric] = true
		assert.Contains(t, s.Tags, "env:ci")
	}
	assert.True(t, names["hitbench.score.avg"])
	assert.True(t, names["hitbench.suite.total_ms"])
	assert.True(t, names["hitbench.test.async_ms"])
}

func TestDataDogExporterErrors(t *testing.T) {
	t.Setenv("DD_API_KEY", "")
	assert.ErrorIs(t, NewDataDogExporter().Export(NewAggregateMetrics()), ErrNoAPIKey)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	d := NewDataDogExporter(WithDataDogAPIKey("k"), WithDataDogEndpoint(server.URL))
	err := d.Export(NewAggregateMetrics())
	assert.ErrorContains(t, err, "403")
}
