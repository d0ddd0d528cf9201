package watcher_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prism-ops/llm-resilience/internal/clock"
	"github.com/prism-ops/llm-resilience/internal/metrics"
	"github.com/prism-ops/llm-resilience/internal/watcher"
)

var _ = Describe("Watcher HTTP surface", func() {
	var (
		server *httptest.Server
		clk    *clock.Fake
	)

	BeforeEach(func() {
		clk = clock.NewFake(time.UnixMilli(1_700_000_000_000))
		w := watcher.New(5*time.Minute, watcher.Thresholds{
			P95SLOMS:       1200,
			ErrorRateSLO:   0.02,
			ErrorRateAmber: 0.05,
			MinSampleCount: 20,
		}, clk, metrics.NewCanary(), quietLogger())
		server = httptest.NewServer(w.Routes())
	})

	AfterEach(func() {
		server.Close()
	})

	post := func(body string) *http.Response {
		res, err := http.Post(server.URL+"/samples", "application/json", bytes.NewBufferString(body))
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	postUniform := func(n int, latency float64, ok bool) {
		samples := make([]testSample, n)
		for i := range samples {
			samples[i] = testSample{Timestamp: clk.Now().UnixMilli(), OK: ok, LatencyMS: latency, Provider: "primary"}
		}
		res := post(string(batchBody(samples)))
		defer res.Body.Close()
		Expect(res.StatusCode).To(Equal(http.StatusOK))
	}

	getHealthz := func() (*http.Response, map[string]any) {
		res, err := http.Get(server.URL + "/healthz")
		Expect(err).NotTo(HaveOccurred())
		defer res.Body.Close()

		var body map[string]any
		Expect(json.NewDecoder(res.Body).Decode(&body)).To(Succeed())
		return res, body
	}

	Describe("POST /samples", func() {
		It("should report accepted count and window size", func() {
			res := post(`{"samples":[{"latency_ms":100,"ok":true},{"latency_ms":200,"ok":true}]}`)
			defer res.Body.Close()
			Expect(res.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Accepted   int `json:"accepted"`
				WindowSize int `json:"windowSize"`
			}
			Expect(json.NewDecoder(res.Body).Decode(&body)).To(Succeed())
			Expect(body.Accepted).To(Equal(2))
			Expect(body.WindowSize).To(Equal(2))
		})

		It("should answer 400 invalid_payload when samples is not an array", func() {
			res := post(`{"samples":42}`)
			defer res.Body.Close()
			Expect(res.StatusCode).To(Equal(http.StatusBadRequest))

			var body map[string]string
			Expect(json.NewDecoder(res.Body).Decode(&body)).To(Succeed())
			Expect(body["error"]).To(Equal("invalid_payload"))
		})
	})

	Describe("GET /healthz", func() {
		It("should answer 200 amber with no data", func() {
			res, body := getHealthz()
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			Expect(body["state"]).To(Equal("amber"))
			Expect(body["reason"]).To(Equal("insufficient_data"))
		})

		It("should answer 503 iff the state is red", func() {
			// 3 of 25 failed: error rate 0.12 breaches the amber limit.
			samples := make([]testSample, 0, 25)
			for i := 0; i < 25; i++ {
				samples = append(samples, testSample{
					Timestamp: clk.Now().UnixMilli(),
					OK:        i >= 3,
					LatencyMS: 100,
				})
			}
			res := post(string(batchBody(samples)))
			res.Body.Close()

			healthRes, body := getHealthz()
			Expect(healthRes.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(body["state"]).To(Equal("red"))
		})

		It("should answer 200 green and include window metrics", func() {
			postUniform(25, 100, true)

			res, body := getHealthz()
			Expect(res.StatusCode).To(Equal(http.StatusOK))
			Expect(body["state"]).To(Equal("green"))
			Expect(body["ts"]).To(BeNumerically("==", clk.Now().UnixMilli()))

			m := body["metrics"].(map[string]any)
			Expect(m["sample_count"]).To(BeNumerically("==", 25))
			Expect(m["p95_ms"]).To(BeNumerically("==", 100))
			Expect(m["window_ms"]).To(BeNumerically("==", 300000))
		})
	})

	Describe("GET /metrics", func() {
		It("should expose canary counters in Prometheus format", func() {
			postUniform(5, 100, true)

			res, err := http.Get(server.URL + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			defer res.Body.Close()
			Expect(res.StatusCode).To(Equal(http.StatusOK))

			buf := new(bytes.Buffer)
			_, err = buf.ReadFrom(res.Body)
			Expect(err).NotTo(HaveOccurred())

			exposition := buf.String()
			Expect(exposition).To(ContainSubstring(`prism_llm_canary_requests_total{provider="primary",status="ok"} 5`))
			Expect(exposition).To(ContainSubstring("prism_llm_canary_latency_ms_bucket"))
			Expect(exposition).To(ContainSubstring("go_goroutines"))
		})
	})
})
