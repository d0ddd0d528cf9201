package sample_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prism-ops/llm-resilience/internal/sample"
)

var _ = Describe("Sample", func() {
	now := time.UnixMilli(1_700_000_000_000)

	Describe("ParseBatch", func() {
		It("should extract the elements of a samples array", func() {
			raw, err := sample.ParseBatch([]byte(`{"samples":[{"latency_ms":100},{"latency_ms":200}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(HaveLen(2))
		})

		It("should accept an empty samples array", func() {
			raw, err := sample.ParseBatch([]byte(`{"samples":[]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(BeEmpty())
		})

		It("should reject a missing samples field", func() {
			_, err := sample.ParseBatch([]byte(`{}`))
			Expect(err).To(MatchError(sample.ErrInvalidPayload))
		})

		It("should reject a non-array samples field", func() {
			_, err := sample.ParseBatch([]byte(`{"samples":"nope"}`))
			Expect(err).To(MatchError(sample.ErrInvalidPayload))

			_, err = sample.ParseBatch([]byte(`{"samples":{"latency_ms":100}}`))
			Expect(err).To(MatchError(sample.ErrInvalidPayload))
		})

		It("should reject a body that is not JSON", func() {
			_, err := sample.ParseBatch([]byte(`not json at all`))
			Expect(err).To(MatchError(sample.ErrInvalidPayload))
		})
	})

	Describe("Normalize", func() {
		It("should accept a well-formed sample", func() {
			s, ok := sample.Normalize(json.RawMessage(
				`{"timestamp":1700000000000,"provider":"primary","ok":true,"latency_ms":123.5,"timed_out":false,"status_code":200}`), now)
			Expect(ok).To(BeTrue())
			Expect(s.Provider).To(Equal("primary"))
			Expect(s.LatencyMS).To(Equal(123.5))
			Expect(s.Timestamp).To(Equal(int64(1_700_000_000_000)))
			Expect(s.StatusCode).To(Equal(200))
		})

		It("should drop a sample without latency", func() {
			_, ok := sample.Normalize(json.RawMessage(`{"provider":"primary","ok":true}`), now)
			Expect(ok).To(BeFalse())
		})

		It("should drop a sample with negative latency", func() {
			_, ok := sample.Normalize(json.RawMessage(`{"latency_ms":-5}`), now)
			Expect(ok).To(BeFalse())
		})

		It("should drop a sample with non-numeric latency", func() {
			_, ok := sample.Normalize(json.RawMessage(`{"latency_ms":"fast"}`), now)
			Expect(ok).To(BeFalse())
		})

		It("should default the timestamp to ingestion time", func() {
			s, ok := sample.Normalize(json.RawMessage(`{"latency_ms":100}`), now)
			Expect(ok).To(BeTrue())
			Expect(s.Timestamp).To(Equal(now.UnixMilli()))
		})

		It("should convert second-resolution timestamps to milliseconds", func() {
			s, ok := sample.Normalize(json.RawMessage(`{"latency_ms":100,"timestamp":1700000000}`), now)
			Expect(ok).To(BeTrue())
			Expect(s.Timestamp).To(Equal(int64(1_700_000_000_000)))
		})

		It("should label a sample without provider as unknown", func() {
			s, ok := sample.Normalize(json.RawMessage(`{"latency_ms":100}`), now)
			Expect(ok).To(BeTrue())
			Expect(s.Provider).To(Equal("unknown"))
		})
	})

	Describe("NormalizeBatch", func() {
		It("should keep good elements and drop bad ones", func() {
			raw, err := sample.ParseBatch([]byte(
				`{"samples":[{"latency_ms":100},{"ok":true},{"latency_ms":-1},{"latency_ms":250,"ok":true}]}`))
			Expect(err).NotTo(HaveOccurred())

			samples := sample.NormalizeBatch(raw, now)
			Expect(samples).To(HaveLen(2))
			Expect(samples[0].LatencyMS).To(Equal(100.0))
			Expect(samples[1].LatencyMS).To(Equal(250.0))
		})
	})
})
