// Package sample defines the canary sample wire schema and its tolerant
// normalization rules.
//
// A batch is rejected as a whole only when its "samples" field is not an
// array. Individual malformed elements (missing or non-finite latency,
// undecodable JSON) are dropped silently so one bad probe never blocks the
// rest of the batch. Timestamps are normalized to epoch milliseconds;
// values that look like epoch seconds are converted.
package sample
