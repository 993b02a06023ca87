// Package dedupe remembers the outcome of recently handled requests so a
// replayed request id can be answered with the original result instead of
// being applied twice.
package dedupe
