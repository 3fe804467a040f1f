// Package armstats is an optional dashboard for cmd/armrun. Built with the
// statsview build tag, it starts an HTTP server backed by
// github.com/go-echarts/statsview showing Go runtime statistics and
// publishes a retired-instruction counter through expvar; it does not
// report register or flag values. Without the tag every function is a
// no-op and Available reports false.
package armstats
