package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency  = metric.NewHistogram("1m1s")
	RecomputeLatency = metric.NewHistogram("1m1s")
	McastEntries     = metric.NewHistogram("1m1s")
	Ticks            = metric.NewCounter("10s1s")
	Recomputes       = metric.NewCounter("10s1s")
	LinksOpened      = metric.NewCounter("10s1s")
	LinksClosed      = metric.NewCounter("10s1s")
	PacketsForwarded = metric.NewCounter("10s1s")
	PacketsDelivered = metric.NewCounter("10s1s")
	PacketsDropped   = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("lrr:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("lrr:RecomputeLatency (µs)", RecomputeLatency)
	expvar.Publish("lrr:McastEntries", McastEntries)

	expvar.Publish("lrr:Ticks/s", Ticks)
	expvar.Publish("lrr:Recomputes/s", Recomputes)
	expvar.Publish("lrr:LinksOpened/s", LinksOpened)
	expvar.Publish("lrr:LinksClosed/s", LinksClosed)
	expvar.Publish("lrr:Forwarded/s", PacketsForwarded)
	expvar.Publish("lrr:Delivered/s", PacketsDelivered)
	expvar.Publish("lrr:Dropped/s", PacketsDropped)
}
