package events

import "github.com/monokrome/foiacquire-sub003/internal/metrics"

// PrometheusSink reports terminal download outcomes into a
// metrics.Registry. Non-terminal events (Started, Progress) are not
// metered; they exist for UI consumption only.
type PrometheusSink struct {
	reg *metrics.Registry
}

func NewPrometheusSink(reg *metrics.Registry) *PrometheusSink {
	return &PrometheusSink{reg: reg}
}

func (p *PrometheusSink) Started(Started) {}

func (p *PrometheusSink) Progress(Progress) {}

func (p *PrometheusSink) Completed(Completed) {
	p.reg.DownloadsTotal.WithLabelValues("completed").Inc()
}

func (p *PrometheusSink) Deduplicated(Deduplicated) {
	p.reg.DownloadsTotal.WithLabelValues("deduplicated").Inc()
	p.reg.ContentStoreHits.Inc()
}

func (p *PrometheusSink) Unchanged(Unchanged) {
	p.reg.DownloadsTotal.WithLabelValues("unchanged").Inc()
}

func (p *PrometheusSink) Failed(Failed) {
	p.reg.DownloadsTotal.WithLabelValues("failed").Inc()
}

var _ Sink = (*PrometheusSink)(nil)
