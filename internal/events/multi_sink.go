package events

// MultiSink fans one event out to every wrapped Sink, in order.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Started(e Started) {
	for _, s := range m.sinks {
		s.Started(e)
	}
}

func (m *MultiSink) Progress(e Progress) {
	for _, s := range m.sinks {
		s.Progress(e)
	}
}

func (m *MultiSink) Completed(e Completed) {
	for _, s := range m.sinks {
		s.Completed(e)
	}
}

func (m *MultiSink) Deduplicated(e Deduplicated) {
	for _, s := range m.sinks {
		s.Deduplicated(e)
	}
}

func (m *MultiSink) Unchanged(e Unchanged) {
	for _, s := range m.sinks {
		s.Unchanged(e)
	}
}

func (m *MultiSink) Failed(e Failed) {
	for _, s := range m.sinks {
		s.Failed(e)
	}
}

var _ Sink = (*MultiSink)(nil)
