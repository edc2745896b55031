package events

import "log/slog"

// SlogSink logs each event as a structured line at the ambient logger's
// level: Started/Progress/Unchanged/Deduplicated at Debug, Completed at
// Info, Failed at Warn.
type SlogSink struct {
	log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	if log == nil {
		log = slog.Default()
	}
	return &SlogSink{log: log}
}

func (s *SlogSink) Started(e Started) {
	s.log.Debug("download started", "worker_id", e.WorkerID, "url", e.URL, "filename", e.Filename)
}

func (s *SlogSink) Progress(e Progress) {
	s.log.Debug("download progress", "worker_id", e.WorkerID, "url", e.URL, "bytes", e.Bytes, "total", e.Total)
}

func (s *SlogSink) Completed(e Completed) {
	s.log.Info("download completed", "worker_id", e.WorkerID, "url", e.URL, "new_document", e.NewDocument)
}

func (s *SlogSink) Deduplicated(e Deduplicated) {
	s.log.Debug("download deduplicated", "worker_id", e.WorkerID, "url", e.URL, "existing_path", e.ExistingPath)
}

func (s *SlogSink) Unchanged(e Unchanged) {
	s.log.Debug("download unchanged", "worker_id", e.WorkerID, "url", e.URL)
}

func (s *SlogSink) Failed(e Failed) {
	s.log.Warn("download failed", "worker_id", e.WorkerID, "url", e.URL, "error", e.Error)
}

var _ Sink = (*SlogSink)(nil)
