package progress

import (
	"log/slog"
	"math"
)

const DefaultEvery = 25

// Sink receives progress notifications, typically a UI meter.
type Sink interface {
	Begin(label string)
	Update(percent int)
	End()
}

// Reporter counts processed rows against an expected total and forwards a
// percentage to its sink every `every` rows.
type Reporter struct {
	sink      Sink
	every     int
	total     int
	processed int
}

func NewReporter(sink Sink, total, every int) *Reporter {
	if sink == nil {
		sink = NopSink{}
	}
	if every <= 0 {
		every = DefaultEvery
	}
	return &Reporter{sink: sink, every: every, total: total}
}

func (r *Reporter) Begin(label string) {
	r.sink.Begin(label)
}

func (r *Reporter) End() {
	r.sink.End()
}

func (r *Reporter) Tick() {
	r.processed++
	if r.total <= 0 || r.processed%r.every != 0 {
		return
	}
	r.sink.Update(Percent(r.processed, r.total))
}

func (r *Reporter) Processed() int { return r.processed }
func (r *Reporter) Total() int     { return r.total }

// Percent rounds processed/total to a whole percentage, half away from zero.
func Percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(processed) * 100 / float64(total)))
}

type NopSink struct{}

func (NopSink) Begin(string) {}
func (NopSink) Update(int)   {}
func (NopSink) End()         {}

// LogSink writes progress to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Begin(label string) { s.Logger.Info("progress started", "label", label) }
func (s LogSink) Update(percent int) { s.Logger.Info("progress", "percent", percent) }
func (s LogSink) End()               { s.Logger.Info("progress finished") }

type MultiSink []Sink

func (m MultiSink) Begin(label string) {
	for _, s := range m {
		s.Begin(label)
	}
}

func (m MultiSink) Update(percent int) {
	for _, s := range m {
		s.Update(percent)
	}
}

func (m MultiSink) End() {
	for _, s := range m {
		s.End()
	}
}
