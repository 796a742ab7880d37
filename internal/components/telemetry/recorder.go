package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

type ReportKind int

const (
	REPORT_BROKEN ReportKind = iota
	REPORT_WARNING
	REPORT_DEBUG
	REPORT_COUNT
)

type Report struct {
	Kind   ReportKind
	Id     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory so tests can make
// assertions about what a component reported. Reports are also forwarded to
// SlogAPI so they show up in `go test -v` output.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
	slog    SlogAPI
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record(Report{Kind: REPORT_BROKEN, Id: id, Params: params})
	r.slog.ReportBroken(id, params...)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record(Report{Kind: REPORT_WARNING, Id: id, Params: params})
	r.slog.ReportWarning(id, params...)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record(Report{Kind: REPORT_DEBUG, Id: msg, Params: params})
	r.slog.ReportDebug(msg, params...)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record(Report{Kind: REPORT_COUNT, Id: id, Count: count})
	r.slog.ReportCount(id, count)
}

// Reports returns a copy of every report of the given kind.
func (r *Recorder) Reports(kind ReportKind) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Kind == kind {
			out = append(out, report)
		}
	}
	return out
}

// Broken returns the ids of every ReportBroken call whose id ends with the
// given suffix, ignoring scope prefixes.
func (r *Recorder) Broken(suffix string) []string {
	var ids []string
	for _, report := range r.Reports(REPORT_BROKEN) {
		if strings.HasSuffix(report.Id, suffix) {
			ids = append(ids, report.Id)
		}
	}
	return ids
}

func (r *Recorder) String() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out strings.Builder
	for _, report := range r.reports {
		out.WriteString(fmt.Sprintf("%d %s %v\n", report.Kind, report.Id, report.Params))
	}
	return out.String()
}
