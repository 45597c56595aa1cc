package daemon

import (
	"sync"
	"time"
)

// TimeSeriesRecorder records the arrival times of the last N inbound
// battery messages.
type TimeSeriesRecorder struct {
	MaxRecordCount int
	// Gap is the longest silence still considered part of a continuous
	// stream of reports.
	Gap time.Duration

	records []time.Time
	total   uint64
	mu      *sync.Mutex
}

// NewTimeSeriesRecorder returns a new TimeSeriesRecorder.
func NewTimeSeriesRecorder(maxRecordCount int, gap time.Duration) *TimeSeriesRecorder {
	return &TimeSeriesRecorder{
		MaxRecordCount: maxRecordCount,
		Gap:            gap,
		records:        make([]time.Time, 0),
		mu:             &sync.Mutex{},
	}
}

// AddRecordNow adds a new record with the current time.
func (r *TimeSeriesRecorder) AddRecordNow() {
	r.AddRecord(time.Now())
}

// AddRecord adds a new record.
func (r *TimeSeriesRecorder) AddRecord(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading.
	t = t.Round(0)

	if len(r.records) >= r.MaxRecordCount {
		r.records = r.records[1:]
	}
	r.records = append(r.records, t)
	r.total++
}

// ClearRecords clears all records. The total count is kept.
func (r *TimeSeriesRecorder) ClearRecords() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make([]time.Time, 0)
}

// Total returns how many records were ever added.
func (r *TimeSeriesRecorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.total
}

// Last returns the newest record, or the zero time.
func (r *TimeSeriesRecorder) Last() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return time.Time{}
	}
	return r.records[len(r.records)-1]
}

// CountIn returns the number of records in the last duration.
func (r *TimeSeriesRecorder) CountIn(last time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := len(r.records) - 1; i >= 0; i-- {
		if time.Since(r.records[i]) > last {
			break
		}
		count++
	}
	return count
}

// GetContinuousRecordsIn returns the number of records in the last
// duration that belong to an unbroken stream ending now. Two adjacent
// records more than Gap apart break the stream.
func (r *TimeSeriesRecorder) GetContinuousRecordsIn(last time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The last record must be recent enough to still be streaming.
	if len(r.records) > 0 && time.Since(r.records[len(r.records)-1]) >= r.Gap {
		return 0
	}

	count := 0
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if time.Since(record) > last {
			break
		}

		theRecordAfter := record
		if i+1 < len(r.records) {
			theRecordAfter = r.records[i+1]
		}

		if theRecordAfter.Sub(record) >= r.Gap {
			break
		}
		count++
	}

	return count
}

// Live reports whether the instance is still reporting.
func (r *TimeSeriesRecorder) Live() bool {
	last := r.Last()
	return !last.IsZero() && time.Since(last) < r.Gap
}
