// Package telemetry turns raw per-process counters into the derived snapshots
// shown by the dashboard and captured in recordings.
package telemetry

// ProcessSnapshot is one process at one instant. It is rebuilt every tick and
// never mutated after construction.
//
// The fields are encoded as a CBOR array so a recording of several hundred
// batches stays compact; field order is therefore part of the file format.
type ProcessSnapshot struct {
	_ struct{} `cbor:",toarray"`

	PID        int
	Name       string
	Cmdline    string
	CPUPercent float64
	USS        uint64
	PSS        uint64
	RSS        uint64
	IsSystem   bool

	// GrowthRate is USS growth in MB/min; nil until enough history exists.
	GrowthRate *float64
	// DiskReadRate and DiskWriteRate are MB/s; nil on first observation.
	DiskReadRate  *float64
	DiskWriteRate *float64
}

// PodMemory summarises container memory for one tick.
type PodMemory struct {
	CgroupUsage uint64  `cbor:"1,keyasint"`
	CgroupLimit *uint64 `cbor:"2,keyasint,omitempty"`
	RSSSum      uint64  `cbor:"3,keyasint"`
	// ThresholdPercent is the danger line for CgroupUsage/CgroupLimit.
	ThresholdPercent uint8 `cbor:"4,keyasint"`
}

// UsedPercent returns usage as a percentage of the limit, or false when the
// container is unconstrained.
func (p PodMemory) UsedPercent() (float64, bool) {
	if p.CgroupLimit == nil || *p.CgroupLimit == 0 {
		return 0, false
	}
	return float64(p.CgroupUsage) / float64(*p.CgroupLimit) * 100, true
}

// Danger reports whether usage has reached the configured threshold.
func (p PodMemory) Danger() bool {
	pct, ok := p.UsedPercent()
	return ok && pct >= float64(p.ThresholdPercent)
}

// Batch is a tick's worth of data.
type Batch struct {
	// Timestamp is seconds since the Unix epoch.
	Timestamp int64             `cbor:"1,keyasint"`
	Processes []ProcessSnapshot `cbor:"2,keyasint"`
	PodMemory PodMemory         `cbor:"3,keyasint"`
	// CPUCores is the quota-derived core entitlement; nil when unlimited.
	CPUCores *float64 `cbor:"4,keyasint,omitempty"`
}
