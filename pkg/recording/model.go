package recording

import "github.com/ja7ad/spm/pkg/telemetry"

// Metadata describes a stored recording. Times are seconds since the epoch.
type Metadata struct {
	ID            string `cbor:"1,keyasint"`
	StartTime     int64  `cbor:"2,keyasint"`
	EndTime       int64  `cbor:"3,keyasint"`
	TriggerPID    int    `cbor:"4,keyasint"`
	TriggerName   string `cbor:"5,keyasint"`
	SnapshotCount int    `cbor:"6,keyasint"`
	// FilePath is rewritten to the actual location on load.
	FilePath string `cbor:"7,keyasint"`
}

// Recording is an immutable capture of the batches buffered before a watched
// process exited.
type Recording struct {
	Metadata  Metadata          `cbor:"1,keyasint"`
	Snapshots []telemetry.Batch `cbor:"2,keyasint"`
}

// header decodes only the metadata of a recording body; the snapshot array is
// skipped by the decoder.
type header struct {
	Metadata Metadata `cbor:"1,keyasint"`
}
