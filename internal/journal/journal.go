package journal

import (
	"fmt"
	"time"

	"main/internal/schema"
)

const (
	defaultSegmentMaxBytes int64 = 256 << 20
	defaultQueueSize             = 4096
	defaultFilePrefix            = "ticks"

	segmentSuffix = ".jsonl"
)

var defaultFlushInterval = time.Second

// Config controls the journal writer.
type Config struct {
	Dir             string
	SegmentMaxBytes int64
	QueueSize       int
	FilePrefix      string
	FlushInterval   time.Duration
}

// DefaultConfig returns a baseline configuration for the journal writer.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		SegmentMaxBytes: defaultSegmentMaxBytes,
		QueueSize:       defaultQueueSize,
		FilePrefix:      defaultFilePrefix,
		FlushInterval:   defaultFlushInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaultFlushInterval
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid journal config: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid journal config: SegmentMaxBytes must be > 0")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid journal config: QueueSize must be > 0")
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("invalid journal config: FlushInterval must be >= 0")
	}
	return nil
}

// record is the on-disk shape of one journaled tick.
type record struct {
	InstrumentID string  `json:"instrument_id"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Volume       int64   `json:"volume"`
	Recv         int64   `json:"recv"`
}

func toRecord(t schema.Tick) record {
	return record{
		InstrumentID: t.InstrumentID,
		Bid:          t.BidPrice1,
		Ask:          t.AskPrice1,
		Last:         t.LastPrice,
		Volume:       t.Volume,
		Recv:         t.Recv.UnixNano(),
	}
}

func (r record) tick() schema.Tick {
	return schema.Tick{
		InstrumentID: r.InstrumentID,
		BidPrice1:    r.Bid,
		AskPrice1:    r.Ask,
		LastPrice:    r.Last,
		Volume:       r.Volume,
		Recv:         time.Unix(0, r.Recv),
	}
}
