package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// Algorithm marks how a stored blob is compressed. It is written as the
// first byte of every blob so readers can decode data written with either
// setting.
type Algorithm uint8

const (
	AlgorithmNone   Algorithm = 0
	AlgorithmSnappy Algorithm = 1
)

var errEmptyBlob = errors.New("empty reading blob")

// blobRecord is the persisted form of a reading. Unlike the API form it
// carries the reading ID and the insertion sequence.
type blobRecord struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq,omitempty"`
	SensorID  string          `json:"sensorId"`
	Timestamp time.Time       `json:"timestamp"`
	Metrics   []models.Metric `json:"metrics"`
}

// readingCodec turns readings into compressed blobs and back
type readingCodec struct {
	algorithm Algorithm
}

func newReadingCodec(compress bool) readingCodec {
	if compress {
		return readingCodec{algorithm: AlgorithmSnappy}
	}
	return readingCodec{algorithm: AlgorithmNone}
}

func (c readingCodec) encode(r models.Reading, seq uint64) ([]byte, error) {
	data, err := json.Marshal(blobRecord{
		ID:        r.ID,
		Seq:       seq,
		SensorID:  r.SensorID,
		Timestamp: r.Timestamp,
		Metrics:   r.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reading: %w", err)
	}

	switch c.algorithm {
	case AlgorithmSnappy:
		compressed := snappy.Encode(nil, data)
		return append([]byte{byte(AlgorithmSnappy)}, compressed...), nil
	default:
		return append([]byte{byte(AlgorithmNone)}, data...), nil
	}
}

func (c readingCodec) decode(blob []byte) (models.Reading, uint64, error) {
	if len(blob) == 0 {
		return models.Reading{}, 0, errEmptyBlob
	}

	data := blob[1:]
	switch Algorithm(blob[0]) {
	case AlgorithmNone:
	case AlgorithmSnappy:
		decompressed, err := snappy.Decode(nil, data)
		if err != nil {
			return models.Reading{}, 0, fmt.Errorf("snappy decompress failed: %w", err)
		}
		data = decompressed
	default:
		return models.Reading{}, 0, fmt.Errorf("unsupported compression algorithm: %d", blob[0])
	}

	var rec blobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.Reading{}, 0, fmt.Errorf("failed to unmarshal reading: %w", err)
	}

	return models.Reading{
		ID:        rec.ID,
		SensorID:  rec.SensorID,
		Timestamp: rec.Timestamp.UTC(),
		Metrics:   rec.Metrics,
	}, rec.Seq, nil
}
