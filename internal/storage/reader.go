package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/jasmine-z2a/studio/internal/model"
)

var ErrInvalidHeader = errors.New("invalid .snap file header")

// SnapshotReader reads columnar .snap history files.
type SnapshotReader struct {
	decoder *zstd.Decoder
}

func NewSnapshotReader() (*SnapshotReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &SnapshotReader{decoder: dec}, nil
}

// ReadSnapshot reads one snapshot file and reassembles the records in
// their stored (arrival) order.
func (sr *SnapshotReader) ReadSnapshot(path string) (topic, datatype string, recs []model.LogRecord, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", nil, err
	}
	defer f.Close()

	header := make([]byte, len(MagicHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return "", "", nil, err
	}
	if !bytes.Equal(header, MagicHeader) {
		return "", "", nil, ErrInvalidHeader
	}

	if topic, err = readLenPrefixed(f); err != nil {
		return "", "", nil, err
	}
	if datatype, err = readLenPrefixed(f); err != nil {
		return "", "", nil, err
	}

	// Footer: RowCount(4) + MinTs(8) + MaxTs(8).
	info, err := f.Stat()
	if err != nil {
		return "", "", nil, err
	}
	footer := make([]byte, 20)
	if _, err := f.ReadAt(footer, info.Size()-20); err != nil {
		return "", "", nil, err
	}
	rowCount := int(binary.LittleEndian.Uint32(footer[0:4]))
	if rowCount == 0 {
		return topic, datatype, nil, nil
	}

	tsData, err := sr.readAndDecompress(f)
	if err != nil {
		return "", "", nil, err
	}
	timestamps := bytesToInt64Slice(tsData)

	levels, err := sr.readAndDecompress(f)
	if err != nil {
		return "", "", nil, err
	}

	nameData, err := sr.readAndDecompress(f)
	if err != nil {
		return "", "", nil, err
	}
	names := bytesToStringSlice(nameData)

	msgData, err := sr.readAndDecompress(f)
	if err != nil {
		return "", "", nil, err
	}
	messages := bytesToStringSlice(msgData)

	if rowCount != len(timestamps) || rowCount != len(levels) || rowCount != len(names) || rowCount != len(messages) {
		return "", "", nil, errors.New("column length mismatch")
	}

	recs = make([]model.LogRecord, rowCount)
	for i := 0; i < rowCount; i++ {
		recs[i] = model.LogRecord{
			Timestamp: timestamps[i],
			Level:     levels[i],
			Name:      names[i],
			Message:   messages[i],
			Topic:     topic,
		}
	}
	return topic, datatype, recs, nil
}

func (sr *SnapshotReader) readAndDecompress(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}
	return sr.decoder.DecodeAll(compressed, nil)
}

func readLenPrefixed(f *os.File) (string, error) {
	var length uint32
	if err := binary.Read(f, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(f, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func bytesToInt64Slice(data []byte) []int64 {
	count := len(data) / 8
	result := make([]int64, count)
	for i := 0; i < count; i++ {
		result[i] = int64(binary.LittleEndian.Uint64(data[i*8 : i*8+8]))
	}
	return result
}

// Format: [Len uint32][Bytes]...
func bytesToStringSlice(data []byte) []string {
	var result []string
	buf := bytes.NewReader(data)

	for buf.Len() > 0 {
		var length uint32
		if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
			break
		}
		strBytes := make([]byte, length)
		if _, err := io.ReadFull(buf, strBytes); err != nil {
			break
		}
		result = append(result, string(strBytes))
	}
	return result
}
