package storage

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/jasmine-z2a/studio/internal/model"
)

// Snapshot file header.
var MagicHeader = []byte("STUDIOL1")

// SnapshotWriter persists one topic's history as a columnar .snap file.
// Layout: magic, topic, datatype, then one zstd block per column
// (timestamps, levels, names, messages), then a footer with the row count
// and timestamp bounds.
type SnapshotWriter struct {
	encoder *zstd.Encoder
}

func NewSnapshotWriter() (*SnapshotWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &SnapshotWriter{encoder: enc}, nil
}

// WriteSnapshot writes the records to path. Records are assumed to be in
// arrival order; the footer bounds come from the first and last rows.
func (sw *SnapshotWriter) WriteSnapshot(path, topic, datatype string, recs []model.LogRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(MagicHeader); err != nil {
		return err
	}
	if err := writeLenPrefixed(f, topic); err != nil {
		return err
	}
	if err := writeLenPrefixed(f, datatype); err != nil {
		return err
	}

	rowCount := uint32(len(recs))
	if rowCount == 0 {
		return writeFooter(f, 0, 0, 0)
	}

	tsBuf := new(bytes.Buffer)
	lvlBuf := new(bytes.Buffer)
	nameBuf := new(bytes.Buffer)
	msgBuf := new(bytes.Buffer)
	for _, r := range recs {
		binary.Write(tsBuf, binary.LittleEndian, r.Timestamp)
		lvlBuf.WriteByte(r.Level)
		writeString(nameBuf, r.Name)
		writeString(msgBuf, r.Message)
	}

	for _, col := range [][]byte{tsBuf.Bytes(), lvlBuf.Bytes(), nameBuf.Bytes(), msgBuf.Bytes()} {
		if err := sw.compressAndWrite(f, col); err != nil {
			return err
		}
	}

	return writeFooter(f, rowCount, recs[0].Timestamp, recs[rowCount-1].Timestamp)
}

func (sw *SnapshotWriter) compressAndWrite(f *os.File, raw []byte) error {
	compressed := sw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))

	size := uint32(len(compressed))
	if err := binary.Write(f, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := f.Write(compressed)
	return err
}

func writeString(buf *bytes.Buffer, s string) {
	b := []byte(s)
	binary.Write(buf, binary.LittleEndian, uint32(len(b)))
	buf.Write(b)
}

func writeLenPrefixed(f *os.File, s string) error {
	b := []byte(s)
	if err := binary.Write(f, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := f.Write(b)
	return err
}

func writeFooter(f *os.File, rowCount uint32, minTs, maxTs int64) error {
	if err := binary.Write(f, binary.LittleEndian, rowCount); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, minTs); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, maxTs)
}
