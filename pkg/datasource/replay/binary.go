package replay

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"golang.org/x/exp/mmap"
)

const codeSize = 2

// BinaryReader replays a recording of little-endian uint16 converter codes through a
// memory-mapped file.
type BinaryReader struct {
	dataSourceName string
	reader         *mmap.ReaderAt
	buffer         [codeSize]byte
	index          int64
}

func NewBinaryReader(dataSourceName string) *BinaryReader {
	return &BinaryReader{
		dataSourceName: dataSourceName,
	}
}

func (r *BinaryReader) Open() error {
	var err error
	r.reader, err = mmap.Open(r.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open data source %q: %w", r.dataSourceName, err)
	}
	if r.reader.Len()%codeSize != 0 {
		_ = r.reader.Close()
		return fmt.Errorf("data source %q: file size is not a multiple of entry size", r.dataSourceName)
	}
	r.index = 0
	return nil
}

func (r *BinaryReader) Close() {
	_ = r.reader.Close()
}

func (r *BinaryReader) EntryCount() int64 {
	return int64(r.reader.Len()) / codeSize
}

// Read returns the code at index without moving the replay position.
func (r *BinaryReader) Read(index int64) (uint16, error) {
	n, err := r.reader.ReadAt(r.buffer[:], index*codeSize)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("unable to read: %w", err)
	}
	if n < codeSize {
		return 0, datasource.ErrEof
	}
	return binary.LittleEndian.Uint16(r.buffer[:]), nil
}

func (r *BinaryReader) GetNext() (uint16, error) {
	code, err := r.Read(r.index)
	if err != nil {
		return 0, err
	}
	r.index++
	return code, nil
}

// WriteCodes records codes in the format BinaryReader replays.
func WriteCodes(w io.Writer, codes []uint16) error {
	return binary.Write(w, binary.LittleEndian, codes)
}
