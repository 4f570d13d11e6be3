package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/san-kum/mcsim/internal/dynamo"
)

// WriteBinary dumps the buffer as raw little-endian float64 values in
// storage order, with no header. The shape has to travel separately.
func WriteBinary(w io.Writer, b *dynamo.Buffer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, b.Data()); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadBinary reads a dump written by WriteBinary for the given shape.
func ReadBinary(r io.Reader, steps, trials int) (*dynamo.Buffer, error) {
	n, err := dynamo.DataLen(steps, trials)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt/8 {
		return nil, fmt.Errorf("%w: shape (2, %d, %d) is too large", dynamo.ErrShapeMismatch, steps, trials)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if want := 8 * n; len(raw) != want {
		return nil, fmt.Errorf("%w: %d bytes for shape (2, %d, %d), want %d", dynamo.ErrShapeMismatch, len(raw), steps, trials, want)
	}

	data := make([]float64, len(raw)/8)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return dynamo.FromData(data, steps, trials)
}

func SaveBinary(path string, b *dynamo.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteBinary(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadBinary(path string, steps, trials int) (*dynamo.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBinary(f, steps, trials)
}
