// Package fileio implements the binary data/query/output file codecs:
// fixed-size little-endian records read and written with
// encoding/binary over a buffered reader/writer.
package fileio

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/dispatcher"
	"github.com/sigmod24/hybridann/internal/hybriderr"
	"github.com/sigmod24/hybridann/internal/pointset"
)

// Dataset is the parsed contents of a data file.
type Dataset struct {
	Points     *pointset.Range
	Labels     []uint32
	Timestamps []float32
}

// ReadDataFile reads the little-endian data file format: u32 N, then
// per point (f32 label, f32 timestamp, f32 vector[100]).
func ReadDataFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hybriderr.NewIOError(path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, hybriderr.NewIOError(path, err)
	}

	points := pointset.NewRange(int(n))
	labels := make([]uint32, n)
	ts := make([]float32, n)

	vec := make([]float32, distvec.Dims)
	for i := 0; i < int(n); i++ {
		var labelF, tsF float32
		if err := binary.Read(r, binary.LittleEndian, &labelF); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &tsF); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &vec); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}
		labels[i] = uint32(labelF)
		ts[i] = tsF
		points.Set(i, vec)
	}

	return &Dataset{Points: points, Labels: labels, Timestamps: ts}, nil
}

// ReadQueryFile reads the little-endian query file format: u32 Q, then
// per query (f32 kind, f32 category, f32 t_start, f32 t_end,
// f32 vector[100]). Returns dispatcher.Query records with
// OriginalIndex set to the query's position in the file, so downstream
// batch dispatch can scatter results back to the right output row.
func ReadQueryFile(path string) ([]dispatcher.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hybriderr.NewIOError(path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 1<<20)

	var q uint32
	if err := binary.Read(r, binary.LittleEndian, &q); err != nil {
		return nil, hybriderr.NewIOError(path, err)
	}

	queries := make([]dispatcher.Query, q)
	for i := 0; i < int(q); i++ {
		var kindF, categoryF, tStart, tEnd float32
		if err := binary.Read(r, binary.LittleEndian, &kindF); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &categoryF); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &tStart); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &tEnd); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}
		vec := make([]float32, distvec.Aligned)
		if err := binary.Read(r, binary.LittleEndian, vec[:distvec.Dims]); err != nil {
			return nil, hybriderr.NewIOError(path, err)
		}

		kind := uint32(kindF)
		if kind > 3 {
			return nil, hybriderr.NewFormatError("query %d: invalid kind %d", i, kind)
		}

		queries[i] = dispatcher.Query{
			Kind:          kind,
			Label:         uint32(categoryF),
			TLo:           tStart,
			THi:           tEnd,
			Vector:        vec,
			OriginalIndex: uint32(i),
		}
	}

	return queries, nil
}

// WriteOutputFile writes the little-endian output file format: q*k
// u32 records, row-major, row i holding the k nearest neighbor ids for
// query i ascending by distance. results must already be length q*k,
// with query i's results at results[i*k : (i+1)*k].
func WriteOutputFile(path string, results []uint32, q, k int) error {
	if len(results) != q*k {
		return hybriderr.NewFormatError("output length %d does not match q*k=%d", len(results), q*k)
	}

	f, err := os.Create(path)
	if err != nil {
		return hybriderr.NewIOError(path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	for _, id := range results {
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return hybriderr.NewIOError(path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return hybriderr.NewIOError(path, err)
	}
	return nil
}
