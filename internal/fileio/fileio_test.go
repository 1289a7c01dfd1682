package fileio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigmod24/hybridann/internal/distvec"
)

func writeDataFile(t *testing.T, path string, labels []uint32, ts []float32, vecs [][]float32) {
	t.Helper()
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(labels)))
	for i := range labels {
		binary.Write(&buf, binary.LittleEndian, float32(labels[i]))
		binary.Write(&buf, binary.LittleEndian, ts[i])
		binary.Write(&buf, binary.LittleEndian, vecs[i])
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func writeQueryFile(t *testing.T, path string, kinds, cats []uint32, tLo, tHi []float32, vecs [][]float32) {
	t.Helper()
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(kinds)))
	for i := range kinds {
		binary.Write(&buf, binary.LittleEndian, float32(kinds[i]))
		binary.Write(&buf, binary.LittleEndian, float32(cats[i]))
		binary.Write(&buf, binary.LittleEndian, tLo[i])
		binary.Write(&buf, binary.LittleEndian, tHi[i])
		binary.Write(&buf, binary.LittleEndian, vecs[i])
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func makeVec(seed float32) []float32 {
	v := make([]float32, distvec.Dims)
	for i := range v {
		v[i] = seed + float32(i)*0.01
	}
	return v
}

func TestReadDataFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	labels := []uint32{0, 1, 2}
	ts := []float32{0.1, 0.2, 0.3}
	vecs := [][]float32{makeVec(1), makeVec(2), makeVec(3)}
	writeDataFile(t, path, labels, ts, vecs)

	ds, err := ReadDataFile(path)
	if err != nil {
		t.Fatalf("ReadDataFile: %v", err)
	}
	if ds.Points.Size() != 3 {
		t.Fatalf("got %d points, want 3", ds.Points.Size())
	}
	for i := range labels {
		if ds.Labels[i] != labels[i] {
			t.Fatalf("label %d = %d, want %d", i, ds.Labels[i], labels[i])
		}
		if ds.Timestamps[i] != ts[i] {
			t.Fatalf("timestamp %d = %v, want %v", i, ds.Timestamps[i], ts[i])
		}
		got := ds.Points.At(i)
		for j, want := range vecs[i] {
			if got[j] != want {
				t.Fatalf("point %d dim %d = %v, want %v", i, j, got[j], want)
			}
		}
	}
}

func TestReadDataFileMissingFile(t *testing.T) {
	if _, err := ReadDataFile("/nonexistent/path/data.bin"); err == nil {
		t.Fatal("expected an IO error for a missing file")
	}
}

func TestReadQueryFileParsesAllKinds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.bin")

	kinds := []uint32{0, 1, 2, 3}
	cats := []uint32{0, 5, 0, 9}
	tLo := []float32{0, 0, 0.1, 0.2}
	tHi := []float32{0, 0, 0.3, 0.4}
	vecs := [][]float32{makeVec(1), makeVec(2), makeVec(3), makeVec(4)}
	writeQueryFile(t, path, kinds, cats, tLo, tHi, vecs)

	queries, err := ReadQueryFile(path)
	if err != nil {
		t.Fatalf("ReadQueryFile: %v", err)
	}
	if len(queries) != 4 {
		t.Fatalf("got %d queries, want 4", len(queries))
	}
	for i, q := range queries {
		if q.Kind != kinds[i] {
			t.Fatalf("query %d kind = %d, want %d", i, q.Kind, kinds[i])
		}
		if q.OriginalIndex != uint32(i) {
			t.Fatalf("query %d OriginalIndex = %d, want %d", i, q.OriginalIndex, i)
		}
		if len(q.Vector) != distvec.Aligned {
			t.Fatalf("query %d vector length = %d, want %d", i, len(q.Vector), distvec.Aligned)
		}
	}
	if queries[1].Label != 5 {
		t.Fatalf("query 1 label = %d, want 5", queries[1].Label)
	}
	if queries[3].TLo != 0.2 || queries[3].THi != 0.4 {
		t.Fatalf("query 3 range = [%v,%v], want [0.2,0.4]", queries[3].TLo, queries[3].THi)
	}
}

func TestReadQueryFileRejectsInvalidKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.bin")
	writeQueryFile(t, path, []uint32{7}, []uint32{0}, []float32{0}, []float32{0}, [][]float32{makeVec(1)})

	if _, err := ReadQueryFile(path); err == nil {
		t.Fatal("expected a format error for an invalid query kind")
	}
}

func TestWriteOutputFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	q, k := 3, 4
	results := make([]uint32, q*k)
	for i := range results {
		results[i] = uint32(i * 7)
	}

	if err := WriteOutputFile(path, results, q, k); err != nil {
		t.Fatalf("WriteOutputFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != q*k*4 {
		t.Fatalf("output file length = %d, want %d", len(data), q*k*4)
	}

	got := make([]uint32, q*k)
	for i := range got {
		got[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	for i := range results {
		if got[i] != results[i] {
			t.Fatalf("record %d = %d, want %d", i, got[i], results[i])
		}
	}
}

func TestWriteOutputFileRejectsLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	if err := WriteOutputFile(path, make([]uint32, 5), 2, 4); err == nil {
		t.Fatal("expected a format error for mismatched results length")
	}
}
