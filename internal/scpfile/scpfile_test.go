package scpfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildImage assembles a two-track image: track 0 carries two revolutions,
// track 1 is absent (zero offset).
func buildImage(flags byte) []byte {
	var buf bytes.Buffer

	// Header: start track 0, end track 1, 2 revolutions, resolution 0.
	hdr := make([]byte, headerSize)
	copy(hdr, "SCP")
	hdr[3] = 0x22 // version 2.2
	hdr[4] = 0x44 // IBM PC 720K
	hdr[5] = 2    // revolutions
	hdr[6] = 0    // start track
	hdr[7] = 1    // end track
	hdr[8] = flags
	hdr[10] = 0 // both heads
	hdr[11] = 0 // 25ns resolution
	buf.Write(hdr)

	// Offset table: track 0 at byte 24, track 1 absent.
	trackBase := headerSize + 8
	table := make([]byte, 8)
	binary.LittleEndian.PutUint32(table[0:], uint32(trackBase))
	buf.Write(table)

	// Track block: "TRK" header plus two revolution entries.
	rev0 := []uint16{100, 200, 300}
	rev1 := []uint16{50, 0, 0, 10} // overflow markers before the 10
	dataStart := 4 + 2*trackEntrySize

	buf.WriteString("TRK")
	buf.WriteByte(0)
	entry := make([]byte, trackEntrySize)
	binary.LittleEndian.PutUint32(entry[0:], 8_000_000) // 200ms index
	binary.LittleEndian.PutUint32(entry[4:], uint32(len(rev0)))
	binary.LittleEndian.PutUint32(entry[8:], uint32(dataStart))
	buf.Write(entry)
	binary.LittleEndian.PutUint32(entry[0:], 8_000_100)
	binary.LittleEndian.PutUint32(entry[4:], uint32(len(rev1)))
	binary.LittleEndian.PutUint32(entry[8:], uint32(dataStart+2*len(rev0)))
	buf.Write(entry)

	for _, v := range append(append([]uint16{}, rev0...), rev1...) {
		var be [2]byte
		binary.BigEndian.PutUint16(be[:], v)
		buf.Write(be[:])
	}
	return buf.Bytes()
}

func newTestReader(t *testing.T, img []byte) *Reader {
	t.Helper()
	r, err := NewReader(bytes.NewReader(img), int64(len(img)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestNewReader_Header(t *testing.T) {
	r := newTestReader(t, buildImage(FlagIndex))

	h := r.Header()
	if h.Revolutions != 2 || h.StartTrack != 0 || h.EndTrack != 1 {
		t.Errorf("header = %+v", h)
	}
	if h.Scale() != 25 {
		t.Errorf("Scale = %d, want 25", h.Scale())
	}
	if DiskTypeName(h.DiskType) != "IBM PC 720K" {
		t.Errorf("disk type = %q", DiskTypeName(h.DiskType))
	}
}

func TestNewReader_BadMagic(t *testing.T) {
	img := buildImage(0)
	img[0] = 'X'
	if _, err := NewReader(bytes.NewReader(img), int64(len(img))); err == nil {
		t.Error("expected bad-magic error")
	}
}

func TestReadTrack(t *testing.T) {
	r := newTestReader(t, buildImage(0))

	tc, err := r.ReadTrack(0)
	if err != nil {
		t.Fatalf("ReadTrack: %v", err)
	}
	if tc.Track != 0 || tc.Head != 0 {
		t.Errorf("track/head = %d/%d", tc.Track, tc.Head)
	}
	if len(tc.Revolutions) != 2 {
		t.Fatalf("revolutions = %d, want 2", len(tc.Revolutions))
	}

	if diff := cmp.Diff([]uint32{2500, 5000, 7500}, tc.Revolutions[0].Intervals); diff != "" {
		t.Errorf("revolution 0 intervals (-want +got):\n%s", diff)
	}
	// Two 0x0000 markers fold 131072 ticks into the closing sample.
	want := []uint32{50 * 25, (2*65536 + 10) * 25}
	if diff := cmp.Diff(want, tc.Revolutions[1].Intervals); diff != "" {
		t.Errorf("revolution 1 intervals (-want +got):\n%s", diff)
	}
	if tc.Revolutions[0].IndexTime != 8_000_000 {
		t.Errorf("index time = %d", tc.Revolutions[0].IndexTime)
	}
}

func TestReadTrack_AbsentAndOutOfRange(t *testing.T) {
	r := newTestReader(t, buildImage(0))

	if _, err := r.ReadTrack(1); err == nil {
		t.Error("expected error for absent track")
	}
	if _, err := r.ReadTrack(99); err == nil {
		t.Error("expected error for out-of-range track")
	}
	if r.HasTrack(0) != true || r.HasTrack(1) != false || r.HasTrack(99) != false {
		t.Error("HasTrack disagrees with the offset table")
	}
}

func TestFooter(t *testing.T) {
	img := buildImage(FlagFooter)

	footer := make([]byte, footerSize)
	copy(footer[20:], "fluxreport")
	binary.LittleEndian.PutUint64(footer[52:], 1756100000)
	copy(footer[68:], "FPCS")
	img = append(img, footer...)

	r := newTestReader(t, img)
	f := r.Footer()
	if f == nil {
		t.Fatal("footer not parsed")
	}
	if f.CreatorName != "fluxreport" {
		t.Errorf("CreatorName = %q", f.CreatorName)
	}
	if f.Timestamp != 1756100000 {
		t.Errorf("Timestamp = %d", f.Timestamp)
	}
}

func TestFooter_AbsentWithoutFlag(t *testing.T) {
	r := newTestReader(t, buildImage(0))
	if r.Footer() != nil {
		t.Error("unexpected footer")
	}
}
