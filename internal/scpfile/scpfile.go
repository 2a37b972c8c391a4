// Package scpfile reads SuperCard Pro (.scp) flux images into track
// captures. The container stores little-endian headers, a per-track offset
// table, and big-endian 16-bit flux intervals with 0x0000 overflow markers;
// decoding the intervals goes through the shared batch kernels.
package scpfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/preserva-tech/flux.report/internal/flux"
	"github.com/preserva-tech/flux.report/internal/kernel"
)

const (
	headerSize     = 16
	trackEntrySize = 12
	footerSize     = 72

	// MaxTracks is the size of the track offset table: 84 cylinders times
	// two heads.
	MaxTracks = 168

	// MaxRevolutions caps revolutions per track, matching the container
	// format's limit.
	MaxRevolutions = 5

	// Revolutions longer than this many transitions are rejected as a
	// corrupt length field rather than allocated.
	maxFluxCount = 1 << 24
)

// Header flags.
const (
	FlagIndex      = 0x01
	Flag96TPI      = 0x02
	Flag360RPM     = 0x04
	FlagNormalized = 0x08
	FlagWritable   = 0x10
	FlagFooter     = 0x20
)

// Header is the 16-byte image header.
type Header struct {
	Version     byte
	DiskType    byte
	Revolutions int
	StartTrack  int
	EndTrack    int
	Flags       byte
	Heads       byte
	Resolution  byte
	Checksum    uint32
}

// Scale reports the interval unit in nanoseconds: 25ns base times
// (resolution+1).
func (h Header) Scale() uint32 {
	return (uint32(h.Resolution) + 1) * 25
}

// Footer is the optional trailing creator block.
type Footer struct {
	CreatorName string
	Timestamp   uint64
}

// Reader decodes tracks from one open image. Not safe for concurrent use.
type Reader struct {
	src     io.ReaderAt
	closer  io.Closer
	header  Header
	offsets [MaxTracks]uint32
	footer  *Footer
}

// Open opens an image file. The caller owns the returned Reader and must
// Close it.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scp image: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat scp image: %w", err)
	}
	r, err := NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader parses the header and track offset table from src, which must
// cover size bytes.
func NewReader(src io.ReaderAt, size int64) (*Reader, error) {
	var hdr [headerSize]byte
	if _, err := src.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("read scp header: %w", err)
	}
	if string(hdr[0:3]) != "SCP" {
		return nil, fmt.Errorf("not an SCP image (magic %q)", hdr[0:3])
	}

	r := &Reader{
		src: src,
		header: Header{
			Version:     hdr[3],
			DiskType:    hdr[4],
			Revolutions: int(hdr[5]),
			StartTrack:  int(hdr[6]),
			EndTrack:    int(hdr[7]),
			Flags:       hdr[8],
			Heads:       hdr[10],
			Resolution:  hdr[11],
			Checksum:    binary.LittleEndian.Uint32(hdr[12:16]),
		},
	}
	if r.header.EndTrack >= MaxTracks {
		return nil, fmt.Errorf("end track %d exceeds table size %d", r.header.EndTrack, MaxTracks)
	}
	if r.header.StartTrack > r.header.EndTrack {
		return nil, fmt.Errorf("track range %d..%d is inverted", r.header.StartTrack, r.header.EndTrack)
	}

	// The offset table starts right after the header, one entry per track
	// in the start..end range.
	count := r.header.EndTrack - r.header.StartTrack + 1
	table := make([]byte, 4*count)
	if _, err := src.ReadAt(table, headerSize); err != nil {
		return nil, fmt.Errorf("read track offset table: %w", err)
	}
	for i := 0; i < count; i++ {
		r.offsets[r.header.StartTrack+i] = binary.LittleEndian.Uint32(table[4*i:])
	}

	if r.header.Flags&FlagFooter != 0 && size >= footerSize {
		r.footer = readFooter(src, size)
	}
	return r, nil
}

// readFooter parses the trailing creator block, returning nil when the
// signature does not check out.
func readFooter(src io.ReaderAt, size int64) *Footer {
	var buf [footerSize]byte
	if _, err := src.ReadAt(buf[:], size-footerSize); err != nil {
		return nil
	}
	if string(buf[68:72]) != "FPCS" {
		return nil
	}
	name := strings.TrimRight(string(buf[20:52]), "\x00")
	return &Footer{
		CreatorName: name,
		Timestamp:   binary.LittleEndian.Uint64(buf[52:60]),
	}
}

// Header returns the parsed image header.
func (r *Reader) Header() Header { return r.header }

// Footer returns the creator block, or nil when the image has none.
func (r *Reader) Footer() *Footer { return r.footer }

// Close releases the underlying file when the Reader came from Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// HasTrack reports whether the image stores data for trackNum.
func (r *Reader) HasTrack(trackNum int) bool {
	return trackNum >= r.header.StartTrack &&
		trackNum <= r.header.EndTrack &&
		r.offsets[trackNum] != 0
}

// ReadTrack decodes one track into a capture. Track numbers interleave
// heads: cylinder trackNum/2, head trackNum%2. Revolutions with a zero
// transition count come back empty rather than failing the track.
func (r *Reader) ReadTrack(trackNum int) (*flux.TrackCapture, error) {
	if trackNum < r.header.StartTrack || trackNum > r.header.EndTrack {
		return nil, fmt.Errorf("track %d outside image range %d..%d",
			trackNum, r.header.StartTrack, r.header.EndTrack)
	}
	base := int64(r.offsets[trackNum])
	if base == 0 {
		return nil, fmt.Errorf("track %d not present in image", trackNum)
	}

	revs := r.header.Revolutions
	if revs > MaxRevolutions {
		revs = MaxRevolutions
	}

	// Track header: "TRK" plus the track number, then one 12-byte entry
	// per revolution.
	head := make([]byte, 4+trackEntrySize*revs)
	if _, err := r.src.ReadAt(head, base); err != nil {
		return nil, fmt.Errorf("read track %d header: %w", trackNum, err)
	}
	if string(head[0:3]) != "TRK" {
		return nil, fmt.Errorf("track %d: bad track header magic %q", trackNum, head[0:3])
	}

	tc := &flux.TrackCapture{
		Track: trackNum / 2,
		Head:  trackNum % 2,
	}
	scale := r.header.Scale()

	for rev := 0; rev < revs; rev++ {
		entry := head[4+trackEntrySize*rev:]
		indexTime := binary.LittleEndian.Uint32(entry[0:4])
		fluxCount := binary.LittleEndian.Uint32(entry[4:8])
		dataOffset := binary.LittleEndian.Uint32(entry[8:12])

		rc := flux.RevolutionCapture{IndexTime: indexTime}
		if fluxCount > 0 {
			if fluxCount > maxFluxCount {
				return nil, fmt.Errorf("track %d revolution %d: implausible flux count %d",
					trackNum, rev, fluxCount)
			}
			raw := make([]byte, 2*fluxCount)
			if _, err := r.src.ReadAt(raw, base+int64(dataOffset)); err != nil {
				return nil, fmt.Errorf("track %d revolution %d: read flux data: %w",
					trackNum, rev, err)
			}
			rc.Intervals = kernel.WidenIntervals(raw, scale)
		}
		tc.Revolutions = append(tc.Revolutions, rc)
	}
	return tc, nil
}

// DiskTypeName names the disk type byte for display.
func DiskTypeName(t byte) string {
	switch t {
	case 0x00:
		return "Commodore 64"
	case 0x04:
		return "Amiga"
	case 0x10:
		return "Atari (FM)"
	case 0x14:
		return "Atari (MFM)"
	case 0x20:
		return "Apple Mac 400K"
	case 0x24:
		return "Apple Mac 800K"
	case 0x28:
		return "Apple II 5.25\""
	case 0x40:
		return "IBM PC 360K"
	case 0x44:
		return "IBM PC 720K"
	case 0x48:
		return "IBM PC 1.2M"
	case 0x4C:
		return "IBM PC 1.44M"
	default:
		return "Unknown"
	}
}
