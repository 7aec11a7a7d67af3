package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ProbeError indicates the container metadata could not be parsed
// (corrupt or unsupported file).
type ProbeError struct {
	Err error
}

func (e *ProbeError) Error() string { return fmt.Sprintf("probe duration: %v", e.Err) }

func (e *ProbeError) Unwrap() error { return e.Err }

var (
	errNoMovieHeader = errors.New("no movie header found")
	errBadBox        = errors.New("malformed box header")
)

const boxHeaderSize = 8

// ProbeDuration reads the playback duration of an MP4 container in whole
// seconds, floored. Only box headers and the movie header are read; payload
// boxes (mdat) are seeked past, never loaded. A duration of zero is valid
// and returned as 0.
func ProbeDuration(r io.ReadSeeker) (int, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, &ProbeError{Err: err}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, &ProbeError{Err: err}
	}

	var pos int64
	for pos < end {
		name, size, headerLen, err := readBoxHeader(r, end-pos)
		if err != nil {
			return 0, &ProbeError{Err: err}
		}
		if name == "moov" {
			return scanMovieBox(r, size-headerLen)
		}
		pos += size
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return 0, &ProbeError{Err: err}
		}
	}
	return 0, &ProbeError{Err: errNoMovieHeader}
}

// ProbeFile reads the duration of the video file at path.
func ProbeFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &ProbeError{Err: err}
	}
	defer f.Close()
	return ProbeDuration(f)
}

// scanMovieBox walks the children of a moov box looking for mvhd.
func scanMovieBox(r io.ReadSeeker, remaining int64) (int, error) {
	for remaining >= boxHeaderSize {
		name, size, headerLen, err := readBoxHeader(r, remaining)
		if err != nil {
			return 0, &ProbeError{Err: err}
		}
		if name == "mvhd" {
			return readMovieHeader(r)
		}
		if _, err := r.Seek(size-headerLen, io.SeekCurrent); err != nil {
			return 0, &ProbeError{Err: err}
		}
		remaining -= size
	}
	return 0, &ProbeError{Err: errNoMovieHeader}
}

// readBoxHeader reads one ISO BMFF box header at the current offset and
// returns the box type, its total size, and the header length consumed.
// A size of 0 means the box extends to the end of the enclosing scope.
func readBoxHeader(r io.Reader, remaining int64) (name string, size int64, headerLen int64, err error) {
	var buf [boxHeaderSize]byte
	if _, err = io.ReadFull(r, buf[:]); err != nil {
		return "", 0, 0, err
	}
	size = int64(binary.BigEndian.Uint32(buf[:4]))
	name = string(buf[4:8])
	headerLen = boxHeaderSize

	switch size {
	case 0:
		size = remaining
	case 1:
		var ext [8]byte
		if _, err = io.ReadFull(r, ext[:]); err != nil {
			return "", 0, 0, err
		}
		size = int64(binary.BigEndian.Uint64(ext[:]))
		headerLen += 8
	}
	if size < headerLen || size > remaining {
		return "", 0, 0, errBadBox
	}
	return name, size, headerLen, nil
}

// readMovieHeader parses an mvhd payload and returns floor(duration/timescale).
func readMovieHeader(r io.Reader) (int, error) {
	var versionFlags [4]byte
	if _, err := io.ReadFull(r, versionFlags[:]); err != nil {
		return 0, &ProbeError{Err: err}
	}

	var timescale uint32
	var duration uint64
	switch versionFlags[0] {
	case 0:
		// creation(4) modification(4) timescale(4) duration(4)
		var body [16]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return 0, &ProbeError{Err: err}
		}
		timescale = binary.BigEndian.Uint32(body[8:12])
		duration = uint64(binary.BigEndian.Uint32(body[12:16]))
	case 1:
		// creation(8) modification(8) timescale(4) duration(8)
		var body [28]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return 0, &ProbeError{Err: err}
		}
		timescale = binary.BigEndian.Uint32(body[16:20])
		duration = binary.BigEndian.Uint64(body[20:28])
	default:
		return 0, &ProbeError{Err: fmt.Errorf("unsupported mvhd version %d", versionFlags[0])}
	}

	if timescale == 0 {
		if duration == 0 {
			return 0, nil
		}
		return 0, &ProbeError{Err: errors.New("mvhd timescale is zero")}
	}
	return int(duration / uint64(timescale)), nil
}
