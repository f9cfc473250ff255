// Package digitized reads mTPC digitized-hit text files.
//
// Each event starts with an "Event <n>" line, followed by the generated
// track header
//
//	momentum(GeV/c)  theta(deg)  phi(deg)  vertexZ
//
// and one line per hit, either
//
//	time  adc  ring  pad  plane  zToGem
//	time  adc  trueX  trueY  trueZ  ring  pad  plane  zToGem
//
// Lengths are converted from the file unit (metres by default) to cm.
package digitized

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/tdis-data/mtpc.reco/internal/fsutil"
	"github.com/tdis-data/mtpc.reco/internal/monitoring"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/units"
)

// ErrMalformed is returned for an event whose track header cannot be parsed.
var ErrMalformed = errors.New("malformed digitized event")

const eventMarker = "Event"

const maxLineSize = 1 << 20

// Options controls how a Reader interprets its input.
type Options struct {
	// LengthUnit is the unit of vertexZ, zToGem and true positions.
	LengthUnit string
}

// Normalize validates the options and applies defaults for unset values.
func (o Options) Normalize() (Options, error) {
	opts := o
	if opts.LengthUnit == "" {
		opts.LengthUnit = units.M
	}
	if !units.IsValid(opts.LengthUnit) {
		return opts, fmt.Errorf("invalid length unit %q: must be one of %s", opts.LengthUnit, units.GetValidUnitsString())
	}
	return opts, nil
}

// Reader yields events from a digitized text stream one at a time.
type Reader struct {
	sc    *bufio.Scanner
	scale float64
	line  int

	// marker of the event whose lines come next, consumed while reading the
	// previous event
	next    *marker
	ordinal int
}

type marker struct {
	number int
	line   int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	scale, err := units.ConvertLength(1, opts.LengthUnit, units.CM)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc, scale: scale}, nil
}

// Next returns the next event with at least one hit. It returns io.EOF at
// the end of input and an error wrapping ErrMalformed for an event with a
// bad header; reading may continue after ErrMalformed.
func (r *Reader) Next() (*hits.Event, error) {
	for {
		m, lines, err := r.readBlock()
		if err != nil {
			return nil, err
		}
		if len(lines) == 0 {
			monitoring.Logf("digitized: event %d at line %d has no track header, skipping", m.number, m.line)
			continue
		}

		ev, err := r.parseEvent(m, lines)
		if err != nil {
			return nil, err
		}
		if len(ev.Hits) == 0 {
			monitoring.Logf("digitized: event %d at line %d has no hits, skipping", m.number, m.line)
			continue
		}
		return ev, nil
	}
}

type numberedLine struct {
	n    int
	text string
}

// readBlock returns the non-blank lines between the next event marker and
// the one after it.
func (r *Reader) readBlock() (marker, []numberedLine, error) {
	for r.next == nil {
		text, ok, err := r.scan()
		if err != nil {
			return marker{}, nil, err
		}
		if !ok {
			return marker{}, nil, io.EOF
		}
		if m, isMarker := r.parseMarker(text); isMarker {
			r.next = &m
		}
	}

	m := *r.next
	r.next = nil
	var lines []numberedLine
	for {
		text, ok, err := r.scan()
		if err != nil {
			return marker{}, nil, err
		}
		if !ok {
			return m, lines, nil
		}
		if next, isMarker := r.parseMarker(text); isMarker {
			r.next = &next
			return m, lines, nil
		}
		if strings.TrimSpace(text) != "" {
			lines = append(lines, numberedLine{n: r.line, text: text})
		}
	}
}

func (r *Reader) scan() (string, bool, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", false, fmt.Errorf("digitized: read near line %d: %w", r.line, err)
		}
		return "", false, nil
	}
	r.line++
	return r.sc.Text(), true, nil
}

// parseMarker recognises "Event <n>". Markers without a usable number get
// the ordinal position of the event in the file.
func (r *Reader) parseMarker(text string) (marker, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, eventMarker) {
		return marker{}, false
	}
	r.ordinal++
	m := marker{number: r.ordinal, line: r.line}
	if fields := strings.Fields(trimmed); len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil {
			m.number = n
		}
	}
	return m, true
}

func (r *Reader) parseEvent(m marker, lines []numberedLine) (*hits.Event, error) {
	track, err := r.parseHeader(lines[0].text)
	if err != nil {
		return nil, fmt.Errorf("%w: event %d line %d: %v", ErrMalformed, m.number, lines[0].n, err)
	}

	ev := &hits.Event{Number: m.number, Track: track, Hits: make([]hits.RawHit, 0, len(lines)-1)}
	for _, l := range lines[1:] {
		h, err := r.parseHit(l.text)
		if err != nil {
			monitoring.Logf("digitized: event %d line %d: skipping hit: %v", m.number, l.n, err)
			continue
		}
		ev.Hits = append(ev.Hits, h)
	}
	return ev, nil
}

func (r *Reader) parseHeader(text string) (hits.Track, error) {
	f := strings.Fields(text)
	if len(f) < 4 {
		return hits.Track{}, fmt.Errorf("track header needs 4 values, got %d", len(f))
	}
	v, err := parseFloats(f[:4])
	if err != nil {
		return hits.Track{}, err
	}
	return hits.Track{
		Momentum: v[0],
		Theta:    v[1],
		Phi:      v[2],
		VertexZ:  v[3] * r.scale,
	}, nil
}

func (r *Reader) parseHit(text string) (hits.RawHit, error) {
	f := strings.Fields(text)

	var idx, floats []string
	truth := hits.NoTruth
	switch len(f) {
	case 6:
		floats = []string{f[0], f[1], f[5]}
		idx = f[2:5]
	case 9:
		floats = []string{f[0], f[1], f[8]}
		idx = f[5:8]
		t, err := parseFloats(f[2:5])
		if err != nil {
			return hits.RawHit{}, err
		}
		truth = r3.Vector{X: t[0], Y: t[1], Z: t[2]}.Mul(r.scale)
	default:
		return hits.RawHit{}, fmt.Errorf("hit needs 6 or 9 values, got %d", len(f))
	}

	v, err := parseFloats(floats)
	if err != nil {
		return hits.RawHit{}, err
	}
	var ids [3]int
	for i, s := range idx {
		if ids[i], err = strconv.Atoi(s); err != nil {
			return hits.RawHit{}, fmt.Errorf("bad index %q: %w", s, err)
		}
	}

	return hits.RawHit{
		Time:         v[0],
		ADC:          v[1],
		Ring:         ids[0],
		Pad:          ids[1],
		Plane:        ids[2],
		ZToGem:       v[2] * r.scale,
		TruePosition: truth,
	}, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// ReadAll skips the first skip events and returns up to limit events
// (limit <= 0 reads to the end). Events with a malformed header are
// logged and do not count toward skip or limit.
func ReadAll(rd *Reader, skip, limit int) ([]*hits.Event, error) {
	var events []*hits.Event
	seen := 0
	for limit <= 0 || len(events) < limit {
		ev, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrMalformed) {
			monitoring.Logf("digitized: %v", err)
			continue
		}
		if err != nil {
			return events, err
		}
		seen++
		if seen <= skip {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// ReadFile opens a digitized .txt file and reads it with ReadAll.
func ReadFile(path string, opts Options, skip, limit int) ([]*hits.Event, error) {
	return ReadFileFS(fsutil.OSFileSystem{}, path, opts, skip, limit)
}

// ReadFileFS is ReadFile on an arbitrary filesystem.
func ReadFileFS(fsys fsutil.FileSystem, path string, opts Options, skip, limit int) ([]*hits.Event, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".txt" {
		return nil, fmt.Errorf("digitized file must have .txt extension, got %q", ext)
	}
	f, err := fsys.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open digitized file: %w", err)
	}
	defer f.Close()

	rd, err := NewReader(f, opts)
	if err != nil {
		return nil, err
	}
	return ReadAll(rd, skip, limit)
}
