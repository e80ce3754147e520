// Package location loads the list of coordinates the random recommendation
// samples from and keeps it in memory for the lifetime of the process.
package location

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	domerrors "github.com/garyellow/line-foodfinder/internal/errors"
)

// DefaultKeyField is the header column used as the point identifier.
const DefaultKeyField = "id"

// Point is one location in the list.
type Point struct {
	ID  string
	Lat float64
	Lng float64
}

// Point returns the coordinate in orb (lng, lat) order.
func (p Point) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Load reads a location file from path. See Parse for the format.
func Load(path, keyField string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domerrors.ErrDataUnavailable, path, err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f, keyField)
}

// Parse reads comma separated rows with a header. The header must contain
// "lat" and "lng"; rows are keyed by keyField, and a later row with the
// same key replaces the earlier one in place. Without a key column the
// 1-based row number is used.
func Parse(r io.Reader, keyField string) ([]Point, error) {
	if keyField == "" {
		keyField = DefaultKeyField
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", domerrors.ErrDataUnavailable)
	}
	if err != nil {
		return nil, dataErr(err)
	}

	cols := columnIndex(header)
	latCol, okLat := cols["lat"]
	lngCol, okLng := cols["lng"]
	if !okLat || !okLng {
		return nil, fmt.Errorf("%w: header needs lat and lng columns, got %v", domerrors.ErrDataUnavailable, header)
	}
	keyCol, hasKey := cols[strings.ToLower(keyField)]

	var (
		points []Point
		byKey  = make(map[string]int)
	)
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ErrFieldCount lands here when a row's width differs from the header.
			return nil, dataErr(err)
		}

		lat, err := parseCoord(rec[latCol], 90)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d lat: %w", domerrors.ErrDataUnavailable, row, err)
		}
		lng, err := parseCoord(rec[lngCol], 180)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d lng: %w", domerrors.ErrDataUnavailable, row, err)
		}

		id := strconv.Itoa(row)
		if hasKey {
			id = strings.TrimSpace(rec[keyCol])
		}

		p := Point{ID: id, Lat: lat, Lng: lng}
		if i, dup := byKey[id]; dup {
			points[i] = p
			continue
		}
		byKey[id] = len(points)
		points = append(points, p)
	}

	return points, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	return cols
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%v out of range", v)
	}
	return v, nil
}

func dataErr(err error) error {
	return fmt.Errorf("%w: %w", domerrors.ErrDataUnavailable, err)
}
