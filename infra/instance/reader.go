// Package instance reads benchmark instance files and selects instance
// sets from a directory.
package instance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/evrptw/core/model"
)

// ErrFormat reports an instance file that does not follow the two-block
// layout.
var ErrFormat = errors.New("malformed instance file")

// Read parses an instance. The first block holds a header line followed by
// one row per node: id, type (d, f or c) and six numeric fields. After a
// blank line, the second block lists the vehicle parameters, one per line,
// with the value as last token (optionally wrapped in slashes) in the
// order Q, C, h, g, v. Rows of other types are ignored.
func Read(r io.Reader, name string) (*model.Instance, error) {
	blocks, err := splitBlocks(r)
	if err != nil {
		return nil, err
	}
	if len(blocks) < 2 {
		return nil, fmt.Errorf("%s: %w: expected node and vehicle blocks, got %d", name, ErrFormat, len(blocks))
	}
	var depots, stations, clients [][]float64
	for i, line := range blocks[0][1:] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s: %w: node row %d: %q", name, ErrFormat, i+1, line)
		}
		var dst *[][]float64
		switch fields[1] {
		case "d":
			dst = &depots
		case "f":
			dst = &stations
		case "c":
			dst = &clients
		default:
			continue
		}
		vals, err := parseFloats(fields[2:])
		if err != nil {
			return nil, fmt.Errorf("%s: node %s: %w", name, fields[0], err)
		}
		*dst = append(*dst, vals)
	}
	var vehicle []float64
	for _, line := range blocks[1] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		last := strings.ReplaceAll(fields[len(fields)-1], "/", "")
		v, err := strconv.ParseFloat(last, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: vehicle row %q", name, ErrFormat, line)
		}
		vehicle = append(vehicle, v)
	}
	inst, err := model.NewInstance(name, depots, stations, clients, vehicle)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return inst, nil
}

// Load reads the instance at path. Its name is the file name without the
// .txt extension.
func Load(path string) (*model.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, Name(path))
}

// Name derives the instance name from a file path.
func Name(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".txt")
}

func splitBlocks(r io.Reader) ([][]string, error) {
	var blocks [][]string
	var cur []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q", ErrFormat, f)
		}
		out[i] = v
	}
	return out, nil
}
