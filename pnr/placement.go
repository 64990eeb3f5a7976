// Package pnr loads place-and-route results and maps them onto a
// compiled fabric: block placements, routed nets resolved to routing
// graph nodes, and the power-domain consequences of a placement.
package pnr

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Kuree/canal/graph"
)

// LoadPlacement reads a placement file. The file carries two header
// lines followed by one `name x y #id` row per block. It returns the
// block locations and names keyed by block id.
func LoadPlacement(path string) (
	map[string]graph.Coord, map[string]string, error,
) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	placement := make(map[string]graph.Coord)
	idToName := make(map[string]string)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= 2 {
			continue
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, nil, fmt.Errorf(
				"%s:%d: expect `name x y #id`, got %q",
				path, lineNo, line)
		}

		x, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, fmt.Errorf(
				"%s:%d: bad x coordinate %q", path, lineNo, fields[1])
		}
		y, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, nil, fmt.Errorf(
				"%s:%d: bad y coordinate %q", path, lineNo, fields[2])
		}

		id := strings.TrimPrefix(fields[3], "#")
		if id == fields[3] {
			return nil, nil, fmt.Errorf(
				"%s:%d: block id %q misses the # prefix",
				path, lineNo, fields[3])
		}

		placement[id] = graph.Coord{X: x, Y: y}
		idToName[id] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return placement, idToName, nil
}
