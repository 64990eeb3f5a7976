package pnr

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Kuree/canal/graph"
	"github.com/Kuree/canal/interconnect"
)

// LoadRouting reads a routing result file and resolves every node
// reference against the interconnect's routing graphs. Each net is a
// list of segments, each segment a node walk.
//
// The file shape is `Net ID <id> Segment_size <n>` headers followed by
// `Segment: <id> Size: <m>` blocks whose lines name nodes as
// `SB (track, x, y, side, io, width)`, `PORT (name, x, y, width)`,
// `REG (name, track, x, y, width)`, or `RMUX (name, x, y, width)`.
func LoadRouting(
	path string,
	ic *interconnect.Interconnect,
) (map[string][][]graph.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	routes := make(map[string][][]graph.Node)

	i := 0
	for i < len(lines) {
		line := lines[i]
		i++
		if !strings.HasPrefix(line, "Net") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf(
				"%s:%d: malformed net header %q", path, i, line)
		}
		netID := strings.Trim(fields[2], ":")
		numSeg, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return nil, fmt.Errorf(
				"%s:%d: bad segment count %q",
				path, i, fields[len(fields)-1])
		}

		var segments [][]graph.Node
		for s := 0; s < numSeg; s++ {
			if i >= len(lines) ||
				!strings.HasPrefix(lines[i], "Segment") {
				return nil, fmt.Errorf(
					"%s:%d: expect segment header for net %s",
					path, i+1, netID)
			}
			segFields := strings.Fields(lines[i])
			segSize, err := strconv.Atoi(segFields[len(segFields)-1])
			if err != nil {
				return nil, fmt.Errorf(
					"%s:%d: bad segment size %q",
					path, i+1, segFields[len(segFields)-1])
			}
			i++

			var segment []graph.Node
			for n := 0; n < segSize; n++ {
				if i >= len(lines) {
					return nil, fmt.Errorf(
						"%s: net %s truncated", path, netID)
				}
				node, err := parseNode(ic, lines[i])
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, i+1, err)
				}
				i++
				segment = append(segment, node)
			}
			segments = append(segments, segment)
		}
		routes[netID] = segments
	}

	return routes, nil
}

// parseNode resolves one routing node line against the graphs.
func parseNode(ic *interconnect.Interconnect, line string) (graph.Node, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')':
			return -1
		}
		return r
	}, line)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty node line")
	}

	switch fields[0] {
	case "SB":
		track, x, y, side, io, width, err := parseSBFields(fields[1:])
		if err != nil {
			return nil, err
		}
		g := ic.Graph(width)
		if g == nil {
			return nil, fmt.Errorf("no routing graph of width %d", width)
		}
		node := g.GetSB(x, y, side, track, io)
		if node == nil {
			return nil, fmt.Errorf("no switch node %q", line)
		}
		return node, nil
	case "PORT":
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed PORT node %q", line)
		}
		x, y, width, err := atoi3(fields[2], fields[3], fields[4])
		if err != nil {
			return nil, err
		}
		g := ic.Graph(width)
		if g == nil {
			return nil, fmt.Errorf("no routing graph of width %d", width)
		}
		node := g.GetPort(x, y, fields[1])
		if node == nil {
			return nil, fmt.Errorf("no port node %q", line)
		}
		return node, nil
	case "REG":
		if len(fields) != 6 {
			return nil, fmt.Errorf("malformed REG node %q", line)
		}
		x, y, width, err := atoi3(fields[3], fields[4], fields[5])
		if err != nil {
			return nil, err
		}
		g := ic.Graph(width)
		if g == nil {
			return nil, fmt.Errorf("no routing graph of width %d", width)
		}
		tile := g.GetTile(x, y)
		if tile == nil {
			return nil, fmt.Errorf("no tile at (%d, %d)", x, y)
		}
		node := tile.SwitchBox.Registers()[fields[1]]
		if node == nil {
			return nil, fmt.Errorf("no pipeline register %q", line)
		}
		return node, nil
	case "RMUX":
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed RMUX node %q", line)
		}
		x, y, width, err := atoi3(fields[2], fields[3], fields[4])
		if err != nil {
			return nil, err
		}
		g := ic.Graph(width)
		if g == nil {
			return nil, fmt.Errorf("no routing graph of width %d", width)
		}
		tile := g.GetTile(x, y)
		if tile == nil {
			return nil, fmt.Errorf("no tile at (%d, %d)", x, y)
		}
		node := tile.SwitchBox.RegisterMuxes()[fields[1]]
		if node == nil {
			return nil, fmt.Errorf("no register mux %q", line)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", fields[0])
	}
}

func parseSBFields(fields []string) (
	track, x, y int, side graph.Side, io graph.IO, width int, err error,
) {
	if len(fields) != 6 {
		err = fmt.Errorf("expect 6 SB fields, got %d", len(fields))
		return
	}

	nums := make([]int, 6)
	for i, f := range fields {
		nums[i], err = strconv.Atoi(f)
		if err != nil {
			err = fmt.Errorf("bad SB field %q", f)
			return
		}
	}

	track, x, y = nums[0], nums[1], nums[2]
	if nums[3] < 0 || nums[3] > 3 {
		err = fmt.Errorf("bad side %d", nums[3])
		return
	}
	side = graph.Side(nums[3])
	if nums[4] < 0 || nums[4] > 1 {
		err = fmt.Errorf("bad io %d", nums[4])
		return
	}
	io = graph.IO(nums[4])
	width = nums[5]

	return
}

func atoi3(a, b, c string) (x, y, z int, err error) {
	if x, err = strconv.Atoi(a); err != nil {
		err = fmt.Errorf("bad number %q", a)
		return
	}
	if y, err = strconv.Atoi(b); err != nil {
		err = fmt.Errorf("bad number %q", b)
		return
	}
	if z, err = strconv.Atoi(c); err != nil {
		err = fmt.Errorf("bad number %q", c)
	}
	return
}
