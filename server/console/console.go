package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sunmxt/linker-sketch/proto"
)

const (
	CMD_LINE = iota
	CMD_QUIT
	CMD_REDRAW
	CMD_DRAW
	CMD_WHO
)

// Command is one parsed operator line.
type Command struct {
	Kind   int
	Line   string
	Points []proto.Point
}

var ErrBadPoint = errors.New("Point should look like x,y")

// Parse classifies an operator line. Lines that are not commands come back
// as CMD_LINE with the newline trimmed.
func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return Command{Kind: CMD_LINE, Line: line}, nil
	}

	switch fields[0] {
	case proto.CMD_QUIT:
		if len(fields) == 1 {
			return Command{Kind: CMD_QUIT, Line: line}, nil
		}
	case proto.CMD_REDRAW:
		return Command{Kind: CMD_REDRAW, Line: line}, nil
	case proto.CMD_WHO:
		return Command{Kind: CMD_WHO, Line: line}, nil
	case proto.CMD_DRAW:
		points, err := parsePoints(fields[1:])
		if err != nil {
			return Command{}, err
		}
		if len(points) < 2 {
			return Command{}, fmt.Errorf("usage: %v x0,y0 x1,y1 [...]", proto.CMD_DRAW)
		}
		return Command{Kind: CMD_DRAW, Line: line, Points: points}, nil
	}
	return Command{Kind: CMD_LINE, Line: line}, nil
}

func parsePoints(raw []string) ([]proto.Point, error) {
	points := make([]proto.Point, 0, len(raw))
	for _, pair := range raw {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, ErrBadPoint
		}
		x, err := strconv.ParseInt(parts[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("Invalid x in %q: %v", pair, err)
		}
		y, err := strconv.ParseInt(parts[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("Invalid y in %q: %v", pair, err)
		}
		points = append(points, proto.Point{X: int16(x), Y: int16(y)})
	}
	return points, nil
}

// Lines reads r line by line on its own goroutine until r is exhausted or
// done is closed. The channel is closed when reading stops; a read error,
// if any, is sent on errc.
func Lines(r io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines, errc := make(chan string), make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}
