package console

import (
	"strings"
	"testing"

	"github.com/Sunmxt/linker-sketch/proto"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line   string
		kind   int
		points int
		text   string
	}{
		{":q\n", CMD_QUIT, 0, ":q"},
		{":q now", CMD_LINE, 0, ":q now"},
		{":redraw", CMD_REDRAW, 0, ":redraw"},
		{":who", CMD_WHO, 0, ":who"},
		{":draw 0,0 10,10 20,5", CMD_DRAW, 3, ":draw 0,0 10,10 20,5"},
		{"hello world\r\n", CMD_LINE, 0, "hello world"},
		{"", CMD_LINE, 0, ""},
	}

	for _, tt := range tests {
		cmd, err := Parse(tt.line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.line, err)
		}
		if cmd.Kind != tt.kind || len(cmd.Points) != tt.points || cmd.Line != tt.text {
			t.Errorf("Parse(%q) = %+v", tt.line, cmd)
		}
	}

	cmd, _ := Parse(":draw -5,3 7,-32768")
	if cmd.Points[0] != (proto.Point{X: -5, Y: 3}) || cmd.Points[1] != (proto.Point{X: 7, Y: -32768}) {
		t.Errorf("points = %v", cmd.Points)
	}
}

func TestParseBadDraw(t *testing.T) {
	for _, line := range []string{":draw", ":draw 1,1", ":draw 1,1 2", ":draw 1,1 x,2", ":draw 1,1 2,40000"} {
		if cmd, err := Parse(line); err == nil {
			t.Errorf("Parse(%q) = %+v, want error", line, cmd)
		}
	}
}

func TestLines(t *testing.T) {
	lines, errc := Lines(strings.NewReader("first\nsecond\n:q\n"), nil)
	var got []string
	for line := range lines {
		got = append(got, line)
	}
	if strings.Join(got, "|") != "first|second|:q" {
		t.Errorf("lines = %v", got)
	}
	if err := <-errc; err != nil {
		t.Errorf("err = %v", err)
	}
}
