package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"cardoff/internal/pipeline"
)

// consoleGate asks on stdin before the pipeline routes and copies anything.
type consoleGate struct {
	in  io.Reader
	out io.Writer
}

func newConsoleGate(in io.Reader, out io.Writer) *consoleGate {
	return &consoleGate{in: in, out: out}
}

func (g *consoleGate) Confirm(_ context.Context, preview *pipeline.Preview) (bool, error) {
	fmt.Fprintln(g.out, renderPreview(preview))
	fmt.Fprint(g.out, "Proceed with import? [y/N]: ")

	reader := bufio.NewReader(g.in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func renderPreview(preview *pipeline.Preview) string {
	rows := [][]string{
		{"Camera", preview.Profile},
		{"Confidence", strconv.Itoa(preview.Confidence)},
		{"Import date", preview.Date},
		{"Source", preview.Source},
		{"Files", strconv.Itoa(preview.Summary.Files)},
		{"Photos", strconv.Itoa(preview.Summary.Photos)},
		{"Videos", strconv.Itoa(preview.Summary.Videos)},
		{"Total size", humanize.IBytes(uint64(preview.Summary.TotalBytes))},
	}
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}
