// Package preview draws a spec's grid in the terminal: room and corridor
// footprints, doors, blocked cells and the traversal path.
package preview

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/traverse"
)

// Glyphs, in increasing draw priority.
const (
	GlyphOpen     = '.'
	GlyphRoom     = 'R'
	GlyphCorridor = 'C'
	GlyphDoor     = 'D'
	GlyphBlocked  = '#'
	GlyphPath     = '*'
	GlyphStart    = 'S'
	GlyphGoal     = 'G'
)

var glyphStyles = map[rune]tcell.Style{
	GlyphOpen:     tcell.StyleDefault.Foreground(tcell.ColorGray),
	GlyphRoom:     tcell.StyleDefault.Foreground(tcell.ColorBlue),
	GlyphCorridor: tcell.StyleDefault.Foreground(tcell.ColorTeal),
	GlyphDoor:     tcell.StyleDefault.Foreground(tcell.ColorYellow),
	GlyphBlocked:  tcell.StyleDefault.Foreground(tcell.ColorRed),
	GlyphPath:     tcell.StyleDefault.Foreground(tcell.ColorGreen),
	GlyphStart:    tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true),
	GlyphGoal:     tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true),
}

// Map returns the grid as rows of glyphs, row 0 first. A nil report draws
// the layout without start, goal or path.
func Map(s *spec.SceneSpec, report *traverse.Report) ([][]rune, error) {
	g, err := traverse.BuildGrid(s)
	if err != nil {
		return nil, err
	}
	m := make([][]rune, g.Rows)
	for r := range m {
		m[r] = []rune(strings.Repeat(string(GlyphOpen), g.Cols))
	}
	set := func(c spec.GridCell, glyph rune) {
		if g.InBounds(c) {
			m[c.Row][c.Col] = glyph
		}
	}

	for _, o := range s.Objects {
		switch o.Type {
		case spec.TypeRoom:
			for _, c := range o.Footprint() {
				set(c, GlyphRoom)
			}
		case spec.TypeCorridorSegment:
			for _, c := range o.Footprint() {
				set(c, GlyphCorridor)
			}
		}
	}
	for _, o := range s.Objects {
		if o.Type == spec.TypeDoor && o.GridCell != nil {
			set(*o.GridCell, GlyphDoor)
		}
	}
	for _, c := range g.BlockedCells() {
		set(c, GlyphBlocked)
	}
	if report != nil {
		for _, c := range report.Path {
			set(c, GlyphPath)
		}
		set(report.Start, GlyphStart)
		set(report.Goal, GlyphGoal)
	}
	return m, nil
}

// Status is the one-line summary printed under the map.
func Status(report *traverse.Report) string {
	switch {
	case report == nil:
		return "traversal not checked"
	case report.Traversable:
		return fmt.Sprintf("traversable: path length %d (min %d)", report.PathLength, report.MinLength)
	default:
		return "not traversable: " + report.Reason
	}
}

// Text renders the map and status as plain text.
func Text(s *spec.SceneSpec, report *traverse.Report) (string, error) {
	m, err := Map(s, report)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, row := range m {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	b.WriteString(Status(report))
	b.WriteByte('\n')
	return b.String(), nil
}

// Draw paints the map and status onto screen and shows it.
func Draw(screen tcell.Screen, s *spec.SceneSpec, report *traverse.Report) error {
	m, err := Map(s, report)
	if err != nil {
		return err
	}
	screen.Clear()
	for y, row := range m {
		for x, glyph := range row {
			screen.SetContent(x, y, glyph, nil, glyphStyles[glyph])
		}
	}
	for x, r := range []rune(Status(report) + "  (q to quit)") {
		screen.SetContent(x, len(m)+1, r, nil, tcell.StyleDefault)
	}
	screen.Show()
	return nil
}

// Run draws the preview and blocks until the user quits or ctx is done. The
// caller owns screen initialization and Fini.
func Run(ctx context.Context, screen tcell.Screen, s *spec.SceneSpec, report *traverse.Report) error {
	if err := Draw(screen, s, report); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-done:
		}
	}()

	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			return ctx.Err()
		case *tcell.EventResize:
			screen.Sync()
			if err := Draw(screen, s, report); err != nil {
				return err
			}
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				return nil
			}
		}
	}
}
