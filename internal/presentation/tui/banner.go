package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text, color string
}{
	{`  _                 _      _ _ `, "#34d399"},
	{` | |_ ___ _ __   __| |_ __(_) |`, "#2dd4bf"},
	{` | __/ _ \ '_ \ / _' | '__| | |`, "#22d3ee"},
	{` | ||  __/ | | | (_| | |  | | |`, "#38bdf8"},
	{`  \__\___|_| |_|\__,_|_|  |_|_|`, "#60a5fa"},
}

// PrintBanner writes the tendril banner to w in the colours the terminal
// supports.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
