package progress

import (
	"fmt"
	"io"
	"sort"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// NewRenderer picks a TTY or plain renderer depending on whether out is a
// terminal, matching spec.md §4.F's "non-TTY output degrades to plain
// lines."
func NewRenderer(out io.Writer, fd int) func(Status) {
	if term.IsTerminal(fd) {
		return newTTYRenderer(out)
	}
	return newPlainRenderer(out)
}

// newTTYRenderer renders one progressbar.v3 totals bar plus one text line
// per active slot, clearing the previously drawn lines before each
// redraw so the display does not scroll.
func newTTYRenderer(out io.Writer) func(Status) {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
	linesDrawn := 0

	return func(st Status) {
		if linesDrawn > 0 {
			fmt.Fprintf(out, "\033[%dA\033[J", linesDrawn)
		}

		bar.ChangeMax64(st.Total)
		_ = bar.Set64(st.Done)

		slots := sortedSlots(st.Slots)
		for _, s := range slots {
			fmt.Fprintf(out, "  %-40s %-12s %s/%s\n", s.Label, s.State, humanBytes(s.DoneBytes), humanBytes(s.TotalBytes))
		}
		fmt.Fprintf(out, "%s  rate=%s/s  eta=%s\n", bar.String(), humanBytes(int64(st.RateBytes)), st.ETA.Truncate(1e9))
		linesDrawn = len(slots) + 1
	}
}

// newPlainRenderer emits one totals line per tick, no slot detail and no
// cursor manipulation, for redirected/piped output.
func newPlainRenderer(out io.Writer) func(Status) {
	return func(st Status) {
		fmt.Fprintf(out, "progress: %s/%s  rate=%s/s  eta=%s  active=%d\n",
			humanBytes(st.Done), humanBytes(st.Total), humanBytes(int64(st.RateBytes)), st.ETA.Truncate(1e9), len(st.Slots))
	}
}

func sortedSlots(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for val := n / unit; val >= unit; val /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
