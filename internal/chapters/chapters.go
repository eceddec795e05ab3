// Package chapters turns chapter timestamp rows into WebVTT chapter cues.
package chapters

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

type Row struct {
	StartMS int64  `db:"start_ms"`
	EndMS   int64  `db:"end_ms"`
	Label   string `db:"label"`
}

type Cue struct {
	From    string
	To      string
	Label   string
	StartMS int64
}

// FormatTimestamp renders a millisecond offset as HH:MM:SS.mmm.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}

	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// Build produces one cue per row. Each cue ends where the next one starts;
// the last cue ends at its own end_ms.
func Build(rows []Row) []Cue {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartMS < sorted[j].StartMS })

	cues := make([]Cue, len(sorted))

	for i, row := range sorted {
		end := row.EndMS
		if i+1 < len(sorted) {
			end = sorted[i+1].StartMS
		}

		cues[i] = Cue{
			From:    FormatTimestamp(row.StartMS),
			To:      FormatTimestamp(end),
			Label:   row.Label,
			StartMS: row.StartMS,
		}
	}

	return cues
}

// WriteWebVTT writes cues as a WebVTT document. No cues still gives a valid
// document containing only the header.
func WriteWebVTT(wr io.Writer, cues []Cue) error {
	w := bufio.NewWriter(wr)

	if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
		return fmt.Errorf("chapters.WriteWebVTT: %w", err)
	}

	for _, cue := range cues {
		if _, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n", cue.From, cue.To, cueText(cue.Label)); err != nil {
			return fmt.Errorf("chapters.WriteWebVTT: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("chapters.WriteWebVTT: %w", err)
	}

	return nil
}

var cueTextReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// cue text is escaped like HTML and kept on one line; a line break followed
// by a blank line would end the cue early
func cueText(s string) string {
	return cueTextReplacer.Replace(s)
}
