package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alnah/go-separate/internal/format"
	"github.com/alnah/go-separate/internal/separate"
)

// bytesPerFloat32Sample is the data size of one float32 output sample.
const bytesPerFloat32Sample = 4

// renderSummary renders a per-chunk table followed by run totals.
func renderSummary(r *separate.Report) string {
	if r == nil {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Chunk", "Span", "Input", "Target", "Residual", "Elapsed"})
	for _, c := range r.Chunks {
		tw.AppendRow(table.Row{
			strconv.Itoa(c.Index + 1),
			format.Duration(c.Start) + "-" + format.Duration(c.End),
			strconv.Itoa(c.InputSamples),
			strconv.Itoa(c.TargetSamples),
			strconv.Itoa(c.ResidualSamples),
			format.Duration(c.Elapsed),
		})
	}
	tw.AppendFooter(table.Row{
		"Total",
		format.Duration(format.SampleDuration(r.InputFrames, r.InputSampleRate)),
		"",
		strconv.Itoa(r.TargetSamples),
		strconv.Itoa(r.ResidualSamples),
		format.Duration(r.Elapsed),
	})

	configs := make([]table.ColumnConfig, 0, 6)
	for i := 1; i <= 6; i++ {
		align := text.AlignRight
		if i == 2 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)

	var b strings.Builder
	fmt.Fprintf(&b, "Model:    %s (%s on %s, %d Hz)\n", r.Model.Model, r.Model.DType, r.Model.Device, r.OutputSampleRate)
	fmt.Fprintf(&b, "Input:    %s (%d ch, %d Hz)\n", r.InputPath, r.InputChannels, r.InputSampleRate)
	b.WriteString(tw.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Target:   %s (%s)\n", r.TargetPath, format.Size(int64(r.TargetSamples)*bytesPerFloat32Sample))
	fmt.Fprintf(&b, "Residual: %s (%s)\n", r.ResidualPath, format.Size(int64(r.ResidualSamples)*bytesPerFloat32Sample))
	return b.String()
}
