package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
)

// StageProgress shows a progress bar that advances once per pipeline stage.
type StageProgress struct {
	writer  io.Writer
	bar     *progressbar.ProgressBar
	onStage func(string)
}

// NewStageProgress creates a bar for total stages. onStage, when set, is told
// about each stage as it starts.
func NewStageProgress(writer io.Writer, total int, onStage func(string)) *StageProgress {
	if writer == nil {
		writer = os.Stderr
	}
	p := &StageProgress{writer: writer, onStage: onStage}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Starting...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// StageStarted updates the bar description.
func (p *StageProgress) StageStarted(stage string) {
	if p.onStage != nil {
		p.onStage(stage)
	}
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s...[reset]", stage))
}

// StageDone advances the bar by one stage.
func (p *StageProgress) StageDone(stage string) {
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "stage", stage, "error", err)
	}
}
