package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"lintang/trafficspeed/pkg/concurrent"
	"lintang/trafficspeed/pkg/config"
	"lintang/trafficspeed/pkg/datastructure"
)

// PredictDay semua bin dalam satu hari dari satu kali load history, satu bin per job worker.
func (p *Predictor) PredictDay(ctx context.Context, day time.Time, intervalMinutes int, params Params) ([]*datastructure.PredictionMap, error) {
	if intervalMinutes <= 0 || datastructure.MinutesPerDay%intervalMinutes != 0 {
		return nil, fmt.Errorf("%w: interval %d", config.ErrInvalidConfig, intervalMinutes)
	}
	day = day.In(p.opts.Location)
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, p.opts.Location)

	h, err := p.LoadHistory(midnight, intervalMinutes, params)
	if err != nil {
		return nil, err
	}

	maxIndex := datastructure.MaxIndex(intervalMinutes)
	var bar *progressbar.ProgressBar
	if p.opts.Progress {
		bar = progressbar.NewOptions(maxIndex,
			progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(15),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan][2/2][reset] predicting %s...", datastructure.DayID(midnight))),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	bins := make([]int, maxIndex)
	for i := range bins {
		bins[i] = i
	}
	out, _, err := concurrent.RunOrdered(ctx, p.opts.Workers, bins,
		func(ctx context.Context, bin int) (*datastructure.PredictionMap, error) {
			target := midnight.Add(time.Duration(bin*intervalMinutes) * time.Minute)
			res := p.predictBin(h, target, bin, params)
			if bar != nil {
				bar.Add(1)
			}
			return res, nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}
