// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/gorse-io/mofuse/analysis"
	"github.com/gorse-io/mofuse/base/log"
	"github.com/gorse-io/mofuse/evaluate"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Harmonize the views, fuse their similarity networks, cluster and score against the subtypes.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		if cmd.Flags().Changed("jobs") {
			conf.Runtime.Jobs, _ = cmd.Flags().GetInt("jobs")
		}
		runner, err := analysis.NewRunner(conf)
		if err != nil {
			log.Logger().Fatal("failed to create runner", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		runCtx := pipeline.NewContext(ctx).WithJobs(conf.Runtime.Jobs)
		inputs, err := analysis.Load(runCtx, conf.Data)
		if err != nil {
			log.Logger().Fatal("failed to load data", zap.Error(err))
		}

		done := make(chan struct{})
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			go trackProgress(runCtx, done)
		}
		result, err := runner.Run(runCtx, inputs)
		close(done)
		if err != nil {
			log.Logger().Fatal("analysis failed", zap.String("run_id", runCtx.RunId()), zap.Error(err))
		}
		if err = renderBundles(os.Stdout, result.Bundles); err != nil {
			log.Logger().Fatal("failed to render metrics", zap.Error(err))
		}
	},
}

func init() {
	runCommand.Flags().Int("jobs", 1, "number of workers for parallel stages")
	runCommand.Flags().String("data", "", "directory of the input tables (overrides the config)")
	runCommand.Flags().BoolP("quiet", "q", false, "hide the progress bar")
}

// trackProgress renders the progress of the analysis span until done is closed.
func trackProgress(ctx *pipeline.Context, done <-chan struct{}) {
	bar := progressbar.NewOptions(len(analysis.Stages()),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Analysis"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish())
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			_ = bar.Finish()
			return
		case <-ticker.C:
			for _, p := range ctx.Tracer().List() {
				if p.Name == "Analysis" && p.Total > 0 {
					bar.ChangeMax(p.Total)
					_ = bar.Set(p.Count)
				}
			}
		}
	}
}

func renderBundles(w io.Writer, bundles []evaluate.Bundle) error {
	table := tablewriter.NewWriter(w)
	table.Header("Prediction", evaluate.Rand, evaluate.ARI, evaluate.NMI, evaluate.Silhouette)
	for _, bundle := range bundles {
		row := []string{bundle.Label}
		for _, label := range []string{evaluate.Rand, evaluate.ARI, evaluate.NMI, evaluate.Silhouette} {
			m, ok := bundle.Get(label)
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("%.4f (%.2f)", m.Value, m.Normalized()))
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
