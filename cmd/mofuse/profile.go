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
	"sort"

	"github.com/gorse-io/mofuse/analysis"
	"github.com/gorse-io/mofuse/base/log"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var profileCommand = &cobra.Command{
	Use:   "profile [view...]",
	Short: "Report missing values of the input tables.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		var views []dataset.View
		for _, arg := range args {
			view, err := dataset.ParseView(arg)
			if err != nil {
				log.Logger().Fatal("unknown view", zap.String("view", arg), zap.Error(err))
			}
			views = append(views, view)
		}
		ctx := pipeline.NewContext(context.Background()).WithJobs(conf.Runtime.Jobs)
		reports, err := analysis.Profile(ctx, conf.Data, views...)
		if err != nil {
			log.Logger().Fatal("failed to profile data", zap.Error(err))
		}
		top, _ := cmd.Flags().GetInt("top")
		if err = renderReports(os.Stdout, reports, top); err != nil {
			log.Logger().Fatal("failed to render report", zap.Error(err))
		}
	},
}

func init() {
	profileCommand.Flags().String("data", "", "directory of the input tables (overrides the config)")
	profileCommand.Flags().Int("top", 0, "list the columns with the most missing values of every view")
}

func renderReports(w io.Writer, reports []dataset.MissingReport, top int) error {
	table := tablewriter.NewWriter(w)
	table.Header("View", "Samples", "Features", "Incomplete", "Median", "P90", "Max")
	for _, r := range reports {
		if err := table.Append([]string{
			r.View.String(),
			fmt.Sprint(r.Samples),
			fmt.Sprint(r.Features),
			fmt.Sprint(r.Incomplete),
			fmt.Sprintf("%.2f%%", 100*r.Median),
			fmt.Sprintf("%.2f%%", 100*r.P90),
			fmt.Sprintf("%.2f%%", 100*r.Max),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	if top <= 0 {
		return nil
	}

	columns := tablewriter.NewWriter(w)
	columns.Header("View", "Column", "Missing")
	for _, r := range reports {
		sorted := append([]dataset.ColumnMissing(nil), r.Columns...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Fraction > sorted[j].Fraction
		})
		for _, c := range sorted[:min(top, len(sorted))] {
			if err := columns.Append([]string{r.View.String(), c.Column, fmt.Sprintf("%.2f%%", 100*c.Fraction)}); err != nil {
				return err
			}
		}
	}
	return columns.Render()
}
