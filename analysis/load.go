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

package analysis

import (
	"github.com/gorse-io/mofuse/common/parallel"
	"github.com/gorse-io/mofuse/config"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/pipeline"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Load reads the tables of the given views, every view in the canonical order when
// none is given.
func Load(ctx *pipeline.Context, cfg config.DataConfig, views ...dataset.View) ([]*dataset.Dataset, error) {
	if len(views) == 0 {
		views = dataset.Views
	}
	return parallel.Map(ctx.Context(), views, ctx.Jobs(), func(_ int, view dataset.View) (*dataset.Dataset, error) {
		path, err := cfg.Path(view)
		if err != nil {
			return nil, errors.Trace(err)
		}
		d, err := dataset.LoadCSVFile(path, view, dataset.DefaultCSVOptions(view))
		if err != nil {
			return nil, errors.Annotatef(err, "view %s", view)
		}
		ctx.ForView(view).Logger().Info("view loaded",
			zap.String("path", path),
			zap.Int("samples", d.Count()),
			zap.Int("features", d.NumColumns()))
		return d, nil
	})
}

// Profile loads the given views and reports their missing values.
func Profile(ctx *pipeline.Context, cfg config.DataConfig, views ...dataset.View) ([]dataset.MissingReport, error) {
	data, err := Load(ctx, cfg, views...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	reports := make([]dataset.MissingReport, len(data))
	for i, d := range data {
		reports[i] = dataset.ReportMissing(d)
		ctx.Logger().Info("missing values", reports[i].ZapFields()...)
	}
	return reports, nil
}
