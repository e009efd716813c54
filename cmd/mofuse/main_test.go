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
	"bytes"
	"testing"

	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/evaluate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBundles(t *testing.T) {
	var buf bytes.Buffer
	err := renderBundles(&buf, []evaluate.Bundle{{
		Label: "SNF-fused prediction",
		Metrics: []evaluate.Metric{
			{Label: evaluate.Rand, Value: 1, Range: evaluate.RandRange},
			{Label: evaluate.ARI, Value: 0.25, Range: evaluate.ARIRange},
		},
	}})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "SNF-fused prediction")
	assert.Contains(t, out, "1.0000 (1.00)")
	assert.Contains(t, out, "0.2500 (0.50)")
	assert.Contains(t, out, "-")
}

func TestRenderReports(t *testing.T) {
	var buf bytes.Buffer
	reports := []dataset.MissingReport{{
		View:       dataset.MRNA,
		Samples:    10,
		Features:   3,
		Incomplete: 2,
		Median:     0.1,
		P90:        0.5,
		Max:        0.6,
		Columns: []dataset.ColumnMissing{
			{Column: "BRCA1", Fraction: 0.1},
			{Column: "TP53", Fraction: 0.6},
			{Column: "EGFR", Fraction: 0},
		},
	}}
	err := renderReports(&buf, reports, 1)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "mRNA")
	assert.Contains(t, out, "60.00%")
	assert.Contains(t, out, "TP53")
	assert.NotContains(t, out, "BRCA1")
}

func TestCommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCommand.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"run", "profile", "version"})
	assert.NotNil(t, rootCommand.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCommand.PersistentFlags().Lookup("log-path"))
}
