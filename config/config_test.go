// Copyright 2020 gorse Project Authors
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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal(t *testing.T) {
	data, err := os.ReadFile("config.toml.template")
	require.NoError(t, err)
	text := string(data)
	text = strings.Replace(text, "sample_filter = \"\"", "sample_filter = \"age >= 50\"", -1)
	v := viper.New()
	v.SetConfigType("toml")
	err = v.ReadConfig(strings.NewReader(text))
	require.NoError(t, err)
	var config Config
	err = v.Unmarshal(&config)
	require.NoError(t, err)

	// [data]
	assert.Equal(t, "data", config.Data.Directory)
	assert.Equal(t, "mo_PRAD_RPPAArray-20160128.csv", config.Data.Proteins)
	assert.Equal(t, "mo_PRAD_RNASeq2Gene-20160128.csv", config.Data.MRNA)
	assert.Equal(t, "mo_PRAD_miRNASeqGene-20160128.csv", config.Data.MiRNA)
	assert.Equal(t, "mo_colData.csv", config.Data.Phenotype)
	assert.Equal(t, "subtypes.csv", config.Data.Subtypes)
	// [harmonize]
	assert.Equal(t, 0.0, config.Harmonize.NanThreshold)
	assert.Equal(t, 100, config.Harmonize.VarianceTopK)
	assert.Equal(t, 12, config.Harmonize.BarcodeLength)
	assert.Equal(t, "patient.samples.sample.2.is_ffpe", config.Harmonize.QualityColumn)
	assert.Equal(t, "age >= 50", config.Harmonize.SampleFilter)
	assert.False(t, config.Harmonize.Impute)
	// [similarity]
	assert.Equal(t, 20, config.Similarity.Neighbors)
	assert.Equal(t, 0.5, config.Similarity.Mu)
	// [fusion]
	assert.Equal(t, "snf", config.Fusion.Method)
	assert.Equal(t, 20, config.Fusion.Neighbors)
	assert.Equal(t, 20, config.Fusion.Iterations)
	// [cluster]
	assert.Equal(t, "kmedoids", config.Cluster.Method)
	assert.Equal(t, 3, config.Cluster.Clusters)
	assert.Equal(t, 20, config.Cluster.Neighbors)
	assert.Equal(t, int64(42), config.Cluster.Seed)
	assert.Equal(t, 300, config.Cluster.MaxIter)
	// [evaluate]
	assert.Equal(t, "Subtype_Integrative", config.Evaluate.TruthColumn)
	assert.True(t, config.Evaluate.SingleView)
	// [runtime]
	assert.Equal(t, 1, config.Runtime.Jobs)

	assert.NoError(t, config.Validate())
}

func TestTemplateMatchesDefaults(t *testing.T) {
	config, err := LoadConfig("config.toml.template")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
[fusion]
method = "mean"

[cluster]
method = "spectral"
clusters = 4
`), 0644)
	require.NoError(t, err)
	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mean", config.Fusion.Method)
	assert.Equal(t, "spectral", config.Cluster.Method)
	assert.Equal(t, 4, config.Cluster.Clusters)
	// unset values keep their defaults
	assert.Equal(t, 20, config.Fusion.Iterations)
	assert.Equal(t, 0.5, config.Similarity.Mu)
	assert.Equal(t, 100, config.Harmonize.VarianceTopK)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("MOFUSE_DATA_DIRECTORY", "/tmp/prad")
	t.Setenv("MOFUSE_FUSION_METHOD", "mean")
	t.Setenv("MOFUSE_CLUSTER_METHOD", "spectral")
	t.Setenv("MOFUSE_CLUSTER_CLUSTERS", "5")
	t.Setenv("MOFUSE_CLUSTER_SEED", "7")
	t.Setenv("MOFUSE_RUNTIME_JOBS", "8")
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/prad", config.Data.Directory)
	assert.Equal(t, "mean", config.Fusion.Method)
	assert.Equal(t, "spectral", config.Cluster.Method)
	assert.Equal(t, 5, config.Cluster.Clusters)
	assert.Equal(t, int64(7), config.Cluster.Seed)
	assert.Equal(t, 8, config.Runtime.Jobs)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())

	cases := []func(*Config){
		func(c *Config) { c.Harmonize.NanThreshold = 1.5 },
		func(c *Config) { c.Harmonize.VarianceTopK = 0 },
		func(c *Config) { c.Similarity.Mu = 0 },
		func(c *Config) { c.Fusion.Method = "median" },
		func(c *Config) { c.Fusion.Iterations = 0 },
		func(c *Config) { c.Cluster.Method = "dbscan" },
		func(c *Config) { c.Cluster.Clusters = 1 },
		func(c *Config) { c.Evaluate.TruthColumn = "" },
		func(c *Config) { c.Runtime.Jobs = 0 },
	}
	for i, mutate := range cases {
		config := GetDefaultConfig()
		mutate(config)
		err := config.Validate()
		assert.True(t, errors.Is(err, base.ErrValidation), i)
	}
}

func TestDataConfig_Path(t *testing.T) {
	config := GetDefaultConfig()
	path, err := config.Data.Path(dataset.MRNA)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "mo_PRAD_RNASeq2Gene-20160128.csv"), path)
	config.Data.Subtypes = "/abs/subtypes.csv"
	path, err = config.Data.Path(dataset.Subtypes)
	require.NoError(t, err)
	assert.Equal(t, "/abs/subtypes.csv", path)
	_, err = config.Data.Path(dataset.View("Methylation"))
	assert.True(t, errors.Is(err, base.ErrValidation))
}

func TestOptions(t *testing.T) {
	config := GetDefaultConfig()
	opts := config.HarmonizeOptions()
	assert.Equal(t, config.Harmonize.VarianceTopK, opts.VarianceTopK)
	assert.Equal(t, config.Harmonize.QualityColumn, opts.QualityColumn)
	clusterOpts := config.ClusterOptions()
	assert.Equal(t, config.Cluster.Clusters, clusterOpts.Clusters)
	assert.Equal(t, config.Cluster.Seed, clusterOpts.Seed)
}
