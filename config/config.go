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
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/mofuse/base"
	"github.com/gorse-io/mofuse/cluster"
	"github.com/gorse-io/mofuse/dataset"
	"github.com/gorse-io/mofuse/fusion"
	"github.com/gorse-io/mofuse/harmonize"
	"github.com/gorse-io/mofuse/similarity"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "MOFUSE"

// Config is the configuration of an analysis run.
type Config struct {
	Data       DataConfig       `mapstructure:"data"`
	Harmonize  HarmonizeConfig  `mapstructure:"harmonize"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Fusion     FusionConfig     `mapstructure:"fusion"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Evaluate   EvaluateConfig   `mapstructure:"evaluate"`
	Runtime    RuntimeConfig    `mapstructure:"runtime"`
}

// DataConfig locates the input tables. Relative file names are resolved against
// Directory.
type DataConfig struct {
	Directory string `mapstructure:"directory"`
	Proteins  string `mapstructure:"proteins" validate:"required"`
	MRNA      string `mapstructure:"mrna" validate:"required"`
	MiRNA     string `mapstructure:"mirna" validate:"required"`
	Phenotype string `mapstructure:"phenotype" validate:"required"`
	Subtypes  string `mapstructure:"subtypes" validate:"required"`
}

type HarmonizeConfig struct {
	NanThreshold  float64 `mapstructure:"nan_threshold" validate:"gte=0,lte=1"`
	VarianceTopK  int     `mapstructure:"variance_top_k" validate:"gt=0"`
	BarcodeLength int     `mapstructure:"barcode_length" validate:"gt=0"`
	QualityColumn string  `mapstructure:"quality_column" validate:"required"`
	SampleFilter  string  `mapstructure:"sample_filter"`
	Impute        bool    `mapstructure:"impute"`
}

type SimilarityConfig struct {
	Neighbors int     `mapstructure:"neighbors" validate:"gt=0"`
	Mu        float64 `mapstructure:"mu" validate:"gt=0"`
}

type FusionConfig struct {
	Method     string `mapstructure:"method" validate:"oneof=snf mean"`
	Neighbors  int    `mapstructure:"neighbors" validate:"gt=0"`
	Iterations int    `mapstructure:"iterations" validate:"gt=0"`
}

type ClusterConfig struct {
	Method    string `mapstructure:"method" validate:"oneof=kmedoids spectral"`
	Clusters  int    `mapstructure:"clusters" validate:"gte=2"`
	Neighbors int    `mapstructure:"neighbors" validate:"gt=0"`
	Seed      int64  `mapstructure:"seed"`
	MaxIter   int    `mapstructure:"max_iter" validate:"gt=0"`
}

type EvaluateConfig struct {
	TruthColumn string `mapstructure:"truth_column" validate:"required"`
	// SingleView also clusters and scores every omics view on its own.
	SingleView bool `mapstructure:"single_view"`
}

type RuntimeConfig struct {
	Jobs int `mapstructure:"jobs" validate:"gte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Directory: "data",
			Proteins:  "mo_PRAD_RPPAArray-20160128.csv",
			MRNA:      "mo_PRAD_RNASeq2Gene-20160128.csv",
			MiRNA:     "mo_PRAD_miRNASeqGene-20160128.csv",
			Phenotype: "mo_colData.csv",
			Subtypes:  "subtypes.csv",
		},
		Harmonize: HarmonizeConfig{
			NanThreshold:  harmonize.DefaultNanThreshold,
			VarianceTopK:  harmonize.DefaultVarianceTopK,
			BarcodeLength: harmonize.DefaultBarcodeLength,
			QualityColumn: harmonize.DefaultQualityColumn,
		},
		Similarity: SimilarityConfig{
			Neighbors: similarity.DefaultNeighbors,
			Mu:        similarity.DefaultMu,
		},
		Fusion: FusionConfig{
			Method:     fusion.MethodSNF,
			Neighbors:  fusion.DefaultNeighbors,
			Iterations: fusion.DefaultIterations,
		},
		Cluster: ClusterConfig{
			Method:    cluster.MethodKMedoids,
			Clusters:  cluster.DefaultClusters,
			Neighbors: cluster.DefaultNeighbors,
			Seed:      cluster.DefaultSeed,
			MaxIter:   cluster.DefaultMaxIter,
		},
		Evaluate: EvaluateConfig{
			TruthColumn: "Subtype_Integrative",
			SingleView:  true,
		},
		Runtime: RuntimeConfig{
			Jobs: 1,
		},
	}
}

// Validate checks value ranges and method names.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.WithType(errors.Annotate(err, "invalid config"), base.ErrValidation)
	}
	return nil
}

// Path returns the location of the table of a view.
func (config *DataConfig) Path(view dataset.View) (string, error) {
	var name string
	switch view {
	case dataset.Proteins:
		name = config.Proteins
	case dataset.MRNA:
		name = config.MRNA
	case dataset.MiRNA:
		name = config.MiRNA
	case dataset.Phenotype:
		name = config.Phenotype
	case dataset.Subtypes:
		name = config.Subtypes
	default:
		return "", base.Validationf("no data file for view %q", view)
	}
	if filepath.IsAbs(name) || config.Directory == "" {
		return name, nil
	}
	return filepath.Join(config.Directory, name), nil
}

// HarmonizeOptions converts the section into pipeline options.
func (config *Config) HarmonizeOptions() harmonize.Options {
	return harmonize.Options{
		NanThreshold:  config.Harmonize.NanThreshold,
		VarianceTopK:  config.Harmonize.VarianceTopK,
		BarcodeLength: config.Harmonize.BarcodeLength,
		QualityColumn: config.Harmonize.QualityColumn,
		SampleFilter:  config.Harmonize.SampleFilter,
		Impute:        config.Harmonize.Impute,
	}
}

// ClusterOptions converts the section into clustering options.
func (config *Config) ClusterOptions() cluster.Options {
	return cluster.Options{
		Clusters:  config.Cluster.Clusters,
		Neighbors: config.Cluster.Neighbors,
		Seed:      config.Cluster.Seed,
		MaxIter:   config.Cluster.MaxIter,
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [data]
	v.SetDefault("data.directory", defaultConfig.Data.Directory)
	v.SetDefault("data.proteins", defaultConfig.Data.Proteins)
	v.SetDefault("data.mrna", defaultConfig.Data.MRNA)
	v.SetDefault("data.mirna", defaultConfig.Data.MiRNA)
	v.SetDefault("data.phenotype", defaultConfig.Data.Phenotype)
	v.SetDefault("data.subtypes", defaultConfig.Data.Subtypes)
	// [harmonize]
	v.SetDefault("harmonize.nan_threshold", defaultConfig.Harmonize.NanThreshold)
	v.SetDefault("harmonize.variance_top_k", defaultConfig.Harmonize.VarianceTopK)
	v.SetDefault("harmonize.barcode_length", defaultConfig.Harmonize.BarcodeLength)
	v.SetDefault("harmonize.quality_column", defaultConfig.Harmonize.QualityColumn)
	v.SetDefault("harmonize.sample_filter", defaultConfig.Harmonize.SampleFilter)
	v.SetDefault("harmonize.impute", defaultConfig.Harmonize.Impute)
	// [similarity]
	v.SetDefault("similarity.neighbors", defaultConfig.Similarity.Neighbors)
	v.SetDefault("similarity.mu", defaultConfig.Similarity.Mu)
	// [fusion]
	v.SetDefault("fusion.method", defaultConfig.Fusion.Method)
	v.SetDefault("fusion.neighbors", defaultConfig.Fusion.Neighbors)
	v.SetDefault("fusion.iterations", defaultConfig.Fusion.Iterations)
	// [cluster]
	v.SetDefault("cluster.method", defaultConfig.Cluster.Method)
	v.SetDefault("cluster.clusters", defaultConfig.Cluster.Clusters)
	v.SetDefault("cluster.neighbors", defaultConfig.Cluster.Neighbors)
	v.SetDefault("cluster.seed", defaultConfig.Cluster.Seed)
	v.SetDefault("cluster.max_iter", defaultConfig.Cluster.MaxIter)
	// [evaluate]
	v.SetDefault("evaluate.truth_column", defaultConfig.Evaluate.TruthColumn)
	v.SetDefault("evaluate.single_view", defaultConfig.Evaluate.SingleView)
	// [runtime]
	v.SetDefault("runtime.jobs", defaultConfig.Runtime.Jobs)
}

type environmentVariable struct {
	key string
	env string
}

var bindings = []environmentVariable{
	{"data.directory", "MOFUSE_DATA_DIRECTORY"},
	{"fusion.method", "MOFUSE_FUSION_METHOD"},
	{"cluster.method", "MOFUSE_CLUSTER_METHOD"},
	{"cluster.clusters", "MOFUSE_CLUSTER_CLUSTERS"},
	{"cluster.seed", "MOFUSE_CLUSTER_SEED"},
	{"runtime.jobs", "MOFUSE_RUNTIME_JOBS"},
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, binding := range bindings {
		// BindEnv only fails without a key
		_ = v.BindEnv(binding.key, binding.env)
	}
	return v
}

// LoadConfig loads the configuration from a TOML file whatever its extension, fills
// defaults and applies environment overrides. An empty path loads the defaults.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
