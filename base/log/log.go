// Copyright 2022 gorse Project Authors
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

package log

import (
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger

func init() {
	// setup default logger
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
}

// Logger get current logger
func Logger() *zap.Logger {
	return logger
}

// CloseLogger silences everything below fatal. Used by commands that print tables
// to stdout.
func CloseLogger() {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.FatalLevel)
	var err error
	logger, err = cfg.Build()
	if err != nil {
		panic(err)
	}
}

func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.String("log-level", "", "minimum log level (debug, info, warn, error), overrides --debug")
	flagSet.String("log-path", "", "path of log file")
	flagSet.Int("log-max-size", 100, "maximum size in megabytes of the log file")
	flagSet.Int("log-max-age", 0, "maximum number of days to retain old log files")
	flagSet.Int("log-max-backups", 0, "maximum number of old log files to retain")
}

// SetLogger writes console logs (debug) or JSON logs to stderr. With --log-path, the
// same entries are also written as JSON to a rotated file, whatever the mode.
func SetLogger(flagSet *pflag.FlagSet, debug bool) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	name, _ := flagSet.GetString("log-level")
	parsed, levelErr := zapcore.ParseLevel(name)
	if name != "" && levelErr == nil {
		level = parsed
	}

	jsonConfig := zap.NewProductionEncoderConfig()
	jsonConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var stderr zapcore.Encoder
	if debug {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		stderr = zapcore.NewConsoleEncoder(consoleConfig)
	} else {
		stderr = zapcore.NewJSONEncoder(jsonConfig)
	}
	// result tables go to stdout, logs never do
	cores := []zapcore.Core{zapcore.NewCore(stderr, zapcore.Lock(os.Stderr), level)}
	if flagSet.Changed("log-path") {
		path, _ := flagSet.GetString("log-path")
		maxSize, _ := flagSet.GetInt("log-max-size")
		maxAge, _ := flagSet.GetInt("log-max-age")
		maxBackups, _ := flagSet.GetInt("log-max-backups")
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
		}), level))
	}
	logger = zap.New(zapcore.NewTee(cores...)).Named("mofuse")
	if name != "" && levelErr != nil {
		logger.Warn("unknown log level", zap.String("log_level", name), zap.Stringer("level", level))
	}
}
