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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetLogger(t *testing.T) {
	temp := t.TempDir()
	for _, debug := range []bool{true, false} {
		path := filepath.Join(temp, "mofuse", "debug.log")
		if !debug {
			path = filepath.Join(temp, "mofuse", "production.log")
		}
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		AddFlags(flagSet)
		assert.NoError(t, flagSet.Parse([]string{"--log-path", path}))
		SetLogger(flagSet, debug)
		Logger().Info("hello", zap.Bool("debug", debug))
		_ = Logger().Sync()
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
}

func TestSetLogger_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mofuse.log")
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	assert.NoError(t, flagSet.Parse([]string{"--log-path", path}))
	SetLogger(flagSet, true)
	Logger().Debug("view loaded", zap.String("view", "mRNA"))
	_ = Logger().Sync()
	content, err := os.ReadFile(path)
	assert.NoError(t, err)
	var entry map[string]any
	assert.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry))
	assert.Equal(t, "view loaded", entry["msg"])
	assert.Equal(t, "mRNA", entry["view"])
	assert.Equal(t, "mofuse", entry["logger"])
}

func TestSetLogger_Level(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	assert.NoError(t, flagSet.Parse([]string{"--log-level", "warn"}))
	SetLogger(flagSet, true)
	assert.False(t, Logger().Core().Enabled(zap.InfoLevel))
	assert.True(t, Logger().Core().Enabled(zap.WarnLevel))
}

func TestSetLoggerWithoutFile(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	SetLogger(flagSet, false)
	assert.NotNil(t, Logger())
	assert.False(t, Logger().Core().Enabled(zap.DebugLevel))
	SetLogger(flagSet, true)
	assert.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestCloseLogger(t *testing.T) {
	CloseLogger()
	assert.False(t, Logger().Core().Enabled(zap.ErrorLevel))
	assert.True(t, Logger().Core().Enabled(zap.FatalLevel))
}
