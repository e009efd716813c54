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

package dataset

import (
	"sort"

	"github.com/samber/lo"
)

// Dict assigns dense integer codes to labels.
type Dict struct {
	si map[string]int
	is []string
}

func NewDict() *Dict {
	return &Dict{si: map[string]int{}}
}

// NewSortedDict creates a dictionary whose codes follow the lexicographic order of the
// distinct non-empty labels.
func NewSortedDict(labels []string) *Dict {
	distinct := lo.Uniq(lo.Without(labels, ""))
	sort.Strings(distinct)
	d := NewDict()
	for _, label := range distinct {
		d.Id(label)
	}
	return d
}

func (d *Dict) Count() int {
	return len(d.is)
}

// Id returns the code of s, inserting s if it is new.
func (d *Dict) Id(s string) int {
	if y, ok := d.si[s]; ok {
		return y
	}
	y := len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	return y
}

// Lookup returns the code of s without inserting it.
func (d *Dict) Lookup(s string) (int, bool) {
	y, ok := d.si[s]
	return y, ok
}

func (d *Dict) String(id int) (s string, ok bool) {
	if id < 0 || id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

// Labels returns the labels in code order.
func (d *Dict) Labels() []string {
	return append([]string(nil), d.is...)
}
