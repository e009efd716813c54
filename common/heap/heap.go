// Copyright 2023 gorse Project Authors
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

package heap

import "golang.org/x/exp/constraints"

type Elem[T any, W constraints.Ordered] struct {
	Value  T
	Weight W
	seq    int
}

// _heap is a min-heap on weight. Among equal weights the later pushed element is
// smaller, so it is evicted first.
type _heap[T any, W constraints.Ordered] struct {
	elems []Elem[T, W]
}

func (e *_heap[T, W]) Len() int {
	return len(e.elems)
}

func (e *_heap[T, W]) Less(i, j int) bool {
	if e.elems[i].Weight != e.elems[j].Weight {
		return e.elems[i].Weight < e.elems[j].Weight
	}
	return e.elems[i].seq > e.elems[j].seq
}

func (e *_heap[T, W]) Swap(i, j int) {
	e.elems[i], e.elems[j] = e.elems[j], e.elems[i]
}

func (e *_heap[T, W]) Push(x any) {
	e.elems = append(e.elems, x.(Elem[T, W]))
}

func (e *_heap[T, W]) Pop() any {
	old := e.elems
	n := len(old)
	x := old[n-1]
	e.elems = old[0 : n-1]
	return x
}
