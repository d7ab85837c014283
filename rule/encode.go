//  Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rule

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/klauspost/compress/s2"
)

// Cached is the serialized form of a compiled rule. AST nodes and formulas
// do not gob-encode, so the cache carries the patch source together with the
// metavariable kinds for validation; decoding recompiles the formula from
// source.
type Cached struct {
	Name   string
	Source string
	// MetavarKinds lists the constraint kinds in declaration order, used to
	// verify a recompile produced the same table.
	MetavarKinds []string
}

// Encode serializes the rule's cacheable payload, gob-encoded and
// s2-compressed.
func (r *Rule) Encode() (b []byte, err error) {
	cached := Cached{Name: r.Name, Source: r.Source}
	for _, p := range r.Metavars.Pairs {
		cached.MetavarKinds = append(cached.MetavarKinds, p.Value.Kind())
	}

	var buf bytes.Buffer
	writer := s2.NewWriter(&buf)
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := gob.NewEncoder(writer).Encode(cached); err != nil {
		return nil, err
	}
	if err := writer.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a cached rule payload.
func Decode(input []byte) (Cached, error) {
	var cached Cached
	buf := bytes.NewBuffer(input)
	if err := gob.NewDecoder(s2.NewReader(buf)).Decode(&cached); err != nil {
		return Cached{}, err
	}
	return cached, nil
}
