// Copyright 2017-25 the original author or authors.
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

package corepbf_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pbf "github.com/go-osmpbf/corepbf"
)

func TestNewReaderParsesHeaderFeatures(t *testing.T) {
	stream := buildRecord("OSMHeader", buildHeaderBlock("OsmSchema-V0.6", "DenseNodes"))

	rdr, err := pbf.NewReader(bytes.NewReader(stream))
	assert.NoError(t, err)

	hdr := rdr.Header()
	assert.Equal(t, []string{"OsmSchema-V0.6", "DenseNodes"}, hdr.RequiredFeatures)
}

func TestNewReaderRejectsUnsupportedRequiredFeature(t *testing.T) {
	stream := buildRecord("OSMHeader", buildHeaderBlock("Has_Metadata", "Unknown_Fancy_Feature"))

	_, err := pbf.NewReader(bytes.NewReader(stream))
	assert.True(t, errors.Is(err, pbf.ErrUnsupportedFeature))
}

func TestNewReaderEmptyStreamHasZeroHeader(t *testing.T) {
	rdr, err := pbf.NewReader(bytes.NewReader(nil))
	assert.NoError(t, err)
	assert.Nil(t, rdr.Header().BoundingBox)
}

func TestNewReaderHandlesHeaderlessStream(t *testing.T) {
	st := buildStringTable("")
	group := buildDenseGroup([]int64{1}, []int64{0}, []int64{0}, nil)
	stream := buildRecord("OSMData", buildPrimitiveBlock(st, group))

	rdr, err := pbf.NewReader(bytes.NewReader(stream))
	assert.NoError(t, err)

	var got []*pbf.Block
	for blk, err := range rdr.Blocks(context.Background()) {
		assert.NoError(t, err)
		got = append(got, blk)
	}
	assert.Len(t, got, 1)
}
