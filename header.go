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

package corepbf

import (
	"fmt"
	"time"

	"github.com/go-osmpbf/corepbf/internal/errs"
	"github.com/go-osmpbf/corepbf/internal/wire"
	"github.com/go-osmpbf/corepbf/model"
)

// recognizedFeatures lists the required_features values this decoder
// implements. Anything else declared as required fails with
// UnsupportedFeature before any data block is emitted.
var recognizedFeatures = map[string]bool{
	"OsmSchema-V0.6": true,
	"DenseNodes":     true,
}

// parseHeaderBlock walks an OSMHeader blob's decompressed HeaderBlock
// message. Field numbers follow the embedded schema: bbox (1),
// required_features (4), optional_features (5), writingprogram (16),
// source (17), osmosis_replication_timestamp (32),
// osmosis_replication_sequence_number (33), osmosis_replication_base_url (34).
func parseHeaderBlock(buf []byte) (model.Header, error) {
	var hdr model.Header

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return model.Header{}, err
		}
		switch num {
		case 1:
			b, err := r.Bytes()
			if err != nil {
				return model.Header{}, err
			}
			bbox, err := parseHeaderBBox(b)
			if err != nil {
				return model.Header{}, err
			}
			hdr.BoundingBox = bbox
		case 4:
			b, err := r.Bytes()
			if err != nil {
				return model.Header{}, err
			}
			hdr.RequiredFeatures = append(hdr.RequiredFeatures, string(b))
		case 5:
			b, err := r.Bytes()
			if err != nil {
				return model.Header{}, err
			}
			hdr.OptionalFeatures = append(hdr.OptionalFeatures, string(b))
		case 16:
			b, err := r.Bytes()
			if err != nil {
				return model.Header{}, err
			}
			hdr.WritingProgram = string(b)
		case 17:
			b, err := r.Bytes()
			if err != nil {
				return model.Header{}, err
			}
			hdr.Source = string(b)
		case 32:
			v, err := r.Varint()
			if err != nil {
				return model.Header{}, err
			}
			hdr.OsmosisReplicationTimestamp = time.Unix(int64(v), 0).UTC()
		case 33:
			v, err := r.Varint()
			if err != nil {
				return model.Header{}, err
			}
			hdr.OsmosisReplicationSequenceNumber = int64(v)
		case 34:
			b, err := r.Bytes()
			if err != nil {
				return model.Header{}, err
			}
			hdr.OsmosisReplicationBaseURL = string(b)
		default:
			if err := r.Skip(wt); err != nil {
				return model.Header{}, err
			}
		}
	}

	for _, f := range hdr.RequiredFeatures {
		if !recognizedFeatures[f] {
			return model.Header{}, fmt.Errorf("%w: %q", errs.UnsupportedFeature, f)
		}
	}

	return hdr, nil
}

// parseHeaderBBox walks a HeaderBBox message: left (1), right (2), top (3),
// bottom (4), all sint64 nanodegrees at a fixed granularity of 1.
func parseHeaderBBox(buf []byte) (*model.BoundingBox, error) {
	bbox := &model.BoundingBox{}

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			v, err := r.SVarint()
			if err != nil {
				return nil, err
			}
			bbox.Left = model.ToDegrees(0, 1, v)
		case 2:
			v, err := r.SVarint()
			if err != nil {
				return nil, err
			}
			bbox.Right = model.ToDegrees(0, 1, v)
		case 3:
			v, err := r.SVarint()
			if err != nil {
				return nil, err
			}
			bbox.Top = model.ToDegrees(0, 1, v)
		case 4:
			v, err := r.SVarint()
			if err != nil {
				return nil, err
			}
			bbox.Bottom = model.ToDegrees(0, 1, v)
		default:
			if err := r.Skip(wt); err != nil {
				return nil, err
			}
		}
	}

	return bbox, nil
}
