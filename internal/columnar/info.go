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

package columnar

import "github.com/go-osmpbf/corepbf/internal/wire"

// elementInfo is one non-dense element's parsed Info message. Unlike
// DenseInfo's columns, these fields are absolute values, not deltas.
type elementInfo struct {
	version   int32
	timestamp int64
	changeset int64
	uid       int32
	userSid   uint32
	visible   bool
}

func decodeInfo(buf []byte) (elementInfo, error) {
	// An absent visible field means the element is visible; only explicit
	// history dumps carry visible=false.
	e := elementInfo{visible: true}
	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return e, err
		}
		switch num {
		case 1:
			v, err := r.Varint()
			if err != nil {
				return e, err
			}
			e.version = int32(v)
		case 2:
			v, err := r.Varint()
			if err != nil {
				return e, err
			}
			e.timestamp = int64(v)
		case 3:
			v, err := r.Varint()
			if err != nil {
				return e, err
			}
			e.changeset = int64(v)
		case 4:
			v, err := r.Varint()
			if err != nil {
				return e, err
			}
			e.uid = int32(v)
		case 5:
			v, err := r.Varint()
			if err != nil {
				return e, err
			}
			e.userSid = uint32(v)
		case 6:
			v, err := r.Varint()
			if err != nil {
				return e, err
			}
			e.visible = v != 0
		default:
			if err := r.Skip(wt); err != nil {
				return e, err
			}
		}
	}
	return e, nil
}

// appendElementInfo lazily allocates an Info column set the first time a
// non-dense group carries per-element Info, then appends one row. Once
// allocated, every prior element without an Info message gets a zero row
// so the columns stay aligned with IDs.
func appendElementInfo(info *Info, buf []byte) *Info {
	if buf == nil && info == nil {
		return nil
	}
	e := elementInfo{visible: true}
	if buf != nil {
		decoded, err := decodeInfo(buf)
		if err == nil {
			e = decoded
		}
	}
	if info == nil {
		info = &Info{}
	}
	info.Version = append(info.Version, e.version)
	info.Timestamp = append(info.Timestamp, e.timestamp)
	info.Changeset = append(info.Changeset, e.changeset)
	info.UID = append(info.UID, e.uid)
	info.UserSid = append(info.UserSid, e.userSid)
	info.Visible = append(info.Visible, e.visible)
	return info
}

// decodeDenseInfo walks a DenseInfo message, whose columns (other than
// version) are delta-coded across the n elements of the owning dense-node
// group, identically to the id/lat/lon columns.
func decodeDenseInfo(buf []byte, n int) (*Info, error) {
	var version []int32
	var rawTimestamp, rawChangeset []int64
	var rawUID, rawUserSid []int32
	var visible []bool

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			if err := wire.EachVarint(b, func(v uint64) error { version = append(version, int32(v)); return nil }); err != nil {
				return nil, err
			}
		case 2:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			if err := wire.EachVarint(b, func(v uint64) error {
				rawTimestamp = append(rawTimestamp, wire.DecodeZigZag(v))
				return nil
			}); err != nil {
				return nil, err
			}
		case 3:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			if err := wire.EachVarint(b, func(v uint64) error {
				rawChangeset = append(rawChangeset, wire.DecodeZigZag(v))
				return nil
			}); err != nil {
				return nil, err
			}
		case 4:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			if err := wire.EachVarint(b, func(v uint64) error {
				rawUID = append(rawUID, int32(wire.DecodeZigZag(v)))
				return nil
			}); err != nil {
				return nil, err
			}
		case 5:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			if err := wire.EachVarint(b, func(v uint64) error {
				rawUserSid = append(rawUserSid, int32(wire.DecodeZigZag(v)))
				return nil
			}); err != nil {
				return nil, err
			}
		case 6:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			if err := wire.EachVarint(b, func(v uint64) error { visible = append(visible, v != 0); return nil }); err != nil {
				return nil, err
			}
		default:
			if err := r.Skip(wt); err != nil {
				return nil, err
			}
		}
	}

	info := &Info{
		Version:   version,
		Timestamp: make([]int64, n),
		Changeset: make([]int64, n),
		UID:       make([]int32, n),
		UserSid:   make([]uint32, n),
		Visible:   visible,
	}
	var accTS, accCS int64
	var accUID, accUser int32
	for i := 0; i < n && i < len(rawTimestamp); i++ {
		accTS += rawTimestamp[i]
		info.Timestamp[i] = accTS
	}
	for i := 0; i < n && i < len(rawChangeset); i++ {
		accCS += rawChangeset[i]
		info.Changeset[i] = accCS
	}
	for i := 0; i < n && i < len(rawUID); i++ {
		accUID += rawUID[i]
		info.UID[i] = accUID
	}
	for i := 0; i < n && i < len(rawUserSid); i++ {
		accUser += rawUserSid[i]
		info.UserSid[i] = uint32(accUser)
	}
	return info, nil
}
