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

import "github.com/go-osmpbf/corepbf/internal/errs"

// The sentinel errors below form the decode engine's closed error taxonomy.
// Every error corepbf returns wraps one of these with fmt.Errorf("...: %w",
// ...), so callers compare with errors.Is rather than matching message text.
var (
	ErrIO                 = errs.IO
	ErrShortRead          = errs.ShortRead
	ErrTruncatedVarint    = errs.TruncatedVarint
	ErrOverlongVarint     = errs.OverlongVarint
	ErrUnknownWireType    = errs.UnknownWireType
	ErrOversizedHeader    = errs.OversizedHeader
	ErrOversizedBlob      = errs.OversizedBlob
	ErrSizeMismatch       = errs.SizeMismatch
	ErrInflate            = errs.Inflate
	ErrUnsupportedFeature = errs.UnsupportedFeature
	ErrMalformedElement   = errs.MalformedElement
	ErrFilterAfterStart   = errs.FilterAfterStart
)
