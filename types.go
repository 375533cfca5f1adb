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

import "github.com/go-osmpbf/corepbf/internal/columnar"

// Block is the decode engine's columnar output: a tagged variant over
// {DenseNode, Node, Way, Relation}. Every column is a flat slice the client
// can iterate without per-element allocation; consumers dispatch on Kind.
type Block = columnar.Block

// Kind tags which of the four element shapes a Block holds.
type Kind = columnar.Kind

const (
	DenseNode = columnar.DenseNode
	Node      = columnar.Node
	Way       = columnar.Way
	Relation  = columnar.Relation
)

// MemberType is a relation member's kind, as it appears on the wire.
type MemberType = columnar.MemberType

const (
	MemberNode     = columnar.MemberNode
	MemberWay      = columnar.MemberWay
	MemberRelation = columnar.MemberRelation
)

// Info is the optional per-element metadata column set (version, author,
// edit history).
type Info = columnar.Info

// NoFilterSlot marks a string-table entry that matches no declared filter
// key. Tags with such a key are dropped when a tag filter is active, so tag
// columns never hold this value.
const NoFilterSlot = columnar.NoFilterSlot
