// Copyright 2025 Poiesic Systems
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


package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the records stored as badger values.
// Timestamps are encoded as Unix microseconds, vectors as uint32 float bits.

// IDMUS serializes an ID.
var IDMUS = idSer{}

type idSer struct{}

func (idSer) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idSer) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// timeMUS serializes a time.Time as Unix microseconds in UTC.
var timeMUS = timeSer{}

type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) int {
	if t.IsZero() {
		return varint.Int64.Marshal(0, bs)
	}
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeSer) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || us == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeSer) Size(t time.Time) int {
	if t.IsZero() {
		return varint.Int64.Size(0)
	}
	return varint.Int64.Size(t.UnixMicro())
}

// vectorMUS serializes an embedding vector.
var vectorMUS = vectorSer{}

type vectorSer struct{}

func (vectorSer) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func (vectorSer) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]float32, length)
	var n1 int
	for i := 0; i < length; i++ {
		var bits uint32
		bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[i] = math.Float32frombits(bits)
	}
	return v, n, nil
}

func (vectorSer) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

// stringsMUS serializes a string slice.
var stringsMUS = stringsSer{}

type stringsSer struct{}

func (stringsSer) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringsSer) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]string, length)
	var n1 int
	for i := 0; i < length; i++ {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (stringsSer) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

// StepResultMUS serializes a StepResult.
var StepResultMUS = stepResultSer{}

type stepResultSer struct{}

func (stepResultSer) Marshal(sr StepResult, bs []byte) (n int) {
	n = varint.Int.Marshal(int(sr.Stage), bs)
	n += ord.String.Marshal(sr.PolicyNumber, bs[n:])
	n += varint.Int.Marshal(int(sr.Outcome), bs[n:])
	n += ord.String.Marshal(sr.Detail, bs[n:])
	n += timeMUS.Marshal(sr.RecordedAt, bs[n:])
	return n
}

func (stepResultSer) Unmarshal(bs []byte) (sr StepResult, n int, err error) {
	var n1 int
	var stage, outcome int
	stage, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return sr, n, err
	}
	sr.Stage = Stage(stage)
	sr.PolicyNumber, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return sr, n, err
	}
	outcome, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return sr, n, err
	}
	sr.Outcome = StepOutcome(outcome)
	sr.Detail, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return sr, n, err
	}
	sr.RecordedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return sr, n, err
}

func (stepResultSer) Size(sr StepResult) (size int) {
	size = varint.Int.Size(int(sr.Stage))
	size += ord.String.Size(sr.PolicyNumber)
	size += varint.Int.Size(int(sr.Outcome))
	size += ord.String.Size(sr.Detail)
	size += timeMUS.Size(sr.RecordedAt)
	return size
}

// TaskMUS serializes a Task.
var TaskMUS = taskSer{}

type taskSer struct{}

func (taskSer) Marshal(t Task, bs []byte) (n int) {
	n = ord.String.Marshal(string(t.Id), bs)
	n += varint.Int.Marshal(int(t.Kind), bs[n:])
	n += varint.Int.Marshal(int(t.Status), bs[n:])
	n += varint.Int.Marshal(t.Progress, bs[n:])
	n += varint.Int.Marshal(len(t.Steps), bs[n:])
	for _, step := range t.Steps {
		n += StepResultMUS.Marshal(step, bs[n:])
	}
	n += ord.String.Marshal(t.Error, bs[n:])
	n += timeMUS.Marshal(t.CreatedAt, bs[n:])
	n += timeMUS.Marshal(t.UpdatedAt, bs[n:])
	return n
}

func (taskSer) Unmarshal(bs []byte) (t Task, n int, err error) {
	var n1 int
	var id string
	var v int
	id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return t, n, err
	}
	t.Id = TaskID(id)
	v, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return t, n, err
	}
	t.Kind = TaskKind(v)
	v, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return t, n, err
	}
	t.Status = TaskStatus(v)
	t.Progress, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return t, n, err
	}
	v, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return t, n, err
	}
	if v > 0 {
		t.Steps = make([]StepResult, v)
		for i := 0; i < v; i++ {
			t.Steps[i], n1, err = StepResultMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return t, n, err
			}
		}
	}
	t.Error, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return t, n, err
	}
	t.CreatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return t, n, err
	}
	t.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return t, n, err
}

func (taskSer) Size(t Task) (size int) {
	size = ord.String.Size(string(t.Id))
	size += varint.Int.Size(int(t.Kind))
	size += varint.Int.Size(int(t.Status))
	size += varint.Int.Size(t.Progress)
	size += varint.Int.Size(len(t.Steps))
	for _, step := range t.Steps {
		size += StepResultMUS.Size(step)
	}
	size += ord.String.Size(t.Error)
	size += timeMUS.Size(t.CreatedAt)
	size += timeMUS.Size(t.UpdatedAt)
	return size
}

// ChunkMUS serializes a Chunk.
var ChunkMUS = chunkSer{}

type chunkSer struct{}

func (chunkSer) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += ord.String.Marshal(c.PolicyNumber, bs[n:])
	n += ord.String.Marshal(c.SectionLabel, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += vectorMUS.Marshal(c.Vector, bs[n:])
	n += ord.String.Marshal(c.SourceFilename, bs[n:])
	n += varint.Int.Marshal(c.Ordinal, bs[n:])
	n += timeMUS.Marshal(c.InsertedAt, bs[n:])
	n += timeMUS.Marshal(c.UpdatedAt, bs[n:])
	return n
}

func (chunkSer) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	c.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return c, n, err
	}
	c.PolicyNumber, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.SectionLabel, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.SourceFilename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return c, n, err
}

func (chunkSer) Size(c Chunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += ord.String.Size(c.PolicyNumber)
	size += ord.String.Size(c.SectionLabel)
	size += ord.String.Size(c.Text)
	size += vectorMUS.Size(c.Vector)
	size += ord.String.Size(c.SourceFilename)
	size += varint.Int.Size(c.Ordinal)
	size += timeMUS.Size(c.InsertedAt)
	size += timeMUS.Size(c.UpdatedAt)
	return size
}

// CoverageMUS serializes a Coverage.
var CoverageMUS = coverageSer{}

type coverageSer struct{}

func (coverageSer) Marshal(c Coverage, bs []byte) (n int) {
	n = ord.String.Marshal(c.Type, bs)
	n += ord.String.Marshal(c.Limit, bs[n:])
	n += ord.String.Marshal(c.Deductible, bs[n:])
	return n
}

func (coverageSer) Unmarshal(bs []byte) (c Coverage, n int, err error) {
	var n1 int
	c.Type, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return c, n, err
	}
	c.Limit, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Deductible, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return c, n, err
}

func (coverageSer) Size(c Coverage) (size int) {
	size = ord.String.Size(c.Type)
	size += ord.String.Size(c.Limit)
	size += ord.String.Size(c.Deductible)
	return size
}

// PolicySummaryMUS serializes a PolicySummary.
var PolicySummaryMUS = policySummarySer{}

type policySummarySer struct{}

func (policySummarySer) Marshal(p PolicySummary, bs []byte) (n int) {
	n = ord.String.Marshal(p.PolicyNumber, bs)
	n += ord.String.Marshal(p.InsurerName, bs[n:])
	n += ord.String.Marshal(p.PolicyholderName, bs[n:])
	n += ord.String.Marshal(p.PropertyAddress, bs[n:])
	n += timeMUS.Marshal(p.EffectiveDate, bs[n:])
	n += timeMUS.Marshal(p.ExpirationDate, bs[n:])
	n += varint.Uint64.Marshal(math.Float64bits(p.TotalPremium), bs[n:])
	n += varint.Int.Marshal(len(p.Coverages), bs[n:])
	for _, c := range p.Coverages {
		n += CoverageMUS.Marshal(c, bs[n:])
	}
	n += ord.String.Marshal(p.RawText, bs[n:])
	n += ord.String.Marshal(p.SourceFilename, bs[n:])
	n += timeMUS.Marshal(p.RenewalDate, bs[n:])
	n += varint.Int.Marshal(p.RoofAgeYears, bs[n:])
	n += stringsMUS.Marshal(p.Features, bs[n:])
	n += timeMUS.Marshal(p.InsertedAt, bs[n:])
	n += timeMUS.Marshal(p.UpdatedAt, bs[n:])
	return n
}

func (policySummarySer) Unmarshal(bs []byte) (p PolicySummary, n int, err error) {
	var n1 int
	p.PolicyNumber, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return p, n, err
	}
	p.InsurerName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.PolicyholderName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.PropertyAddress, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.EffectiveDate, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.ExpirationDate, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	var bits uint64
	bits, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.TotalPremium = math.Float64frombits(bits)
	var count int
	count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	if count > 0 {
		p.Coverages = make([]Coverage, count)
		for i := 0; i < count; i++ {
			p.Coverages[i], n1, err = CoverageMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return p, n, err
			}
		}
	}
	p.RawText, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.SourceFilename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.RenewalDate, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.RoofAgeYears, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.Features, n1, err = stringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return p, n, err
	}
	p.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return p, n, err
}

func (policySummarySer) Size(p PolicySummary) (size int) {
	size = ord.String.Size(p.PolicyNumber)
	size += ord.String.Size(p.InsurerName)
	size += ord.String.Size(p.PolicyholderName)
	size += ord.String.Size(p.PropertyAddress)
	size += timeMUS.Size(p.EffectiveDate)
	size += timeMUS.Size(p.ExpirationDate)
	size += varint.Uint64.Size(math.Float64bits(p.TotalPremium))
	size += varint.Int.Size(len(p.Coverages))
	for _, c := range p.Coverages {
		size += CoverageMUS.Size(c)
	}
	size += ord.String.Size(p.RawText)
	size += ord.String.Size(p.SourceFilename)
	size += timeMUS.Size(p.RenewalDate)
	size += varint.Int.Size(p.RoofAgeYears)
	size += stringsMUS.Size(p.Features)
	size += timeMUS.Size(p.InsertedAt)
	size += timeMUS.Size(p.UpdatedAt)
	return size
}
