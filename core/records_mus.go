package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Serializers for the records kept in the embedded store. Field order is the
// wire order; append new fields at the end only.
var (
	IDMUS            = idMUS{}
	ProblemMUS       = problemMUS{}
	EquipmentTypeMUS = equipmentTypeMUS{}
	ImportRunMUS     = importRunMUS{}
	ProblemVectorMUS = problemVectorMUS{}
)

type idMUS struct{}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

type problemMUS struct{}

func (problemMUS) Size(v Problem) (size int) {
	size += varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Description)
	size += varint.Uint64.Size(uint64(v.EquipmentTypeID))
	size += varint.Int.Size(v.ProblemCategoryID)
	size += varint.Int.Size(v.SolutionCategoryID)
	size += ord.String.Size(string(v.Status))
	size += ord.String.Size(string(v.Priority))
	size += ord.String.Size(string(v.Phase))
	size += ord.String.Size(v.DiscoveredBy)
	size += sizeOptionalTime(v.DiscoveredAt)
	size += ord.Bool.Size(v.AIAnalyzed)
	size += ord.String.Size(v.AIAnalysis)
	size += ord.String.Size(v.Solution)
	size += varint.Uint64.Size(uint64(v.ImportRunID))
	size += sizeTime(v.InsertedAt)
	size += sizeTime(v.UpdatedAt)
	return
}

func (problemMUS) Marshal(v Problem, bs []byte) (n int) {
	n += varint.Uint64.Marshal(uint64(v.Id), bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += varint.Uint64.Marshal(uint64(v.EquipmentTypeID), bs[n:])
	n += varint.Int.Marshal(v.ProblemCategoryID, bs[n:])
	n += varint.Int.Marshal(v.SolutionCategoryID, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.String.Marshal(string(v.Priority), bs[n:])
	n += ord.String.Marshal(string(v.Phase), bs[n:])
	n += ord.String.Marshal(v.DiscoveredBy, bs[n:])
	n += marshalOptionalTime(v.DiscoveredAt, bs[n:])
	n += ord.Bool.Marshal(v.AIAnalyzed, bs[n:])
	n += ord.String.Marshal(v.AIAnalysis, bs[n:])
	n += ord.String.Marshal(v.Solution, bs[n:])
	n += varint.Uint64.Marshal(uint64(v.ImportRunID), bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (problemMUS) Unmarshal(bs []byte) (v Problem, n int, err error) {
	r := &musReader{bs: bs}
	v.Id = ID(r.readUint64())
	v.Title = r.readString()
	v.Description = r.readString()
	v.EquipmentTypeID = ID(r.readUint64())
	v.ProblemCategoryID = r.readInt()
	v.SolutionCategoryID = r.readInt()
	v.Status = ProblemStatus(r.readString())
	v.Priority = Priority(r.readString())
	v.Phase = Phase(r.readString())
	v.DiscoveredBy = r.readString()
	v.DiscoveredAt = r.readOptionalTime()
	v.AIAnalyzed = r.readBool()
	v.AIAnalysis = r.readString()
	v.Solution = r.readString()
	v.ImportRunID = ID(r.readUint64())
	v.InsertedAt = r.readTime()
	v.UpdatedAt = r.readTime()
	return v, r.n, r.err
}

type equipmentTypeMUS struct{}

func (equipmentTypeMUS) Size(v EquipmentType) (size int) {
	size += varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Description)
	size += sizeTime(v.InsertedAt)
	return
}

func (equipmentTypeMUS) Marshal(v EquipmentType, bs []byte) (n int) {
	n += varint.Uint64.Marshal(uint64(v.Id), bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return
}

func (equipmentTypeMUS) Unmarshal(bs []byte) (v EquipmentType, n int, err error) {
	r := &musReader{bs: bs}
	v.Id = ID(r.readUint64())
	v.Name = r.readString()
	v.Description = r.readString()
	v.InsertedAt = r.readTime()
	return v, r.n, r.err
}

type importRunMUS struct{}

func (importRunMUS) Size(v ImportRun) (size int) {
	size += varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.Filename)
	size += ord.String.Size(v.ImportedBy)
	size += varint.Int.Size(v.TotalRows)
	size += varint.Int.Size(v.ImportedCount)
	size += varint.Int.Size(v.FailedCount)
	size += varint.Int.Size(v.SkippedCount)
	size += ord.String.Size(string(v.Status))
	size += sizeTime(v.StartedAt)
	size += sizeTime(v.CompletedAt)
	size += ord.String.Size(v.ErrorLog)
	return
}

func (importRunMUS) Marshal(v ImportRun, bs []byte) (n int) {
	n += varint.Uint64.Marshal(uint64(v.Id), bs[n:])
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.ImportedBy, bs[n:])
	n += varint.Int.Marshal(v.TotalRows, bs[n:])
	n += varint.Int.Marshal(v.ImportedCount, bs[n:])
	n += varint.Int.Marshal(v.FailedCount, bs[n:])
	n += varint.Int.Marshal(v.SkippedCount, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += marshalTime(v.StartedAt, bs[n:])
	n += marshalTime(v.CompletedAt, bs[n:])
	n += ord.String.Marshal(v.ErrorLog, bs[n:])
	return
}

func (importRunMUS) Unmarshal(bs []byte) (v ImportRun, n int, err error) {
	r := &musReader{bs: bs}
	v.Id = ID(r.readUint64())
	v.Filename = r.readString()
	v.ImportedBy = r.readString()
	v.TotalRows = r.readInt()
	v.ImportedCount = r.readInt()
	v.FailedCount = r.readInt()
	v.SkippedCount = r.readInt()
	v.Status = ImportStatus(r.readString())
	v.StartedAt = r.readTime()
	v.CompletedAt = r.readTime()
	v.ErrorLog = r.readString()
	return v, r.n, r.err
}

type problemVectorMUS struct{}

func (problemVectorMUS) Size(v ProblemVector) (size int) {
	size += varint.Uint64.Size(uint64(v.ProblemID))
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Description)
	size += varint.Int.Size(len(v.Metadata))
	for k, val := range v.Metadata {
		size += ord.String.Size(k)
		size += ord.String.Size(val)
	}
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	size += sizeTime(v.UpdatedAt)
	return
}

func (problemVectorMUS) Marshal(v ProblemVector, bs []byte) (n int) {
	n += varint.Uint64.Marshal(uint64(v.ProblemID), bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += varint.Int.Marshal(len(v.Metadata), bs[n:])
	for k, val := range v.Metadata {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(val, bs[n:])
	}
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (problemVectorMUS) Unmarshal(bs []byte) (v ProblemVector, n int, err error) {
	r := &musReader{bs: bs}
	v.ProblemID = ID(r.readUint64())
	v.Title = r.readString()
	v.Description = r.readString()
	if count := r.readLength(); count > 0 {
		v.Metadata = make(map[string]string, count)
		for i := 0; i < count && r.err == nil; i++ {
			k := r.readString()
			v.Metadata[k] = r.readString()
		}
	}
	if count := r.readLength(); count > 0 {
		v.Vector = make([]float32, count)
		for i := 0; i < count && r.err == nil; i++ {
			v.Vector[i] = r.readFloat32()
		}
	}
	v.UpdatedAt = r.readTime()
	return v, r.n, r.err
}

// Times are stored as Unix microseconds; 0 encodes the zero time.

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(unixMicro(t))
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(unixMicro(t), bs)
}

func sizeOptionalTime(t *time.Time) int {
	if t == nil {
		return ord.Bool.Size(false)
	}
	return ord.Bool.Size(true) + sizeTime(*t)
}

func marshalOptionalTime(t *time.Time, bs []byte) (n int) {
	n = ord.Bool.Marshal(t != nil, bs)
	if t != nil {
		n += marshalTime(*t, bs[n:])
	}
	return
}

// musReader threads the offset and first error through a sequence of reads.
// Once err is set every further read is a no-op returning the zero value.
type musReader struct {
	bs  []byte
	n   int
	err error
}

func (r *musReader) readUint64() (v uint64) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) readInt() (v int) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Int.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) readLength() int {
	v := r.readInt()
	if v < 0 || v > len(r.bs) {
		if r.err == nil {
			r.err = ErrInvalidLength
		}
		return 0
	}
	return v
}

func (r *musReader) readString() (v string) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) readBool() (v bool) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = ord.Bool.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) readFloat32() (v float32) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = raw.Float32.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) readTime() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	if err != nil || v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func (r *musReader) readOptionalTime() *time.Time {
	if !r.readBool() {
		return nil
	}
	t := r.readTime()
	return &t
}
