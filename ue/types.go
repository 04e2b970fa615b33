package ue

import (
	"time"

	"github.com/google/uuid"

	"palworld-save-edit/memory"
)

// FGuid holds the 16 bytes of an Unreal FGuid as they appear on disk: four
// little-endian uint32 words.
type FGuid [16]byte

func ReadGuid(r *memory.Reader) (FGuid, error) {
	var g FGuid
	b, err := r.Bytes(16)
	if err != nil {
		return g, err
	}
	copy(g[:], b)
	return g, nil
}

func WriteGuid(w *memory.Writer, g FGuid) {
	w.Write(g[:])
}

// UUID reorders the disk words into the canonical textual byte order.
func (g FGuid) UUID() uuid.UUID {
	var u uuid.UUID
	for word := 0; word < 4; word++ {
		for i := 0; i < 4; i++ {
			u[word*4+i] = g[word*4+3-i]
		}
	}
	return u
}

func GuidFromUUID(u uuid.UUID) FGuid {
	var g FGuid
	for word := 0; word < 4; word++ {
		for i := 0; i < 4; i++ {
			g[word*4+i] = u[word*4+3-i]
		}
	}
	return g
}

func ParseGuid(s string) (FGuid, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return FGuid{}, err
	}
	return GuidFromUUID(u), nil
}

func (g FGuid) IsZero() bool {
	return g == FGuid{}
}

func (g FGuid) String() string {
	return g.UUID().String()
}

func (g FGuid) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *FGuid) UnmarshalText(text []byte) error {
	parsed, err := ParseGuid(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

type FVector struct {
	X, Y, Z float64
}

func ReadFVector(r *memory.Reader) (FVector, error) {
	var v FVector
	var err error
	if v.X, err = r.F64(); err != nil {
		return v, err
	}
	if v.Y, err = r.F64(); err != nil {
		return v, err
	}
	v.Z, err = r.F64()
	return v, err
}

func WriteFVector(w *memory.Writer, v FVector) {
	w.F64(v.X)
	w.F64(v.Y)
	w.F64(v.Z)
}

type FRotator struct {
	Pitch, Yaw, Roll float64
}

func ReadFRotator(r *memory.Reader) (FRotator, error) {
	v, err := ReadFVector(r)
	return FRotator{Pitch: v.X, Yaw: v.Y, Roll: v.Z}, err
}

func WriteFRotator(w *memory.Writer, v FRotator) {
	WriteFVector(w, FVector{X: v.Pitch, Y: v.Yaw, Z: v.Roll})
}

type FQuat struct {
	X, Y, Z, W float64
}

func ReadFQuat(r *memory.Reader) (FQuat, error) {
	var q FQuat
	v, err := ReadFVector(r)
	if err != nil {
		return q, err
	}
	q.X, q.Y, q.Z = v.X, v.Y, v.Z
	q.W, err = r.F64()
	return q, err
}

func WriteFQuat(w *memory.Writer, q FQuat) {
	WriteFVector(w, FVector{X: q.X, Y: q.Y, Z: q.Z})
	w.F64(q.W)
}

type FLinearColor struct {
	R, G, B, A float32
}

func ReadFLinearColor(r *memory.Reader) (FLinearColor, error) {
	var c FLinearColor
	for _, f := range []*float32{&c.R, &c.G, &c.B, &c.A} {
		v, err := r.F32()
		if err != nil {
			return c, err
		}
		*f = v
	}
	return c, nil
}

func WriteFLinearColor(w *memory.Writer, c FLinearColor) {
	w.F32(c.R)
	w.F32(c.G)
	w.F32(c.B)
	w.F32(c.A)
}

type FIntPoint struct {
	X, Y int32
}

func ReadFIntPoint(r *memory.Reader) (FIntPoint, error) {
	var p FIntPoint
	var err error
	if p.X, err = r.I32(); err != nil {
		return p, err
	}
	p.Y, err = r.I32()
	return p, err
}

func WriteFIntPoint(w *memory.Writer, p FIntPoint) {
	w.I32(p.X)
	w.I32(p.Y)
}

type FVector2D struct {
	X, Y float64
}

func ReadFVector2D(r *memory.Reader) (FVector2D, error) {
	var v FVector2D
	var err error
	if v.X, err = r.F64(); err != nil {
		return v, err
	}
	v.Y, err = r.F64()
	return v, err
}

func WriteFVector2D(w *memory.Writer, v FVector2D) {
	w.F64(v.X)
	w.F64(v.Y)
}

// FDateTime counts 100ns ticks since 0001-01-01.
type FDateTime int64

// FTimespan counts 100ns ticks.
type FTimespan int64

const ticksToUnixEpoch = 621355968000000000

func (d FDateTime) Time() time.Time {
	ticks := int64(d) - ticksToUnixEpoch
	return time.Unix(0, 0).UTC().Add(time.Duration(ticks) * 100)
}

func DateTimeFromTime(t time.Time) FDateTime {
	return FDateTime(t.UTC().Sub(time.Unix(0, 0).UTC())/100 + ticksToUnixEpoch)
}

func (s FTimespan) Duration() time.Duration {
	return time.Duration(s) * 100
}
