package palworld

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"palworld-save-edit/gvas"
	"palworld-save-edit/ue"
)

var ErrNotFound = errors.New("character not found")

// rawData is the property list embedded in a character's RawData byte
// array. The bytes after its None sentinel (an unknown u32 and the group
// guid) are kept as they are.
type rawData struct {
	array *gvas.Array
	path  string
	tree  *gvas.Tree
	rest  []byte
}

func decodeRawData(p *gvas.Property, paths Paths, opts []gvas.Option) (*rawData, error) {
	path := "." + paths.Table + ".Value." + paths.RawData
	array, ok := p.Value.(*gvas.Array)
	if !ok || array.ElementType != gvas.ByteProperty || array.Raw != nil {
		return nil, missing(path, "raw data is a %s", p.Type)
	}
	tree, rest, err := gvas.DecodeProperties(array.Bytes, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("decodeRawData: %w", err)
	}
	return &rawData{array: array, path: path, tree: tree, rest: rest}, nil
}

func (r *rawData) store(opts []gvas.Option) error {
	data, err := gvas.EncodeProperties(r.tree, r.path, opts...)
	if err != nil {
		return fmt.Errorf("encodeRawData: %w", err)
	}
	r.array.Bytes = append(data, r.rest...)
	return nil
}

// UpdateCharacter runs fn on the SaveParameter fields of the character with
// the given instance id and writes the result back into the document.
func UpdateCharacter(doc *gvas.Document, paths Paths, instanceID uuid.UUID, fn func(params *gvas.Tree) error, opts ...gvas.Option) error {
	paths = paths.WithDefaults()
	want := ue.GuidFromUUID(instanceID)
	return updateWhere(doc, paths, func(key *gvas.Tree) bool {
		id, ok := key.Value(paths.InstanceID)
		if !ok {
			return false
		}
		g, ok := gvas.AsGuid(id)
		return ok && g == want
	}, fn, opts)
}

// UpdatePlayer is UpdateCharacter keyed by the player uid.
func UpdatePlayer(doc *gvas.Document, paths Paths, uid uuid.UUID, fn func(params *gvas.Tree) error, opts ...gvas.Option) error {
	paths = paths.WithDefaults()
	want := ue.GuidFromUUID(uid)
	return updateWhere(doc, paths, func(key *gvas.Tree) bool {
		id, ok := key.Value(paths.PlayerUID)
		if !ok {
			return false
		}
		g, ok := gvas.AsGuid(id)
		return ok && g == want
	}, fn, opts)
}

func updateWhere(doc *gvas.Document, paths Paths, match func(key *gvas.Tree) bool, fn func(params *gvas.Tree) error, opts []gvas.Option) error {
	if doc == nil || doc.Root == nil {
		return errors.New("update: empty document")
	}
	m, err := characterTable(doc.Root, paths)
	if err != nil {
		return err
	}

	for _, entry := range m.Entries {
		key, ok := gvas.StructTree(entry.Key)
		if !ok || !match(key) {
			continue
		}
		value, ok := gvas.StructTree(entry.Value)
		if !ok {
			return missing(".Value", "value is not a struct")
		}

		container := value
		var raw *rawData
		if p := value.Get(paths.RawData); p != nil {
			if raw, err = decodeRawData(p, paths, opts); err != nil {
				return err
			}
			container = raw.tree
		}

		sp := container.Get(paths.SaveParameter)
		if sp == nil {
			return missing("."+paths.SaveParameter, "save parameter not found")
		}
		params, ok := gvas.StructTree(sp.Value)
		if !ok {
			return missing("."+paths.SaveParameter, "save parameter not found")
		}
		if err := fn(params); err != nil {
			return err
		}
		if raw != nil {
			return raw.store(opts)
		}
		return nil
	}
	return ErrNotFound
}

// SetNickname returns an update that renames a character.
func SetNickname(paths Paths, name string) func(*gvas.Tree) error {
	paths = paths.WithDefaults()
	return func(params *gvas.Tree) error {
		params.Set(&gvas.Property{Name: paths.Nickname, Type: gvas.StrProperty, Value: gvas.Str(name)})
		return nil
	}
}

// SetLevel returns an update that changes a character's level, keeping the
// property type already in the save.
func SetLevel(paths Paths, level int64) func(*gvas.Tree) error {
	paths = paths.WithDefaults()
	return func(params *gvas.Tree) error {
		if level < 1 {
			return fmt.Errorf("level %d out of range", level)
		}
		current := params.Get(paths.Level)
		if current == nil || current.Type == gvas.ByteProperty {
			if level > 255 {
				return fmt.Errorf("level %d does not fit a byte", level)
			}
			params.Set(&gvas.Property{Name: paths.Level, Type: gvas.ByteProperty, Value: gvas.Byte{EnumType: gvas.NoneName, Raw: uint8(level)}})
			return nil
		}

		var value gvas.Value
		switch current.Type {
		case gvas.IntProperty:
			if level > math.MaxInt32 {
				return fmt.Errorf("level %d does not fit an int32", level)
			}
			value = gvas.Int32(level)
		case gvas.Int64Property:
			value = gvas.Int64(level)
		default:
			return fmt.Errorf("level is a %s", current.Type)
		}
		params.Set(&gvas.Property{Name: paths.Level, Type: current.Type, Guid: current.Guid, Value: value})
		return nil
	}
}
