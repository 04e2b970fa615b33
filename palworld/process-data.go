package palworld

import (
	"errors"
	"fmt"
	"log"

	"palworld-save-edit/gvas"
	"palworld-save-edit/ue"
)

// EntityError records a table entry the mapper skipped.
type EntityError struct {
	Index int
	Key   string
	Err   error
}

func (e EntityError) Error() string {
	return fmt.Sprintf("entity %d (%s): %v", e.Index, e.Key, e.Err)
}

func (e EntityError) Unwrap() error {
	return e.Err
}

type character struct {
	playerUID   ue.FGuid
	instanceID  ue.FGuid
	isPlayer    bool
	nickname    *string
	level       int64
	characterID string
	owner       ue.FGuid
}

func missing(path string, format string, args ...any) error {
	return gvas.NewError(gvas.MissingRequiredField, path, fmt.Errorf(format, args...))
}

// Project walks the character table of doc and returns every player with
// the pals they own. Entries that cannot be read are skipped and logged.
// A document without the table but with a root PlayerName projects as a
// single flat player.
func Project(doc *gvas.Document, paths Paths, opts ...gvas.Option) (*Projection, error) {
	if doc == nil || doc.Root == nil {
		return nil, errors.New("project: empty document")
	}
	paths = paths.WithDefaults()

	m, err := characterTable(doc.Root, paths)
	if err != nil {
		if doc.Root.Get(paths.FlatName) == nil {
			return nil, err
		}
		player, err := ProjectFlat(doc.Root, paths)
		if err != nil {
			return nil, err
		}
		return &Projection{Players: []Player{*player}}, nil
	}

	projection := &Projection{Players: []Player{}}
	opts = append(opts[:len(opts):len(opts)], gvas.WithDiagnostics(func(e *gvas.FormatError) {
		projection.Diagnostics = append(projection.Diagnostics, e)
	}))
	characters := make([]character, 0, len(m.Entries))
	for i, entry := range m.Entries {
		c, err := readCharacter(entry, paths, opts)
		if err != nil {
			skipped := EntityError{Index: i, Key: describeKey(entry.Key, paths), Err: err}
			log.Printf("[Project] skipping %v", skipped)
			projection.Skipped = append(projection.Skipped, skipped)
			continue
		}
		characters = append(characters, c)
	}

	players := map[ue.FGuid]int{}
	for _, c := range characters {
		if !c.isPlayer {
			continue
		}
		if _, seen := players[c.playerUID]; seen {
			log.Printf("[Project] player %s listed twice, keeping the first", c.playerUID)
			continue
		}
		player := Player{UID: c.playerUID.UUID(), Level: c.level, Pals: []Pal{}}
		if c.nickname != nil {
			player.Nickname = *c.nickname
		}
		players[c.playerUID] = len(projection.Players)
		projection.Players = append(projection.Players, player)
	}

	for _, c := range characters {
		if c.isPlayer {
			continue
		}
		i, ok := players[c.owner]
		if !ok {
			continue
		}
		projection.Players[i].Pals = append(projection.Players[i].Pals, Pal{
			InstanceID:  c.instanceID.UUID(),
			CharacterID: c.characterID,
			Nickname:    c.nickname,
			Level:       c.level,
		})
	}

	return projection, nil
}

// ProjectFlat reads one player from a tree that carries its name and level
// at the top level.
func ProjectFlat(tree *gvas.Tree, paths Paths) (*Player, error) {
	paths = paths.WithDefaults()
	name, ok := tree.Value(paths.FlatName)
	if !ok {
		return nil, missing("."+paths.FlatName, "player name not found")
	}
	nickname, ok := gvas.AsString(name)
	if !ok {
		return nil, missing("."+paths.FlatName, "player name is %T", name)
	}
	return &Player{
		Nickname: nickname,
		Level:    levelOf(tree, paths.FlatLevel),
		Pals:     []Pal{},
	}, nil
}

func characterTable(root *gvas.Tree, paths Paths) (*gvas.Map, error) {
	path := "." + paths.Table
	p, ok := root.Lookup(paths.Table)
	if !ok {
		return nil, missing(path, "character table not found")
	}
	m, ok := p.Value.(*gvas.Map)
	if !ok {
		return nil, missing(path, "character table is a %s", p.Type)
	}
	if m.Raw != nil {
		return nil, missing(path, "character table was not decoded")
	}
	return m, nil
}

func readCharacter(entry gvas.MapEntry, paths Paths, opts []gvas.Option) (character, error) {
	c := character{}

	key, ok := gvas.StructTree(entry.Key)
	if !ok {
		return c, missing(".Key", "key is not a struct")
	}
	if v, ok := key.Value(paths.PlayerUID); ok {
		c.playerUID, _ = gvas.AsGuid(v)
	}
	instanceID, ok := key.Value(paths.InstanceID)
	if !ok {
		return c, missing(".Key."+paths.InstanceID, "instance id not found")
	}
	if c.instanceID, ok = gvas.AsGuid(instanceID); !ok {
		return c, missing(".Key."+paths.InstanceID, "instance id is %T", instanceID)
	}

	params, err := saveParameter(entry.Value, paths, opts)
	if err != nil {
		return c, err
	}

	if v, ok := params.Value(paths.IsPlayer); ok {
		c.isPlayer, _ = gvas.AsBool(v)
	}
	if v, ok := params.Value(paths.Nickname); ok {
		if name, ok := gvas.AsString(v); ok {
			c.nickname = &name
		}
	}
	c.level = levelOf(params, paths.Level)

	if c.isPlayer {
		if c.playerUID.IsZero() {
			return c, missing(".Key."+paths.PlayerUID, "player without uid")
		}
		return c, nil
	}

	characterID, ok := params.Value(paths.CharacterID)
	if !ok {
		return c, missing("."+paths.SaveParameter+"."+paths.CharacterID, "character id not found")
	}
	if c.characterID, ok = gvas.AsString(characterID); !ok || c.characterID == "" {
		return c, missing("."+paths.SaveParameter+"."+paths.CharacterID, "character id is empty")
	}
	if v, ok := params.Value(paths.OwnerUID); ok {
		c.owner, _ = gvas.AsGuid(v)
	}
	return c, nil
}

// saveParameter returns the SaveParameter fields of a table value, decoding
// the embedded RawData property list when present.
func saveParameter(value gvas.Value, paths Paths, opts []gvas.Option) (*gvas.Tree, error) {
	tree, ok := gvas.StructTree(value)
	if !ok {
		return nil, missing(".Value", "value is not a struct")
	}
	if p := tree.Get(paths.RawData); p != nil {
		raw, err := decodeRawData(p, paths, opts)
		if err != nil {
			return nil, err
		}
		tree = raw.tree
	}

	params, ok := tree.Value(paths.SaveParameter)
	if !ok {
		return nil, missing("."+paths.SaveParameter, "save parameter not found")
	}
	fields, ok := gvas.StructTree(params)
	if !ok {
		return nil, missing("."+paths.SaveParameter, "save parameter was not decoded")
	}
	return fields, nil
}

// levelOf returns the level stored under name. The game omits level 1.
func levelOf(tree *gvas.Tree, name string) int64 {
	v, ok := tree.Value(name)
	if !ok {
		return 1
	}
	level, ok := gvas.AsInt(v)
	if !ok {
		return 1
	}
	return level
}

func describeKey(v gvas.Value, paths Paths) string {
	key, ok := gvas.StructTree(v)
	if !ok {
		return fmt.Sprintf("%T", v)
	}
	if id, ok := key.Value(paths.InstanceID); ok {
		if g, ok := gvas.AsGuid(id); ok {
			return g.String()
		}
	}
	return "unknown"
}
