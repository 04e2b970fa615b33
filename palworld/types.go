package palworld

import (
	"github.com/google/uuid"

	"palworld-save-edit/gvas"
)

type Player struct {
	UID      uuid.UUID `json:"uid"`
	Nickname string    `json:"nickname"`
	Level    int64     `json:"level"`
	Pals     []Pal     `json:"pals"`
}

// Pal is a creature owned by a player. Nickname is nil when the player never
// renamed it.
type Pal struct {
	InstanceID  uuid.UUID `json:"instance_id"`
	CharacterID string    `json:"character_id"`
	Nickname    *string   `json:"nickname,omitempty"`
	Level       int64     `json:"level"`
}

// Projection is the read-only entity view of one document. Skipped lists the
// table entries that could not be projected. Diagnostics lists structs kept
// raw inside character data.
type Projection struct {
	Players     []Player            `json:"players"`
	Skipped     []EntityError       `json:"-"`
	Diagnostics []*gvas.FormatError `json:"-"`
}

func (p *Projection) Player(uid uuid.UUID) (Player, bool) {
	for _, player := range p.Players {
		if player.UID == uid {
			return player, true
		}
	}
	return Player{}, false
}

// Paths names where the mapper finds entities in the property tree.
type Paths struct {
	Table         string `yaml:"table"`
	PlayerUID     string `yaml:"player_uid"`
	InstanceID    string `yaml:"instance_id"`
	RawData       string `yaml:"raw_data"`
	SaveParameter string `yaml:"save_parameter"`
	IsPlayer      string `yaml:"is_player"`
	Nickname      string `yaml:"nickname"`
	Level         string `yaml:"level"`
	CharacterID   string `yaml:"character_id"`
	OwnerUID      string `yaml:"owner_uid"`

	// Flat documents carry a single player at the root.
	FlatName  string `yaml:"flat_name"`
	FlatLevel string `yaml:"flat_level"`
}

func DefaultPaths() Paths {
	return Paths{
		Table:         "worldSaveData.CharacterSaveParameterMap",
		PlayerUID:     "PlayerUId",
		InstanceID:    "InstanceId",
		RawData:       "RawData",
		SaveParameter: "SaveParameter",
		IsPlayer:      "IsPlayer",
		Nickname:      "NickName",
		Level:         "Level",
		CharacterID:   "CharacterID",
		OwnerUID:      "OwnerPlayerUId",
		FlatName:      "PlayerName",
		FlatLevel:     "Level",
	}
}

// WithDefaults fills empty fields from DefaultPaths.
func (p Paths) WithDefaults() Paths {
	d := DefaultPaths()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&p.Table, d.Table)
	fill(&p.PlayerUID, d.PlayerUID)
	fill(&p.InstanceID, d.InstanceID)
	fill(&p.RawData, d.RawData)
	fill(&p.SaveParameter, d.SaveParameter)
	fill(&p.IsPlayer, d.IsPlayer)
	fill(&p.Nickname, d.Nickname)
	fill(&p.Level, d.Level)
	fill(&p.CharacterID, d.CharacterID)
	fill(&p.OwnerUID, d.OwnerUID)
	fill(&p.FlatName, d.FlatName)
	fill(&p.FlatLevel, d.FlatLevel)
	return p
}
