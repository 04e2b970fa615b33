package store

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"palworld-save-edit/palworld"
)

func TestWriteProjection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pals.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	nickname := "Fluffy"
	projection := &palworld.Projection{Players: []palworld.Player{
		{
			UID:      uuid.MustParse("04030201-0807-0605-0c0b-0a09100f0e0d"),
			Nickname: "Tristan",
			Level:    15,
			Pals: []palworld.Pal{
				{InstanceID: uuid.New(), CharacterID: "SheepBall", Nickname: &nickname, Level: 5},
				{InstanceID: uuid.New(), CharacterID: "Anubis", Level: 1},
			},
		},
		{UID: uuid.New(), Nickname: "Zoe", Level: 1, Pals: []palworld.Pal{}},
	}}

	if err := db.WriteProjection("Level.sav", projection); err != nil {
		t.Fatalf("WriteProjection: %v", err)
	}
	// A second export replaces the first.
	if err := db.WriteProjection("Level.sav", projection); err != nil {
		t.Fatalf("second WriteProjection: %v", err)
	}

	players, err := db.Players("Level.sav")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(players, projection.Players) {
		t.Errorf("players = %+v\nwant %+v", players, projection.Players)
	}

	other, err := db.Players("Other.sav")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("other save has %d players", len(other))
	}
}

func TestExportClosesOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pals.db")
	palID := uuid.New()
	player := palworld.Player{
		UID:      uuid.New(),
		Nickname: "Tristan",
		Level:    15,
		Pals: []palworld.Pal{
			{InstanceID: palID, CharacterID: "SheepBall", Level: 5},
			{InstanceID: palID, CharacterID: "SheepBall", Level: 5},
		},
	}

	if err := Export(path, "Level.sav", &palworld.Projection{Players: []palworld.Player{player}}); err == nil {
		t.Fatal("duplicate pal accepted")
	}

	player.Pals = player.Pals[:1]
	if err := Export(path, "Level.sav", &palworld.Projection{Players: []palworld.Player{player}}); err != nil {
		t.Fatalf("Export after a failed export: %v", err)
	}

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	players, err := db.Players("Level.sav")
	if err != nil {
		t.Fatal(err)
	}
	if len(players) != 1 || len(players[0].Pals) != 1 {
		t.Errorf("players = %+v", players)
	}
}
