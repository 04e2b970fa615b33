package store

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"palworld-save-edit/palworld"
)

// DB holds projection snapshots in sqlite. Each export replaces the
// previous rows for the same save.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS
			players
		(
			save TEXT NOT NULL,
			uid TEXT NOT NULL,
			nickname TEXT,
			level INTEGER,

			CONSTRAINT save_uid UNIQUE (save, uid)
		);
		CREATE TABLE IF NOT EXISTS
			pals
		(
			save TEXT NOT NULL,
			instanceId TEXT NOT NULL,
			ownerUid TEXT NOT NULL,
			characterId TEXT NOT NULL,
			nickname TEXT,
			level INTEGER,

			CONSTRAINT save_instanceId UNIQUE (save, instanceId)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Export writes projection to the database at path and closes it, also
// when the write fails.
func Export(path, save string, projection *palworld.Projection) (err error) {
	db, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); err == nil {
			err = closeErr
		}
	}()
	return db.WriteProjection(save, projection)
}

// WriteProjection stores every player and pal of projection under save.
func (d *DB) WriteProjection(save string, projection *palworld.Projection) error {
	log.Printf("[WriteProjection] %v: %d players", save, len(projection.Players))

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM players WHERE save = ?`, save); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM pals WHERE save = ?`, save); err != nil {
		return err
	}

	for _, player := range projection.Players {
		_, err := tx.Exec(`
			INSERT INTO
				players
					(
						save, uid, nickname, level
					)
			VALUES
					(?, ?, ?, ?)`,
			save, player.UID.String(), player.Nickname, player.Level)
		if err != nil {
			return fmt.Errorf("failed to insert player %v: %w", player.UID, err)
		}

		for _, pal := range player.Pals {
			var nickname sql.NullString
			if pal.Nickname != nil {
				nickname = sql.NullString{String: *pal.Nickname, Valid: true}
			}
			_, err := tx.Exec(`
				INSERT INTO
					pals
						(
							save, instanceId, ownerUid, characterId, nickname, level
						)
				VALUES
						(?, ?, ?, ?, ?, ?)`,
				save, pal.InstanceID.String(), player.UID.String(), pal.CharacterID, nickname, pal.Level)
			if err != nil {
				return fmt.Errorf("failed to insert pal %v: %w", pal.InstanceID, err)
			}
		}
	}

	return tx.Commit()
}

// Players reads back the players stored for save, with their pals.
func (d *DB) Players(save string) ([]palworld.Player, error) {
	rows, err := d.db.Query(`
	SELECT
		uid,
		nickname,
		level
	FROM
		players
	WHERE
		save = ?
	ORDER BY
		rowid`, save)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []palworld.Player{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var uid string
		player := palworld.Player{Pals: []palworld.Pal{}}
		if err := rows.Scan(&uid, &player.Nickname, &player.Level); err != nil {
			return nil, err
		}
		if player.UID, err = uuid.Parse(uid); err != nil {
			return nil, err
		}
		index[player.UID] = len(players)
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	palRows, err := d.db.Query(`
	SELECT
		instanceId,
		ownerUid,
		characterId,
		nickname,
		level
	FROM
		pals
	WHERE
		save = ?
	ORDER BY
		rowid`, save)
	if err != nil {
		return nil, err
	}
	defer palRows.Close()

	for palRows.Next() {
		var instanceID, owner string
		var nickname sql.NullString
		pal := palworld.Pal{}
		if err := palRows.Scan(&instanceID, &owner, &pal.CharacterID, &nickname, &pal.Level); err != nil {
			return nil, err
		}
		if pal.InstanceID, err = uuid.Parse(instanceID); err != nil {
			return nil, err
		}
		if nickname.Valid {
			pal.Nickname = &nickname.String
		}
		ownerUID, err := uuid.Parse(owner)
		if err != nil {
			return nil, err
		}
		i, ok := index[ownerUID]
		if !ok {
			continue
		}
		players[i].Pals = append(players[i].Pals, pal)
	}
	return players, palRows.Err()
}
