package store

import (
	"database/sql"
	"strconv"
	"time"
)

func (db *DB) GetMetadata(key string) ([]byte, error) {
	var value []byte
	err := db.Get(&value, `SELECT value FROM metadata WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return value, err
}

func (db *DB) SetMetadata(key string, value []byte) error {
	_, err := db.Exec(`
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

func (db *DB) DeleteMetadata(key string) error {
	_, err := db.Exec(`DELETE FROM metadata WHERE key = ?`, key)
	return err
}

const (
	MetaSchemaVersion = "schema_version"
	MetaBackupPrefix  = "backup:"
)

func (db *DB) writeSchemaVersion(version int) error {
	return db.SetMetadata(MetaSchemaVersion, []byte(strconv.Itoa(version)))
}

// SchemaVersion reads the recorded schema version, 0 when unset.
func (db *DB) SchemaVersion() (int, error) {
	value, err := db.GetMetadata(MetaSchemaVersion)
	if err != nil || value == nil {
		return 0, err
	}
	return strconv.Atoi(string(value))
}
