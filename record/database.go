// Package record writes simulation frames and snapshots to disk: a
// sqlite table of bodies per frame, compressed gob snapshots for saving
// and resuming a run, and compressed gob chunks of render data.
package record

import (
	"database/sql"
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quillaja/orbits"
)

/*
really only 1 connection is useful for sqlite since it allows only 1
writer at a time. frames are written one transaction each.
*/

// ErrExists is returned by OpenDB when the database file is already
// there.
var ErrExists = errors.New("database already exists")

const schema = `
CREATE TABLE bodies (
	frame 	INTEGER,
	id 		INTEGER, -- body id
	x 		REAL,
	y 		REAL,
	vx 		REAL,
	vy 		REAL,
	mass 	REAL,
	radius 	REAL,
	color 	INTEGER); -- 0xRRGGBBAA
`

const indices = `
CREATE INDEX idx_frame ON bodies (frame, id);
CREATE INDEX idx_id ON bodies (id);
`

const insert = `INSERT INTO bodies VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`
const queryFrame = `SELECT id, x, y, vx, vy, mass, radius, color FROM bodies WHERE frame = ? ORDER BY id ASC;`
const queryLastFrame = `SELECT MAX(frame) FROM bodies;`

// DB is a sqlite database of recorded frames.
type DB struct {
	db     *sql.DB
	insert *sql.Stmt
}

// OpenDB creates and initializes a new database in filename. It refuses
// to touch an existing file.
func OpenDB(filename string) (*DB, error) {
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, filename)
	}

	db, err := sql.Open("sqlite3", "file:"+filename+"?_journal_mode=OFF&_synchronous=OFF")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	stmt, err := db.Prepare(insert)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &DB{db: db, insert: stmt}, nil
}

// CreateIndices indexes the bodies table. Cheaper to run once after all
// frames are written.
func (d *DB) CreateIndices() error {
	if _, err := d.db.Exec(indices); err != nil {
		return fmt.Errorf("create indices: %w", err)
	}
	return nil
}

// WriteFrame stores every body of one frame in a single transaction.
func (d *DB) WriteFrame(frame int, bodies []orbits.Body) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("frame %d: %w", frame, err)
	}

	stmt := tx.Stmt(d.insert)
	for _, b := range bodies {
		_, err = stmt.Exec(
			frame,
			b.ID,
			b.Pos.X(),
			b.Pos.Y(),
			b.Vel.X(),
			b.Vel.Y(),
			b.Mass,
			b.Radius,
			packColor(b.Color))
		if err != nil {
			break
		}
	}

	if err != nil {
		tx.Rollback()
		return fmt.Errorf("frame %d: %w", frame, err)
	}
	return tx.Commit()
}

// Frame reads back the bodies of one frame in id order.
func (d *DB) Frame(frame int) ([]orbits.Body, error) {
	rows, err := d.db.Query(queryFrame, frame)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frame, err)
	}
	defer rows.Close()

	var bodies []orbits.Body
	for rows.Next() {
		var (
			b      orbits.Body
			x, y   float64
			vx, vy float64
			c      uint32
		)
		if err := rows.Scan(&b.ID, &x, &y, &vx, &vy, &b.Mass, &b.Radius, &c); err != nil {
			return nil, fmt.Errorf("frame %d: %w", frame, err)
		}
		b.Pos = mgl64.Vec2{x, y}
		b.Vel = mgl64.Vec2{vx, vy}
		b.Color = unpackColor(c)
		bodies = append(bodies, b)
	}
	return bodies, rows.Err()
}

// LastFrame is the highest frame number stored, or -1 when empty.
func (d *DB) LastFrame() (int, error) {
	var last sql.NullInt64
	if err := d.db.QueryRow(queryLastFrame).Scan(&last); err != nil {
		return -1, err
	}
	if !last.Valid {
		return -1, nil
	}
	return int(last.Int64), nil
}

// Close releases the database.
func (d *DB) Close() error {
	d.insert.Close()
	return d.db.Close()
}

func packColor(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

func unpackColor(v uint32) color.RGBA {
	return color.RGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}
}
