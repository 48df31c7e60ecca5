package memory

import (
	"database/sql"
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure-Go sqlite driver, registers "sqlite"

	"go.korebot.dev/core/spatialmath"
)

// ErrStore wraps any failure writing to or reading from the persisted
// store (the spec's StoreError kind).
var ErrStore = errors.New("memory: store error")

// Store persists SpatialFrame metadata + embeddings and the raw image
// bytes under the same id, backed by a single embedded sqlite database
// (chosen over the source's separate chromadb directory + pickle file
// because one pure-Go, dependency-free file covers both tables — see
// DESIGN.md). It is safe for concurrent use; sqlite serializes writers.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the sqlite-backed store at
// path, or ":memory:" for an ephemeral store used in tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "memory: opening store")
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers across connections
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS frames (
			id TEXT PRIMARY KEY,
			pos_x REAL, pos_y REAL, pos_z REAL,
			rot_x REAL, rot_y REAL, rot_z REAL,
			timestamp REAL,
			embedding TEXT,
			image BLOB
		)
	`)
	if err != nil {
		return errors.Wrap(err, "memory: migrating store")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put atomically persists a frame's metadata, embedding, and raw image
// bytes under id.
func (s *Store) Put(frame SpatialFrame, image []byte) error {
	embJSON, err := json.Marshal(frame.Embedding)
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO frames (id, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, timestamp, embedding, image)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		frame.FrameID,
		frame.Position.X(), frame.Position.Y(), frame.Position.Z(),
		frame.Rotation.X(), frame.Rotation.Y(), frame.Rotation.Z(),
		frame.Timestamp,
		string(embJSON),
		image,
	)
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}
	return nil
}

func scanRow(rows *sql.Rows) (SpatialFrame, []byte, error) {
	var f SpatialFrame
	var px, py, pz, rx, ry, rz, ts float64
	var embJSON string
	var image []byte
	if err := rows.Scan(&f.FrameID, &px, &py, &pz, &rx, &ry, &rz, &ts, &embJSON, &image); err != nil {
		return SpatialFrame{}, nil, err
	}
	f.Position = spatialmath.NewVector3D(px, py, pz)
	f.Rotation = spatialmath.NewVector3D(rx, ry, rz)
	f.Timestamp = ts
	if err := json.Unmarshal([]byte(embJSON), &f.Embedding); err != nil {
		return SpatialFrame{}, nil, err
	}
	return f, image, nil
}

func (s *Store) all() ([]SpatialFrame, [][]byte, error) {
	rows, err := s.db.Query(`SELECT id, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, timestamp, embedding, image FROM frames`)
	if err != nil {
		return nil, nil, errors.Wrap(ErrStore, err.Error())
	}
	defer rows.Close()

	var frames []SpatialFrame
	var images [][]byte
	for rows.Next() {
		f, img, err := scanRow(rows)
		if err != nil {
			return nil, nil, errors.Wrap(ErrStore, err.Error())
		}
		frames = append(frames, f)
		images = append(images, img)
	}
	return frames, images, rows.Err()
}

// Count returns the number of persisted frames.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM frames`).Scan(&n); err != nil {
		return 0, errors.Wrap(ErrStore, err.Error())
	}
	return n, nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - cos
}

// QueryByEmbedding returns the k nearest frames to e by cosine distance,
// ascending.
func (s *Store) QueryByEmbedding(e []float32, k int) ([]QueryResult, error) {
	frames, images, err := s.all()
	if err != nil {
		return nil, err
	}
	results := make([]QueryResult, len(frames))
	for i, f := range frames {
		results[i] = QueryResult{ID: f.FrameID, Metadata: f, Distance: cosineDistance(e, f.Embedding), Image: images[i]}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// QueryByLocation linearly scans metadata, returning frames within radius
// r of (x, y), ascending by distance.
func (s *Store) QueryByLocation(x, y, r float64, k int) ([]QueryResult, error) {
	frames, images, err := s.all()
	if err != nil {
		return nil, err
	}
	var results []QueryResult
	for i, f := range frames {
		dx := f.Position.X() - x
		dy := f.Position.Y() - y
		d := math.Sqrt(dx*dx + dy*dy)
		if d <= r {
			results = append(results, QueryResult{ID: f.FrameID, Metadata: f, Distance: d, Image: images[i]})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}
