package memory

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"

	"go.korebot.dev/core/spatialmath"
)

// LocationRegistry is the named-location registry that lives beside the
// vector store, persisted with buntdb (an embedded, indexed KV store;
// see DESIGN.md for why it replaces the source's flat locations.json).
// Lookups are case-insensitive by construction: keys are stored
// lower-cased.
type LocationRegistry struct {
	db *buntdb.DB
}

// OpenLocationRegistry opens (creating if necessary) the registry at
// path, or ":memory:" for an ephemeral, non-persisted registry.
func OpenLocationRegistry(path string) (*LocationRegistry, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "memory: opening location registry")
	}
	return &LocationRegistry{db: db}, nil
}

// Close releases the underlying database handle.
func (r *LocationRegistry) Close() error {
	return r.db.Close()
}

type locationRecord struct {
	Name     string
	Position [3]float64
	Rotation [3]float64
}

func key(name string) string {
	return strings.ToLower(name)
}

// Set inserts or replaces a named location.
func (r *LocationRegistry) Set(loc RobotLocation) error {
	rec := locationRecord{
		Name:     loc.Name,
		Position: [3]float64{loc.Position.X(), loc.Position.Y(), loc.Position.Z()},
		Rotation: [3]float64{loc.Rotation.X(), loc.Rotation.Y(), loc.Rotation.Z()},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key(loc.Name), string(data), nil)
		return err
	})
}

func recordToLocation(data string) (RobotLocation, error) {
	var rec locationRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return RobotLocation{}, err
	}
	return RobotLocation{
		Name:     rec.Name,
		Position: spatialmath.NewVector3D(rec.Position[0], rec.Position[1], rec.Position[2]),
		Rotation: spatialmath.NewVector3D(rec.Rotation[0], rec.Rotation[1], rec.Rotation[2]),
	}, nil
}

// Get looks up a location by case-insensitive name.
func (r *LocationRegistry) Get(name string) (RobotLocation, bool, error) {
	var data string
	err := r.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key(name))
		if err != nil {
			return err
		}
		data = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return RobotLocation{}, false, nil
	}
	if err != nil {
		return RobotLocation{}, false, err
	}
	loc, err := recordToLocation(data)
	if err != nil {
		return RobotLocation{}, false, err
	}
	return loc, true, nil
}

// Delete removes a location by case-insensitive name.
func (r *LocationRegistry) Delete(name string) error {
	return r.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key(name))
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
}

// List returns every registered location.
func (r *LocationRegistry) List() ([]RobotLocation, error) {
	var out []RobotLocation
	err := r.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(k, v string) bool {
			loc, err := recordToLocation(v)
			if err != nil {
				return true
			}
			out = append(out, loc)
			return true
		})
	})
	return out, err
}
