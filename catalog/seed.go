package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the reference data loaded by `kadry migrate --seed`.
//
//	ranks:
//	  - {name: Лейтенант, order: 10}
//	units:
//	  - {code: U1, name: 1-й батальон}
//	  - {code: U1-1, name: 1-я рота, parent: U1}
type Seed struct {
	Ranks []RankSeed `yaml:"ranks"`
	Units []UnitSeed `yaml:"units"`
}

// RankSeed is one rank entry of a Seed.
type RankSeed struct {
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
}

// UnitSeed is one unit entry of a Seed. Parent refers to the code of a unit
// listed earlier or already present.
type UnitSeed struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("catalog: parse seed: %w", err)
	}
	return &s, nil
}

// ApplySeed upserts the seed's ranks and units in one transaction.
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) error {
	return s.Update(ctx, func(tx *Tx) error {
		for _, r := range seed.Ranks {
			if r.Name == "" {
				return fmt.Errorf("catalog: seed rank without name")
			}
			if _, err := tx.EnsureRank(ctx, r.Name, r.Order); err != nil {
				return err
			}
		}
		codes := map[string]int64{}
		for _, u := range seed.Units {
			if u.Code == "" {
				return fmt.Errorf("catalog: seed unit %q without code", u.Name)
			}
			var parent *int64
			if u.Parent != "" {
				id, ok := codes[u.Parent]
				if !ok {
					pu, err := tx.unitByCode(ctx, u.Parent)
					if err != nil {
						return fmt.Errorf("catalog: seed unit %q: parent %q: %w", u.Code, u.Parent, err)
					}
					id = pu.ID
				}
				parent = &id
			}
			name := u.Name
			if name == "" {
				name = u.Code
			}
			unit, err := tx.EnsureUnit(ctx, u.Code, name, parent)
			if err != nil {
				return err
			}
			codes[u.Code] = unit.ID
		}
		return nil
	})
}

func (q *queries) unitByCode(ctx context.Context, code string) (*Unit, error) {
	var id int64
	if err := q.q.QueryRowContext(ctx, `SELECT id FROM units WHERE code = ?`, code).Scan(&id); err != nil {
		return nil, ErrUnitNotFound
	}
	return q.GetUnit(ctx, id)
}
