// Package scenario loads designer-authored world descriptions: the map, the
// animation catalog and the agents that populate it.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/odina101/cossacks-web/internal/anim"
	"github.com/odina101/cossacks-web/internal/terrain"
	"github.com/odina101/cossacks-web/internal/unit"
	"github.com/odina101/cossacks-web/internal/world"
)

//go:embed default.yaml
var defaultScenario []byte

var ErrEmptyDocument = errors.New("scenario: empty document")

// Document is the on-disk scenario layout.
type Document struct {
	Name         string                   `yaml:"name" jsonschema:"required,minLength=1"`
	Seed         string                   `yaml:"seed,omitempty"`
	TickPeriodMs int                      `yaml:"tickPeriodMs,omitempty" jsonschema:"minimum=1"`
	EpochLength  int                      `yaml:"epochLength,omitempty" jsonschema:"minimum=1"`
	Terrain      TerrainSpec              `yaml:"terrain" jsonschema:"required"`
	Characters   map[string]CharacterSpec `yaml:"characters" jsonschema:"required"`
	Agents       []AgentSpec              `yaml:"agents,omitempty"`
}

type TerrainSpec struct {
	Cols      int                `yaml:"cols" jsonschema:"required,minimum=1"`
	Rows      int                `yaml:"rows" jsonschema:"required,minimum=1"`
	TileSize  float64            `yaml:"tileSize,omitempty" jsonschema:"minimum=1"`
	Obstacles []terrain.Obstacle `yaml:"obstacles,omitempty"`
	Blocked   []TileRef          `yaml:"blocked,omitempty"`
	// Heights lists elevation rows from the top of the map. Short rows and
	// missing rows stay at 0.
	Heights [][]float64 `yaml:"heights,omitempty"`
}

type TileRef struct {
	Col int `yaml:"col" jsonschema:"required,minimum=0"`
	Row int `yaml:"row" jsonschema:"required,minimum=0"`
}

// CharacterSpec maps animation variant names ("S", "G") onto sprite sheets.
type CharacterSpec struct {
	Variants map[string]SpriteSpec `yaml:"variants" jsonschema:"required"`
}

type SpriteSpec struct {
	Frames int `yaml:"frames" jsonschema:"required,minimum=1"`
	Width  int `yaml:"width,omitempty" jsonschema:"minimum=0"`
	Height int `yaml:"height,omitempty" jsonschema:"minimum=0"`
}

type AgentSpec struct {
	ID        string  `yaml:"id" jsonschema:"required,minLength=1"`
	Character string  `yaml:"character" jsonschema:"required,minLength=1"`
	X         float64 `yaml:"x" jsonschema:"required"`
	Y         float64 `yaml:"y" jsonschema:"required"`
	Speed     float64 `yaml:"speed,omitempty" jsonschema:"minimum=0"`
	Direction int     `yaml:"direction,omitempty" jsonschema:"minimum=0,maximum=15"`
}

// Default returns the embedded scenario.
func Default() (Document, error) {
	return Parse(defaultScenario)
}

// Load reads and validates the scenario at path.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	doc, err := Parse(raw)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse validates raw against the scenario schema before decoding it.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if len(raw) == 0 {
		return doc, ErrEmptyDocument
	}
	if err := Validate(raw); err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode scenario: %w", err)
	}
	if err := doc.check(); err != nil {
		return doc, err
	}
	return doc, nil
}

// check covers the cross references the schema cannot express.
func (d Document) check() error {
	for i, tile := range d.Terrain.Blocked {
		if tile.Col >= d.Terrain.Cols || tile.Row >= d.Terrain.Rows {
			return fmt.Errorf("blocked[%d]: tile %d,%d outside %dx%d map", i, tile.Col, tile.Row, d.Terrain.Cols, d.Terrain.Rows)
		}
	}
	seen := make(map[string]struct{}, len(d.Agents))
	for i, agent := range d.Agents {
		if _, dup := seen[agent.ID]; dup {
			return fmt.Errorf("agents[%d]: duplicate id %q", i, agent.ID)
		}
		seen[agent.ID] = struct{}{}
		if _, ok := d.Characters[agent.Character]; !ok {
			return fmt.Errorf("agents[%d]: unknown character %q", i, agent.Character)
		}
	}
	return nil
}

// WorldConfig translates the timing fields into a world configuration.
func (d Document) WorldConfig() world.Config {
	cfg := world.DefaultConfig()
	if d.Seed != "" {
		cfg.Seed = d.Seed
	}
	if d.TickPeriodMs > 0 {
		cfg.TickPeriod = time.Duration(d.TickPeriodMs) * time.Millisecond
	}
	if d.EpochLength > 0 {
		cfg.EpochLength = d.EpochLength
	}
	return cfg
}

// BuildTerrain materialises the tile grid with obstacles, blocked tiles and
// heights applied.
func (d Document) BuildTerrain() (*terrain.Grid, error) {
	grid, err := terrain.NewGrid(d.Terrain.Cols, d.Terrain.Rows, d.Terrain.TileSize)
	if err != nil {
		return nil, err
	}
	for _, obs := range d.Terrain.Obstacles {
		grid.BlockRect(obs)
	}
	for _, tile := range d.Terrain.Blocked {
		grid.SetWalkable(tile.Col, tile.Row, false)
	}
	for row, heights := range d.Terrain.Heights {
		for col, h := range heights {
			grid.SetHeight(col, row, h)
		}
	}
	return grid, nil
}

// BuildCatalog registers every character variant.
func (d Document) BuildCatalog() (*anim.Catalog, error) {
	catalog := anim.NewCatalog()
	for character, spec := range d.Characters {
		for variant, sprite := range spec.Variants {
			if err := catalog.Register(character, variant, sprite.Frames, sprite.Width, sprite.Height); err != nil {
				return nil, fmt.Errorf("character %s: %w", character, err)
			}
		}
	}
	return catalog, nil
}

// AgentConfigs returns the spawn list in document order.
func (d Document) AgentConfigs() []unit.Config {
	configs := make([]unit.Config, 0, len(d.Agents))
	for _, agent := range d.Agents {
		configs = append(configs, unit.Config{
			ID:        agent.ID,
			Character: agent.Character,
			X:         agent.X,
			Y:         agent.Y,
			Speed:     agent.Speed,
			Direction: agent.Direction,
		})
	}
	return configs
}

// Populate adds the document's agents to w.
func (d Document) Populate(w *world.World) error {
	for _, cfg := range d.AgentConfigs() {
		if _, err := w.AddAgent(cfg); err != nil {
			return fmt.Errorf("spawn %s: %w", cfg.ID, err)
		}
	}
	return nil
}
