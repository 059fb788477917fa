package config

import (
	"fmt"
	"os"

	"grandresort/internal/models"

	"gopkg.in/yaml.v3"
)

// RoomConfig is one room of the catalog file.
type RoomConfig struct {
	ID          int64    `yaml:"id"`
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Price       float64  `yaml:"price"`
	Capacity    int      `yaml:"capacity"`
	Size        int      `yaml:"size"`
	Image       string   `yaml:"image"`
	Amenities   []string `yaml:"amenities"`
	Description string   `yaml:"description"`
	Available   *bool    `yaml:"available,omitempty"` // defaults to true
}

// CatalogConfig is the root of the room catalog file.
type CatalogConfig struct {
	Rooms []RoomConfig `yaml:"rooms"`
}

// LoadCatalog reads the rooms seeded on first run. An empty path selects the
// built-in catalog.
func LoadCatalog(path string) ([]models.Room, error) {
	if path == "" {
		return models.DefaultRooms(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cfg CatalogConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	return cfg.ToRooms(), nil
}

// Validate checks ids and names are unique and every room is valid.
func (c *CatalogConfig) Validate() error {
	if len(c.Rooms) == 0 {
		return fmt.Errorf("no rooms defined")
	}

	ids := make(map[int64]bool)
	names := make(map[string]bool)
	for i, r := range c.Rooms {
		if r.ID <= 0 {
			return fmt.Errorf("rooms[%d]: id must be positive, got %d", i, r.ID)
		}
		if ids[r.ID] {
			return fmt.Errorf("rooms[%d]: duplicate id %d", i, r.ID)
		}
		ids[r.ID] = true

		if names[r.Name] {
			return fmt.Errorf("rooms[%d]: duplicate name '%s'", i, r.Name)
		}
		names[r.Name] = true

		room := r.room()
		if err := room.Validate(); err != nil {
			return fmt.Errorf("rooms[%d]: %w", i, err)
		}
	}
	return nil
}

// ToRooms converts the file entries to catalog rooms.
func (c *CatalogConfig) ToRooms() []models.Room {
	out := make([]models.Room, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		out = append(out, r.room())
	}
	return out
}

func (r RoomConfig) room() models.Room {
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	amenities := r.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return models.Room{
		ID:          r.ID,
		Name:        r.Name,
		Type:        r.Type,
		Price:       models.Amount(r.Price),
		Capacity:    r.Capacity,
		Size:        r.Size,
		Image:       r.Image,
		Amenities:   amenities,
		Description: r.Description,
		Available:   available,
	}
}
