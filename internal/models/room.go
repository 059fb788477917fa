package models

import "fmt"

// Room types of the default catalog. The tag is open: admins may use others.
const (
	RoomTypeDeluxe    = "deluxe"
	RoomTypeExecutive = "executive"
	RoomTypeRoyal     = "royal"
	RoomTypeFamily    = "family"
)

// Room is a bookable room in the catalog.
type Room struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Price       Amount   `json:"price"`
	Capacity    int      `json:"capacity"`
	Size        int      `json:"size"`
	Image       string   `json:"image,omitempty"`
	Amenities   []string `json:"amenities"`
	Description string   `json:"description,omitempty"`
	Available   bool     `json:"available"`
}

// Validate checks the catalog invariants of a room.
func (r *Room) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRoom)
	case r.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidRoom)
	case r.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidRoom)
	}
	return nil
}

// Snapshot returns a deep copy suitable for embedding into a draft or booking,
// so later catalog edits never reach historical records.
func (r Room) Snapshot() *Room {
	cp := r
	if r.Amenities != nil {
		cp.Amenities = append([]string(nil), r.Amenities...)
	}
	return &cp
}

// DefaultRooms is the catalog seeded on first run.
func DefaultRooms() []Room {
	return []Room{
		{
			ID:          1,
			Name:        "Deluxe Room",
			Type:        RoomTypeDeluxe,
			Price:       150,
			Capacity:    2,
			Size:        35,
			Image:       "https://images.unsplash.com/photo-1631049307264-da0ec9d70304?w=600",
			Amenities:   []string{"wifi", "ac", "tv", "minibar"},
			Description: "Modern luxury room with a wonderful view",
			Available:   true,
		},
		{
			ID:          2,
			Name:        "Executive Suite",
			Type:        RoomTypeExecutive,
			Price:       280,
			Capacity:    2,
			Size:        55,
			Image:       "https://images.unsplash.com/photo-1590490360182-c33d57733427?w=600",
			Amenities:   []string{"wifi", "ac", "tv", "jacuzzi", "balcony"},
			Description: "Suite with a separate sitting area and jacuzzi",
			Available:   true,
		},
		{
			ID:          3,
			Name:        "Royal Suite",
			Type:        RoomTypeRoyal,
			Price:       450,
			Capacity:    4,
			Size:        85,
			Image:       "https://images.unsplash.com/photo-1566665797739-1674de7a421a?w=600",
			Amenities:   []string{"wifi", "ac", "tv", "pool", "butler", "kitchen"},
			Description: "Private pool and butler service",
			Available:   true,
		},
	}
}
