package world

import "strings"

const (
	DefaultTileSize = 20.0
	DefaultColumns  = 48
	DefaultRows     = 32
	DefaultGravity  = 0.9
	DefaultRegionID = "region-1"
)

// Config describes a region's tile grid. Layout rows are listed top to
// bottom: '#' solid, '-' horizontal beam, '|' vertical beam, anything else empty.
type Config struct {
	ID       string   `json:"id"`
	Columns  int      `json:"columns"`
	Rows     int      `json:"rows"`
	TileSize float64  `json:"tileSize"`
	OriginX  float64  `json:"originX"`
	OriginY  float64  `json:"originY"`
	Gravity  float64  `json:"gravity"`
	Layout   []string `json:"layout,omitempty"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.ID = strings.TrimSpace(normalized.ID)
	if normalized.ID == "" {
		normalized.ID = DefaultRegionID
	}
	if normalized.TileSize <= 0 {
		normalized.TileSize = DefaultTileSize
	}
	if normalized.Columns <= 0 {
		normalized.Columns = DefaultColumns
		for _, line := range normalized.Layout {
			normalized.Columns = max(normalized.Columns, len(line))
		}
	}
	if normalized.Rows <= 0 {
		normalized.Rows = max(DefaultRows, len(normalized.Layout))
	}
	if normalized.Gravity < 0 {
		normalized.Gravity = 0
	}
	return normalized
}

func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

func DefaultConfig() Config {
	return Config{
		ID:       DefaultRegionID,
		Columns:  DefaultColumns,
		Rows:     DefaultRows,
		TileSize: DefaultTileSize,
		Gravity:  DefaultGravity,
	}
}

// DemoConfig returns the region served by the debug server: a walled room
// with a central pillar, a ledge and a pair of poles.
func DemoConfig() Config {
	layout := make([]string, 0, DefaultRows)
	for row := 0; row < DefaultRows; row++ {
		line := []byte(strings.Repeat(".", DefaultColumns))
		switch {
		case row == 0 || row == DefaultRows-1:
			line = []byte(strings.Repeat("#", DefaultColumns))
		default:
			line[0] = '#'
			line[DefaultColumns-1] = '#'
		}
		if row >= 10 && row < 26 {
			line[22], line[23] = '#', '#'
		}
		if row == 8 {
			for col := 30; col < 40; col++ {
				line[col] = '#'
			}
		}
		if row >= 18 && row < 28 {
			line[8] = '|'
		}
		if row == 14 {
			for col := 10; col < 16; col++ {
				line[col] = '-'
			}
		}
		layout = append(layout, string(line))
	}
	cfg := DefaultConfig()
	cfg.ID = "demo"
	cfg.Layout = layout
	return cfg
}
