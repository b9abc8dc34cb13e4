package hill

import (
	"fmt"
	"math"
	"sort"
)

// Item is something to place on the hill.
type Item struct {
	ID       int64   `json:"id"`
	Position float64 `json:"position"`
	Label    string  `json:"label,omitempty"`
}

// Positioned is an Item with render coordinates.
// BaseY is the on-curve y; Y is the y after stacking.
type Positioned struct {
	Item
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	BaseY float64 `json:"baseY"`
	Level int     `json:"level"`
}

// Stacked reports whether the item was lifted off the curve.
func (p Positioned) Stacked() bool { return p.Y != p.BaseY }

// Layout places items on the curve and stacks items that are closer than
// MinDistance horizontally.
//
// Items are processed left to right by x, ties keeping input order. Each
// item looks at every item already placed within MinDistance and sits one
// level above the highest of them. The result is in processing order.
func Layout(items []Item, p Params) ([]Positioned, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	placed := make([]Positioned, 0, len(items))
	for _, it := range items {
		pt, err := p.PositionToCoords(it.Position)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", it.ID, err)
		}
		placed = append(placed, Positioned{Item: it, X: pt.X, Y: pt.Y, BaseY: pt.Y})
	}

	sort.SliceStable(placed, func(i, j int) bool { return placed[i].X < placed[j].X })

	for k := range placed {
		level := 0
		for j := 0; j < k; j++ {
			if math.Abs(placed[k].X-placed[j].X) >= p.MinDistance {
				continue
			}
			if l := stackLevel(placed[j], p.VerticalSpacing) + 1; l > level {
				level = l
			}
		}
		placed[k].Level = level
		placed[k].Y = placed[k].BaseY - float64(level)*p.VerticalSpacing
	}

	return placed, nil
}

func stackLevel(p Positioned, spacing float64) int {
	return int(math.Round((p.BaseY - p.Y) / spacing))
}
