package simon

// ColorID names a pad.
type ColorID string

const (
	Green  ColorID = "green"
	Red    ColorID = "red"
	Yellow ColorID = "yellow"
	Blue   ColorID = "blue"
)

// Color is one pad of the board. The palette is fixed at compile time.
type Color struct {
	ID             ColorID `json:"id"`
	Display        string  `json:"color"`
	Frequency      float64 `json:"frequency"`
	HighlightClass string  `json:"highlightClass"`
	BaseClass      string  `json:"baseClass"`
}

var palette = [...]Color{
	{ID: Green, Display: "#22c55e", Frequency: 329.63, HighlightClass: "bg-green-400 shadow-green-500/50", BaseClass: "bg-green-700"},
	{ID: Red, Display: "#ef4444", Frequency: 261.63, HighlightClass: "bg-red-400 shadow-red-500/50", BaseClass: "bg-red-700"},
	{ID: Yellow, Display: "#eab308", Frequency: 220.00, HighlightClass: "bg-yellow-300 shadow-yellow-500/50", BaseClass: "bg-yellow-600"},
	{ID: Blue, Display: "#3b82f6", Frequency: 164.81, HighlightClass: "bg-blue-400 shadow-blue-500/50", BaseClass: "bg-blue-700"},
}

// Palette returns the pads in board order.
func Palette() []Color {
	out := make([]Color, len(palette))
	copy(out, palette[:])
	return out
}

// Lookup finds a pad by ID.
func Lookup(id ColorID) (Color, bool) {
	for _, c := range palette {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}
