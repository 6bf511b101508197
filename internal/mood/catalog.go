package mood

// Level is one entry of the fixed mood scale.
type Level struct {
	Value     int
	Label     string
	Shorthand string
	Marker    string
	Color     string
}

// Min and Max bound the mood scale.
const (
	Min = 1
	Max = 5
)

// Levels is the mood scale ordered from worst to best.
var Levels = [...]Level{
	{Value: 1, Label: "Terrible", Shorthand: "T", Marker: ":(", Color: "#E74C3C"},
	{Value: 2, Label: "Bad", Shorthand: "B", Marker: ":/", Color: "#F39C12"},
	{Value: 3, Label: "Okay", Shorthand: "O", Marker: ":|", Color: "#F1FA8C"},
	{Value: 4, Label: "Good", Shorthand: "G", Marker: ":)", Color: "#2EC4B6"},
	{Value: 5, Label: "Amazing", Shorthand: "A", Marker: "<3", Color: "#2ECC71"},
}

// Fallback is the level used for values outside the scale.
var Fallback = Levels[2]

// Valid reports whether v is on the mood scale.
func Valid(v int) bool {
	return v >= Min && v <= Max
}

// Lookup returns the level for v, or Fallback when v is off the scale.
func Lookup(v int) Level {
	if !Valid(v) {
		return Fallback
	}
	return Levels[v-Min]
}

// Label returns the display label for v, or "Unknown".
func Label(v int) string {
	if !Valid(v) {
		return "Unknown"
	}
	return Levels[v-Min].Label
}
