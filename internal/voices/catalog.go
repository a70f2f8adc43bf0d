package voices

// Voice describes one synthesis voice offered by the provider.
type Voice struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// catalog is the closed set of voices the provider supports. Validation and
// the voices operation both read from here.
var catalog = []Voice{
	{ID: "alloy", Label: "Alloy", Description: "Neutral, balanced delivery"},
	{ID: "echo", Label: "Echo", Description: "Calm male voice"},
	{ID: "fable", Label: "Fable", Description: "Expressive storytelling voice"},
	{ID: "onyx", Label: "Onyx", Description: "Deep, authoritative male voice"},
	{ID: "nova", Label: "Nova", Description: "Bright, energetic female voice"},
	{ID: "shimmer", Label: "Shimmer", Description: "Soft, warm female voice"},
}

// Catalog returns a copy of the supported voice list.
func Catalog() []Voice {
	return append([]Voice(nil), catalog...)
}

// IsSupported reports whether id names a known voice.
func IsSupported(id string) bool {
	for _, v := range catalog {
		if v.ID == id {
			return true
		}
	}
	return false
}
