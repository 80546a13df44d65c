package memory

type Privacy string

const (
	Public  Privacy = "Public"
	Friends Privacy = "Friends"
	Private Privacy = "Private"
)

func (p Privacy) Valid() bool {
	switch p {
	case Public, Friends, Private:
		return true
	}
	return false
}

// Memory is a geotagged note, optionally with a photo. Memories are never
// edited or deleted.
type Memory struct {
	ID        string  `json:"id"`
	Note      string  `json:"note" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"min:-90|max:90"`
	Longitude float64 `json:"longitude" validate:"min:-180|max:180"`
	Timestamp int64   `json:"timestamp"`
	Privacy   Privacy `json:"privacy" validate:"required"`
	ImageURL  string  `json:"image_url,omitempty"`
}
