package profile

type Profile struct {
	Name        string  `json:"name" validate:"required"`
	Age         int     `json:"age" validate:"required|min:1"`
	City        string  `json:"city"`
	VehicleType string  `json:"vehicle_type"`
	Weight      float64 `json:"weight" validate:"required|gt:0"`
}

// Default is served to users who never saved a profile.
func Default() Profile {
	return Profile{
		Name:        "Rider",
		Age:         24,
		City:        "Bangalore",
		VehicleType: "Motorcycle",
		Weight:      70,
	}
}
