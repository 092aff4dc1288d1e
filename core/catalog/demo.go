package catalog

import "Bpsb/model"

// DemoAlbums is the built-in catalog used when no fixture file is configured.
func DemoAlbums() []model.Album {
	return []model.Album{
		{
			ID:          "alternate-skies",
			Title:       "Alternate Skies",
			Artist:      "benpstokerbeats",
			Cover:       "/placeholder.svg",
			Year:        2024,
			Description: "Lo-fi beats for rainy afternoons.",
			Tracks: []model.Track{
				{ID: "1", Title: "Rainy Day Rainbow", Artist: "benpstokerbeats", Album: "Alternate Skies", Duration: 180, Src: "/audio/track1.wav", Cover: "/placeholder.svg", IsLossless: true},
				{ID: "2", Title: "Cool Summer Nights", Artist: "benpstokerbeats", Album: "Alternate Skies", Duration: 200, Src: "/audio/track2.wav", Cover: "/placeholder.svg", IsLossless: true},
			},
		},
		{
			ID:     "rainy-day-rainbow",
			Title:  "Rainy Day Rainbow",
			Artist: "benpstokerbeats",
			Cover:  "/placeholder.svg",
			Year:   2023,
			Tracks: []model.Track{
				{ID: "3", Title: "Sunny City Day", Artist: "benpstokerbeats", Album: "Rainy Day Rainbow", Duration: 190, Src: "/audio/track3.wav", Cover: "/placeholder.svg", IsLossless: true},
			},
		},
	}
}
