package metonymy

// DefaultPatterns returns the built-in metonymy catalog. Callers get a
// fresh slice each time; the catalog registry may append extension
// patterns loaded from YAML.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			ID:         "chorus",
			Expression: "the chorus",
			Triggers:   []string{"chorus"},
			Candidates: []Candidate{
				{
					ID:          "chorus-section",
					Kind:        KindSectionTimespan,
					Description: "the chorus section of the song",
					MeaningType: "section-ref",
					CueWords:    []string{"section", "part", "during", "second", "last", "first"},
					Prior:       0.55,
				},
				{
					ID:          "chorus-mix",
					Kind:        KindMixLayer,
					Description: "how the chorus sits in the mix",
					MeaningType: "mix-ref",
					CueWords:    []string{"mix", "balance", "level", "loud", "quiet"},
					Prior:       0.30,
				},
				{
					ID:          "chorus-effect",
					Kind:        KindEffect,
					Description: "the chorus modulation effect",
					MeaningType: "effect-ref",
					CueWords:    []string{"effect", "pedal", "plugin", "detune", "wet", "rate"},
					Prior:       0.25,
				},
			},
			DefaultID: "chorus-section",
			Frequency: FrequencyVeryCommon,
		},
		{
			ID:         "bass",
			Expression: "the bass",
			Triggers:   []string{"bass"},
			Candidates: []Candidate{
				{
					ID:          "bass-instrument",
					Kind:        KindTrack,
					Description: "the bass instrument track",
					MeaningType: "track-ref",
					CueWords:    []string{"guitar", "track", "player", "line", "riff", "notes"},
					Prior:       0.50,
				},
				{
					ID:          "bass-frequencies",
					Kind:        KindFrequencyBand,
					Description: "the low frequency range",
					MeaningType: "band-ref",
					CueWords:    []string{"frequency", "frequencies", "hz", "rumble", "boomy", "muddy", "eq"},
					Prior:       0.40,
				},
			},
			DefaultID: "bass-instrument",
			Frequency: FrequencyVeryCommon,
		},
		{
			ID:         "bridge",
			Expression: "the bridge",
			Triggers:   []string{"bridge"},
			Candidates: []Candidate{
				{
					ID:          "bridge-section",
					Kind:        KindSectionTimespan,
					Description: "the bridge section of the song",
					MeaningType: "section-ref",
					CueWords:    []string{"section", "part", "after", "before", "during"},
					Prior:       0.60,
				},
				{
					ID:          "bridge-harmony",
					Kind:        KindHarmony,
					Description: "the chord progression under the bridge",
					MeaningType: "harmony-ref",
					CueWords:    []string{"chord", "chords", "harmony", "progression", "key"},
					Prior:       0.25,
				},
			},
			DefaultID: "bridge-section",
			Frequency: FrequencyCommon,
		},
		{
			ID:         "keys",
			Expression: "the keys",
			Triggers:   []string{"keys"},
			Candidates: []Candidate{
				{
					ID:          "keys-instrument",
					Kind:        KindTrack,
					Description: "the keyboard track",
					MeaningType: "track-ref",
					CueWords:    []string{"piano", "keyboard", "synth", "track", "player"},
					Prior:       0.50,
				},
				{
					ID:          "keys-tonality",
					Kind:        KindHarmony,
					Description: "the key signature of the song",
					MeaningType: "harmony-ref",
					CueWords:    []string{"signature", "transpose", "pitch", "minor", "major"},
					Prior:       0.30,
				},
			},
			DefaultID: "keys-instrument",
			Frequency: FrequencyCommon,
		},
		{
			ID:         "low-end",
			Expression: "the low end",
			Triggers:   []string{"low end", "bottom end"},
			Candidates: []Candidate{
				{
					ID:          "lowend-band",
					Kind:        KindFrequencyBand,
					Description: "the low frequency band",
					MeaningType: "band-ref",
					CueWords:    []string{"eq", "hz", "frequency", "cut", "boost", "roll"},
					Prior:       0.60,
				},
				{
					ID:          "lowend-tracks",
					Kind:        KindTrack,
					Description: "the bass and kick tracks",
					MeaningType: "track-ref",
					CueWords:    []string{"kick", "bass", "drums", "tracks"},
					Prior:       0.35,
				},
			},
			DefaultID: "lowend-band",
			Frequency: FrequencyCommon,
		},
		{
			ID:         "top-end",
			Expression: "the top end",
			Triggers:   []string{"top end", "high end"},
			Candidates: []Candidate{
				{
					ID:          "topend-band",
					Kind:        KindFrequencyBand,
					Description: "the high frequency band",
					MeaningType: "band-ref",
					CueWords:    []string{"eq", "hz", "air", "sparkle", "cut", "boost"},
					Prior:       0.60,
				},
				{
					ID:          "topend-cymbals",
					Kind:        KindTrack,
					Description: "the cymbals and hats",
					MeaningType: "track-ref",
					CueWords:    []string{"cymbal", "hat", "drums", "ride"},
					Prior:       0.30,
				},
			},
			DefaultID: "topend-band",
			Frequency: FrequencyOccasional,
		},
		{
			ID:         "hook",
			Expression: "the hook",
			Triggers:   []string{"hook"},
			Candidates: []Candidate{
				{
					ID:          "hook-section",
					Kind:        KindSectionTimespan,
					Description: "the hook section of the song",
					MeaningType: "section-ref",
					CueWords:    []string{"section", "part", "during", "into"},
					Prior:       0.50,
				},
				{
					ID:          "hook-melody",
					Kind:        KindMelody,
					Description: "the hook melody line",
					MeaningType: "melody-ref",
					CueWords:    []string{"melody", "line", "notes", "tune", "sing"},
					Prior:       0.35,
				},
			},
			DefaultID: "hook-section",
			Frequency: FrequencyOccasional,
		},
	}
}
