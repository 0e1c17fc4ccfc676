package ellipsis

// DefaultTemplates returns the built-in ellipsis catalog. Callers get a
// fresh slice each time; the catalog registry may append extension
// templates loaded from YAML.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID:             "do-that-again",
			Name:           "Do that again",
			Category:       CategoryRepetition,
			Triggers:       []string{"do that again", "do it again", "one more time", "again"},
			Requires:       AntecedentLastAction,
			Transformation: Transformation{Kind: TransformIdentity},
			Example:        "boost the highs... do that again",
			Explanation:    "Repeat the previous action exactly.",
		},
		{
			ID:             "same-thing",
			Name:           "Same thing",
			Category:       CategoryRepetition,
			Triggers:       []string{"same thing", "same as before", "like before", "like last time"},
			Requires:       AntecedentLastAction,
			Transformation: Transformation{Kind: TransformIdentity},
			Example:        "same thing on the bridge",
			Explanation:    "Repeat the previous action exactly.",
		},
		{
			ID:             "keep-going",
			Name:           "Keep going",
			Category:       CategoryContinuation,
			Triggers:       []string{"keep going", "keep doing that", "more of that"},
			Requires:       AntecedentLastAction,
			Transformation: Transformation{Kind: TransformIdentity},
			Example:        "that's working, keep going",
			Explanation:    "Apply the previous action once more.",
		},
		{
			ID:             "a-bit-more",
			Name:           "A bit more",
			Category:       CategoryIntensification,
			Triggers:       []string{"a bit more", "a little more", "slightly more", "a touch more"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformScaleAmount, Params: map[string]float64{"factor": 1.25}},
			Example:        "brighter by 2 dB... a bit more",
			Explanation:    "Repeat the previous goal with the amount scaled up slightly.",
		},
		{
			ID:             "even-more",
			Name:           "Even more",
			Category:       CategoryIntensification,
			Triggers:       []string{"even more", "more than that"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformScaleAmount, Params: map[string]float64{"factor": 1.5}},
			Example:        "push it even more",
			Explanation:    "Repeat the previous goal with the amount scaled up.",
		},
		{
			ID:             "much-more",
			Name:           "Much more",
			Category:       CategoryIntensification,
			Triggers:       []string{"much more", "way more", "a lot more", "double that"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformScaleAmount, Params: map[string]float64{"factor": 2.0}},
			Example:        "way more reverb",
			Explanation:    "Repeat the previous goal with the amount doubled.",
		},
		{
			ID:             "a-bit-less",
			Name:           "A bit less",
			Category:       CategoryAttenuation,
			Triggers:       []string{"a bit less", "a little less", "slightly less", "not quite that much"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformScaleAmount, Params: map[string]float64{"factor": 0.75}},
			Example:        "ok but a bit less",
			Explanation:    "Repeat the previous goal with the amount scaled down slightly.",
		},
		{
			ID:             "half-as-much",
			Name:           "Half as much",
			Category:       CategoryAttenuation,
			Triggers:       []string{"half as much", "half that", "halve it"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformScaleAmount, Params: map[string]float64{"factor": 0.5}},
			Example:        "half as much compression",
			Explanation:    "Repeat the previous goal with the amount halved.",
		},
		{
			ID:             "the-other-way",
			Name:           "The other way",
			Category:       CategoryReversal,
			Triggers:       []string{"the other way", "other direction", "opposite", "reverse that"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformChangeDirection},
			Example:        "no, the other way",
			Explanation:    "Repeat the previous goal with its direction flipped.",
		},
		{
			ID:             "rescope-last",
			Name:           "Same but elsewhere",
			Category:       CategoryModification,
			Triggers:       []string{"same but", "but in the", "this time in", "there too"},
			Requires:       AntecedentLastScope,
			Transformation: Transformation{Kind: TransformChangeScope},
			Example:        "same but in the verse",
			Explanation:    "Repeat the previous goal over a different region.",
		},
		{
			ID:             "soften-modifier",
			Name:           "But gentler",
			Category:       CategoryModification,
			Triggers:       []string{"but gentler", "but subtler", "but softer", "but smoother"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformAddModifier},
			Example:        "do that but gentler",
			Explanation:    "Repeat the previous goal with an added qualifier.",
		},
		{
			ID:             "strip-modifier",
			Name:           "Without the extra",
			Category:       CategoryModification,
			Triggers:       []string{"without the", "but not the", "drop the"},
			Requires:       AntecedentLastGoal,
			Transformation: Transformation{Kind: TransformRemoveModifier},
			Example:        "same move without the delay",
			Explanation:    "Repeat the previous goal minus one of its qualifiers.",
		},
		{
			ID:             "stack-with-prior",
			Name:           "And also",
			Category:       CategoryContinuation,
			Triggers:       []string{"and also", "on top of that", "as well", "plus"},
			Requires:       AntecedentFullContext,
			Transformation: Transformation{Kind: TransformCombineWithPrior},
			Example:        "and also tighten the low end",
			Explanation:    "Combine a new goal with the standing ones.",
		},
		{
			ID:             "take-it-back",
			Name:           "Take that back",
			Category:       CategoryReversal,
			Triggers:       []string{"take that back", "undo that", "never mind that", "scratch that"},
			Requires:       AntecedentLastAction,
			Transformation: Transformation{Kind: TransformNegate},
			Example:        "actually, scratch that",
			Explanation:    "Withdraw the previous action.",
		},
	}
}
