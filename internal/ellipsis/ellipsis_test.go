package ellipsis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadenza/internal/intent"
)

func templateByID(t *testing.T, id string) Template {
	t.Helper()
	for _, tmpl := range DefaultTemplates() {
		if tmpl.ID == id {
			return tmpl
		}
	}
	t.Fatalf("no template %q in catalog", id)
	return Template{}
}

func f64(v float64) *float64 { return &v }

func priorGoal() intent.Goal {
	return intent.Goal{
		ID:        "goal-1",
		Axis:      "brightness",
		Direction: intent.DirectionIncrease,
		Target:    &intent.Amount{Kind: intent.AmountRelative, Value: f64(10)},
		Scope:     &intent.Scope{Kind: "section", Section: "chorus"},
	}
}

func lastAction() *Antecedent {
	return &Antecedent{Kind: AntecedentLastAction, MeaningIDs: []string{"goal-1"}, Description: "brighten the chorus"}
}

func TestDetectMatchesEachTemplateOnce(t *testing.T) {
	catalog := DefaultTemplates()

	// "again" and "one more time" both belong to do-that-again; the
	// template must come back once.
	got := Detect("One More Time, AGAIN please", catalog)
	require.Len(t, got, 1)
	assert.Equal(t, "do-that-again", got[0].ID)
}

func TestDetectIndependentTemplatesBothFire(t *testing.T) {
	got := Detect("do that again but a bit more", DefaultTemplates())

	ids := make([]string, len(got))
	for i, tmpl := range got {
		ids[i] = tmpl.ID
	}
	assert.Contains(t, ids, "do-that-again")
	assert.Contains(t, ids, "a-bit-more")
}

func TestDetectNoTriggers(t *testing.T) {
	assert.Empty(t, Detect("brighten the chorus by 3 dB", DefaultTemplates()))
}

func TestResolveWithoutAntecedent(t *testing.T) {
	tmpl := templateByID(t, "do-that-again")

	res := Resolve(tmpl, nil, []intent.Goal{priorGoal()})
	assert.False(t, res.Resolved)
	assert.Contains(t, res.Explanation, string(AntecedentLastAction))
	assert.NotEmpty(t, res.ProvenanceNote)

	res = Resolve(tmpl, lastAction(), nil)
	assert.False(t, res.Resolved)
	assert.Empty(t, res.Goals)
	assert.NotEmpty(t, res.ProvenanceNote)
}

func TestIdentityRepeatsGoalsUntouched(t *testing.T) {
	prior := []intent.Goal{priorGoal()}
	res := Resolve(templateByID(t, "do-that-again"), lastAction(), prior)

	require.True(t, res.Resolved)
	if diff := cmp.Diff(prior, res.Goals); diff != "" {
		t.Errorf("identity changed the goals (-prior +got):\n%s", diff)
	}

	// The returned goals are copies: mutating them must not leak back.
	*res.Goals[0].Target.Value = 999
	assert.Equal(t, 10.0, *prior[0].Target.Value)
}

func TestScaleAmountDoublesTarget(t *testing.T) {
	prior := []intent.Goal{priorGoal()}
	res := Resolve(templateByID(t, "much-more"), lastAction(), prior)

	require.True(t, res.Resolved)
	require.Len(t, res.Goals, 1)
	got := res.Goals[0]
	assert.Equal(t, 20.0, *got.Target.Value)

	// Everything except the amount value is untouched.
	want := priorGoal()
	*want.Target.Value = 20
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scale touched more than the amount (-want +got):\n%s", diff)
	}
}

func TestScaleAmountReachesSubgoalsAndSkipsQualitative(t *testing.T) {
	prior := []intent.Goal{{
		ID:        "goal-1",
		Axis:      "energy",
		Direction: intent.DirectionIncrease,
		Target:    &intent.Amount{Kind: intent.AmountQualitative, Qualifier: "a little"},
		Subgoals: []intent.Goal{{
			ID:        "goal-2",
			Axis:      "drive",
			Direction: intent.DirectionIncrease,
			Target:    &intent.Amount{Kind: intent.AmountPercentage, Value: f64(20)},
		}},
	}}

	res := Resolve(templateByID(t, "half-as-much"), lastAction(), prior)

	require.True(t, res.Resolved)
	assert.Nil(t, res.Goals[0].Target.Value, "qualitative amount stays non-numeric")
	assert.Equal(t, 10.0, *res.Goals[0].Subgoals[0].Target.Value)
}

func TestChangeDirectionFlipsAndMarksID(t *testing.T) {
	prior := []intent.Goal{priorGoal()}
	res := Resolve(templateByID(t, "the-other-way"), lastAction(), prior)

	require.True(t, res.Resolved)
	got := res.Goals[0]
	assert.Equal(t, intent.DirectionDecrease, got.Direction)
	assert.Equal(t, "goal-1-reversed", got.ID)

	// Applying the reversal twice flips the direction back but keeps
	// stacking id suffixes; the ids are deliberately not idempotent.
	res2 := Resolve(templateByID(t, "the-other-way"), lastAction(), res.Goals)
	assert.Equal(t, intent.DirectionIncrease, res2.Goals[0].Direction)
	assert.Equal(t, "goal-1-reversed-reversed", res2.Goals[0].ID)
}

func TestChangeDirectionLeavesSetAlone(t *testing.T) {
	prior := []intent.Goal{{ID: "goal-1", Axis: "level", Direction: intent.DirectionSet}}
	res := Resolve(templateByID(t, "the-other-way"), lastAction(), prior)

	require.True(t, res.Resolved)
	assert.Equal(t, intent.DirectionSet, res.Goals[0].Direction)
	assert.Equal(t, "goal-1-reversed", res.Goals[0].ID)
}

func TestPartialTransformationsPassGoalsThrough(t *testing.T) {
	prior := []intent.Goal{priorGoal()}
	for _, id := range []string{"rescope-last", "soften-modifier", "strip-modifier", "stack-with-prior", "take-it-back"} {
		t.Run(id, func(t *testing.T) {
			res := Resolve(templateByID(t, id), lastAction(), prior)

			require.True(t, res.Resolved)
			assert.Contains(t, res.Explanation, "additional context")
			if diff := cmp.Diff(prior, res.Goals); diff != "" {
				t.Errorf("partial transformation rewrote goals (-prior +got):\n%s", diff)
			}
		})
	}
}

func TestUnknownTransformationKind(t *testing.T) {
	tmpl := Template{
		ID:             "bogus",
		Name:           "Bogus",
		Triggers:       []string{"bogus"},
		Requires:       AntecedentLastAction,
		Transformation: Transformation{Kind: "teleport"},
	}
	res := Resolve(tmpl, lastAction(), []intent.Goal{priorGoal()})

	assert.False(t, res.Resolved)
	assert.Contains(t, res.Explanation, "teleport")
	assert.NotEmpty(t, res.ProvenanceNote)
}
