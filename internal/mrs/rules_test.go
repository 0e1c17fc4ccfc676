package mrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		predicate string
		want      QuantClass
	}{
		{"every_q", ClassUniversal},
		{"all_q_rel", ClassUniversal},
		{"some_q", ClassExistential},
		{"a_q", ClassExistential},
		{"the_q_chorus", ClassDefinite},
		{"no_q", ClassNegation},
		{"not", ClassNegation},
		{"brighten_v", ClassNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(EP{Predicate: tc.predicate}), "predicate %q", tc.predicate)
	}
}

func TestRuleMatches(t *testing.T) {
	every := EP{ID: "ep-1", Predicate: "every_q"}
	someEP := EP{ID: "ep-2", Predicate: "some_q"}
	theChorus := EP{ID: "ep-3", Predicate: "the_q", SourceText: "the chorus"}
	surface := []EP{every, someEP, theChorus}

	rules := map[string]ScopeRule{}
	for _, r := range DefaultScopeRules() {
		rules[r.ID] = r
	}

	cases := []struct {
		name     string
		ruleID   string
		ordering []EP
		prior    *PriorContext
		want     bool
	}{
		{"surface order kept", "surface-order-default", []EP{every, someEP, theChorus}, nil, true},
		{"surface order broken", "surface-order-default", []EP{someEP, every, theChorus}, nil, false},
		{"universal widest", "universal-wide-scope", []EP{every, someEP, theChorus}, nil, true},
		{"universal not widest", "universal-wide-scope", []EP{theChorus, someEP, every}, nil, false},
		{"existential narrowest", "existential-narrow-scope", []EP{every, theChorus, someEP}, nil, true},
		{"definite widest", "definite-widest", []EP{theChorus, every, someEP}, nil, true},
		{"section term widest", "musical-section-scope", []EP{theChorus, every, someEP}, nil, true},
		{"section term buried", "musical-section-scope", []EP{every, theChorus, someEP}, nil, false},
		{"prior wide hit", "preserve-wide-scope", []EP{someEP, every, theChorus}, &PriorContext{WideScopePredicates: []string{"SOME_Q"}}, true},
		{"prior wide without context", "preserve-wide-scope", []EP{someEP, every, theChorus}, nil, false},
		{"empty ordering", "surface-order-default", nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rules[tc.ruleID].Matches(tc.ordering, surface, tc.prior)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultScopeRulesReturnsFreshSlice(t *testing.T) {
	a := DefaultScopeRules()
	b := DefaultScopeRules()
	a[0].ConfidenceBoost = 99

	assert.NotEqual(t, a[0].ConfidenceBoost, b[0].ConfidenceBoost)
	assert.Len(t, b, 8)
}
