package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepsNestUnderKeywords(t *testing.T) {
	var name string
	Given(t, "a scenario", func(t *testing.T) {
		When(t, "it runs", func(t *testing.T) {
			Then(t, "steps nest", func(t *testing.T) {
				name = t.Name()
			})
		})
	})

	assert.True(t, strings.HasSuffix(name, "/Given_a_scenario/When_it_runs/Then_steps_nest"), name)
}
