package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exampleJSON returns the body of the first ```json fence in an instruction.
func exampleJSON(t *testing.T, instruction string) string {
	t.Helper()
	start := strings.Index(instruction, "```json\n")
	require.NotEqual(t, -1, start)
	body := instruction[start+len("```json\n"):]
	end := strings.Index(body, "```")
	require.NotEqual(t, -1, end)
	return body[:end]
}

func TestInstructionExamplesParse(t *testing.T) {
	parser := newTestParser(t)

	for _, variant := range DefaultVariants(DefaultGenerationConfig()) {
		t.Run(variant.Name, func(t *testing.T) {
			outcome := parser.Parse(exampleJSON(t, variant.Instruction), variant.Shape)
			assert.False(t, outcome.Failed(), "example does not parse: %+v", outcome.Error)
		})
	}
}
