package services_test

import (
	"fmt"
	"testing"

	"sunamo/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderCodeGenerator_Generate(t *testing.T) {
	gen := services.NewOrderCodeGenerator()

	code := gen.Generate()
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code %s contains non-digit %q", code, r)
	}
}

func TestOrderCodeGenerator_GenerateUnique_RetriesPastCollisions(t *testing.T) {
	gen := services.NewOrderCodeGenerator()

	// First 3 candidates collide, the 4th is free.
	attempts := 0
	code, err := gen.GenerateUnique(func(code string) (bool, error) {
		attempts++
		return attempts <= 3, nil
	})

	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 4, attempts)
}

func TestOrderCodeGenerator_GenerateUnique_NeverReturnsTakenCode(t *testing.T) {
	gen := services.NewOrderCodeGenerator()

	taken := make(map[string]bool)
	existsFn := func(code string) (bool, error) {
		return taken[code], nil
	}

	for i := 0; i < 50; i++ {
		code, err := gen.GenerateUnique(existsFn)
		require.NoError(t, err)
		assert.False(t, taken[code], "GenerateUnique returned an already-taken code %s", code)
		taken[code] = true
	}
}

func TestOrderCodeGenerator_GenerateUnique_Exhaustion(t *testing.T) {
	gen := services.NewOrderCodeGenerator()

	attempts := 0
	code, err := gen.GenerateUnique(func(code string) (bool, error) {
		attempts++
		return true, nil // every candidate collides
	})

	assert.ErrorIs(t, err, services.ErrCodeGenerationExhausted)
	assert.Empty(t, code)
	assert.Equal(t, 10, attempts)
}

func TestOrderCodeGenerator_GenerateUnique_ExistsError(t *testing.T) {
	gen := services.NewOrderCodeGenerator()

	code, err := gen.GenerateUnique(func(code string) (bool, error) {
		return false, fmt.Errorf("storage down")
	})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrCodeGenerationExhausted)
	assert.Empty(t, code)
}
