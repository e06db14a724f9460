package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	// orderCodeAttempts bounds GenerateUnique. The code space is deliberately
	// small so codes stay readable; exhaustion is a rare hard failure, not
	// something to retry indefinitely.
	orderCodeAttempts = 10
)

// OrderCodeGenerator produces the short numeric codes customers see on their
// orders. A code is 8 digits: 4 from the clock, 4 random, which keeps
// collisions unlikely without making the code unwieldy. Uniqueness is still
// re-checked at insert time by the order_code unique index, because
// check-then-insert is not atomic against concurrent order creation.
type OrderCodeGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewOrderCodeGenerator creates a generator seeded from the clock.
func NewOrderCodeGenerator() *OrderCodeGenerator {
	return &OrderCodeGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate produces one candidate 8-digit code.
func (g *OrderCodeGenerator) Generate() string {
	g.mu.Lock()
	n := g.rng.Intn(10000)
	g.mu.Unlock()
	return fmt.Sprintf("%04d%04d", time.Now().Unix()%10000, n)
}

// GenerateUnique produces a code for which existsFn reports false, retrying
// up to the attempt bound. It returns ErrCodeGenerationExhausted when every
// attempt collided.
func (g *OrderCodeGenerator) GenerateUnique(existsFn func(code string) (bool, error)) (string, error) {
	for i := 0; i < orderCodeAttempts; i++ {
		code := g.Generate()
		exists, err := existsFn(code)
		if err != nil {
			return "", fmt.Errorf("failed to check order code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}
