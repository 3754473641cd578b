package gemini

import (
	"math/rand/v2"

	"google.golang.org/genai"
)

// generationConfig returns the request configuration for a script prompt.
func (c *Client) generationConfig() *genai.GenerateContentConfig {
	c.mu.RLock()
	base, jitter := c.temperatureBase, c.temperatureJitter
	c.mu.RUnlock()

	cfg := &genai.GenerateContentConfig{}
	if base > 0 {
		temp := sampleTemperature(base, jitter)
		cfg.Temperature = &temp
	}
	return cfg
}

// sampleTemperature samples from a normal distribution centered on base
// with σ = jitter/2, clamped to [base-jitter, base+jitter] and at least 0.1.
func sampleTemperature(base, jitter float32) float32 {
	if jitter <= 0 {
		return base
	}

	sigma := float64(jitter) / 2.0
	sample := float64(base) + rand.NormFloat64()*sigma

	minTemp := float64(base) - float64(jitter)
	maxTemp := float64(base) + float64(jitter)
	sample = max(minTemp, min(sample, maxTemp))

	return float32(max(sample, 0.1))
}
