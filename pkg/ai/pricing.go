package ai

// Price per million tokens, USD.
type modelPrice struct {
	input  float64
	output float64
}

var prices = map[string]modelPrice{
	"gemini-1.5-flash": {input: 0.075, output: 0.30},
	"gemini-1.5-pro":   {input: 1.25, output: 5.00},
	"gemini-2.0-flash": {input: 0.10, output: 0.40},
	"gemini-2.5-flash": {input: 0.30, output: 2.50},
}

// Cost prices a usage sample for the given model. Unknown models are
// billed at the default model's rate.
func (u Usage) Cost(model string) float64 {
	p, ok := prices[model]
	if !ok {
		p = prices[DefaultModel]
	}
	const million = 1_000_000
	return float64(u.InputTokens)/million*p.input + float64(u.OutputTokens)/million*p.output
}
