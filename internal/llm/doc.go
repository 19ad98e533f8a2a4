// Package llm provides the text generators behind insight generation: AWS
// Bedrock (Anthropic models), OpenAI-compatible chat completions and a circuit
// breaking wrapper that keeps a failing provider from stalling analyses.
//
// Every generator satisfies learning.TextGenerator. None of them interpret the
// returned text; parsing and fallback stay with the learning engine.
package llm
