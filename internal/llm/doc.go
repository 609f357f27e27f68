// Package llm implements pass 2 of categorization: a language model scores a transaction
// against the prompt-eligible categories. It supports OpenAI and Anthropic, with rate
// limiting and response caching. Retrying is left to callers (see RetryingScorer).
package llm
