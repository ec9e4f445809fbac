// Package engine is the composition root. It reads a YAML config, builds the
// provider completers and registers the catalog agents with their middleware,
// effects and metrics. It also hands out teams, the RAG agent and the
// summarizer. Frontends talk to Engine and Session and observe activity
// through an EventBus.
package engine
