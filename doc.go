// Package ada implements an iterative search-then-answer engine.
//
// A request flows through a bounded control loop: a planner model turns the
// question into web search queries, a search-and-scrape pipeline gathers
// page text, an evaluator model decides whether the material answers the
// question, and the loop repeats (up to four iterations) until it does.
// The final answer streams from a synthesis model along with typed progress
// events.
//
// The root package holds the engine, the Provider abstraction and its
// retry/rate-limit wrappers, and the planner/evaluator stages. Subpackages
// supply the concrete edges: search (backend chain), scrape (extraction and
// the parallel pipeline), provider/openaicompat (LLM transport), server
// (HTTP API), store/sqlite and store/postgres (turn history), and observer
// (OTEL instrumentation).
package ada
