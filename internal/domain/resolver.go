package domain

// ResolverInfo is one entry in the static resolver directory: a market-making
// agent's on-ledger identity and HTTP endpoint.
type ResolverInfo struct {
	ID   string `json:"id"`   // ledger principal the agent settles under
	Name string `json:"name"` // operator-facing label, used in logs only
	URL  string `json:"url"`  // base URL exposing /quote and /execute
}
