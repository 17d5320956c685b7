// Package resolver provides the static agent directory, the HTTP client for
// the resolver-agent boundary, and the concurrent quote solicitor.
package resolver

import (
	"github.com/xfusionlabs/coordinator/internal/domain"
)

// Directory is the static registry of known resolver agents. It is read-only
// after construction and safe for concurrent use.
type Directory struct {
	resolvers []domain.ResolverInfo
	byID      map[string]domain.ResolverInfo
}

// NewDirectory builds a Directory from the configured resolver list.
// Iteration order follows the input order; the selector's tie-break depends
// on this being stable.
func NewDirectory(resolvers []domain.ResolverInfo) *Directory {
	byID := make(map[string]domain.ResolverInfo, len(resolvers))
	for _, r := range resolvers {
		byID[r.ID] = r
	}
	return &Directory{
		resolvers: resolvers,
		byID:      byID,
	}
}

// All returns the registered agents in registration order. The returned
// slice is a copy.
func (d *Directory) All() []domain.ResolverInfo {
	out := make([]domain.ResolverInfo, len(d.resolvers))
	copy(out, d.resolvers)
	return out
}

// ByID looks up an agent by its ledger identity.
func (d *Directory) ByID(id string) (domain.ResolverInfo, bool) {
	r, ok := d.byID[id]
	return r, ok
}

// Len returns the number of registered agents.
func (d *Directory) Len() int {
	return len(d.resolvers)
}
