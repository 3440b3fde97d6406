package engine

import "github.com/tartampluch/go-cardology/internal/config"

// ActivityEntry is the per-card record of the activities table.
type ActivityEntry struct {
	EntrepreneurialActivation string `json:"entrepreneurialActivation" yaml:"entrepreneurialActivation"`
}

// ActivationResolver returns the entrepreneurial activation text of a card.
type ActivationResolver struct {
	table map[string]ActivityEntry
}

func NewActivationResolver(table map[string]ActivityEntry) *ActivationResolver {
	return &ActivationResolver{table: table}
}

// Activation returns the card's activation text, or a fixed fallback sentence.
func (r *ActivationResolver) Activation(card string) string {
	entry, ok := r.table[card]
	if !ok || entry.EntrepreneurialActivation == "" {
		return config.FallbackActivation
	}
	return entry.EntrepreneurialActivation
}
