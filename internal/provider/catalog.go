package provider

import (
	"strings"

	"chatai-router/internal/models"
)

// CatalogEntry describes the models whose identifier contains Pattern.
type CatalogEntry struct {
	Pattern      string
	Name         string
	Pricing      models.Pricing
	Capabilities models.Capabilities
}

// Catalog is the static model table of one provider family.
type Catalog struct {
	Provider string
	Entries  []CatalogEntry
	// Fallback applies to identifiers no entry matches.
	Fallback CatalogEntry
}

// ModelOverride carries operator supplied metadata that wins over the catalog.
type ModelOverride struct {
	Name         string
	Pricing      *models.Pricing
	Capabilities *models.Capabilities
}

// Lookup finds the entry with the longest pattern contained in modelID.
func (c Catalog) Lookup(modelID string) (CatalogEntry, bool) {
	id := strings.ToLower(modelID)

	var (
		best  CatalogEntry
		found bool
	)
	for _, entry := range c.Entries {
		if !strings.Contains(id, entry.Pattern) {
			continue
		}
		if !found || len(entry.Pattern) > len(best.Pattern) {
			best, found = entry, true
		}
	}
	if !found {
		return c.Fallback, false
	}
	return best, true
}

// Resolve combines the catalog entry for modelID with override. priced is
// false when the pricing is the family fallback rather than a known or
// operator supplied price.
func (c Catalog) Resolve(modelID string, override ModelOverride) (info models.ModelInfo, priced bool) {
	entry, matched := c.Lookup(modelID)

	info = models.ModelInfo{
		ID:           modelID,
		Name:         entry.Name,
		Provider:     c.Provider,
		Capabilities: entry.Capabilities,
		Pricing:      entry.Pricing,
	}
	if !matched {
		info.Name = entry.Name + " (" + modelID + ")"
	}

	if override.Name != "" {
		info.Name = override.Name
	}
	if override.Capabilities != nil {
		info.Capabilities = *override.Capabilities
	}
	if override.Pricing != nil {
		info.Pricing = *override.Pricing
		return info, true
	}
	return info, matched
}
