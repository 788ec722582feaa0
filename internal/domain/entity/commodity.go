package entity

// CommodityGroup is read-only reference data classifying the nature of a purchase
type CommodityGroup struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

// CommodityCategory is the presentation grouping of commodity groups
type CommodityCategory struct {
	Category string           `json:"category"`
	Groups   []CommodityGroup `json:"groups"`
}

// GroupByCategory groups commodity groups by category, keeping first-seen category order
func GroupByCategory(groups []CommodityGroup) []CommodityCategory {
	index := make(map[string]int)
	var out []CommodityCategory
	for _, g := range groups {
		i, ok := index[g.Category]
		if !ok {
			i = len(out)
			index[g.Category] = i
			out = append(out, CommodityCategory{Category: g.Category})
		}
		out[i].Groups = append(out[i].Groups, g)
	}
	return out
}
