// Package catalog holds the commodity group reference data.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
)

var commodityGroups = []entity.CommodityGroup{
	{ID: "001", Category: "General Services", Name: "Accommodation Rentals"},
	{ID: "002", Category: "General Services", Name: "Membership Fees"},
	{ID: "003", Category: "General Services", Name: "Workplace Safety"},
	{ID: "004", Category: "General Services", Name: "Consulting"},
	{ID: "005", Category: "General Services", Name: "Financial Services"},
	{ID: "006", Category: "General Services", Name: "Fleet Management"},
	{ID: "007", Category: "General Services", Name: "Recruitment Services"},
	{ID: "008", Category: "General Services", Name: "Professional Development"},
	{ID: "009", Category: "General Services", Name: "Miscellaneous Services"},
	{ID: "010", Category: "General Services", Name: "Insurance"},
	{ID: "011", Category: "Facility Management", Name: "Electrical Engineering"},
	{ID: "012", Category: "Facility Management", Name: "Facility Management Services"},
	{ID: "013", Category: "Facility Management", Name: "Security"},
	{ID: "014", Category: "Facility Management", Name: "Renovations"},
	{ID: "015", Category: "Facility Management", Name: "Office Equipment"},
	{ID: "016", Category: "Facility Management", Name: "Energy Management"},
	{ID: "017", Category: "Facility Management", Name: "Maintenance"},
	{ID: "018", Category: "Facility Management", Name: "Cafeteria and Kitchenettes"},
	{ID: "019", Category: "Facility Management", Name: "Cleaning"},
	{ID: "020", Category: "Publishing Production", Name: "Audio and Visual Production"},
	{ID: "021", Category: "Publishing Production", Name: "Books/Videos/CDs"},
	{ID: "022", Category: "Publishing Production", Name: "Printing Costs"},
	{ID: "023", Category: "Publishing Production", Name: "Software Development for Publishing"},
	{ID: "024", Category: "Publishing Production", Name: "Material Costs"},
	{ID: "025", Category: "Publishing Production", Name: "Shipping for Production"},
	{ID: "026", Category: "Publishing Production", Name: "Digital Product Development"},
	{ID: "027", Category: "Publishing Production", Name: "Pre-production"},
	{ID: "028", Category: "Publishing Production", Name: "Post-production Costs"},
	{ID: "029", Category: "Information Technology", Name: "Hardware"},
	{ID: "030", Category: "Information Technology", Name: "IT Services"},
	{ID: "031", Category: "Information Technology", Name: "Software"},
	{ID: "032", Category: "Logistics", Name: "Courier, Express, and Postal Services"},
	{ID: "033", Category: "Logistics", Name: "Warehousing and Material Handling"},
	{ID: "034", Category: "Logistics", Name: "Transportation Logistics"},
	{ID: "035", Category: "Logistics", Name: "Delivery Services"},
	{ID: "036", Category: "Marketing & Advertising", Name: "Advertising"},
	{ID: "037", Category: "Marketing & Advertising", Name: "Outdoor Advertising"},
	{ID: "038", Category: "Marketing & Advertising", Name: "Marketing Agencies"},
	{ID: "039", Category: "Marketing & Advertising", Name: "Direct Mail"},
	{ID: "040", Category: "Marketing & Advertising", Name: "Customer Communication"},
	{ID: "041", Category: "Marketing & Advertising", Name: "Online Marketing"},
	{ID: "042", Category: "Marketing & Advertising", Name: "Events"},
	{ID: "043", Category: "Marketing & Advertising", Name: "Promotional Materials"},
	{ID: "044", Category: "Production", Name: "Warehouse and Operational Equipment"},
	{ID: "045", Category: "Production", Name: "Production Machinery"},
	{ID: "046", Category: "Production", Name: "Spare Parts"},
	{ID: "047", Category: "Production", Name: "Internal Transportation"},
	{ID: "048", Category: "Production", Name: "Production Materials"},
	{ID: "049", Category: "Production", Name: "Consumables"},
	{ID: "050", Category: "Production", Name: "Maintenance and Repairs"},
}

// Static serves the built-in commodity groups
type Static struct {
	groups []entity.CommodityGroup
	byID   map[string]entity.CommodityGroup
}

// NewStatic returns the built-in catalog
func NewStatic() *Static {
	return newStatic(commodityGroups)
}

func newStatic(groups []entity.CommodityGroup) *Static {
	s := &Static{
		groups: append([]entity.CommodityGroup{}, groups...),
		byID:   make(map[string]entity.CommodityGroup, len(groups)),
	}
	for _, g := range groups {
		s.byID[g.ID] = g
	}
	return s
}

// ListCommodityGroups implements port.CommodityCatalog
func (s *Static) ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error) {
	return append([]entity.CommodityGroup{}, s.groups...), nil
}

// Get returns the group with the given id
func (s *Static) Get(id string) (entity.CommodityGroup, bool) {
	g, ok := s.byID[id]
	return g, ok
}

// Display renders "Category - Name", or "Unknown" for ids not in the catalog
func (s *Static) Display(id string) string {
	if g, ok := s.byID[id]; ok {
		return g.Category + " - " + g.Name
	}
	return "Unknown"
}

// PromptList renders one line per group for classifier prompts
func PromptList(groups []entity.CommodityGroup) string {
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "ID: %s, Category: %s, Name: %s\n", g.ID, g.Category, g.Name)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

var _ port.CommodityCatalog = (*Static)(nil)
