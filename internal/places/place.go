package places

import (
	"github.com/kalambet/ecoswap/internal/advisor"
	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/relevance"
)

// Location is the caller's approximate position.
type Location struct {
	Coordinates
	City string `json:"city,omitempty"`
}

// Place is a nearby service provider.
type Place struct {
	Name         string      `json:"name"`
	Address      string      `json:"address"`
	City         string      `json:"city,omitempty"`
	Website      string      `json:"website,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	Distance     float64     `json:"distance"`
	DistanceText string      `json:"distanceText,omitempty"`
	Coordinates  Coordinates `json:"coordinates"`
	Directions   string      `json:"directions,omitempty"`
	*items.Annotation
}

func (p Place) Label() string  { return p.Name }
func (p Place) Detail() string { return p.Address }

func (p Place) WithAnnotation(a *items.Annotation) Place {
	p.Annotation = a
	return p
}

var recycleCategories = map[advisor.Category]string{
	advisor.CategoryEWaste:  "service.recycling.centre,service.recycling,commercial.elektronics",
	advisor.CategoryFashion: "commercial.clothing,commercial.second_hand",
	advisor.CategoryTools:   "commercial.houseware_and_hardware.hardware_and_tools,commercial.houseware_and_hardware",
}

var repairCategories = map[advisor.Category]string{
	advisor.CategoryEWaste:  "service.vehicle.repair,service.vehicle.repair.car",
	advisor.CategoryFashion: "service.tailor",
	advisor.CategoryTools:   "service.vehicle.repair,service.vehicle.repair.car",
}

// CategoriesFor returns the provider category filter for an intent and
// item category. Borrowing has no place categories.
func CategoriesFor(kind relevance.Kind, c advisor.Category) (string, bool) {
	var m map[advisor.Category]string
	switch kind {
	case relevance.KindRecycle:
		m = recycleCategories
	case relevance.KindRepair:
		m = repairCategories
	default:
		return "", false
	}
	s, ok := m[c]
	return s, ok
}
