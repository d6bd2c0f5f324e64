// Package location holds the distance, delivery-time and delivery-fee helpers used by the catalog.
package location

import (
	"fmt"
	"math"
	"sort"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

const (
	earthRadiusKm   = 6371.0
	DefaultRadiusKm = 50.0
)

// DistanceKm is the great-circle distance between two points (Haversine).
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func Between(a, b domain.GeoPoint) float64 {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func EstimateDeliveryTime(distanceKm float64) string {
	switch {
	case distanceKm <= 5:
		return "Same day"
	case distanceKm <= 15:
		return "Next day"
	case distanceKm <= 30:
		return "1-2 days"
	case distanceKm <= 50:
		return "2-3 days"
	}
	return "3-5 days"
}

// DeliveryFee is a flat fee per distance band, in the marketplace currency.
func DeliveryFee(distanceKm float64) int {
	switch {
	case distanceKm <= 5:
		return 0
	case distanceKm <= 15:
		return 50
	case distanceKm <= 30:
		return 100
	}
	return 150
}

func FormatDistance(distanceKm float64) string {
	if distanceKm < 1 {
		return fmt.Sprintf("%dm", int(math.Round(distanceKm*1000)))
	}
	return fmt.Sprintf("%.1fkm", distanceKm)
}

// Nearby is a material annotated with its distance from the caller.
type Nearby struct {
	domain.Material
	Distance     float64 `json:"distance"`
	DeliveryTime string  `json:"deliveryTime"`
	DeliveryFee  int     `json:"deliveryFee"`
	CanDeliver   bool    `json:"canDeliver"`
}

// CanDeliver reports whether from lies inside the supplier's delivery radius. A zero radius
// means the supplier did not publish one and only the search radius applies.
func CanDeliver(m domain.Material, from domain.GeoPoint) bool {
	if m.Location == nil {
		return false
	}
	if m.DeliveryRadiusKm == 0 {
		return true
	}
	return Between(*m.Location, from) <= m.DeliveryRadiusKm
}

// WithinRadius keeps the materials located within radiusKm of from, nearest first.
func WithinRadius(materials []domain.Material, from domain.GeoPoint, radiusKm float64) []Nearby {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	out := make([]Nearby, 0, len(materials))
	for _, m := range materials {
		if m.Location == nil {
			continue
		}
		d := Between(*m.Location, from)
		if d > radiusKm {
			continue
		}
		out = append(out, Nearby{
			Material:     m,
			Distance:     d,
			DeliveryTime: EstimateDeliveryTime(d),
			DeliveryFee:  DeliveryFee(d),
			CanDeliver:   CanDeliver(m, from),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}
