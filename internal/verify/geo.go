package verify

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p is a finite coordinate on the globe.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

var cityReferences = map[string]Point{
	"toronto":       {43.651070, -79.347015},
	"montreal":      {45.501689, -73.567256},
	"vancouver":     {49.282729, -123.120738},
	"ottawa":        {45.421530, -75.697193},
	"calgary":       {51.044733, -114.071883},
	"edmonton":      {53.546125, -113.493823},
	"winnipeg":      {49.895136, -97.138374},
	"halifax":       {44.648766, -63.575237},
	"new york":      {40.712776, -74.005974},
	"los angeles":   {34.052235, -118.243683},
	"chicago":       {41.878113, -87.629799},
	"san francisco": {37.774929, -122.419418},
	"seattle":       {47.606209, -122.332071},
	"boston":        {42.360082, -71.058880},
	"washington":    {38.907192, -77.036871},
	"london":        {51.507351, -0.127758},
	"paris":         {48.856613, 2.352222},
	"berlin":        {52.520008, 13.404954},
	"tehran":        {35.689198, 51.388974},
	"nairobi":       {-1.292066, 36.821946},
	"lagos":         {6.524379, 3.379206},
	"johannesburg":  {-26.204103, 28.047305},
	"mexico city":   {19.432608, -99.133209},
	"sydney":        {-33.868820, 151.209296},
}

var cityAliases = map[string]string{
	"new york city":    "new york",
	"nyc":              "new york",
	"la":               "los angeles",
	"sf":               "san francisco",
	"washington dc":    "washington",
	"washington d.c.":  "washington",
	"montréal":         "montreal",
	"ciudad de méxico": "mexico city",
}

// NormalizeCity lowercases city, collapses whitespace and drops anything
// after the first comma ("Toronto, ON" → "toronto").
func NormalizeCity(city string) string {
	if i := strings.IndexByte(city, ','); i != -1 {
		city = city[:i]
	}
	city = strings.Join(strings.Fields(strings.ToLower(city)), " ")
	if alias, ok := cityAliases[city]; ok {
		return alias
	}
	return city
}

// CityReference returns the fixed reference point for city.
func CityReference(city string) (Point, bool) {
	p, ok := cityReferences[NormalizeCity(city)]
	return p, ok
}

// MapURL links to a map centred on p.
func MapURL(p Point) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%.6f,%.6f", p.Lat, p.Lng)
}

// AddressMapURL links to a map search for a free-text address, qualified by
// city when the address does not already mention it. Returns "" when address
// is empty.
func AddressMapURL(address, city string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	city = strings.TrimSpace(city)
	q := address
	if city != "" && !strings.Contains(strings.ToLower(address), strings.ToLower(city)) {
		q = address + ", " + city
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}
