package statcan

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/robertsoden/ontario-environmental-data/internal/geo"
)

// community holds the known location and metadata of one Williams Treaty
// First Nation. These are approximate fallback coordinates; official reserve
// polygons come from ReserveBoundaries when the upstream service cooperates.
type community struct {
	FirstNation          string
	ReserveName          string
	Treaty               string
	TreatyDate           string
	TraditionalTerritory string
	Population           int
	AreaHectares         float64
	Website              string
	Lat                  float64
	Lon                  float64
}

var williamsTreatyCommunities = []community{
	{
		FirstNation:          "Alderville First Nation",
		ReserveName:          "Alderville 35",
		Treaty:               "Williams Treaty (1923)",
		TreatyDate:           "1923-10-31",
		TraditionalTerritory: "Rice Lake, Northumberland County",
		Population:           1100,
		AreaHectares:         1200.0,
		Website:              "https://www.aldervillefirstnation.ca",
		Lat:                  44.1194,
		Lon:                  -78.0753,
	},
	{
		FirstNation:          "Curve Lake First Nation",
		ReserveName:          "Curve Lake 35",
		Treaty:               "Williams Treaty (1923)",
		TreatyDate:           "1923-10-31",
		TraditionalTerritory: "Kawartha Lakes region",
		Population:           2200,
		AreaHectares:         800.0,
		Website:              "https://www.curvelakefirstnation.ca",
		Lat:                  44.5319,
		Lon:                  -78.2289,
	},
	{
		FirstNation:          "Hiawatha First Nation",
		ReserveName:          "Hiawatha 36",
		Treaty:               "Williams Treaty (1923)",
		TreatyDate:           "1923-10-31",
		TraditionalTerritory: "Rice Lake, near Peterborough",
		Population:           600,
		AreaHectares:         400.0,
		Website:              "https://www.hiawathafirstnation.com",
		Lat:                  44.2486,
		Lon:                  -78.1581,
	},
	{
		FirstNation:          "Mississaugas of Scugog Island First Nation",
		ReserveName:          "Scugog Island 34",
		Treaty:               "Williams Treaty (1923)",
		TreatyDate:           "1923-10-31",
		TraditionalTerritory: "Scugog Island, Lake Scugog",
		Population:           275,
		AreaHectares:         324.0,
		Website:              "https://www.scugogfirstnation.com",
		Lat:                  44.1178,
		Lon:                  -78.9017,
	},
	{
		FirstNation:          "Chippewas of Beausoleil First Nation",
		ReserveName:          "Chimnissing 1",
		Treaty:               "Williams Treaty (1923)",
		TreatyDate:           "1923-10-31",
		TraditionalTerritory: "Christian Island, Georgian Bay",
		Population:           1900,
		AreaHectares:         1360.0,
		Website:              "https://www.chimnissing.ca",
		Lat:                  44.8194,
		Lon:                  -80.0092,
	},
	{
		FirstNation:          "Chippewas of Georgina Island First Nation",
		ReserveName:          "Georgina Island 33",
		Treaty:               "Williams Treaty (1923)",
		TreatyDate:           "1923-10-31",
		TraditionalTerritory: "Georgina Island, Lake Simcoe",
		Population:           750,
		AreaHectares:         505.0,
		Website:              "https://www.georginaisland.com",
		Lat:                  44.3392,
		Lon:                  -79.3483,
	},
	{
		FirstNation:          "Chippewas of Rama First Nation",
		ReserveName:          "Rama 32",
		Treaty:               "Williams Treaty (1923)",
		TreatyDate:           "1923-10-31",
		TraditionalTerritory: "Lake Couchiching, Rama",
		Population:           950,
		AreaHectares:         932.0,
		Website:              "https://www.ramafirstnation.ca",
		Lat:                  44.6156,
		Lon:                  -79.3014,
	},
}

// CommunityPoints builds the Williams Treaty community point collection.
func CommunityPoints() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range williamsTreatyCommunities {
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties = geojson.Properties{
			"first_nation":          c.FirstNation,
			"reserve_name":          c.ReserveName,
			"treaty":                c.Treaty,
			"treaty_date":           c.TreatyDate,
			"traditional_territory": c.TraditionalTerritory,
			"population":            c.Population,
			"area_hectares":         c.AreaHectares,
			"website":               c.Website,
			"province":              "ON",
			"data_source":           "Approximate locations - verify with official sources",
		}
		fc.Append(f)
	}
	return fc
}

// WriteCommunityPoints writes the community point collection to path and
// returns the feature count.
func WriteCommunityPoints(path string) (int, error) {
	fc := CommunityPoints()
	if err := geo.WriteFeatureCollection(path, fc); err != nil {
		return 0, err
	}
	return len(fc.Features), nil
}
