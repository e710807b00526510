package category

import "sort"

// TopLevel lists the most common top-level content categories.
var TopLevel = []string{
	"/Arts & Entertainment",
	"/Autos & Vehicles",
	"/Beauty & Fitness",
	"/Books & Literature",
	"/Business & Industrial",
	"/Computers & Electronics",
	"/Finance",
	"/Food & Drink",
	"/Games",
	"/Health",
	"/Hobbies & Leisure",
	"/Home & Garden",
	"/Internet & Telecom",
	"/Jobs & Education",
	"/Law & Government",
	"/News",
	"/Online Communities",
	"/People & Society",
	"/Pets & Animals",
	"/Real Estate",
	"/Reference",
	"/Science",
	"/Shopping",
	"/Sports",
	"/Travel",
}

// Travel lists the commonly used travel subcategories.
var Travel = []string{
	"/Travel",
	"/Travel/Air Travel",
	"/Travel/Bed & Breakfasts",
	"/Travel/Bus & Rail",
	"/Travel/Camping",
	"/Travel/Car Rental & Taxi Services",
	"/Travel/Cruises & Charters",
	"/Travel/Hotels & Accommodations",
	"/Travel/Luggage & Travel Accessories",
	"/Travel/Rail Travel",
	"/Travel/Rental Cars",
	"/Travel/Road Travel",
	"/Travel/Specialty Travel",
	"/Travel/Specialty Travel/Ecotourism",
	"/Travel/Theme Parks",
	"/Travel/Tourist Destinations",
	"/Travel/Tourist Destinations/Beaches & Islands",
	"/Travel/Tourist Destinations/Mountain & Ski Resorts",
	"/Travel/Tourist Destinations/Regional Parks & Gardens",
	"/Travel/Tourist Destinations/Theme Parks",
	"/Travel/Travel Agencies & Services",
	"/Travel/Travel Guides & Travelogues",
	"/Travel/Transports",
}

// Business lists the commonly used business subcategories.
var Business = []string{
	"/Business & Industrial",
	"/Business & Industrial/Advertising & Marketing",
	"/Business & Industrial/Business Services",
	"/Business & Industrial/Hospitality Industry",
}

// All returns the deduplicated, sorted union of the known categories.
func All() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]string{TopLevel, Travel, Business} {
		for _, c := range group {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
