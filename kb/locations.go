package kb

import "github.com/signalsfoundry/vessel-track-simulator/model"

func port(name, region, country string, lat, lon float64, aliases ...string) Location {
	return Location{
		Name:        name,
		Aliases:     aliases,
		Coordinates: model.Coordinates{Latitude: lat, Longitude: lon},
		Region:      region,
		Country:     country,
		Kind:        KindPort,
	}
}

func area(name, region string, lat, lon float64, aliases ...string) Location {
	return Location{
		Name:        name,
		Aliases:     aliases,
		Coordinates: model.Coordinates{Latitude: lat, Longitude: lon},
		Region:      region,
		Kind:        KindArea,
	}
}

func region(name string, lat, lon float64, aliases ...string) Location {
	return Location{
		Name:        name,
		Aliases:     aliases,
		Coordinates: model.Coordinates{Latitude: lat, Longitude: lon},
		Region:      name,
		Kind:        KindRegion,
	}
}

// DefaultLocations is the built-in table. Irish Sea ports come first so they
// win ties; regions come last so a specific place beats its sea area.
func DefaultLocations() []Location {
	return []Location{
		// Irish Sea
		port("Dublin", "Irish Sea", "Ireland", 53.3498, -6.2603, "dublin port", "dublin bay"),
		port("Holyhead", "Irish Sea", "Wales", 53.3090, -4.6324),
		port("Liverpool", "Irish Sea", "England", 53.4084, -2.9916),
		port("Belfast", "Irish Sea", "Northern Ireland", 54.5973, -5.9301, "belfast lough"),
		port("Cork", "Celtic Sea", "Ireland", 51.8969, -8.4863, "cobh"),
		port("Swansea", "Bristol Channel", "Wales", 51.6214, -3.9436),
		port("Isle of Man", "Irish Sea", "Isle of Man", 54.1936, -4.5591, "douglas", "isle_of_man"),
		port("Cardiff", "Bristol Channel", "Wales", 51.4816, -3.1791),

		// Northern Europe
		port("Rotterdam", "North Sea", "Netherlands", 51.9490, 4.1420, "europoort"),
		port("Hamburg", "North Sea", "Germany", 53.5461, 9.9661),
		port("Antwerp", "North Sea", "Belgium", 51.2637, 4.3996, "antwerpen"),
		port("Felixstowe", "North Sea", "England", 51.9540, 1.3510),
		port("Dover", "English Channel", "England", 51.1279, 1.3134, "dover strait"),
		port("Calais", "English Channel", "France", 50.9650, 1.8625),
		port("Southampton", "English Channel", "England", 50.8998, -1.4044),
		port("Le Havre", "English Channel", "France", 49.4850, 0.1100),
		port("Oslo", "North Sea", "Norway", 59.9050, 10.7400),
		port("Bergen", "North Sea", "Norway", 60.3990, 5.3150),
		port("Copenhagen", "Baltic Sea", "Denmark", 55.6900, 12.6000, "kobenhavn"),
		port("Stockholm", "Baltic Sea", "Sweden", 59.3250, 18.1000),
		port("Gdansk", "Baltic Sea", "Poland", 54.3950, 18.6700, "gdańsk"),
		port("Helsinki", "Baltic Sea", "Finland", 60.1600, 24.9600),

		// Mediterranean and Black Sea
		port("Piraeus", "Mediterranean", "Greece", 37.9755, 23.7348, "athens"),
		port("Barcelona", "Mediterranean", "Spain", 41.3520, 2.1580),
		port("Marseille", "Mediterranean", "France", 43.3300, 5.3500, "marseilles"),
		port("Genoa", "Mediterranean", "Italy", 44.4050, 8.9100, "genova"),
		port("Naples", "Mediterranean", "Italy", 40.8400, 14.2600, "napoli"),
		port("Venice", "Mediterranean", "Italy", 45.4300, 12.3500, "venezia"),
		port("Valletta", "Mediterranean", "Malta", 35.8990, 14.5150, "malta"),
		port("Algeciras", "Mediterranean", "Spain", 36.1300, -5.4300),
		port("Istanbul", "Black Sea", "Turkey", 41.0100, 28.9800),
		port("Constanta", "Black Sea", "Romania", 44.1700, 28.6500, "constanța"),

		// Middle East, Asia, Americas
		port("Suez", "Red Sea", "Egypt", 29.9500, 32.5600, "suez canal"),
		port("Jeddah", "Red Sea", "Saudi Arabia", 21.4800, 39.1700),
		port("Dubai", "Persian Gulf", "United Arab Emirates", 25.0100, 55.0600, "jebel ali"),
		port("Mumbai", "Indian Ocean", "India", 18.9400, 72.8400, "bombay"),
		port("Colombo", "Indian Ocean", "Sri Lanka", 6.9500, 79.8400),
		port("Singapore", "Strait of Malacca", "Singapore", 1.2640, 103.8400),
		port("Hong Kong", "South China Sea", "China", 22.2900, 114.1700),
		port("Shanghai", "East China Sea", "China", 31.2300, 121.4900),
		port("Tokyo", "Pacific", "Japan", 35.6200, 139.7800),
		port("Los Angeles", "Pacific", "United States", 33.7400, -118.2600, "long beach"),
		port("New York", "Atlantic", "United States", 40.6700, -74.0400),
		port("Miami", "Atlantic", "United States", 25.7700, -80.1700),
		port("Halifax", "Atlantic", "Canada", 44.6400, -63.5700),

		// Named sea areas
		area("Sicily", "Mediterranean", 37.5, 13.8, "coast of sicily", "sicilian waters"),
		area("Greek Islands", "Mediterranean", 37.0, 25.0, "aegean", "aegean sea", "cyclades"),
		area("French Riviera", "Mediterranean", 43.5, 7.0, "cote d'azur", "côte d'azur"),
		area("Gibraltar", "Mediterranean", 36.1, -5.3, "strait of gibraltar"),
		area("Canary Islands", "Atlantic", 28.0, -16.0, "canaries"),
		area("Bay of Biscay", "Atlantic", 44.0, -4.0, "biscay"),
		area("Norwegian Waters", "North Sea", 58.0, 5.0, "norwegian coast"),
		area("Shetland Islands", "North Sea", 60.5, -1.0, "shetland"),
		area("Dogger Bank", "North Sea", 54.7, 2.3),
		area("German Bight", "North Sea", 54.2, 7.6),
		area("Azores", "Atlantic", 38.5, -28.0),
		area("Port Klang Approaches", "Strait of Malacca", 2.9, 101.2, "port klang"),

		// Regions
		region("Irish Sea", 53.5, -5.0),
		region("Celtic Sea", 51.0, -7.5),
		region("Bristol Channel", 51.3, -3.8),
		region("North Sea", 56.0, 3.0),
		region("English Channel", 50.2, -1.0, "la manche", "the channel"),
		region("Baltic Sea", 58.0, 20.0, "baltic"),
		region("Mediterranean", 35.0, 18.0, "mediterranean sea", "med"),
		region("Black Sea", 43.0, 34.0),
		region("Red Sea", 20.0, 38.5),
		region("Persian Gulf", 26.5, 52.0, "arabian gulf"),
		region("Indian Ocean", -10.0, 75.0),
		region("Strait of Malacca", 3.0, 100.5),
		region("South China Sea", 14.0, 114.0),
		region("East China Sea", 29.0, 125.0),
		region("Pacific", 20.0, -150.0, "pacific ocean"),
		region("Atlantic", 35.0, -40.0, "atlantic ocean", "north atlantic"),
		region("Caribbean", 15.0, -75.0, "caribbean sea", "west indies"),
	}
}
