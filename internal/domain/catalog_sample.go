package domain

// SampleCatalog is the fixed starter catalog used for seeding and for the
// preview endpoint.
func SampleCatalog() []ProductInput {
	return []ProductInput{
		{Name: "Escuadra", Price: 123.45, Stock: 20, Thumbnail: "https://cdn3.iconfinder.com/data/icons/education-209/64/ruler-triangle-stationary-school-256.png"},
		{Name: "Calculadora", Price: 234.56, Stock: 15, Thumbnail: "https://cdn3.iconfinder.com/data/icons/education-209/64/calculator-math-tool-school-256.png"},
		{Name: "Globo Terráqueo", Price: 345.67, Stock: 8, Thumbnail: "https://cdn3.iconfinder.com/data/icons/education-209/64/globe-earth-geograhy-planet-school-256.png"},
		{Name: "Lapicera", Price: 45.5, Stock: 100, Thumbnail: "https://cdn3.iconfinder.com/data/icons/education-209/64/pen-stationery-school-256.png"},
		{Name: "Mochila", Price: 899.99, Stock: 5, Thumbnail: "https://cdn3.iconfinder.com/data/icons/education-209/64/bag-pack-container-school-256.png"},
	}
}
