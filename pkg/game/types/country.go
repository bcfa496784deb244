package types

// Country is one of the five fixed countries in a game.
type Country string

const (
	CountryUSA     Country = "USA"
	CountryChina   Country = "China"
	CountryGermany Country = "Germany"
	CountryJapan   Country = "Japan"
	CountryIndia   Country = "India"
)

// Countries lists every country in a stable order.
var Countries = []Country{CountryUSA, CountryChina, CountryGermany, CountryJapan, CountryIndia}

// Valid reports whether c is one of the fixed countries.
func (c Country) Valid() bool {
	for _, country := range Countries {
		if c == country {
			return true
		}
	}
	return false
}

// Product is one of the five fixed products in a game.
type Product string

const (
	ProductSteel       Product = "Steel"
	ProductGrain       Product = "Grain"
	ProductOil         Product = "Oil"
	ProductElectronics Product = "Electronics"
	ProductTextiles    Product = "Textiles"
)

// Products lists every product in a stable order.
var Products = []Product{ProductSteel, ProductGrain, ProductOil, ProductElectronics, ProductTextiles}

// Valid reports whether p is one of the fixed products.
func (p Product) Valid() bool {
	for _, product := range Products {
		if p == product {
			return true
		}
	}
	return false
}
