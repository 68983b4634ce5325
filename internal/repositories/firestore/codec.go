package firestore

import (
	"github.com/shopspring/decimal"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
)

// Money is stored as a decimal string so values round-trip without float drift.
func moneyString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type addressDocument struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email"`
	Street    string `firestore:"street"`
	City      string `firestore:"city"`
	State     string `firestore:"state"`
	Zipcode   string `firestore:"zipcode"`
	Country   string `firestore:"country"`
	Phone     string `firestore:"phone"`
}

func fromDomainAddress(a domain.Address) addressDocument {
	return addressDocument(a)
}

func (d addressDocument) toDomain() domain.Address {
	return domain.Address(d)
}
