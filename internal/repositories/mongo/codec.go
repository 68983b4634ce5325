package mongo

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domain "github.com/Navneet1206/E-Commerce-sub000/internal/domain"
)

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

type addressDocument struct {
	FirstName string `bson:"first_name"`
	LastName  string `bson:"last_name"`
	Email     string `bson:"email"`
	Street    string `bson:"street"`
	City      string `bson:"city"`
	State     string `bson:"state"`
	Zipcode   string `bson:"zipcode"`
	Country   string `bson:"country"`
	Phone     string `bson:"phone"`
}

func fromDomainAddress(a domain.Address) addressDocument { return addressDocument(a) }

func (d addressDocument) toDomain() domain.Address { return domain.Address(d) }
