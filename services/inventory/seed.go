package inventory

import (
	"context"
	"fmt"

	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

// DemoProducts is the catalog a fresh installation starts with.
var DemoProducts = []Product{
	{UID: "prod_desk_lamp", Name: "Minimalist Desk Lamp", Kind: checkoutapi.KindPhysical, PriceInCents: 4999, Currency: "USD", Stock: Units(15)},
	{UID: "prod_react_ui_kit", Name: "React UI Kit", Kind: checkoutapi.KindDigital, PriceInCents: 2900, Currency: "USD"},
	{UID: "prod_ergonomic_keyboard", Name: "Ergonomic Keyboard", Kind: checkoutapi.KindPhysical, PriceInCents: 12950, Currency: "USD", Stock: Units(5)},
	{UID: "prod_invoice_template", Name: "Freelancer Invoice Template", Kind: checkoutapi.KindDigital, PriceInCents: 999, Currency: "USD"},
}

// Seed stores the demo products that do not exist yet; existing stock is left alone.
func Seed(c context.Context, keeper StockKeeper) (int, error) {
	count := 0
	for _, product := range DemoProducts {
		_, exists, err := keeper.GetProduct(c, product.UID)
		if err != nil {
			return count, fmt.Errorf("error checking product %s: %w", product.UID, err)
		}
		if exists {
			continue
		}
		err = keeper.PutProduct(c, product)
		if err != nil {
			return count, fmt.Errorf("error seeding product %s: %w", product.UID, err)
		}
		count++
	}
	return count, nil
}
