package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/MarcGrol/marketplace/services/checkoutapi"
)

const receiptSubject = "Your Marketplace Order Confirmation"

//go:embed templates/receipt.html
var templates embed.FS

var receiptTemplate = template.Must(template.ParseFS(templates, "templates/receipt.html"))

type receiptView struct {
	OrderUID string
	Currency string
	Total    string
	Items    []receiptItemView
}

type receiptItemView struct {
	Name      string
	Quantity  int
	UnitPrice string
}

func renderReceipt(receipt Receipt) (string, error) {
	view := receiptView{
		OrderUID: receipt.OrderUID,
		Currency: receipt.Currency,
		Total:    checkoutapi.FormatCents(receipt.TotalAmountInCents),
		Items:    make([]receiptItemView, 0, len(receipt.Items)),
	}
	for _, item := range receipt.Items {
		view.Items = append(view.Items, receiptItemView{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: checkoutapi.FormatCents(item.UnitPriceInCents),
		})
	}

	var buf bytes.Buffer
	err := receiptTemplate.Execute(&buf, view)
	if err != nil {
		return "", fmt.Errorf("error rendering receipt of order %s: %w", receipt.OrderUID, err)
	}
	return buf.String(), nil
}
