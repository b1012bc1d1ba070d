package payment

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/pricing"
)

// WhatsAppMessage is the text sent to the store to arrange a manual payment.
func WhatsAppMessage(o *domain.Order) string {
	var b strings.Builder
	b.WriteString("Hola, quiero coordinar el pago de mi pedido:\n")
	for i, it := range o.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %dx %s", it.Quantity, it.Name)
	}
	fmt.Fprintf(&b, "\n\nTotal: $%s", pricing.FormatAmount(o.TotalPrice))

	a := o.ShippingAddress
	fmt.Fprintf(&b, "\n\nDatos:\nNombre: %s\nDirección: %s, %s, %s, %s",
		a.FullName, a.Address, a.City, a.PostalCode, a.Country)
	return b.String()
}

// WhatsAppURL builds the wa.me link for phone with the order message.
func WhatsAppURL(phone string, o *domain.Order) string {
	text := strings.ReplaceAll(url.QueryEscape(WhatsAppMessage(o)), "+", "%20")
	return "https://wa.me/" + phone + "?text=" + text
}
