package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/niksmo/storefront/internal/core/domain"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Welcome{{with .Name}}, {{.}}{{end}}!</h2>
  <p>Confirm your email address to start shopping.</p>
  <p><a href="{{.Link}}" style="background:#6f4ef2;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Verify email</a></p>
  <p style="font-size:12px;color:#888;">If you did not sign up, ignore this message.</p>
</body>
</html>`))

var orderTmpl = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"mul":   func(a float64, n int) float64 { return a * float64(n) },
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Thank you for your order{{with .Name}}, {{.}}{{end}}!</h2>
  <p>Order <strong>#{{.ID}}</strong> placed {{.PlacedAt.Format "02 Jan 2006 15:04"}}.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Item</th><th align="left">Size</th><th>Qty</th><th align="right">Price</th></tr>
    {{range .Items}}
    <tr><td>{{.Name}}</td><td>{{.Size}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money (mul .Amount .Quantity)}}</td></tr>
    {{end}}
  </table>
  <p>Total: {{money .Summary.Total}}<br>
  Discount: -{{money .Summary.Discount}}<br>
  Delivery: {{money .Summary.DeliveryFee}}<br>
  <strong>Sum: {{money .Summary.Sum}}</strong></p>
</body>
</html>`))

func renderVerification(to domain.Identity, link string) (string, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, struct {
		Name string
		Link string
	}{to.DisplayName, link})
	return buf.String(), err
}

func renderOrder(o domain.Order) (string, error) {
	var buf bytes.Buffer
	err := orderTmpl.Execute(&buf, o)
	return buf.String(), err
}
