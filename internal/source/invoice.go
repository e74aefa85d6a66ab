package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iwvelando/true-cost/internal/order"
)

var (
	orderNumberPattern = regexp.MustCompile(`Order #\s*(\d+)`)
	orderDatePattern   = regexp.MustCompile(`Order Date:\s*([^\n]+)`)
	partNumberPattern  = regexp.MustCompile(`Part No:\s*(\S+)`)
	kronaPattern       = regexp.MustCompile(`(?i)\bkr\b`)

	// priceLinePattern matches "New ... 30 AU $0.071 AU $2.13 4.5g" and its
	// variants for other currency markers.
	priceLinePattern = regexp.MustCompile(
		`(New|Used)\b.*?(\d+)\s+` + moneyToken + `([0-9.,]+)\s+` + moneyToken + `([0-9.,]+)\s+([0-9.]+g)`)
)

// moneyToken matches an optional currency marker in front of an amount, such
// as "AU $", "EUR", "US$" or "€".
const moneyToken = `(?:[A-Z]{2,3}\s*\$?\s*|\$\s*|€\s*|£\s*)`

type amountField struct {
	field   string
	pattern *regexp.Regexp
}

func amountPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + label + `:\s*` + moneyToken + `?([0-9,]+(?:\.[0-9]+)?)`)
}

var (
	subtotalPattern   = amountPattern(`Order Total`)
	grandTotalPattern = amountPattern(`Grand Total`)
	chargePatterns    = []amountField{
		{"shipping", amountPattern(`Shipping`)},
		{"insurance", amountPattern(`Insurance`)},
		{"surcharge1", amountPattern(`Additional Charges 1`)},
		{"surcharge2", amountPattern(`Additional Charges 2`)},
		{"credit", amountPattern(`^\s*Credit`)},
		{"coupon_credit", amountPattern(`Coupon Credit`)},
	}
)

// currencyMarkers maps the prefixes invoices put in front of "$" amounts to
// ISO codes, in detection order.
var currencyMarkers = []struct {
	prefix string
	code   string
}{
	{"AU", "AUD"},
	{"US", "USD"},
	{"CA", "CAD"},
	{"NZ", "NZD"},
	{"SEK", "SEK"},
	{"EUR", "EUR"},
	{"GBP", "GBP"},
	{"DK", "DKK"},
}

// itemSectionEnd lists lines that close the item section.
var itemSectionEnd = []string{"Batch Total:", "Buyer Information", "Estimated Weight"}

// itemSectionNoise lists fragments of table headers and batch lines.
var itemSectionNoise = []string{
	"Image", "Condition", "Item Description", "Lots", "Qty", "Price", "Total",
	"Weight", "Batch #", "Submitted on", "*", "Parts:",
}

// knownColors lists the color names that open an item entry.
var knownColors = map[string]struct{}{}

func init() {
	for _, color := range []string{
		"Red", "Blue", "Black", "White", "Yellow", "Green", "Brown", "Orange",
		"Purple", "Pink", "Tan", "Gray", "Lime", "Magenta", "Dark Blue", "Dark Red",
		"Dark Green", "Dark Gray", "Dark Bluish Gray", "Light Blue", "Light Gray",
		"Light Bluish Gray", "Reddish Brown", "Dark Brown", "Dark Tan", "Medium Blue",
		"Medium Azure", "Dark Azure", "Medium Nougat", "Nougat", "Dark Orange",
		"Bright Light Orange", "Bright Light Yellow", "Bright Pink", "Dark Pink",
		"Sand Green", "Sand Blue", "Olive Green", "Pearl Gold", "Flat Silver",
		"Trans-Clear", "Trans-Orange", "Trans-Red", "Trans-Dark Blue", "Trans-Light Blue",
		"Trans-Yellow", "Trans-Green", "Trans-Neon Green", "Trans-Black",
	} {
		knownColors[color] = struct{}{}
	}
}

// ParseInvoiceText builds an order record from the plain text of an invoice.
// fallbackID is used when the text carries no order number. The order total
// is the subtotal; labelled charges that are absent count as zero.
func ParseInvoiceText(text, fallbackID string) (order.Record, error) {
	rec := order.Record{
		OrderID:      fallbackID,
		ExchangeRate: 1,
	}
	if m := orderNumberPattern.FindStringSubmatch(text); m != nil {
		rec.OrderID = m[1]
	}
	if rec.OrderID == "" {
		return order.Record{}, order.NewInvalidDataError("", "order_id", "was not found in the invoice")
	}
	if m := orderDatePattern.FindStringSubmatch(text); m != nil {
		rec.OrderDate = strings.TrimSpace(m[1])
	}

	rec.Currency = detectCurrency(text)
	if rec.Currency == "" {
		return order.Record{}, order.NewInvalidDataError(rec.OrderID, "currency", "could not be detected in the invoice")
	}

	subtotal, found, err := findAmount(subtotalPattern, text)
	if err != nil {
		return order.Record{}, order.NewInvalidDataError(rec.OrderID, "subtotal", "is malformed: %v", err)
	}
	if !found {
		return order.Record{}, order.NewInvalidDataError(rec.OrderID, "subtotal", "was not found in the invoice (no Order Total)")
	}
	rec.Subtotal = subtotal

	for _, charge := range chargePatterns {
		amount, _, err := findAmount(charge.pattern, text)
		if err != nil {
			return order.Record{}, order.NewInvalidDataError(rec.OrderID, charge.field, "is malformed: %v", err)
		}
		switch charge.field {
		case "shipping":
			rec.Shipping = amount
		case "insurance":
			rec.Insurance = amount
		case "surcharge1":
			rec.Surcharge1 = amount
		case "surcharge2":
			rec.Surcharge2 = amount
		case "credit":
			rec.Credit = amount
		case "coupon_credit":
			rec.CouponCredit = amount
		}
	}

	grandTotal, grandTotalKnown, err := findAmount(grandTotalPattern, text)
	if err != nil {
		return order.Record{}, order.NewInvalidDataError(rec.OrderID, "grand_total", "is malformed: %v", err)
	}
	rec.GrandTotal = grandTotal

	rec.Items, err = parseItems(text)
	if err != nil {
		return order.Record{}, order.NewInvalidDataError(rec.OrderID, "items", "%v", err)
	}

	return finish(rec, grandTotalKnown)
}

func detectCurrency(text string) string {
	for _, marker := range currencyMarkers {
		if strings.Contains(text, marker.prefix+" $") || strings.Contains(text, marker.prefix+"$") {
			return marker.code
		}
	}
	switch {
	case strings.Contains(text, "EUR"), strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "£"):
		return "GBP"
	case kronaPattern.MatchString(text):
		return "SEK"
	}
	return ""
}

func findAmount(pattern *regexp.Regexp, text string) (float64, bool, error) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false, nil
	}
	value, err := parseAmount(m[1])
	if err != nil {
		return 0, true, err
	}
	return value, true, nil
}

func parseAmount(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}

// itemBuilder accumulates the lines of one invoice item.
type itemBuilder struct {
	color       string
	description []string
	item        order.LineItem
	priced      bool
}

func (b *itemBuilder) lineItem() order.LineItem {
	item := b.item
	item.Color = b.color
	item.Name = strings.TrimSpace(b.color + " " + strings.Join(b.description, " "))
	return item
}

// parseItems reads the item section: a color line opens an item, description
// lines follow until the price line, and a part number line may close it.
func parseItems(text string) ([]order.LineItem, error) {
	var (
		items   []order.LineItem
		current *itemBuilder
		inItems bool
	)
	flush := func() {
		if current != nil && current.priced {
			items = append(items, current.lineItem())
		}
		current = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !inItems {
			inItems = strings.Contains(line, "Items in Order")
			continue
		}
		if containsAny(line, itemSectionEnd) {
			break
		}

		if m := partNumberPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.item.PartNumber = m[1]
			}
			continue
		}
		if containsAny(line, itemSectionNoise) {
			continue
		}
		if _, ok := knownColors[line]; ok {
			flush()
			current = &itemBuilder{color: line}
			continue
		}
		if current == nil || current.priced {
			continue
		}

		if m := priceLinePattern.FindStringSubmatch(line); m != nil {
			item, err := pricedItem(m)
			if err != nil {
				return nil, fmt.Errorf("item %q: %w", current.lineItem().Name, err)
			}
			current.item = item
			current.priced = true
			continue
		}
		current.description = append(current.description, line)
	}
	flush()

	return items, nil
}

func pricedItem(m []string) (order.LineItem, error) {
	quantity, err := strconv.Atoi(m[2])
	if err != nil {
		return order.LineItem{}, fmt.Errorf("malformed quantity %q", m[2])
	}
	unit, err := parseAmount(m[3])
	if err != nil {
		return order.LineItem{}, fmt.Errorf("malformed unit price %q", m[3])
	}
	total, err := parseAmount(m[4])
	if err != nil {
		return order.LineItem{}, fmt.Errorf("malformed line total %q", m[4])
	}
	return order.LineItem{
		Condition: m[1],
		Quantity:  quantity,
		UnitPrice: unit,
		LineTotal: total,
		Weight:    m[5],
	}, nil
}

func containsAny(line string, fragments []string) bool {
	for _, fragment := range fragments {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}
