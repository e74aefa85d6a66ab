package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/iwvelando/true-cost/internal/order"
	"gopkg.in/yaml.v3"
)

var fileExtensions = []string{".yaml", ".yml", ".json"}

// FileSource reads structured order files. JSON documents are decoded by the
// YAML decoder.
type FileSource struct{}

// NewFileSource creates an order file source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Extensions lists the file extensions the source reads.
func (s *FileSource) Extensions() []string {
	return fileExtensions
}

// Supports reports whether path is a YAML or JSON file.
func (s *FileSource) Supports(path string) bool {
	return hasExtension(path, fileExtensions)
}

// Load reads the order file at path.
func (s *FileSource) Load(path string) (order.Record, error) {
	data, err := readFile(path)
	if err != nil {
		return order.Record{}, err
	}
	return s.Parse(path, data)
}

// fileRecord mirrors order.Record with pointers so absent fields can be told
// apart from zeros.
type fileRecord struct {
	OrderID      string     `yaml:"orderId"`
	OrderDate    string     `yaml:"orderDate"`
	Currency     string     `yaml:"currency"`
	Original     string     `yaml:"originalCurrency"`
	ExchangeRate *float64   `yaml:"exchangeRate"`
	Subtotal     *float64   `yaml:"subtotal"`
	Shipping     float64    `yaml:"shipping"`
	Insurance    float64    `yaml:"insurance"`
	Surcharge1   float64    `yaml:"surcharge1"`
	Surcharge2   float64    `yaml:"surcharge2"`
	Credit       float64    `yaml:"credit"`
	CouponCredit float64    `yaml:"couponCredit"`
	GrandTotal   *float64   `yaml:"grandTotal"`
	Items        []fileItem `yaml:"items"`
}

type fileItem struct {
	Name       string   `yaml:"name"`
	Quantity   *int     `yaml:"quantity"`
	UnitPrice  *float64 `yaml:"unitPrice"`
	LineTotal  *float64 `yaml:"lineTotal"`
	Condition  string   `yaml:"condition"`
	Color      string   `yaml:"color"`
	PartNumber string   `yaml:"partNumber"`
	Weight     string   `yaml:"weight"`
}

// Parse decodes an order document. A missing line total is computed from
// unit price and quantity; a missing grand total is derived from the charges.
func (s *FileSource) Parse(name string, data []byte) (order.Record, error) {
	var doc fileRecord
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return order.Record{}, order.NewInvalidDataError("", "order_id", "is required (empty document %s)", name)
		}
		return order.Record{}, fmt.Errorf("failed to decode order file %s: %w", name, err)
	}

	rec, err := doc.record()
	if err != nil {
		return order.Record{}, err
	}
	return finish(rec, doc.GrandTotal != nil)
}

func (doc fileRecord) record() (order.Record, error) {
	if doc.Subtotal == nil {
		return order.Record{}, order.NewInvalidDataError(doc.OrderID, "subtotal", "is required")
	}

	rec := order.Record{
		OrderID:          doc.OrderID,
		OrderDate:        doc.OrderDate,
		Currency:         doc.Currency,
		ExchangeRate:     1,
		OriginalCurrency: doc.Original,
		Subtotal:         *doc.Subtotal,
		Shipping:         doc.Shipping,
		Insurance:        doc.Insurance,
		Surcharge1:       doc.Surcharge1,
		Surcharge2:       doc.Surcharge2,
		Credit:           doc.Credit,
		CouponCredit:     doc.CouponCredit,
		Items:            make([]order.LineItem, 0, len(doc.Items)),
	}
	if doc.ExchangeRate != nil {
		rec.ExchangeRate = *doc.ExchangeRate
	}
	if doc.GrandTotal != nil {
		rec.GrandTotal = *doc.GrandTotal
	}

	for i, item := range doc.Items {
		if item.Quantity == nil {
			return order.Record{}, order.NewInvalidDataError(doc.OrderID, fmt.Sprintf("items[%d].quantity", i), "is required")
		}
		if item.UnitPrice == nil {
			return order.Record{}, order.NewInvalidDataError(doc.OrderID, fmt.Sprintf("items[%d].unit_price", i), "is required")
		}
		line := order.LineItem{
			Name:       item.Name,
			Quantity:   *item.Quantity,
			UnitPrice:  *item.UnitPrice,
			Condition:  item.Condition,
			Color:      item.Color,
			PartNumber: item.PartNumber,
			Weight:     item.Weight,
		}
		if item.LineTotal != nil {
			line.LineTotal = *item.LineTotal
		} else {
			line.LineTotal = line.UnitPrice * float64(line.Quantity)
		}
		rec.Items = append(rec.Items, line)
	}

	return rec, nil
}
