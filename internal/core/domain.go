package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type (
	// Transaction is one product sale record as delivered by the seed source.
	Transaction struct {
		ProductID   string    `json:"productId"`
		Title       string    `json:"title"`
		Price       float64   `json:"price"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
		DateOfSale  time.Time `json:"dateOfSale"`
		Sold        bool      `json:"sold"`
	}
)

var (
	ErrMissingDate   = errors.New("missing date of sale")
	ErrNegativePrice = errors.New("negative price")
	ErrEmptyCategory = errors.New("empty category")
)

func (t Transaction) Validate() error {
	if t.DateOfSale.IsZero() {
		return ErrMissingDate
	}
	if t.Price < 0 {
		return ErrNegativePrice
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// SaleMonth returns the month of year of the sale, evaluated in UTC.
func (t Transaction) SaleMonth() time.Month {
	return t.DateOfSale.UTC().Month()
}

// PriceText is the textual form of the price matched by free-text search.
func (t Transaction) PriceText() string {
	return FormatPrice(t.Price)
}

// FormatPrice renders a price in its shortest decimal form ("100", "329.85").
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// UnmarshalJSON accepts the seed payload shape, where products are identified
// by a numeric "id", as well as the service's own "productId" field.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		ProductID   json.RawMessage `json:"productId"`
		Title       string          `json:"title"`
		Price       float64         `json:"price"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		DateOfSale  time.Time       `json:"dateOfSale"`
		Sold        bool            `json:"sold"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idField := raw.ProductID
	if len(idField) == 0 || string(idField) == "null" {
		idField = raw.ID
	}
	id, err := decodeID(idField)
	if err != nil {
		return fmt.Errorf("decode product id: %w", err)
	}

	*t = Transaction{
		ProductID:   id,
		Title:       raw.Title,
		Price:       raw.Price,
		Description: raw.Description,
		Category:    raw.Category,
		DateOfSale:  raw.DateOfSale,
		Sold:        raw.Sold,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
