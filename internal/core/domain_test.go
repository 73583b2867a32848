package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTransactionUnmarshalSeedShape(t *testing.T) {
	payload := `{"id":7,"title":"Mens Casual Slim Fit","price":15.99,"description":"The color could be slightly different",` +
		`"category":"men's clothing","image":"https://example.com/x.jpg","sold":true,"dateOfSale":"2021-03-27T20:29:54+05:30"}`

	var tx Transaction
	if err := json.Unmarshal([]byte(payload), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.ProductID != "7" {
		t.Errorf("ProductID = %q, want %q", tx.ProductID, "7")
	}
	if tx.Price != 15.99 || !tx.Sold || tx.Category != "men's clothing" {
		t.Errorf("unexpected transaction: %+v", tx)
	}
	if tx.SaleMonth() != time.March {
		t.Errorf("SaleMonth = %v, want March", tx.SaleMonth())
	}
}

func TestTransactionUnmarshalProductID(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"string productId", `{"productId":"abc-1","dateOfSale":"2022-01-01T00:00:00Z"}`, "abc-1"},
		{"numeric productId", `{"productId":42,"dateOfSale":"2022-01-01T00:00:00Z"}`, "42"},
		{"productId wins over id", `{"productId":"p","id":3,"dateOfSale":"2022-01-01T00:00:00Z"}`, "p"},
		{"missing id", `{"dateOfSale":"2022-01-01T00:00:00Z"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tx Transaction
			if err := json.Unmarshal([]byte(tt.payload), &tx); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if tx.ProductID != tt.want {
				t.Errorf("ProductID = %q, want %q", tx.ProductID, tt.want)
			}
		})
	}
}

func TestTransactionMarshalUsesProductID(t *testing.T) {
	tx := Transaction{ProductID: "9", Title: "t", Price: 1, Category: "c", DateOfSale: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if m["productId"] != "9" {
		t.Errorf("productId = %v, want 9", m["productId"])
	}
}

func TestSaleMonthUsesUTC(t *testing.T) {
	// 00:30 on April 1st in +05:30 is still March 31st in UTC.
	ist := time.FixedZone("IST", 5*3600+1800)
	tx := Transaction{DateOfSale: time.Date(2021, time.April, 1, 0, 30, 0, 0, ist)}
	if got := tx.SaleMonth(); got != time.March {
		t.Errorf("SaleMonth = %v, want March", got)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{Price: 10, Category: "electronics", DateOfSale: time.Now()}

	tests := []struct {
		name string
		mod  func(*Transaction)
		want error
	}{
		{"valid", func(*Transaction) {}, nil},
		{"zero price allowed", func(tx *Transaction) { tx.Price = 0 }, nil},
		{"missing date", func(tx *Transaction) { tx.DateOfSale = time.Time{} }, ErrMissingDate},
		{"negative price", func(tx *Transaction) { tx.Price = -1 }, ErrNegativePrice},
		{"blank category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mod(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFormatPrice(t *testing.T) {
	tests := map[float64]string{
		100:    "100",
		329.85: "329.85",
		0.5:    "0.5",
		0:      "0",
	}
	for in, want := range tests {
		if got := FormatPrice(in); got != want {
			t.Errorf("FormatPrice(%v) = %q, want %q", in, got, want)
		}
	}
}
