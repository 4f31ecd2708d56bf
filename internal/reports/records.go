// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reports turns stored transactions and products into chart series
// and summary figures. Every function here is pure: the same input always
// gives the same output and nothing is modified.
package reports

import (
	"time"

	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/util"
)

// Transaction kinds.
const (
	TypeSell = "sell"
	TypeBuy  = "buy"
)

// Transaction is a decoded buy or sell record.
type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ProductName string    `json:"productName"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit,omitempty"`
	Price       float64   `json:"price"`
	Total       float64   `json:"total"`
	Date        time.Time `json:"date"`
	HasDate     bool      `json:"-"`
}

// Product is a decoded inventory record.
type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Stock     float64 `json:"stock"`
	MinStock  float64 `json:"minStock"`
	Unit      string  `json:"unit,omitempty"`
	BuyPrice  float64 `json:"buyPrice"`
	SellPrice float64 `json:"sellPrice"`
}

// DecodeTransaction reads a transaction from a raw field map. Missing or
// non-numeric amounts become 0; an unreadable date leaves HasDate false.
// Dates are expressed in loc.
func DecodeTransaction(id string, m map[string]any, loc *time.Location) Transaction {
	tx := Transaction{
		ID:          id,
		Type:        util.ToString(m["type"]),
		ProductName: util.ToString(m["productName"]),
		Quantity:    util.ToFloat(m["quantity"]),
		Unit:        util.ToString(m["unit"]),
		Price:       util.ToFloat(m["price"]),
		Total:       util.ToFloat(m["total"]),
	}
	tx.Date, tx.HasDate = util.ParseDate(m["date"], loc)
	return tx
}

// DecodeProduct reads a product from a raw field map.
func DecodeProduct(id string, m map[string]any) Product {
	return Product{
		ID:        id,
		Name:      util.ToString(m["name"]),
		Category:  util.ToString(m["category"]),
		Stock:     util.ToFloat(m["stock"]),
		MinStock:  util.ToFloat(m["minStock"]),
		Unit:      util.ToString(m["unit"]),
		BuyPrice:  util.ToFloat(m["buyPrice"]),
		SellPrice: util.ToFloat(m["sellPrice"]),
	}
}

// Transactions decodes a document list.
func Transactions(docs []storage.Document, loc *time.Location) []Transaction {
	out := make([]Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, DecodeTransaction(d.ID, d.Data, loc))
	}
	return out
}

// Products decodes a document list.
func Products(docs []storage.Document) []Product {
	out := make([]Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, DecodeProduct(d.ID, d.Data))
	}
	return out
}
