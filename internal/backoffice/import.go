// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backoffice

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/jeranaias/tidedesk/internal/reports"
	"github.com/jeranaias/tidedesk/internal/security"
	"github.com/jeranaias/tidedesk/internal/storage"
	"github.com/jeranaias/tidedesk/internal/util"
)

// ImportFile is the layout accepted by Import.
type ImportFile struct {
	Products     []map[string]any `json:"products"`
	Transactions []map[string]any `json:"transactions"`
	Suppliers    []map[string]any `json:"suppliers"`
}

// ImportResult counts what Import did per collection.
type ImportResult struct {
	Created  map[string]int `json:"created"`
	Rejected []string       `json:"rejected,omitempty"`
}

// Total returns the number of documents created.
func (r ImportResult) Total() int {
	n := 0
	for _, c := range r.Created {
		n += c
	}
	return n
}

var textFields = []string{"name", "productName", "category", "unit", "supplier", "contact", "address", "note"}

// Import reads an ImportFile from r and creates a document for every valid
// record. Invalid records are skipped and described in Rejected. A running
// TUI sees the new documents through its subscriptions.
func (a *App) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read import: %w", err)
	}
	var file ImportFile
	if err := sonic.Unmarshal(raw, &file); err != nil {
		return ImportResult{}, fmt.Errorf("decode import: %w", err)
	}

	res := ImportResult{Created: map[string]int{}}
	batches := []struct {
		collection string
		records    []map[string]any
		check      func(map[string]any) error
	}{
		{storage.CollectionProducts, file.Products, checkProduct},
		{storage.CollectionSuppliers, file.Suppliers, checkSupplier},
		{storage.CollectionTransactions, file.Transactions, checkTransaction},
	}

	for _, b := range batches {
		for i, rec := range b.records {
			sanitize(rec)
			if err := b.check(rec); err != nil {
				res.Rejected = append(res.Rejected, fmt.Sprintf("%s[%d]: %v", b.collection, i, err))
				continue
			}
			if _, err := a.Docs.Create(ctx, b.collection, rec); err != nil {
				return res, err
			}
			res.Created[b.collection]++
		}
	}

	log.Printf("IMPORT | products=%d suppliers=%d transactions=%d rejected=%d",
		res.Created[storage.CollectionProducts], res.Created[storage.CollectionSuppliers],
		res.Created[storage.CollectionTransactions], len(res.Rejected))
	return res, nil
}

func sanitize(rec map[string]any) {
	for _, f := range textFields {
		if s, ok := rec[f].(string); ok {
			rec[f] = security.SanitizeInput(s)
		}
	}
}

func checkProduct(rec map[string]any) error {
	return security.ValidateForm(
		map[string]string{"name": util.ToString(rec["name"])},
		map[string]security.FieldRule{"name": security.RuleProductName},
	)
}

func checkSupplier(rec map[string]any) error {
	return security.ValidateForm(
		map[string]string{
			"name":  util.ToString(rec["name"]),
			"phone": util.ToString(rec["phone"]),
		},
		map[string]security.FieldRule{
			"name":  security.RuleProductName,
			"phone": security.RulePhone,
		},
	)
}

func checkTransaction(rec map[string]any) error {
	switch strings.ToLower(util.ToString(rec["type"])) {
	case reports.TypeSell, reports.TypeBuy:
		rec["type"] = strings.ToLower(util.ToString(rec["type"]))
	default:
		return fmt.Errorf("type must be %q or %q", reports.TypeSell, reports.TypeBuy)
	}
	return security.ValidateForm(
		map[string]string{"productName": util.ToString(rec["productName"])},
		map[string]security.FieldRule{"productName": security.RuleProductName},
	)
}
