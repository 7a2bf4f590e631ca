// Package dataset reads the product CSV used to build the taxonomy and to
// derive ground truth for evaluation.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one product from the dataset. List-valued columns are kept raw;
// use ParseList to decode them.
type Row struct {
	Title             string
	Description       string
	Brand             string
	Categories        string
	Variations        string
	ProductDimensions string
	ItemWeight        string
	Features          string
	ProductDetails    string
	RootBSCategory    string
}

var columns = map[string]func(*Row, string){
	"title":              func(r *Row, v string) { r.Title = v },
	"description":        func(r *Row, v string) { r.Description = v },
	"brand":              func(r *Row, v string) { r.Brand = v },
	"categories":         func(r *Row, v string) { r.Categories = v },
	"variations":         func(r *Row, v string) { r.Variations = v },
	"product_dimensions": func(r *Row, v string) { r.ProductDimensions = v },
	"item_weight":        func(r *Row, v string) { r.ItemWeight = v },
	"features":           func(r *Row, v string) { r.Features = v },
	"product_details":    func(r *Row, v string) { r.ProductDetails = v },
	"root_bs_category":   func(r *Row, v string) { r.RootBSCategory = v },
}

// ReadCSV streams rows from r to fn. Unknown columns are ignored; a row
// with a different field count is read as far as it goes. Returning an
// error from fn stops the read.
func ReadCSV(r io.Reader, fn func(Row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}

	setters := make([]func(*Row, string), len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		setters[i] = columns[name]
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line %d: %w", line, err)
		}

		var row Row
		for i, value := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, value)
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ReadFile loads every row of the CSV at path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var rows []Row
	err = ReadCSV(f, func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return rows, nil
}
