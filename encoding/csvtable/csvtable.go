// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package csvtable reads the comma-separated tables written by the routine
// sequence QC pipeline and by the catalog maintainers. Rows are decoded into
// structs using `tsv:"column"` tags, matched by header name, so column order
// in the input does not matter and unknown columns are ignored.
package csvtable

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// NewReader creates a header-aware reader for a comma-separated table.
func NewReader(r io.Reader) *tsv.Reader {
	tr := tsv.NewReader(r)
	tr.Comma = ','
	tr.LazyQuotes = true
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	return tr
}

// ForEach opens path and decodes every data row into row, calling fn after
// each one. row must be a pointer to a struct; it is overwritten by every
// read, so fn must copy out anything it keeps. An empty file has no rows.
func ForEach(ctx context.Context, path string, row interface{}, fn func() error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := NewReader(in.Reader(ctx))
	for nRow := 1; ; nRow++ {
		if err := r.Read(row); err != nil {
			if err == io.EOF {
				return nil
			}
			if nRow == 1 && strings.Contains(err.Error(), tsv.EmptyReadErrStr) {
				return nil
			}
			return errors.E(err, "read", path, "row", strconv.Itoa(nRow))
		}
		if err := fn(); err != nil {
			return err
		}
	}
}

// Float parses a numeric cell. Surrounding whitespace is ignored.
func Float(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Int parses an integer cell. Surrounding whitespace is ignored.
func Int(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// OptionalFloat parses a catalog cell where an empty value means the
// attribute is not known. Unparsable values are also treated as unknown.
func OptionalFloat(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v, err := Float(s)
	if err != nil {
		return nil
	}
	return &v
}
