// Package dataprocessing reads raw factor beta tables into the in-memory
// form the transformation engine works on.
//
// It accepts delimited text (.csv, .txt) and Excel workbooks (.xlsx) and
// applies the same normalization regardless of source:
//
//  1. Decode text as UTF-8, tolerating a UTF-8 BOM, with a Latin-1 fallback
//     for legacy exports.
//  2. Clean numeric text: surrounding whitespace, no-break spaces, thousands
//     separators and the Unicode minus sign are removed or normalized before
//     parsing.
//  3. Map blank, unparseable and non-finite cells to the undefined sentinel.
//     A missing beta never turns into a zero.
//
// The first two columns of every table are metadata (entity symbol and
// display name); everything after them is a numeric factor column. Tables
// with fewer than three columns, duplicate factor headers, or rows that do
// not align with the header are rejected before any computation starts.
//
// The package also derives the date tag used in output file names from the
// input file name (see ExtractDateTag).
package dataprocessing
