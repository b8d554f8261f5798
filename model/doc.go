// Package model provides the canonical result types every extraction
// backend's output is normalized into.
//
// This package defines the user-facing data structures returned by a parse.
// All backends, whatever their native output shape, ultimately produce a
// [DocumentResult], making it the primary API for consuming extracted
// content.
//
// # Document Structure
//
// The [DocumentResult] type represents one parsed document:
//
//	res := model.NewDocumentResult("pdf-markdown")
//	res.AddPage(model.PageResult{Content: "# Title"})
//	fmt.Println(res.PageCount(), res.Pages[0].PageNumber)
//
// Each [PageResult] carries content, normalized bounding boxes and per-page
// metadata. Page numbers are canonical: 1-indexed, ascending, assigned by the
// normalizer regardless of the backend's own numbering.
//
// # Classification
//
// PDF inputs additionally carry a [PDFClassification] describing the
// digital/scanned/hybrid decision and the per-page evidence it was derived
// from. The classification is attached verbatim; it is never recomputed from
// the result.
//
// # Geometry
//
// [BBox] is a corner-form box in normalized page coordinates [0,1]x[0,1].
// Normalization happens exactly once, when a backend's native coordinates are
// converted; rendering at any scale afterwards is a pure multiply via
// [BBox.Scaled].
package model
