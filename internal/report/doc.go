// Package report renders broker and market performance reports as PDF
// documents.
//
// Rendering is deterministic: given the same summary and a fixed clock the
// generator produces byte-identical output, which keeps report caching and
// regression tests honest.
package report
