// Package stockfolio provides the types and functions to manage a personal
// stock-holding ledger. It is designed to be local-first: the whole portfolio
// is a single snapshot persisted through a Store, and market prices are pulled
// from public exchange and aggregator endpoints on demand.
//
// The core functionalities include:
//   - Holdings: recording purchases of Taiwan-listed securities across
//     several accounts, and refreshing their market price.
//   - Dividends: an ex-dividend ledger per holding, used to derive the
//     dividend-adjusted cost price.
//   - Calculators: exact gain, return, yield and cost-basis arithmetic.
//   - Aggregation: account-level and portfolio-level statistics.
//
// Price resolution itself lives in the quote package, and is injected in
// Holdings through the PriceResolver interface. This package serves as the
// foundational logic for the `pcs` command-line tool.
package stockfolio
