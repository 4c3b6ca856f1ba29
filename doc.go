// Package cardvault provides the types and functions to manage a trading card
// collection. It is local-first and auditable: every change to a collection is
// an immutable transaction recorded in a human-readable ledger.
//
// The core functionalities include:
//   - Printings: identifying a specific set/number/finish/language variant of a
//     card with a composite [PrintingKey], shared by all catalogs.
//   - Collections: a named [Ledger] of transactions (declare, acquire, dispose,
//     update-price, list, delist) encoded as JSONL.
//   - Snapshots: a stateless fold of a ledger on a given day, giving holdings,
//     cost basis, market value and open listings.
//   - Price history: day-indexed prices per printing, trends and sparklines.
//   - Import/Export: CSV collection files, grouped by printing key.
//
// This package serves as the foundational logic for the `cv` command-line tool
// and the `cv serve` HTTP server.
package cardvault
