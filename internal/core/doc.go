// Package core provides the business logic for importing engineer rosters.
//
// The package is independent of any transport. Web handlers and the
// importctl CLI both drive it through [Service].
//
// # Import flow
//
//  1. [Service.Preview] reads the upload (size-capped, BOM stripped,
//     invalid UTF-8 replaced) and parses it with the active
//     [schema.Profile] via package delimited.
//  2. Structural problems come back as an error and nothing else.
//  3. Row problems come back in [Preview.Errors] next to the rows that
//     passed; [Preview.CanSubmit] is false while any remain.
//  4. [Service.Submit] repeats the parse and, only when every row is
//     valid, takes an import slot from the [ImportLimiter] and writes the
//     whole file as one batch through [Store].
//
// # Error handling
//
// Errors are mapped to user-facing messages with [MapError]. Each message
// carries a short code (FILE, VAL, DB, IMP, RATE, ERR) for support.
//
// # Batches
//
// Every committed file is recorded in import_batches with the client's IP
// and User-Agent. [Service.RollbackBatch] removes a batch and the engineers
// it created.
package core
