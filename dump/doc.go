/*
Package dump provides I/O operations for ledger account snapshots.

A snapshot is a human-readable copy of all ledger accounts taken at some slot.
It allows you to inspect the ledger offline and to compare states of
different ledgers or slots.

The package works with dumps stored in the file system: a CSV file with
accounts and a JSON summary per dump.
*/
package dump
