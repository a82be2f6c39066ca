// Command activationserver runs the BYBX activation service: it accepts bond
// and verify requests from readers, enforces the one-device-per-purchase rule
// against the binding ledger, and issues content keys derived from the master
// seed. Ledger snapshots can be archived to file, S3, or IPFS storage.
package main
