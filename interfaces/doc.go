// Package interfaces contains the shared contract of the BYBX activation
// system: the fingerprint, key derivation, ledger, and storage interfaces,
// the hardware binding types, and the closed error taxonomy every component
// maps its failures into.
//
// Implementations live elsewhere (fingerprint, kms, ledger, storage); this
// package stays free of implementation dependencies so that any component can
// import it without cycles.
package interfaces
