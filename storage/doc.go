// Package storage provides named blob storage backends used for ledger
// snapshots and seed share distribution: local filesystem, S3-compatible
// object stores, and IPFS. A factory builds backends from location URIs, and
// a multi-backend aggregates several for redundancy.
package storage
