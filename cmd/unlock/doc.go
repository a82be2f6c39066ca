// Command unlock opens a BYBX protected file on this device: it fingerprints
// the host, performs the bind or verify handshake with the activation service,
// and writes the decrypted content to stdout or a file.
package main
