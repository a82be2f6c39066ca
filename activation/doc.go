// Package activation contains the orchestrator that turns a raw BYBX file
// into plaintext content: parse the envelope, fingerprint the device, bind or
// verify against the activation service, decrypt, deliver.
//
// The package owns the pipeline's state machine and its failure semantics. It
// never touches the filesystem or the network directly; envelopes arrive as
// byte buffers, device identity comes from a FingerprintProvider, and the
// handshake goes through an api.ActivationProvider.
package activation
