// Package api defines the wire contract of the BYBX activation service: the
// bond and verify endpoints, their request and response shapes, and the
// client-side ActivationProvider interface. Handler and client
// implementations live in the api/activationhandler subpackage.
package api
