// Package resolver discovers activation service endpoints through DNS SRV
// records, so fleet deployments can repoint clients without reconfiguring
// every installation.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// DefaultDNSServer is the systemd-resolved stub listener, used when no
// explicit DNS server is configured.
const DefaultDNSServer = "127.0.0.53:53"

// Endpoint is one resolved activation service address.
type Endpoint struct {
	Host     string
	Port     uint16
	Priority uint16
}

// URL renders the endpoint as the base URL expected by the activation client.
func (e Endpoint) URL() string {
	return fmt.Sprintf("http://%s:%d", strings.TrimSuffix(e.Host, "."), e.Port)
}

// ServiceResolver looks up SRV records for the activation service.
type ServiceResolver struct {
	// DNSServer is the host:port of the DNS server to query;
	// DefaultDNSServer when empty.
	DNSServer string

	// Client is the DNS client to use; a default client when nil.
	Client *dns.Client
}

// Resolve queries SRV records for the given service domain and returns the
// endpoints ordered by SRV priority, lowest first.
func (r *ServiceResolver) Resolve(domain string) ([]Endpoint, error) {
	msg := new(dns.Msg)
	msg.Id = dns.Id()
	msg.RecursionDesired = true
	msg.Question = []dns.Question{{
		Name:   dns.Fqdn(domain),
		Qtype:  dns.TypeSRV,
		Qclass: dns.ClassINET,
	}}

	client := r.Client
	if client == nil {
		client = new(dns.Client)
	}
	server := r.DNSServer
	if server == "" {
		server = DefaultDNSServer
	}

	in, _, err := client.Exchange(msg, server)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup for %s failed: %w", domain, err)
	}

	endpoints := make([]Endpoint, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			endpoints = append(endpoints, Endpoint{
				Host:     srv.Target,
				Port:     srv.Port,
				Priority: srv.Priority,
			})
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no SRV records for %s", domain)
	}

	sort.SliceStable(endpoints, func(i, j int) bool {
		return endpoints[i].Priority < endpoints[j].Priority
	})

	return endpoints, nil
}
