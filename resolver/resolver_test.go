package resolver

import (
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestDNS runs a DNS server on a loopback port serving the given SRV
// records for any query.
func startTestDNS(t *testing.T, records []dns.SRV) string {
	t.Helper()

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		for i := range records {
			rec := records[i]
			rec.Hdr = dns.RR_Header{
				Name:   req.Question[0].Name,
				Rrtype: dns.TypeSRV,
				Class:  dns.ClassINET,
				Ttl:    60,
			}
			resp.Answer = append(resp.Answer, &rec)
		}
		w.WriteMsg(resp)
	})

	started := make(chan struct{})
	server := &dns.Server{
		Addr:              "127.0.0.1:0",
		Net:               "udp",
		Handler:           mux,
		NotifyStartedFunc: func() { close(started) },
	}
	go server.ListenAndServe()
	t.Cleanup(func() { server.Shutdown() })

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("test DNS server did not start")
	}

	return server.PacketConn.LocalAddr().String()
}

func TestResolveOrdersByPriority(t *testing.T) {
	addr := startTestDNS(t, []dns.SRV{
		{Priority: 20, Port: 8081, Target: "backup.activation.example.com."},
		{Priority: 10, Port: 8080, Target: "primary.activation.example.com."},
	})

	r := &ServiceResolver{DNSServer: addr}
	endpoints, err := r.Resolve("_activation._tcp.example.com")
	require.NoError(t, err)
	require.Len(t, endpoints, 2)

	assert.Equal(t, "primary.activation.example.com.", endpoints[0].Host)
	assert.Equal(t, uint16(8080), endpoints[0].Port)
	assert.Equal(t, "http://primary.activation.example.com:8080", endpoints[0].URL())
	assert.Equal(t, "backup.activation.example.com.", endpoints[1].Host)
}

func TestResolveNoRecords(t *testing.T) {
	addr := startTestDNS(t, nil)

	r := &ServiceResolver{DNSServer: addr}
	_, err := r.Resolve("_activation._tcp.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SRV records")
}
