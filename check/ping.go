package check

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thetooth/pingwindow/util"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	timeSliceLength  = 8
	trackerLength    = len(uuid.UUID{})
	protocolICMP     = 1
	protocolIPv6ICMP = 58

	defaultPingTimeout = time.Second
	ipv4HeaderLen      = 20
	ipv6HeaderLen      = 40
	icmpHeaderLen      = 8
)

var (
	ipv4Proto = map[bool]string{true: "ip4:icmp", false: "udp4"}
	ipv6Proto = map[bool]string{true: "ip6:ipv6-icmp", false: "udp6"}
)

// Pinger sends one ICMP echo request per probe and waits for the matching
// reply or error.
type Pinger struct {
	// Privileged selects raw ICMP sockets. Otherwise unprivileged ICMP datagram
	// sockets are used, which lets the kernel pick the echo identifier.
	Privileged bool

	id      int
	tracker uuid.UUID
	seq     atomic.Uint32
}

// NewPinger returns a Pinger with a random identifier and tracker.
func NewPinger(privileged bool) *Pinger {
	r := rand.New(rand.NewSource(getSeed()))
	return &Pinger{
		Privileged: privileged,
		id:         r.Intn(math.MaxUint16),
		tracker:    uuid.New(),
	}
}

func (p *Pinger) Check(ctx context.Context, req Request) (Result, error) {
	ipaddr, err := net.ResolveIPAddr("ip", req.Target)
	if err != nil {
		return Result{}, err
	}
	v4 := isIPv4(ipaddr.IP)

	var src string
	if req.Source != "" {
		src, err = util.BindIface(req.Source, !v4)
		if err != nil {
			return Result{}, fmt.Errorf("binding %s: %w", req.Source, err)
		}
	}

	conn, err := p.listen(v4, src)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Result{}, err
	}

	seq := int(p.seq.Add(1) & 0xffff)
	msg := &icmp.Message{
		Type: echoRequestType(v4),
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: p.payload(time.Now(), req.Size),
		},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return Result{}, err
	}

	var dst net.Addr = ipaddr
	if !p.Privileged {
		dst = &net.UDPAddr{IP: ipaddr.IP, Zone: ipaddr.Zone}
	}
	if _, err := conn.WriteTo(msgBytes, dst); err != nil {
		return Result{}, fmt.Errorf("sending echo: %w", err)
	}

	buf := make([]byte, ipv6HeaderLen+icmpHeaderLen+len(msgBytes)+512)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var neterr net.Error
			if errors.As(err, &neterr) && neterr.Timeout() {
				return Result{Status: Unreachable, Code: -1}, nil
			}
			return Result{}, fmt.Errorf("reading reply: %w", err)
		}

		if res, ok := p.match(v4, seq, buf[:n], time.Now()); ok {
			return res, nil
		}
	}
}

func (p *Pinger) listen(v4 bool, src string) (*icmp.PacketConn, error) {
	if v4 {
		if src == "" {
			src = "0.0.0.0"
		}
		return icmp.ListenPacket(ipv4Proto[p.Privileged], src)
	}
	if src == "" {
		src = "::"
	}
	return icmp.ListenPacket(ipv6Proto[p.Privileged], src)
}

// match reports whether b answers the echo request with sequence seq.
func (p *Pinger) match(v4 bool, seq int, b []byte, receivedAt time.Time) (Result, bool) {
	proto := protocolICMP
	if !v4 {
		proto = protocolIPv6ICMP
	}

	m, err := icmp.ParseMessage(proto, b)
	if err != nil {
		logrus.Trace("Parsing ICMP message: ", err)
		return Result{}, false
	}

	switch body := m.Body.(type) {
	case *icmp.Echo:
		if m.Type != ipv4.ICMPTypeEchoReply && m.Type != ipv6.ICMPTypeEchoReply {
			return Result{}, false
		}
		if !p.ownEcho(body.ID, body.Seq, seq) || !p.ownPayload(body.Data) {
			return Result{}, false
		}
		return Result{Status: Reachable, RTT: receivedAt.Sub(bytesToTime(body.Data))}, true

	case *icmp.DstUnreach:
		if p.quotesEcho(v4, body.Data, seq) {
			return Result{Status: Unreachable, Code: m.Code}, true
		}

	case *icmp.TimeExceeded:
		if p.quotesEcho(v4, body.Data, seq) {
			return Result{Status: Unreachable, Code: m.Code}, true
		}
	}

	return Result{}, false
}

func (p *Pinger) ownEcho(id, seq, want int) bool {
	if seq != want {
		return false
	}
	// Datagram sockets rewrite the identifier
	return !p.Privileged || id == p.id
}

func (p *Pinger) ownPayload(data []byte) bool {
	if len(data) < timeSliceLength {
		return false
	}
	if len(data) < timeSliceLength+trackerLength {
		return true
	}
	return bytes.Equal(data[timeSliceLength:timeSliceLength+trackerLength], p.tracker[:])
}

// quotesEcho reports whether an ICMP error quotes our echo request.
func (p *Pinger) quotesEcho(v4 bool, quoted []byte, seq int) bool {
	off := ipv6HeaderLen
	if v4 {
		if len(quoted) < ipv4HeaderLen {
			return false
		}
		off = int(quoted[0]&0x0f) * 4
	}
	if len(quoted) < off+icmpHeaderLen {
		return false
	}

	hdr := quoted[off : off+icmpHeaderLen]
	id := int(binary.BigEndian.Uint16(hdr[4:6]))
	return p.ownEcho(id, int(binary.BigEndian.Uint16(hdr[6:8])), seq)
}

// payload is the send time followed by the tracker, cut or padded to size.
func (p *Pinger) payload(sent time.Time, size int) []byte {
	data := append(timeToBytes(sent), p.tracker[:]...)
	if size < len(data) {
		return data[:max(size, timeSliceLength)]
	}
	return append(data, bytes.Repeat([]byte{1}, size-len(data))...)
}

func echoRequestType(v4 bool) icmp.Type {
	if v4 {
		return ipv4.ICMPTypeEcho
	}
	return ipv6.ICMPTypeEchoRequest
}

func bytesToTime(b []byte) time.Time {
	nsec := int64(binary.BigEndian.Uint64(b[:timeSliceLength]))
	return time.Unix(nsec/1000000000, nsec%1000000000)
}

func isIPv4(ip net.IP) bool {
	return len(ip.To4()) == net.IPv4len
}

func timeToBytes(t time.Time) []byte {
	b := make([]byte, timeSliceLength)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

var seed int64 = time.Now().UnixNano()

// getSeed returns a goroutine-safe unique seed
func getSeed() int64 {
	return atomic.AddInt64(&seed, 1)
}
