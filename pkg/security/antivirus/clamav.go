package antivirus

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"
)

// chunkSize stays well below clamd's default StreamMaxLength.
const chunkSize = 64 << 10

// ClamAV talks to a clamd daemon over TCP ("host:3310") or a unix socket
// path using the zINSTREAM command.
type ClamAV struct {
	address string
	timeout time.Duration
	dialer  net.Dialer
}

var _ Scanner = (*ClamAV)(nil)

func NewClamAV(address string, timeout time.Duration) *ClamAV {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClamAV{address: address, timeout: timeout}
}

func (c *ClamAV) network() string {
	if strings.HasPrefix(c.address, "/") {
		return "unix"
	}
	return "tcp"
}

func (c *ClamAV) dial(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, c.network(), c.address)
	if err != nil {
		return nil, fmt.Errorf("clamd dial: %w", err)
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

// Ping sends zPING and expects PONG.
func (c *ClamAV) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("zPING\x00")); err != nil {
		return fmt.Errorf("clamd ping: %w", err)
	}
	reply, err := readReply(conn)
	if err != nil {
		return fmt.Errorf("clamd ping: %w", err)
	}
	if reply != "PONG" {
		return fmt.Errorf("clamd ping: unexpected reply %q", reply)
	}
	return nil
}

// Scan streams data to clamd in length-prefixed chunks.
func (c *ClamAV) Scan(ctx context.Context, filename string, data []byte) (Verdict, error) {
	verdict := Verdict{Scanner: "clamav"}

	conn, err := c.dial(ctx)
	if err != nil {
		return verdict, err
	}
	defer conn.Close()

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString("zINSTREAM\x00"); err != nil {
		return verdict, fmt.Errorf("clamd instream: %w", err)
	}
	var size [4]byte
	for start := 0; start < len(data); start += chunkSize {
		end := min(start+chunkSize, len(data))
		binary.BigEndian.PutUint32(size[:], uint32(end-start))
		if _, err := w.Write(size[:]); err != nil {
			return verdict, fmt.Errorf("clamd instream: %w", err)
		}
		if _, err := w.Write(data[start:end]); err != nil {
			return verdict, fmt.Errorf("clamd instream: %w", err)
		}
	}
	// zero-length chunk terminates the stream
	binary.BigEndian.PutUint32(size[:], 0)
	if _, err := w.Write(size[:]); err != nil {
		return verdict, fmt.Errorf("clamd instream: %w", err)
	}
	if err := w.Flush(); err != nil {
		return verdict, fmt.Errorf("clamd instream: %w", err)
	}

	reply, err := readReply(conn)
	if err != nil {
		return verdict, fmt.Errorf("clamd reply for %s: %w", filename, err)
	}
	return parseReply(verdict, reply)
}

// parseReply understands "stream: OK", "stream: <name> FOUND" and
// "<message> ERROR".
func parseReply(v Verdict, reply string) (Verdict, error) {
	body := reply
	if i := strings.Index(reply, ":"); i >= 0 {
		body = strings.TrimSpace(reply[i+1:])
	}
	switch {
	case body == "OK":
		return v, nil
	case strings.HasSuffix(body, " FOUND"):
		v.Threat = strings.TrimSuffix(body, " FOUND")
		return v, ErrInfected
	default:
		return v, fmt.Errorf("clamd: %s", reply)
	}
}

func readReply(conn net.Conn) (string, error) {
	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && reply == "" {
		return "", err
	}
	return strings.TrimSpace(strings.TrimRight(reply, "\x00")), nil
}
