// Package stomp implements the minimal client-side subset of STOMP 1.2
// framing needed to talk to a Spring message broker over WebSocket:
// CONNECT/CONNECTED, SUBSCRIBE/UNSUBSCRIBE, SEND, MESSAGE, ERROR and
// DISCONNECT, with header escaping and content-length. Heart-beating is
// negotiated off.
package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Frame commands used by this client.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdError       = "ERROR"
	CmdReceipt     = "RECEIPT"
)

// Well-known header names.
const (
	HdrAcceptVersion = "accept-version"
	HdrVersion       = "version"
	HdrHost          = "host"
	HdrHeartBeat     = "heart-beat"
	HdrDestination   = "destination"
	HdrID            = "id"
	HdrSubscription  = "subscription"
	HdrContentType   = "content-type"
	HdrContentLength = "content-length"
	HdrAuthorization = "Authorization"
	HdrMessage       = "message"
)

// ErrMalformedFrame is returned when an inbound payload cannot be
// parsed as a STOMP frame.
var ErrMalformedFrame = errors.New("stomp: malformed frame")

// Frame is a single STOMP frame.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame from alternating header key/value pairs.
func NewFrame(command string, headers ...string) *Frame {
	f := &Frame{Command: command, Headers: make(map[string]string, len(headers)/2)}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers[headers[i]] = headers[i+1]
	}
	return f
}

// Marshal serializes the frame. Headers are written in sorted order so
// output is deterministic. A content-length header is added whenever
// the frame has a body.
func (f *Frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	keys := make([]string, 0, len(f.Headers)+1)
	for k := range f.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	escape := f.Command != CmdConnect && f.Command != CmdConnected
	for _, k := range keys {
		buf.WriteString(escapeHeader(k, escape))
		buf.WriteByte(':')
		buf.WriteString(escapeHeader(f.Headers[k], escape))
		buf.WriteByte('\n')
	}
	if len(f.Body) > 0 {
		buf.WriteString(HdrContentLength)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Parse decodes a single frame. It returns (nil, nil) for a heart-beat
// payload (a bare EOL), which callers should skip.
func Parse(data []byte) (*Frame, error) {
	data = bytes.TrimPrefix(data, []byte("\r\n"))
	data = bytes.TrimPrefix(data, []byte("\n"))
	if len(data) == 0 {
		return nil, nil
	}

	head, body, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		head, body, found = bytes.Cut(data, []byte("\r\n\r\n"))
		if !found {
			return nil, fmt.Errorf("%w: missing header terminator", ErrMalformedFrame)
		}
	}

	lines := strings.Split(string(head), "\n")
	command := strings.TrimRight(lines[0], "\r")
	if command == "" {
		return nil, fmt.Errorf("%w: empty command", ErrMalformedFrame)
	}

	f := &Frame{Command: command, Headers: make(map[string]string, len(lines)-1)}
	unescape := command != CmdConnect && command != CmdConnected
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header %q", ErrMalformedFrame, line)
		}
		k = unescapeHeader(k, unescape)
		// first occurrence wins, per the STOMP spec
		if _, exists := f.Headers[k]; !exists {
			f.Headers[k] = unescapeHeader(v, unescape)
		}
	}

	if n, err := strconv.Atoi(f.Headers[HdrContentLength]); err == nil && n >= 0 && n <= len(body) {
		f.Body = body[:n]
	} else {
		f.Body = bytes.TrimSuffix(body, []byte{0})
	}
	return f, nil
}

var headerEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)

var headerUnescaper = strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\c`, ":", `\\`, `\`)

func escapeHeader(s string, escape bool) string {
	if !escape {
		return s
	}
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string, unescape bool) string {
	if !unescape {
		return s
	}
	return headerUnescaper.Replace(s)
}
