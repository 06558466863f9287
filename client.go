// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// requestState is where a single in-flight request sits in its lifecycle.
type requestState int

const (
	stateIdle requestState = iota
	stateAwaitingReply
	stateCompleted
	stateTimedOut
	stateCancelled
)

// pendingRequest tracks one request awaiting a correlated response.
type pendingRequest struct {
	state  requestState
	replCh chan Message
	errCh  chan error
}

// ClientConfig configures a Client. Target/Port/Community are required
// for v1/v2c; the V3 fields are required when Version is Version3.
type ClientConfig struct {
	Target    string
	Port      uint16
	Version   SnmpVersion
	Community string
	Timeout   time.Duration
	Retries   int

	SecurityModel SecurityModel
	User          *V3User
	ContextEngine string
	ContextName   string
	Flags         MsgFlags

	Logger Logger
}

// Client is a minimal, connectionless SNMP client: one request at a time
// per correlation ID, tracked in pending until its reply arrives, times
// out, or is cancelled. Correlation IDs come from an atomic counter, so
// concurrent callers never alias one another's slots.
type Client struct {
	cfg  ClientConfig
	conn *net.UDPConn
	addr *net.UDPAddr

	msgID     int32
	requestID int32

	engine *EngineState
	logger Logger

	mu      sync.Mutex
	pending map[int32]*pendingRequest

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient resolves cfg.Target/Port and opens a UDP socket, returning a
// Client ready to call SendReceive. The caller must call Close when done.
func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = DiscardLogger
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.Target, cfg.Port))
	if err != nil {
		return nil, &TransportError{Op: "resolve", Err: err}
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		addr:    addr,
		logger:  logger,
		pending: make(map[int32]*pendingRequest),
		done:    make(chan struct{}),
	}
	if cfg.Version == Version3 {
		c.engine = NewEngineState("")
	}
	go c.readLoop()
	return c, nil
}

// Close shuts down the socket and unblocks any readLoop goroutine.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *Client) nextRequestID() int32 { return atomic.AddInt32(&c.requestID, 1) }
func (c *Client) nextMsgID() int32     { return atomic.AddInt32(&c.msgID, 1) }

// SendReceive sends pdu and blocks for the correlated response, retrying
// up to cfg.Retries times when an attempt fails with a TransportError (a
// timeout or a socket error); any other error is returned at once. For v3
// with an unset authoritative
// engine ID it first performs engine discovery.
func (c *Client) SendReceive(ctx context.Context, pdu PDU) (PDU, error) {
	if c.cfg.Version == Version3 && c.engine.EngineID == "" {
		if err := c.discoverEngine(ctx); err != nil {
			return PDU{}, err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		resp, err := c.sendOnce(ctx, pdu)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return PDU{}, ctx.Err()
		}
		if _, ok := err.(*TransportError); !ok {
			return PDU{}, err
		}
	}
	return PDU{}, lastErr
}

func (c *Client) sendOnce(ctx context.Context, pdu PDU) (PDU, error) {
	pdu.RequestID = c.nextRequestID()

	var packet []byte
	var err error
	correlationID := pdu.RequestID
	switch c.cfg.Version {
	case Version1, Version2c:
		packet, err = c.encodeCommunity(pdu)
	case Version3:
		var msgID int32
		packet, msgID, err = c.encodeV3(pdu)
		correlationID = msgID
	default:
		return PDU{}, &ProtocolError{Reason: fmt.Sprintf("unsupported client version %v", c.cfg.Version)}
	}
	if err != nil {
		return PDU{}, err
	}

	req := &pendingRequest{
		state:  stateAwaitingReply,
		replCh: make(chan Message, 1),
		errCh:  make(chan error, 1),
	}
	c.mu.Lock()
	c.pending[correlationID] = req
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
	}()

	if _, err := c.conn.Write(packet); err != nil {
		return PDU{}, &TransportError{Op: "write", Err: err}
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-req.replCh:
		return c.unwrapResponse(msg)
	case err := <-req.errCh:
		return PDU{}, err
	case <-timer.C:
		c.mu.Lock()
		req.state = stateTimedOut
		c.mu.Unlock()
		return PDU{}, &TransportError{Op: "read", Err: fmt.Errorf("timed out waiting for response to request %d", pdu.RequestID)}
	case <-ctx.Done():
		c.mu.Lock()
		req.state = stateCancelled
		c.mu.Unlock()
		return PDU{}, ctx.Err()
	case <-c.done:
		return PDU{}, &TransportError{Op: "read", Err: fmt.Errorf("client closed")}
	}
}

// finishV3Response completes v3 processing of an inbound message still
// carrying ciphertext or an unverified digest: it verifies the auth
// digest against the raw datagram (if present), decrypts EncryptedPDU (if
// present), and adopts the peer's engine boots/time so later requests use
// a fresh timeliness window. It also learns the engine ID on first
// contact, completing discovery without a dedicated Report round-trip
// when the peer happens to answer with security parameters attached.
func (c *Client) finishV3Response(msg *Message, raw []byte) error {
	sp := msg.V3.SecurityParameters
	if c.engine.EngineID == "" && sp.AuthoritativeEngineID != "" {
		c.engine.EngineID = sp.AuthoritativeEngineID
	}

	if c.cfg.User != nil && c.cfg.User.AuthProtocol > AuthNone && len(sp.AuthenticationParameters) > 0 {
		ok, err := VerifyDigest(raw, c.cfg.User.AuthProtocol, c.cfg.User.AuthKey, sp.AuthenticationParameters)
		if err != nil {
			return err
		}
		if !ok {
			return &AuthError{Reason: "response digest mismatch", OID: OidUsmStatsWrongDigests}
		}
	}

	c.engine.SetDiscovered(sp.AuthoritativeEngineBoots, sp.AuthoritativeEngineTime)

	if len(msg.V3.EncryptedPDU) == 0 {
		return nil
	}
	if c.cfg.User == nil || c.cfg.User.PrivProtocol == PrivNone {
		return &AuthError{Reason: "received encrypted scoped pdu but no privacy key configured"}
	}
	plaintext, err := DecryptScopedPDU(c.cfg.User.PrivProtocol, c.cfg.User.PrivKey,
		uint32(sp.AuthoritativeEngineBoots), uint32(sp.AuthoritativeEngineTime), sp.PrivacyParameters, msg.V3.EncryptedPDU)
	if err != nil {
		return err
	}
	scoped, err := DecodeScopedPDUFromBytes(plaintext)
	if err != nil {
		return err
	}
	msg.V3.ScopedPDU = scoped
	msg.PDU = scoped.PDU
	return nil
}

func (c *Client) unwrapResponse(msg Message) (PDU, error) {
	resp := msg.PDU
	if msg.Version == Version3 {
		resp = msg.V3.ScopedPDU.PDU
	}
	if resp.Type == Report {
		return PDU{}, c.handleReport(resp)
	}
	if resp.ErrorStatus != NoError {
		return resp, &OperationError{Status: resp.ErrorStatus, Index: int(resp.ErrorIndex)}
	}
	return resp, nil
}

// handleReport inspects a v3 Report's varbinds for a known usmStats OID
// and surfaces it as an AuthError; an unrecognized Report is surfaced as
// a plain protocol error.
func (c *Client) handleReport(pdu PDU) error {
	for _, vb := range pdu.Varbinds {
		switch {
		case vb.Oid.Equal(OidUsmStatsNotInTimeWindows):
			return &AuthError{Reason: "not in time window", OID: vb.Oid}
		case vb.Oid.Equal(OidUsmStatsUnknownUserNames):
			return &AuthError{Reason: "unknown user name", OID: vb.Oid}
		case vb.Oid.Equal(OidUsmStatsUnknownEngineIDs):
			return &AuthError{Reason: "unknown engine id", OID: vb.Oid}
		case vb.Oid.Equal(OidUsmStatsWrongDigests):
			return &AuthError{Reason: "wrong digest", OID: vb.Oid}
		case vb.Oid.Equal(OidUsmStatsDecryptionErrors):
			return &AuthError{Reason: "decryption error", OID: vb.Oid}
		case vb.Oid.Equal(OidUsmStatsUnsupportedSecLevels):
			return &AuthError{Reason: "unsupported security level", OID: vb.Oid}
		}
	}
	return &ProtocolError{Reason: "received report pdu with no recognized usmStats varbind"}
}

// discoverEngine sends a blank, noAuthNoPriv GetRequest to learn the
// peer's authoritative engine ID/boots/time, per RFC 3414 §4's discovery
// procedure.
func (c *Client) discoverEngine(ctx context.Context) error {
	blank := PDU{Type: GetRequest}
	savedUser, savedFlags := c.cfg.User, c.cfg.Flags
	c.cfg.User = nil
	c.cfg.Flags = 0
	defer func() { c.cfg.User, c.cfg.Flags = savedUser, savedFlags }()

	_, err := c.sendOnce(ctx, blank)
	var authErr *AuthError
	if err != nil {
		if !asAuthError(err, &authErr) {
			return err
		}
	}
	return nil
}

func asAuthError(err error, target **AuthError) bool {
	if ae, ok := err.(*AuthError); ok {
		*target = ae
		return true
	}
	return false
}

// WalkFunc is called once per varbind produced by Walk/BulkWalk. A
// non-nil return stops the walk and is surfaced to the caller.
type WalkFunc func(vb Varbind) error

// Walk traverses the subtree rooted at root with GetNext requests,
// invoking fn for each varbind. It terminates when the agent reports
// EndOfMibView, when the returned OID leaves root's subtree, or when fn
// returns an error.
func (c *Client) Walk(ctx context.Context, root Oid, fn WalkFunc) error {
	return c.walk(ctx, GetNextRequest, 0, root, fn)
}

// BulkWalk traverses the subtree rooted at root with GetBulkRequest
// rounds of maxRepetitions, invoking fn for each varbind. Termination
// conditions match Walk.
func (c *Client) BulkWalk(ctx context.Context, root Oid, maxRepetitions int32, fn WalkFunc) error {
	if maxRepetitions <= 0 {
		maxRepetitions = 10
	}
	return c.walk(ctx, GetBulkRequest, maxRepetitions, root, fn)
}

func (c *Client) walk(ctx context.Context, requestType PDUType, maxRepetitions int32, root Oid, fn WalkFunc) error {
	current := root
	for {
		req := PDU{Type: requestType, Varbinds: VarbindList{{Oid: current, Value: Null()}}}
		if requestType == GetBulkRequest {
			req.MaxRepetitions = maxRepetitions
		}
		resp, err := c.SendReceive(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Varbinds) == 0 {
			return nil
		}

		progressed := false
		for _, vb := range resp.Varbinds {
			switch vb.Value.Kind {
			case KindEndOfMibView, KindNoSuchObject, KindNoSuchInstance:
				return nil
			}
			if !root.IsPrefixOf(vb.Oid) {
				return nil
			}
			if vb.Oid.Compare(current) <= 0 {
				return &ProtocolError{Reason: "walk did not advance: agent returned a non-increasing oid"}
			}
			if err := fn(vb); err != nil {
				return err
			}
			current = vb.Oid
			progressed = true
		}
		if !progressed {
			return nil
		}
	}
}

func (c *Client) encodeCommunity(pdu PDU) ([]byte, error) {
	return EncodeMessage(c.cfg.Version, c.cfg.Community, pdu)
}

func (c *Client) encodeV3(pdu PDU) ([]byte, int32, error) {
	scoped := ScopedPDU{ContextEngineID: c.cfg.ContextEngine, ContextName: c.cfg.ContextName, PDU: pdu}
	plaintext, err := EncodeScopedPDU(scoped)
	if err != nil {
		return nil, 0, err
	}

	flags := c.cfg.Flags
	usm := UsmSecurityParameters{
		AuthoritativeEngineID:    c.engine.EngineID,
		AuthoritativeEngineBoots: c.engine.Boots(),
		AuthoritativeEngineTime:  c.engine.Time(),
	}
	if c.cfg.User != nil {
		usm.UserName = c.cfg.User.Name
	}

	var encrypted []byte
	body := plaintext
	if flags.HasPriv() && c.cfg.User != nil {
		salt := c.engine.NextAESSalt()
		if c.cfg.User.PrivProtocol == PrivDES {
			salt = c.engine.NextDESSalt()
		}
		usm.PrivacyParameters = salt
		encrypted, err = EncryptScopedPDU(c.cfg.User.PrivProtocol, c.cfg.User.PrivKey,
			uint32(usm.AuthoritativeEngineBoots), uint32(usm.AuthoritativeEngineTime), salt, plaintext)
		if err != nil {
			return nil, 0, err
		}
		body = nil
	}

	msgID := c.nextMsgID()
	hdr := V3Header{MsgID: msgID, MaxSize: maxMessageSize, Flags: flags | FlagReportable, SecurityModel: UserSecurityModel}
	authProtocol := AuthNone
	if c.cfg.User != nil {
		authProtocol = c.cfg.User.AuthProtocol
	}

	var scopedPDUPlain, scopedPDUEnc []byte
	if encrypted != nil {
		scopedPDUEnc = encrypted
	} else {
		scopedPDUPlain = body
	}

	packet, authParamStart, err := EncodeMessageV3(hdr, usm, authProtocol, scopedPDUPlain, scopedPDUEnc)
	if err != nil {
		return nil, 0, err
	}

	if flags.HasAuth() && c.cfg.User != nil {
		if err := Authenticate(packet, authParamStart, authProtocol, c.cfg.User.AuthKey); err != nil {
			return nil, 0, err
		}
	}
	return packet, msgID, nil
}

// readLoop pulls datagrams off the socket and correlates them to a
// pending request by request ID (v1/v2c) or message ID (v3).
func (c *Client) readLoop() {
	buf := make([]byte, maxMessageSize)
	for {
		select {
		case <-c.done:
			return
		default:
		}
		n, err := c.conn.Read(buf)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				c.logger.Printf("snmpcore: client read error: %v", err)
				continue
			}
		}
		raw := append([]byte(nil), buf[:n]...)
		msg, err := DecodeMessage(raw)
		if err != nil {
			c.logger.Printf("snmpcore: client decode error: %v", err)
			continue
		}

		correlationID := msg.PDU.RequestID
		if msg.Version == Version3 {
			correlationID = msg.V3.Header.MsgID
			if err := c.finishV3Response(&msg, raw); err != nil {
				c.logger.Printf("snmpcore: v3 response verification failed: %v", err)
				continue
			}
		}

		c.mu.Lock()
		req, ok := c.pending[correlationID]
		c.mu.Unlock()
		if !ok {
			continue // late reply for a timed-out/cancelled/unknown request: drop silently
		}
		select {
		case req.replCh <- msg:
		default:
		}
	}
}
