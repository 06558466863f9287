// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
)

// AgentConfig configures an Agent's listening socket, identity, and
// security posture.
type AgentConfig struct {
	ListenAddr string // host:port, e.g. ":161"
	Community  string // accepted for v1/v2c requests

	EngineID string
	Users    *UserDB

	Workers int // concurrent request handlers; defaults to 4

	// ReusePort sets SO_REUSEPORT on the listening socket (Linux only;
	// a no-op elsewhere) so several Agent processes can share one port.
	ReusePort bool

	Logger   Logger
	Counters Counters
}

// Agent is the SNMP responder core: a UDP listener feeding a bounded pool
// of worker goroutines that decode, dispatch, and answer requests against
// an ObjectProvider.
type Agent struct {
	cfg      AgentConfig
	provider ObjectProvider
	engine   *EngineState
	logger   Logger
	counters Counters

	conn *net.UDPConn
	pc   *ipv4.PacketConn
	jobs chan agentJob

	started   chan struct{}
	startOnce sync.Once

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type agentJob struct {
	packet []byte
	from   *net.UDPAddr
	cm     *ipv4.ControlMessage
}

// NewAgent constructs an Agent serving provider over cfg.ListenAddr. Call
// Serve to start accepting requests.
func NewAgent(cfg AgentConfig, provider ObjectProvider) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = DiscardLogger
	}
	counters := cfg.Counters
	if counters == nil {
		counters = DiscardCounters
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	// An absent user database behaves as "no known users", so a v3
	// request for any user draws a usmStatsUnknownUserNames Report
	// rather than dereferencing nil.
	if cfg.Users == nil {
		cfg.Users = NewUserDB(cfg.EngineID)
	}

	return &Agent{
		cfg:      cfg,
		provider: provider,
		engine:   NewEngineState(cfg.EngineID),
		logger:   logger,
		counters: counters,
		jobs:     make(chan agentJob, workers*4),
		started:  make(chan struct{}),
	}
}

// Ready is closed once Serve has bound its socket and begun accepting
// datagrams; useful when cfg.ListenAddr carries port 0 and the caller
// needs the kernel-assigned port via LocalAddr.
func (a *Agent) Ready() <-chan struct{} { return a.started }

// LocalAddr returns the bound listening address. Valid only after Ready
// has been closed.
func (a *Agent) LocalAddr() net.Addr { return a.conn.LocalAddr() }

// Serve opens the listening socket and blocks, dispatching datagrams to
// worker goroutines, until ctx is cancelled or the socket errors. When
// cfg.ReusePort is set (Linux only) the socket is bound with
// SO_REUSEPORT so several Agent processes can share cfg.ListenAddr.
func (a *Agent) Serve(ctx context.Context) error {
	var conn *net.UDPConn
	var err error
	if a.cfg.ReusePort {
		conn, err = listenReusablePort(ctx, "udp4", a.cfg.ListenAddr)
	} else {
		var addr *net.UDPAddr
		addr, err = net.ResolveUDPAddr("udp4", a.cfg.ListenAddr)
		if err == nil {
			conn, err = net.ListenUDP("udp4", addr)
		}
	}
	if err != nil {
		return &TransportError{Op: "listen", Err: err}
	}
	a.conn = conn
	defer conn.Close()

	pc, err := packetConnWithControlMessages(conn)
	if err != nil {
		return err
	}
	a.pc = pc
	a.startOnce.Do(func() { close(a.started) })

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	workers := a.cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker(ctx)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxMessageSize)
	for {
		n, cm, from, err := pc.ReadFrom(buf)
		if err != nil {
			close(a.jobs)
			a.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return &TransportError{Op: "read", Err: err}
		}
		udpFrom, ok := from.(*net.UDPAddr)
		if !ok {
			continue
		}
		packet := append([]byte(nil), buf[:n]...)
		select {
		case a.jobs <- agentJob{packet: packet, from: udpFrom, cm: cm}:
		case <-ctx.Done():
			close(a.jobs)
			a.wg.Wait()
			return nil
		}
	}
}

// Stop requests the serve loop and all workers to shut down.
func (a *Agent) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *Agent) worker(ctx context.Context) {
	defer a.wg.Done()
	for job := range a.jobs {
		resp := a.handlePacket(job.packet)
		if resp == nil {
			continue
		}
		var wcm *ipv4.ControlMessage
		if job.cm != nil {
			wcm = &ipv4.ControlMessage{Src: job.cm.Dst}
		}
		if _, err := a.pc.WriteTo(resp, wcm, job.from); err != nil {
			a.logger.Printf("snmpcore: agent write error: %v", err)
		}
	}
}

// handlePacket decodes, dispatches, and encodes the response for one
// inbound datagram, or returns nil if no response should be sent
// (malformed input, or a v1/v2c request under the wrong community).
func (a *Agent) handlePacket(packet []byte) []byte {
	msg, err := DecodeMessage(packet)
	if err != nil {
		a.counters.Incr(OidSnmpInASNParseErrs)
		a.logger.Printf("snmpcore: agent decode error: %v", err)
		return nil
	}

	switch msg.Version {
	case Version1, Version2c:
		return a.handleCommunityRequest(msg)
	case Version3:
		return a.handleV3Request(msg, packet)
	default:
		a.logger.Printf("snmpcore: agent received unsupported version %v", msg.Version)
		return nil
	}
}

func (a *Agent) handleCommunityRequest(msg Message) []byte {
	if msg.Community != a.cfg.Community {
		a.counters.Incr(OidSnmpInBadCommunityNames)
		a.logger.Printf("snmpcore: rejecting request with unknown community")
		return nil
	}
	respPDU := a.dispatch(msg.PDU, nil)
	out, err := EncodeMessage(msg.Version, msg.Community, respPDU)
	if err != nil {
		a.logger.Printf("snmpcore: agent encode error: %v", err)
		return nil
	}
	return out
}

func (a *Agent) handleV3Request(msg Message, raw []byte) []byte {
	sp := msg.V3.SecurityParameters

	if reportOID, ok := a.shouldReport(sp); ok {
		return a.buildReport(msg, reportOID)
	}

	user, known := a.cfg.Users.Lookup(sp.UserName)
	if !known {
		a.counters.Incr(OidUsmStatsUnknownUserNames)
		return a.buildReport(msg, OidUsmStatsUnknownUserNames)
	}

	flags := msg.V3.Header.Flags
	if flags.HasAuth() {
		ok, err := VerifyDigest(raw, user.AuthProtocol, user.AuthKey, sp.AuthenticationParameters)
		if err != nil || !ok {
			a.counters.Incr(OidUsmStatsWrongDigests)
			return a.buildReport(msg, OidUsmStatsWrongDigests)
		}
	}

	if !a.engine.WithinTimeWindow(sp.AuthoritativeEngineBoots, sp.AuthoritativeEngineTime) {
		a.counters.Incr(OidUsmStatsNotInTimeWindows)
		return a.buildReport(msg, OidUsmStatsNotInTimeWindows)
	}

	if len(msg.V3.EncryptedPDU) > 0 {
		plaintext, err := DecryptScopedPDU(user.PrivProtocol, user.PrivKey,
			uint32(sp.AuthoritativeEngineBoots), uint32(sp.AuthoritativeEngineTime), sp.PrivacyParameters, msg.V3.EncryptedPDU)
		if err != nil {
			a.counters.Incr(OidUsmStatsDecryptionErrors)
			return a.buildReport(msg, OidUsmStatsDecryptionErrors)
		}
		scoped, err := DecodeScopedPDUFromBytes(plaintext)
		if err != nil {
			a.counters.Incr(OidUsmStatsDecryptionErrors)
			return a.buildReport(msg, OidUsmStatsDecryptionErrors)
		}
		msg.V3.ScopedPDU = scoped
		msg.PDU = scoped.PDU
	}

	respPDU := a.dispatch(msg.PDU, user)
	return a.encodeV3Response(msg, respPDU, user, flags)
}

// shouldReport reports whether msg needs an unauthenticated discovery
// Report: the peer either has no authoritative engine ID yet (a discovery
// probe carries an empty one) or holds a stale/wrong one. Both cases are
// answered with usmStatsUnknownEngineIDs per RFC 3414 §4.
func (a *Agent) shouldReport(sp UsmSecurityParameters) (Oid, bool) {
	if sp.AuthoritativeEngineID != a.engine.EngineID {
		a.counters.Incr(OidUsmStatsUnknownEngineIDs)
		return OidUsmStatsUnknownEngineIDs, true
	}
	return nil, false
}

// buildReport answers with an unauthenticated, unencrypted Report PDU
// carrying the triggering usmStats counter, per RFC 3414 §3.2.
func (a *Agent) buildReport(msg Message, statOID Oid) []byte {
	report := PDU{
		Type:      Report,
		RequestID: msg.PDU.RequestID,
		Varbinds:  VarbindList{{Oid: statOID, Value: Counter32(0)}},
	}
	if msg.V3 != nil {
		report.RequestID = msg.V3.ScopedPDU.PDU.RequestID
	}

	usm := UsmSecurityParameters{
		AuthoritativeEngineID:   a.engine.EngineID,
		AuthoritativeEngineBoots: a.engine.Boots(),
		AuthoritativeEngineTime:  a.engine.Time(),
	}
	if msg.V3 != nil {
		usm.UserName = msg.V3.SecurityParameters.UserName
	}

	hdr := V3Header{MsgID: msg.V3.Header.MsgID, MaxSize: maxMessageSize, Flags: 0, SecurityModel: UserSecurityModel}
	scoped := ScopedPDU{ContextEngineID: a.engine.EngineID, PDU: report}
	plaintext, err := EncodeScopedPDU(scoped)
	if err != nil {
		a.logger.Printf("snmpcore: agent failed to encode report: %v", err)
		return nil
	}
	out, _, err := EncodeMessageV3(hdr, usm, AuthNone, plaintext, nil)
	if err != nil {
		a.logger.Printf("snmpcore: agent failed to encode report: %v", err)
		return nil
	}
	return out
}

func (a *Agent) encodeV3Response(msg Message, respPDU PDU, user *V3User, flags MsgFlags) []byte {
	scoped := ScopedPDU{ContextEngineID: msg.V3.ScopedPDU.ContextEngineID, ContextName: msg.V3.ScopedPDU.ContextName, PDU: respPDU}
	plaintext, err := EncodeScopedPDU(scoped)
	if err != nil {
		a.logger.Printf("snmpcore: agent failed to encode scoped pdu: %v", err)
		return nil
	}

	usm := UsmSecurityParameters{
		AuthoritativeEngineID:    a.engine.EngineID,
		AuthoritativeEngineBoots: a.engine.Boots(),
		AuthoritativeEngineTime:  a.engine.Time(),
		UserName:                 user.Name,
	}

	var scopedPlain, scopedEnc []byte
	if flags.HasPriv() {
		salt := a.engine.NextAESSalt()
		if user.PrivProtocol == PrivDES {
			salt = a.engine.NextDESSalt()
		}
		usm.PrivacyParameters = salt
		scopedEnc, err = EncryptScopedPDU(user.PrivProtocol, user.PrivKey, uint32(usm.AuthoritativeEngineBoots), uint32(usm.AuthoritativeEngineTime), salt, plaintext)
		if err != nil {
			a.logger.Printf("snmpcore: agent failed to encrypt response: %v", err)
			return nil
		}
	} else {
		scopedPlain = plaintext
	}

	hdr := V3Header{MsgID: msg.V3.Header.MsgID, MaxSize: maxMessageSize, Flags: flags &^ FlagReportable, SecurityModel: UserSecurityModel}
	out, authParamStart, err := EncodeMessageV3(hdr, usm, user.AuthProtocol, scopedPlain, scopedEnc)
	if err != nil {
		a.logger.Printf("snmpcore: agent failed to encode v3 response: %v", err)
		return nil
	}
	if flags.HasAuth() {
		if err := Authenticate(out, authParamStart, user.AuthProtocol, user.AuthKey); err != nil {
			a.logger.Printf("snmpcore: agent failed to authenticate response: %v", err)
			return nil
		}
	}
	return out
}

// dispatch answers one request PDU against the registered ObjectProvider,
// mapping GET/GETNEXT/GETBULK/SET onto Registry/ObjectProvider calls the
// way VirtualAgent's handleGetRequest/handleGetNextRequest/
// handleGetBulkRequest/handleSetRequest do, generalized to an arbitrary
// provider instead of a single fixed OID database.
func (a *Agent) dispatch(req PDU, _ *V3User) PDU {
	switch req.Type {
	case GetRequest:
		return a.handleGet(req)
	case GetNextRequest:
		return a.handleGetNext(req)
	case GetBulkRequest:
		return a.handleGetBulk(req)
	case SetRequest:
		return a.handleSet(req)
	default:
		return PDU{Type: GetResponse, RequestID: req.RequestID, ErrorStatus: GenErr, ErrorIndex: 1}
	}
}

// handleGet probes the provider for each requested varbind. A miss is
// reported as a NoSuchObject exception value in place of the varbind, not
// as a PDU-level error, so the response's ErrorStatus stays NoError even
// when some varbinds are unmapped.
func (a *Agent) handleGet(req PDU) PDU {
	out := make(VarbindList, 0, len(req.Varbinds))
	for _, vb := range req.Varbinds {
		val, ok := a.provider.Get(vb.Oid)
		if !ok {
			out = append(out, Varbind{Oid: vb.Oid, Value: NoSuchObject()})
			continue
		}
		out = append(out, Varbind{Oid: vb.Oid, Value: val})
	}
	return PDU{Type: GetResponse, RequestID: req.RequestID, Varbinds: out}
}

func (a *Agent) handleGetNext(req PDU) PDU {
	out := make(VarbindList, 0, len(req.Varbinds))
	for _, vb := range req.Varbinds {
		nextOid, val, ok := a.provider.GetNext(vb.Oid)
		if !ok {
			out = append(out, Varbind{Oid: vb.Oid, Value: EndOfMibView()})
			continue
		}
		out = append(out, Varbind{Oid: nextOid, Value: val})
	}
	return PDU{Type: GetResponse, RequestID: req.RequestID, Varbinds: out}
}

// getBulkSizeBudget leaves room for the surrounding message/PDU framing
// so a GETBULK response with many repetitions never grows past what a
// single UDP datagram can carry.
const getBulkSizeBudget = maxMessageSize - 512

func (a *Agent) handleGetBulk(req PDU) PDU {
	nonRepeaters := int(req.NonRepeaters)
	if nonRepeaters < 0 || nonRepeaters > len(req.Varbinds) {
		nonRepeaters = 0
	}
	maxRepetitions := int(req.MaxRepetitions)
	if maxRepetitions < 0 {
		maxRepetitions = 0
	}

	out := make(VarbindList, 0, len(req.Varbinds)*(maxRepetitions+1))
	budget := getBulkSizeBudget

	appendBounded := func(vb Varbind) bool {
		encoded, err := encodeVarbind(vb)
		if err != nil || len(encoded) > budget {
			return false
		}
		out = append(out, vb)
		budget -= len(encoded)
		return true
	}

	for i := 0; i < nonRepeaters; i++ {
		vb := req.Varbinds[i]
		nextOid, val, ok := a.provider.GetNext(vb.Oid)
		if !ok {
			appendBounded(Varbind{Oid: vb.Oid, Value: EndOfMibView()})
			continue
		}
		appendBounded(Varbind{Oid: nextOid, Value: val})
	}

	// Repeaters advance in interleaved rounds per RFC 3416 §4.2.3: each
	// round issues one GetNext per still-active repeater, so response
	// varbinds arrive row by row. A repeater that hits the end of the
	// view reports EndOfMibView once and sits out the remaining rounds;
	// the loop stops early once every repeater is exhausted.
	repeaters := req.Varbinds[nonRepeaters:]
	current := make([]Oid, len(repeaters))
	exhausted := make([]bool, len(repeaters))
	for i, vb := range repeaters {
		current[i] = vb.Oid
	}

	for round := 0; round < maxRepetitions; round++ {
		live := false
		for i := range repeaters {
			if exhausted[i] {
				continue
			}
			nextOid, val, ok := a.provider.GetNext(current[i])
			if !ok {
				appendBounded(Varbind{Oid: current[i], Value: EndOfMibView()})
				exhausted[i] = true
				continue
			}
			if !appendBounded(Varbind{Oid: nextOid, Value: val}) {
				exhausted[i] = true
				continue
			}
			current[i] = nextOid
			live = true
		}
		if !live {
			break
		}
	}
	return PDU{Type: GetResponse, RequestID: req.RequestID, Varbinds: out}
}

// handleSet implements RFC 1905 §4.2.5's validate-then-commit discipline
// in two real phases. Phase 1 calls CanSet over every varbind and mutates
// nothing; if any varbind fails, the first failure's ErrorStatus
// (NotWritable/WrongType/NoAccess/...) is reported verbatim at its
// 1-based ErrorIndex and no provider state has changed. Only once every
// varbind has cleared Phase 1 does Phase 2 apply the writes. A Phase-2
// failure (a provider whose Set disagrees with its own CanSet) triggers
// best-effort rollback of every varbind already applied; if a rollback
// Set itself fails, the response reports UndoFailed rather than
// CommitFailed.
func (a *Agent) handleSet(req PDU) PDU {
	for i, vb := range req.Varbinds {
		if status := a.provider.CanSet(vb.Oid, vb.Value); status != NoError {
			return PDU{Type: GetResponse, RequestID: req.RequestID, ErrorStatus: status, ErrorIndex: int32(i + 1), Varbinds: req.Varbinds}
		}
	}

	priorValues := make([]SmiValue, len(req.Varbinds))
	havePrior := make([]bool, len(req.Varbinds))
	for i, vb := range req.Varbinds {
		if v, ok := a.provider.Get(vb.Oid); ok {
			priorValues[i] = v
			havePrior[i] = true
		}
	}

	applied := 0
	for i, vb := range req.Varbinds {
		if status := a.provider.Set(vb.Oid, vb.Value); status != NoError {
			reported := CommitFailed
			if !a.rollbackSet(req.Varbinds[:applied], priorValues[:applied], havePrior[:applied]) {
				reported = UndoFailed
			}
			return PDU{Type: GetResponse, RequestID: req.RequestID, ErrorStatus: reported, ErrorIndex: int32(i + 1), Varbinds: req.Varbinds}
		}
		applied++
	}

	return PDU{Type: GetResponse, RequestID: req.RequestID, Varbinds: req.Varbinds}
}

func (a *Agent) rollbackSet(applied VarbindList, prior []SmiValue, havePrior []bool) bool {
	ok := true
	for i := len(applied) - 1; i >= 0; i-- {
		if !havePrior[i] {
			continue
		}
		if status := a.provider.Set(applied[i].Oid, prior[i]); status != NoError {
			ok = false
		}
	}
	return ok
}
