// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package ingest

import (
	"bufio"
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/tomtom215/cartographus/internal/apperr"
	"github.com/tomtom215/cartographus/internal/extract"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
)

// SyslogConfig describes one syslog listener.
type SyslogConfig struct {
	SourceID string
	Network  string // "udp" or "tcp"
	Addr     string
}

var priRe = regexp.MustCompile(`^<(\d{1,3})>`)

// severityNames maps the low 3 bits of a syslog PRI to a level name
// (RFC 5424 ​§6.2.1).
var severityNames = [8]string{"emerg", "alert", "crit", "error", "warning", "notice", "info", "debug"}

// Syslog listens for RFC3164/RFC5424 formatted messages on UDP or TCP.
type Syslog struct {
	cfg       SyslogConfig
	sink      Sink
	extractor *extract.Extractor

	conn     net.PacketConn
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewSyslog(cfg SyslogConfig, sink Sink, extractor *extract.Extractor) *Syslog {
	return &Syslog{cfg: cfg, sink: sink, extractor: extractor}
}

func (s *Syslog) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	switch s.cfg.Network {
	case "tcp":
		ln, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return apperr.Wrap(apperr.KindUnavailable, "ingest.Syslog.Start", "listen tcp "+s.cfg.Addr, err)
		}
		s.listener = ln
		s.wg.Add(1)
		go s.acceptLoop(runCtx)
	default:
		conn, err := net.ListenPacket("udp", s.cfg.Addr)
		if err != nil {
			return apperr.Wrap(apperr.KindUnavailable, "ingest.Syslog.Start", "listen udp "+s.cfg.Addr, err)
		}
		s.conn = conn
		s.wg.Add(1)
		go s.readUDP(runCtx)
	}

	logging.Info().Str("network", s.cfg.Network).Str("addr", s.cfg.Addr).Msg("syslog listener started")
	return nil
}

func (s *Syslog) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Syslog) readUDP(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, 64*1024)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		s.handleLine(ctx, string(buf[:n]))
	}
}

func (s *Syslog) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func (s *Syslog) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		s.handleLine(ctx, scanner.Text())
	}
}

func (s *Syslog) handleLine(ctx context.Context, line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	level, body := parsePRI(line)
	event := model.NewLogEvent(s.cfg.SourceID, line)
	event.Message = body
	if level != "" {
		event.Level = level
	}
	recordAccepted(ctx, "syslog", s.cfg.SourceID, s.extractor, s.sink, event)
}

// parsePRI extracts the PRI header's severity and returns the remaining
// message text. Facility is discarded; only severity maps to Level.
func parsePRI(line string) (level, body string) {
	m := priRe.FindStringSubmatch(line)
	if m == nil {
		return "", line
	}
	pri, err := strconv.Atoi(m[1])
	if err != nil {
		return "", line
	}
	severity := pri & 0x07
	return severityNames[severity], strings.TrimPrefix(line, m[0])
}
