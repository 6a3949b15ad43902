//go:build linux

// Package jsproxy interprets the forwarded joystick protocol on the server
// side: each connection carries one configuration record followed by event
// reports, replayed into a virtual input device.
package jsproxy

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"warpout-core/internal/metrics"
	"warpout-core/internal/server"
	"warpout-core/pkg/evdev"
	"warpout-core/pkg/joystick"
	"warpout-core/pkg/uinput"
	"warpout-core/pkg/wire"
)

// clientContext is the per-connection state stored in the server slot. It is
// owned by the event loop for the slot's whole lifetime.
type clientContext struct {
	session string
	dec     *wire.StreamDecoder
	cfg     *joystick.Config
	dev     *uinput.Device
}

// Handlers returns the callback bundle wiring this interpreter into the
// connection multiplexer.
func Handlers() server.Handlers {
	return server.Handlers{
		OnConnect:    onConnect,
		OnDisconnect: onDisconnect,
		OnReadData:   onReadData,
	}
}

func onConnect(fd int) any {
	ctx := &clientContext{session: uuid.NewString()[:8]}
	ctx.dec = wire.NewStreamDecoder(wire.DefaultMaxFrame, ctx.handleMessage, ctx.handleDecodeError)
	log.Printf("[%s] client connected (fd %d)", ctx.session, fd)
	return ctx
}

func onDisconnect(v any) {
	ctx := v.(*clientContext)
	if ctx.dev != nil {
		if err := ctx.dev.Close(); err != nil {
			log.Printf("[%s] destroy virtual device: %v", ctx.session, err)
		}
	}
	log.Printf("[%s] client disconnected", ctx.session)
}

// onReadData drains the socket until it would block; the readiness
// notification is edge-triggered and will not repeat for already-pending
// bytes.
func onReadData(fd int, v any) bool {
	ctx := v.(*clientContext)
	buf := make([]byte, 256)
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EAGAIN || err == unix.EINTR {
			return true
		}
		if err != nil {
			log.Printf("[%s] read: %v", ctx.session, err)
			return false
		}
		if n == 0 {
			return false // peer closed
		}
		ctx.dec.Feed(buf[:n])
	}
}

func (ctx *clientContext) handleMessage(tag uint16, payload []byte) {
	switch tag {
	case joystick.TagConfig:
		metrics.FramesDecoded.WithLabelValues("config").Inc()
		ctx.handleConfig(payload)
	case joystick.TagReport:
		metrics.FramesDecoded.WithLabelValues("report").Inc()
		ctx.handleReport(payload)
	default:
		metrics.FramesDecoded.WithLabelValues("unknown").Inc()
		log.Printf("[%s] unknown record tag %d", ctx.session, tag)
	}
}

func (ctx *clientContext) handleConfig(payload []byte) {
	if ctx.cfg != nil {
		log.Printf("[%s] configuration already set, ignoring", ctx.session)
		return
	}
	cfg, err := joystick.UnmarshalConfig(payload)
	if err != nil {
		log.Printf("[%s] bad configuration: %v", ctx.session, err)
		return
	}
	dev, err := uinput.Create(cfg)
	if err != nil {
		log.Printf("[%s] create virtual device: %v", ctx.session, err)
		return
	}
	ctx.cfg = cfg
	ctx.dev = dev
	log.Printf("[%s] virtual device %q up: %d abs, %d rel, %d buttons",
		ctx.session, cfg.NameString(), cfg.AbsAxisCount, cfg.RelAxisCount, cfg.ButtonCount)
}

func (ctx *clientContext) handleReport(payload []byte) {
	if ctx.cfg == nil {
		log.Printf("[%s] report before configuration, dropping", ctx.session)
		return
	}
	report, err := joystick.UnmarshalReport(ctx.cfg, payload)
	if err != nil {
		log.Printf("[%s] bad report: %v", ctx.session, err)
		return
	}
	for i := 0; i < int(ctx.cfg.AbsAxisCount); i++ {
		if err := ctx.dev.Emit(evdev.EvAbs, ctx.cfg.AbsAxis[i], report.Abs[i]); err != nil {
			log.Printf("[%s] emit abs: %v", ctx.session, err)
		}
	}
	for i := 0; i < int(ctx.cfg.RelAxisCount); i++ {
		if err := ctx.dev.Emit(evdev.EvRel, ctx.cfg.RelAxis[i], report.Rel[i]); err != nil {
			log.Printf("[%s] emit rel: %v", ctx.session, err)
		}
	}
	for i := 0; i < int(ctx.cfg.ButtonCount); i++ {
		if err := ctx.dev.Emit(evdev.EvKey, ctx.cfg.Buttons[i], int32(report.Buttons[i])); err != nil {
			log.Printf("[%s] emit key: %v", ctx.session, err)
		}
	}
	if err := ctx.dev.Sync(); err != nil {
		log.Printf("[%s] emit syn: %v", ctx.session, err)
	}
	events := int(ctx.cfg.AbsAxisCount) + int(ctx.cfg.RelAxisCount) + int(ctx.cfg.ButtonCount) + 1
	metrics.EventsReplayed.Add(float64(events))
}

// handleDecodeError observes discarded frames; the decode stream has already
// resynchronized, the connection stays up.
func (ctx *clientContext) handleDecodeError(err error) {
	kind := "record"
	if errors.Is(err, wire.ErrBadEscape) || errors.Is(err, wire.ErrOverflow) {
		kind = "framing"
	}
	metrics.DecodeErrors.WithLabelValues(kind).Inc()
	log.Printf("[%s] frame discarded: %v", ctx.session, err)
}
