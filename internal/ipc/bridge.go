package ipc

import (
	"fmt"

	"roboarm/internal/core"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

// EventTarget accepts input events and reports status; arm.Controller
// satisfies it.
type EventTarget interface {
	Submit(ev core.Event) bool
	Status() interface{}
}

// Bridge connects an IPCServer to the frame loop: inbound messages become
// events, and every n-th frame is broadcast as telemetry.
type Bridge struct {
	server *IPCServer
	target EventTarget
	every  uint64
	logger *logging.Logger
}

// NewBridge registers the inbound handlers on server and broadcasts every
// broadcastEvery-th frame.
func NewBridge(server *IPCServer, target EventTarget, broadcastEvery int) *Bridge {
	if broadcastEvery <= 0 {
		broadcastEvery = 1
	}
	b := &Bridge{
		server: server,
		target: target,
		every:  uint64(broadcastEvery),
		logger: logging.GetLogger("ipc_bridge"),
	}

	for _, t := range []string{MessageTypePointer, MessageTypeRecord, MessageTypePlay, MessageTypeReset} {
		server.RegisterHandler(t, b.handleEvent)
	}
	server.RegisterHandler(MessageTypeStatusRequest, b.handleStatus)
	server.SetDefaultHandler(b.handleUnknown)
	return b
}

// OnFrame is a core.FrameListener.
func (b *Bridge) OnFrame(f *types.Frame) {
	if f.Seq%b.every != 0 || b.server.ClientCount() == 0 {
		return
	}
	if err := b.server.Broadcast(NewMessage(MessageTypeFrame, "", FrameData(f))); err != nil {
		b.logger.Warn("Frame broadcast failed", "error", err)
	}
}

func (b *Bridge) handleEvent(msg types.IPCMessage) {
	ev, err := DecodeEvent(msg)
	if err != nil {
		b.replyError(msg, err)
		return
	}
	if !b.target.Submit(ev) {
		b.replyError(msg, fmt.Errorf("event queue full"))
	}
}

func (b *Bridge) handleStatus(msg types.IPCMessage) {
	data, ok := b.target.Status().(map[string]interface{})
	if !ok {
		data = map[string]interface{}{"status": b.target.Status()}
	}
	b.reply(msg, NewMessage(MessageTypeStatusResponse, msg.Source, data))
}

func (b *Bridge) handleUnknown(msg types.IPCMessage) {
	b.replyError(msg, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type))
}

func (b *Bridge) replyError(msg types.IPCMessage, err error) {
	b.logger.Debug("Rejecting message", "type", msg.Type, "client", msg.Source, "error", err)
	resp := NewMessage(MessageTypeErrorResponse, msg.Source, errorData(err))
	resp.Data["request_id"] = msg.ID
	b.reply(msg, resp)
}

func (b *Bridge) reply(msg types.IPCMessage, resp types.IPCMessage) {
	if err := b.server.SendToClient(msg.Source, resp); err != nil {
		b.logger.Warn("Reply failed", "client", msg.Source, "error", err)
	}
}
