package api

import (
	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/signal"
)

// SignalSurface is the approval surface of a shell-driven deployment:
// "opening the window" is a broadcast the shell reacts to by actually
// showing one, which then polls /v1/approvals and posts decisions back.
type SignalSurface struct {
	hub *signal.Hub
}

var _ approval.Surface = (*SignalSurface)(nil)

// NewSignalSurface creates a surface broadcasting on the given hub.
func NewSignalSurface(hub *signal.Hub) *SignalSurface {
	return &SignalSurface{hub: hub}
}

func (s *SignalSurface) Open() error {
	s.hub.Publish(signal.EventApprovalPending, nil)
	return nil
}

// Present re-broadcasts so an already-open window refreshes its list.
func (s *SignalSurface) Present(p approval.Prompt) error {
	s.hub.Publish(signal.EventApprovalPending, p)
	return nil
}

func (s *SignalSurface) Close() error {
	s.hub.Publish(signal.EventApprovalClosed, nil)
	return nil
}
