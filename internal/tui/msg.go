package tui

import "github.com/runoshun/git-murm/internal/usecase"

// Msg is the sealed interface for all watch view messages.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgStatusLoaded is sent when the queue file has been read.
type MsgStatusLoaded struct {
	Status *usecase.ShowStatusOutput
}

func (MsgStatusLoaded) sealed() {}

// MsgQueueChanged is sent when the queue file was written.
type MsgQueueChanged struct{}

func (MsgQueueChanged) sealed() {}

// MsgTick is sent periodically so log-driven progress keeps moving
// between queue writes.
type MsgTick struct{}

func (MsgTick) sealed() {}

// MsgError is sent when loading the status fails.
type MsgError struct {
	Err error
}

func (MsgError) sealed() {}
