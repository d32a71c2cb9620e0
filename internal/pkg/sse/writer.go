// Package sse writes the chat streaming protocol: each event is one
// JSON-encoded frame in the form "data: {json}\n\n", flushed immediately so
// tokens reach the client as they are produced.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"

	"coax-rag-be/pkg/rag/response"
)

// Frame types. A stream is zero or more token frames followed by exactly one
// terminal frame, either done or error.
const (
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

type tokenFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type doneFrame struct {
	Type     string                    `json:"type"`
	Message  response.AssistantMessage `json:"message"`
	Metadata []response.Provenance     `json:"metadata"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Writer frames chat events onto a buffered stream.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w *bufio.Writer) *Writer {
	return &Writer{w: w}
}

// WriteToken emits one content fragment. Empty fragments are skipped so the
// client never renders zero-length tokens.
func (s *Writer) WriteToken(content string) error {
	if content == "" {
		return nil
	}
	return s.writeFrame(tokenFrame{Type: EventToken, Content: content})
}

// WriteDone emits the terminal success frame carrying the full assembled
// message and its provenance metadata.
func (s *Writer) WriteDone(message response.AssistantMessage, metadata []response.Provenance) error {
	if metadata == nil {
		metadata = []response.Provenance{}
	}
	return s.writeFrame(doneFrame{Type: EventDone, Message: message, Metadata: metadata})
}

// WriteError emits the terminal failure frame. No frames may follow it.
func (s *Writer) WriteError(message string) error {
	return s.writeFrame(errorFrame{Type: EventError, Error: message})
}

func (s *Writer) writeFrame(frame interface{}) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal sse frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush sse frame: %w", err)
	}
	return nil
}
