package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	SourceTypeMonitor uint32 = 1
	SourceTypeWindow  uint32 = 2
	SourceTypeVirtual uint32 = 4
)

const (
	CursorModeHidden   uint32 = 1
	CursorModeEmbedded uint32 = 2
	CursorModeMetadata uint32 = 4
)

const (
	PersistModeNone       uint32 = 0
	PersistModeRunning    uint32 = 1
	PersistModePersistent uint32 = 2
)

// Stream is one PipeWire node the portal granted access to.
type Stream struct {
	NodeID     uint32
	Position   [2]int32
	Size       [2]int32
	SourceType uint32
	MappingID  string
	ID         string
}

type Session struct {
	conn *Conn
	Path dbus.ObjectPath
}

type SelectSourcesOptions struct {
	Types        uint32
	Multiple     bool
	CursorMode   uint32
	RestoreToken string
	PersistMode  uint32
}

func (c *Conn) CreateSession(ctx context.Context) (*Session, error) {
	token := newToken()
	data := map[string]dbus.Variant{
		"handle_token":         fromString(token),
		"session_handle_token": fromString(newToken()),
	}

	results, err := c.request(ctx, createSessionName, token, data)
	if err != nil {
		return nil, err
	}

	sessionHandle, ok := results["session_handle"]
	if !ok {
		return nil, fmt.Errorf("%w: CreateSession response missing session_handle", ErrUnexpectedResponse)
	}
	// Documented as an object path, some implementations send a string.
	switch v := sessionHandle.Value().(type) {
	case string:
		return &Session{conn: c, Path: dbus.ObjectPath(v)}, nil
	case dbus.ObjectPath:
		return &Session{conn: c, Path: v}, nil
	default:
		return nil, fmt.Errorf("%w: session_handle has type %T", ErrUnexpectedResponse, v)
	}
}

func (s *Session) SelectSources(ctx context.Context, options SelectSourcesOptions) error {
	token := newToken()
	data := map[string]dbus.Variant{
		"handle_token": fromString(token),
	}
	if options.Types != 0 {
		data["types"] = fromUint32(options.Types)
	}
	if options.Multiple {
		data["multiple"] = fromBool(options.Multiple)
	}
	if options.CursorMode != 0 {
		data["cursor_mode"] = fromUint32(options.CursorMode)
	}
	if options.RestoreToken != "" {
		data["restore_token"] = fromString(options.RestoreToken)
	}
	if options.PersistMode != 0 {
		data["persist_mode"] = fromUint32(options.PersistMode)
	}

	_, err := s.conn.request(ctx, selectSourcesName, token, s.Path, data)
	return err
}

func (s *Session) Start(ctx context.Context, parentWindow string) ([]Stream, error) {
	token := newToken()
	data := map[string]dbus.Variant{
		"handle_token": fromString(token),
	}

	results, err := s.conn.request(ctx, startName, token, s.Path, parentWindow, data)
	if err != nil {
		return nil, err
	}

	streamVariant, ok := results["streams"]
	if !ok {
		return nil, nil
	}
	return parseStreams(streamVariant.Value()), nil
}

// OpenPipeWireRemote returns a file descriptor for the PipeWire daemon that
// only exposes this session's nodes. The caller owns the descriptor.
func (s *Session) OpenPipeWireRemote(ctx context.Context) (int, error) {
	var fd dbus.UnixFD
	data := map[string]dbus.Variant{}
	if err := s.conn.callStore(ctx, ObjectPath, openPipeWireRemote, &fd, s.Path, data); err != nil {
		return -1, err
	}
	return int(fd), nil
}

func (s *Session) Close() error {
	return s.conn.object(s.Path).Call(sessionCloseName, 0).Err
}
