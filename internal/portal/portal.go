// Package portal talks to the xdg-desktop-portal ScreenCast interface over
// the session bus.
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const (
	ObjectName        = "org.freedesktop.portal.Desktop"
	ObjectPath        = "/org/freedesktop/portal/desktop"
	CallBaseName      = "org.freedesktop.portal"
	PropertiesGetName = "org.freedesktop.DBus.Properties.Get"

	screenCastInterface = CallBaseName + ".ScreenCast"
	requestInterface    = CallBaseName + ".Request"
	sessionInterface    = CallBaseName + ".Session"

	createSessionName  = screenCastInterface + ".CreateSession"
	selectSourcesName  = screenCastInterface + ".SelectSources"
	startName          = screenCastInterface + ".Start"
	openPipeWireRemote = screenCastInterface + ".OpenPipeWireRemote"
	sessionCloseName   = sessionInterface + ".Close"
	requestCloseName   = requestInterface + ".Close"
)

var (
	ErrUnexpectedResponse = errors.New("unexpected response from dbus")
	ErrCancelled          = errors.New("portal request was cancelled")
)

// Conn is a session bus connection used for portal calls.
type Conn struct {
	bus *dbus.Conn
}

// Connect uses the shared session bus connection.
func Connect() (*Conn, error) {
	bus, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("portal: connect session bus: %w", err)
	}
	return &Conn{bus: bus}, nil
}

func (c *Conn) object(path dbus.ObjectPath) dbus.BusObject {
	return c.bus.Object(ObjectName, path)
}

func (c *Conn) callStore(ctx context.Context, path dbus.ObjectPath, method string, out any, args ...any) error {
	call := c.object(path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return fmt.Errorf("portal: %s: %w", method, call.Err)
	}
	if out == nil {
		return nil
	}
	if err := call.Store(out); err != nil {
		return fmt.Errorf("portal: %s: %w", method, err)
	}
	return nil
}

func (c *Conn) uint32Property(ctx context.Context, property string) (uint32, error) {
	var value dbus.Variant
	if err := c.callStore(ctx, ObjectPath, PropertiesGetName, &value, screenCastInterface, property); err != nil {
		return 0, err
	}
	result, ok := value.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("portal: property %s returned unexpected type %T", property, value.Value())
	}
	return result, nil
}

func (c *Conn) AvailableSourceTypes(ctx context.Context) (uint32, error) {
	return c.uint32Property(ctx, "AvailableSourceTypes")
}

func (c *Conn) AvailableCursorModes(ctx context.Context) (uint32, error) {
	return c.uint32Property(ctx, "AvailableCursorModes")
}

func (c *Conn) Version(ctx context.Context) (uint32, error) {
	return c.uint32Property(ctx, "version")
}

// newToken returns a handle token that is also a valid object path element.
func newToken() string {
	return "scapsrc_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// requestPath predicts the Request object the portal creates for a token,
// so the Response subscription can be in place before the call is made.
func (c *Conn) requestPath(token string) dbus.ObjectPath {
	sender := ""
	if names := c.bus.Names(); len(names) > 0 {
		sender = strings.ReplaceAll(strings.TrimPrefix(names[0], ":"), ".", "_")
	}
	return dbus.ObjectPath(ObjectPath + "/request/" + sender + "/" + token)
}
